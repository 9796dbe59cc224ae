package main

import (
	"fmt"

	"murmur/internal/adapters/llm"
	"murmur/internal/adapters/social"
	"murmur/internal/modkit"
	approvaldom "murmur/internal/services/approval/domain"
	approvalmod "murmur/internal/services/approval/module"
	loopsdom "murmur/internal/services/loops/domain"
	loopsmod "murmur/internal/services/loops/module"
	postingmod "murmur/internal/services/posting/module"
	safetymod "murmur/internal/services/safety/module"
	telemetrymod "murmur/internal/services/telemetry/module"
)

// overrides carries CLI flags that win over env config
type overrides struct {
	agentMode string
}

// app holds the wired modules and their ports
type app struct {
	telemetry *telemetrymod.Module
	safety    *safetymod.Module
	approval  *approvalmod.Module
	posting   *postingmod.Module
	loops     *loopsmod.Module

	tel  telemetrymod.Ports
	safe safetymod.Ports
	post postingmod.Ports
	loop loopsmod.Ports
}

// queue joins the review side and the posted side of the approval queue for the dispatcher
type queue struct {
	approvaldom.QueuePort
	approvaldom.PostedPort
}

// portsOf asserts a module's port set, panicking on a wiring mistake
func portsOf[T any](m interface{ Ports() any }) T {
	p, ok := m.Ports().(T)
	if !ok {
		panic(fmt.Sprintf("module ports are %T, want %T", m.Ports(), *new(T)))
	}
	return p
}

func parseAgentMode(s string) (loopsdom.Mode, error) {
	switch loopsdom.Mode(s) {
	case "":
		return "", nil
	case loopsdom.ModeApproval, loopsdom.ModeDirect:
		return loopsdom.Mode(s), nil
	}
	return "", fmt.Errorf("bad -agent-mode %q: want approval or direct", s)
}

// wire builds every module in dependency order: telemetry and safety first,
// then the approval queue and the posting actor, then the loops that drive them
func wire(deps modkit.Deps, o overrides) (*app, error) {
	mode, err := parseAgentMode(o.agentMode)
	if err != nil {
		return nil, err
	}

	a := &app{}

	a.telemetry = telemetrymod.New(deps, telemetrymod.Options{})
	a.tel = portsOf[telemetrymod.Ports](a.telemetry)

	a.safety = safetymod.New(deps, safetymod.Options{})
	a.safe = portsOf[safetymod.Ports](a.safety)

	a.approval = approvalmod.New(deps, approvalmod.Options{})
	ap := portsOf[approvalmod.Ports](a.approval)

	platform := social.New(social.FromConfig(deps.Cfg))
	gen := llm.New(llm.FromConfig(deps.Cfg))

	a.posting = postingmod.New(deps, postingmod.Collaborators{
		Writer:    platform,
		Guard:     a.safe.Guard,
		Recorder:  a.safe.Recorder,
		ActionLog: a.tel.Log,
		Publisher: a.tel.Svc,
	}, postingmod.Options{})
	a.post = portsOf[postingmod.Ports](a.posting)

	a.loops = loopsmod.New(deps, loopsmod.Collaborators{
		Fetcher:    platform,
		Generator:  gen,
		Guard:      a.safe.Guard,
		ActionLog:  a.tel.Log,
		Accountant: a.tel.Accountant,
		Approval:   queue{QueuePort: ap.Queue, PostedPort: ap.Posted},
		Poster:     a.post.Submit,
	}, loopsmod.Options{Mode: mode})
	a.loop = portsOf[loopsmod.Ports](a.loops)

	return a, nil
}

// modules lists what the HTTP surface mounts behind auth
func (a *app) modules() []modkit.Module {
	return []modkit.Module{a.approval, a.posting, a.safety, a.telemetry, a.loops}
}
