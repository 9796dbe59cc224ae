package config

import (
	"slices"
	"testing"
	"time"

	kit "murmur/internal/platform/testkit"
)

func TestPrefixAndKey(t *testing.T) {
	c := New().Prefix("LOOPS_").Prefix("MENTIONS_")
	if got := c.key("INTERVAL"); got != "LOOPS_MENTIONS_INTERVAL" {
		t.Fatalf("key() = %q", got)
	}
}

func TestMustString(t *testing.T) {
	c := New().Prefix("AGENT_")
	t.Setenv("AGENT_ACCOUNT_ID", "  acct-1 ")
	if got := c.MustString("ACCOUNT_ID"); got != "acct-1" {
		t.Fatalf("MustString = %q", got)
	}
	kit.MustPanic(t, func() { _ = c.MustString("MISSING") })
}

func TestMayAccessorsFallBack(t *testing.T) {
	c := New().Prefix("SAFETY_")
	t.Setenv("SAFETY_DAILY_REPLIES", "40")
	t.Setenv("SAFETY_BAD_INT", "forty")
	t.Setenv("SAFETY_RATIO", "0.2")
	t.Setenv("SAFETY_ON", "true")
	t.Setenv("SAFETY_COOLDOWN", "90s")
	t.Setenv("SAFETY_BAD_DUR", "soon")

	if got := c.MayInt("DAILY_REPLIES", 1); got != 40 {
		t.Fatalf("MayInt = %d", got)
	}
	if got := c.MayInt("BAD_INT", 7); got != 7 {
		t.Fatalf("MayInt invalid = %d", got)
	}
	if got := c.MayFloat64("RATIO", 1); got != 0.2 {
		t.Fatalf("MayFloat64 = %v", got)
	}
	if !c.MayBool("ON", false) {
		t.Fatalf("MayBool = false")
	}
	if got := c.MayDuration("COOLDOWN", time.Second); got != 90*time.Second {
		t.Fatalf("MayDuration = %v", got)
	}
	if got := c.MayDuration("BAD_DUR", time.Second); got != time.Second {
		t.Fatalf("MayDuration invalid = %v", got)
	}
	if got := c.MayString("NOPE", "def"); got != "def" {
		t.Fatalf("MayString default = %q", got)
	}
}

func TestMayCSV(t *testing.T) {
	c := New().Prefix("SCORE_")
	t.Setenv("SCORE_KEYWORDS", " golang, rust ,, zig ")
	t.Setenv("SCORE_EMPTY", " , ")

	if got := c.MayCSV("KEYWORDS", nil); !slices.Equal(got, []string{"golang", "rust", "zig"}) {
		t.Fatalf("MayCSV = %v", got)
	}
	if got := c.MayCSV("EMPTY", []string{"d"}); !slices.Equal(got, []string{"d"}) {
		t.Fatalf("MayCSV empty = %v", got)
	}
}

func TestMayEnum(t *testing.T) {
	c := New().Prefix("AGENT_")
	t.Setenv("AGENT_MODE", "Approval")
	if got := c.MayEnum("MODE", "direct", "direct", "approval"); got != "approval" {
		t.Fatalf("MayEnum = %q", got)
	}
	if got := c.MayEnum("UNSET", "direct", "direct", "approval"); got != "direct" {
		t.Fatalf("MayEnum default = %q", got)
	}
	t.Setenv("AGENT_BAD", "yolo")
	kit.MustPanic(t, func() { _ = c.MayEnum("BAD", "direct", "direct", "approval") })
}
