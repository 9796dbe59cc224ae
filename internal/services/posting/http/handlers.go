// Package http provides the direct submit endpoint of the posting queue
package http

import (
	stdhttp "net/http"

	"murmur/internal/modkit/httpkit"
	"murmur/internal/services/posting/domain"

	"github.com/google/uuid"
)

// Register mounts POST / for direct mode submissions
func Register(r httpkit.Router, s domain.SubmitPort) {
	h := &handlers{s: s}
	httpkit.PostJSON(r, "/", h.submit)
}

type handlers struct{ s domain.SubmitPort }

// SubmitRequest is one outbound action
type SubmitRequest struct {
	Kind           string   `json:"kind" validate:"required,oneof=reply tweet thread"`
	Text           string   `json:"text" validate:"required_unless=Kind thread,max=1000"`
	Parts          []string `json:"parts" validate:"required_if=Kind thread,max=25,dive,required,max=1000"`
	TargetID       string   `json:"target_id" validate:"required_if=Kind reply,max=32"`
	TargetAuthor   string   `json:"target_author" validate:"max=64"`
	Media          []string `json:"media" validate:"max=4,dive,required"`
	IdempotencyKey string   `json:"idempotency_key" validate:"max=200"`
}

// swagger:route POST /posts Posting postSubmit
// @Summary Submit a reply, tweet or thread through the posting queue
// @Tags Posting
// @Accept json
// @Produce json
// @Param body body SubmitRequest true "action"
// @Success 201 {object} domain.Result "published"
// @Success 200 {object} domain.Result "idempotent replay"
// @Failure 403 {object} httpkit.Envelope "denied by the safety guard"
// @Failure 503 {object} httpkit.Envelope "circuit open or shutting down"
// @Router /posts [post]
func (h *handlers) submit(r *stdhttp.Request, in SubmitRequest) (any, error) {
	op, err := httpkit.Operator(r)
	if err != nil {
		return nil, err
	}
	key := in.IdempotencyKey
	if key == "" {
		key = "api:" + uuid.NewString()
	}
	res, err := h.s.Submit(r.Context(), domain.Action{
		Kind:           domain.Kind(in.Kind),
		Text:           in.Text,
		Parts:          in.Parts,
		TargetID:       in.TargetID,
		TargetAuthor:   in.TargetAuthor,
		Media:          in.Media,
		IdempotencyKey: key,
		Source:         "api:" + op,
	})
	if err != nil {
		return nil, err
	}
	if res.Duplicate {
		return res, nil
	}
	return httpkit.Created(res), nil
}
