// Package http provides the approval review endpoints
package http

import (
	stdhttp "net/http"
	"strconv"

	"murmur/internal/modkit/httpkit"
	"murmur/internal/services/approval/domain"
)

// Register mounts review endpoints; every write records the operator as reviewer
func Register(r httpkit.Router, q domain.QueuePort) {
	h := &handlers{q: q}

	httpkit.Get(r, "/", h.list)
	httpkit.Get(r, "/{id}", h.get)
	httpkit.Get(r, "/{id}/history", h.history)

	httpkit.Post(r, "/{id}/approve", h.approve)
	httpkit.PostJSON(r, "/{id}/reject", h.reject)
	httpkit.PostJSON(r, "/{id}/edit", h.edit)
}

type handlers struct{ q domain.QueuePort }

// RejectRequest carries optional reviewer notes
type RejectRequest struct {
	Notes string `json:"notes" validate:"max=1000"`
}

// EditRequest changes one field
type EditRequest struct {
	Field string `json:"field" validate:"required,oneof=content topic archetype notes"`
	Value string `json:"value" validate:"max=10000"`
}

// swagger:route GET /approvals Approvals approvalList
// @Summary List approval items oldest first
// @Tags Approvals
// @Produce json
// @Param status query string false "pending, approved, rejected or posted"
// @Param limit query int false "max items"
// @Success 200 {array} domain.Item "ok"
// @Router /approvals [get]
func (h *handlers) list(r *stdhttp.Request) (any, error) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return h.q.List(r.Context(), domain.Status(r.URL.Query().Get("status")), limit)
}

// swagger:route GET /approvals/{id} Approvals approvalGet
// @Summary Get one approval item
// @Tags Approvals
// @Produce json
// @Param id path string true "item id"
// @Success 200 {object} domain.Item "ok"
// @Router /approvals/{id} [get]
func (h *handlers) get(r *stdhttp.Request) (any, error) {
	return h.q.Get(r.Context(), httpkit.Param(r, "id"))
}

// swagger:route GET /approvals/{id}/history Approvals approvalHistory
// @Summary Edit history of an item, oldest first
// @Tags Approvals
// @Produce json
// @Param id path string true "item id"
// @Success 200 {array} domain.Edit "ok"
// @Router /approvals/{id}/history [get]
func (h *handlers) history(r *stdhttp.Request) (any, error) {
	return h.q.History(r.Context(), httpkit.Param(r, "id"))
}

// swagger:route POST /approvals/{id}/approve Approvals approvalApprove
// @Summary Approve a pending item
// @Tags Approvals
// @Produce json
// @Param id path string true "item id"
// @Success 200 {object} domain.Item "ok"
// @Failure 409 {object} httpkit.Envelope "not pending"
// @Router /approvals/{id}/approve [post]
func (h *handlers) approve(r *stdhttp.Request) (any, error) {
	op, err := httpkit.Operator(r)
	if err != nil {
		return nil, err
	}
	return h.q.Approve(r.Context(), httpkit.Param(r, "id"), op)
}

// swagger:route POST /approvals/{id}/reject Approvals approvalReject
// @Summary Reject a pending item
// @Tags Approvals
// @Accept json
// @Produce json
// @Param id path string true "item id"
// @Param body body RejectRequest true "notes, may be empty"
// @Success 200 {object} domain.Item "ok"
// @Router /approvals/{id}/reject [post]
func (h *handlers) reject(r *stdhttp.Request, in RejectRequest) (any, error) {
	op, err := httpkit.Operator(r)
	if err != nil {
		return nil, err
	}
	return h.q.Reject(r.Context(), httpkit.Param(r, "id"), op, in.Notes)
}

// swagger:route POST /approvals/{id}/edit Approvals approvalEdit
// @Summary Edit one field of a pending or approved item
// @Tags Approvals
// @Accept json
// @Produce json
// @Param id path string true "item id"
// @Param body body EditRequest true "field and value"
// @Success 200 {object} domain.Item "ok"
// @Router /approvals/{id}/edit [post]
func (h *handlers) edit(r *stdhttp.Request, in EditRequest) (any, error) {
	op, err := httpkit.Operator(r)
	if err != nil {
		return nil, err
	}
	return h.q.Edit(r.Context(), httpkit.Param(r, "id"), domain.Field(in.Field), in.Value, op)
}
