package handlers

import (
	"context"

	"github.com/janhq/voicecall/internal/domain/call"
)

// CallService is the part of the call service the HTTP layer uses.
type CallService interface {
	Join(ctx context.Context) (call.Snapshot, error)
	Snapshot() call.Snapshot
	Calls(ctx context.Context) ([]*call.Record, error)
	Call(ctx context.Context, id string) (*call.Record, error)
}

// CallHandler handles call-related HTTP requests.
type CallHandler struct {
	service CallService
}

// NewCallHandler creates a new call handler.
func NewCallHandler(service CallService) *CallHandler {
	return &CallHandler{service: service}
}

// Join requests a token and hands it to a fresh voice session. The join is
// detached from ctx cancellation so a closed tab does not abort a fetch that
// other clicks are sharing.
func (h *CallHandler) Join(ctx context.Context) (call.Snapshot, error) {
	return h.service.Join(context.WithoutCancel(ctx))
}

// State returns the current UI state.
func (h *CallHandler) State() call.Snapshot {
	return h.service.Snapshot()
}

// ListCalls returns call history.
func (h *CallHandler) ListCalls(ctx context.Context) ([]*call.Record, error) {
	return h.service.Calls(ctx)
}

// GetCall returns one call record.
func (h *CallHandler) GetCall(ctx context.Context, id string) (*call.Record, error) {
	return h.service.Call(ctx, id)
}
