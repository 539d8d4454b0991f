package call

import (
	domaincall "github.com/janhq/voicecall/internal/domain/call"
)

// StateResponse is the UI state.
type StateResponse struct {
	Object string `json:"object"` // "voicecall.state"
	domaincall.Snapshot
}

// CallResponse is one call record.
type CallResponse struct {
	ID        string   `json:"id"`
	Object    string   `json:"object"` // "voicecall.call"
	Identity  string   `json:"identity"`
	Room      string   `json:"room"`
	State     string   `json:"state"`
	Reason    string   `json:"reason,omitempty"`
	Message   string   `json:"message,omitempty"`
	CreatedAt int64    `json:"created_at"`
	UpdatedAt int64    `json:"updated_at"`
	EndedAt   *int64   `json:"ended_at,omitempty"`
	Duration  *float64 `json:"duration_seconds,omitempty"`
}

// ListCallsResponse is call history.
type ListCallsResponse struct {
	Object string          `json:"object"` // "list"
	Data   []*CallResponse `json:"data"`
}

// NewStateResponse wraps a snapshot.
func NewStateResponse(snap domaincall.Snapshot) *StateResponse {
	return &StateResponse{Object: "voicecall.state", Snapshot: snap}
}

// NewCallResponse converts a record.
func NewCallResponse(rec *domaincall.Record) *CallResponse {
	resp := &CallResponse{
		ID:        rec.ID,
		Object:    "voicecall.call",
		Identity:  rec.Identity,
		Room:      rec.Room,
		State:     string(rec.State),
		Reason:    string(rec.Reason),
		Message:   rec.Reason.Message(),
		CreatedAt: rec.CreatedAt.Unix(),
		UpdatedAt: rec.UpdatedAt.Unix(),
	}
	if rec.EndedAt != nil {
		ended := rec.EndedAt.Unix()
		resp.EndedAt = &ended
		d := rec.EndedAt.Sub(rec.CreatedAt).Seconds()
		resp.Duration = &d
	}
	return resp
}

// NewListCallsResponse converts records.
func NewListCallsResponse(records []*domaincall.Record) *ListCallsResponse {
	data := make([]*CallResponse, 0, len(records))
	for _, rec := range records {
		data = append(data, NewCallResponse(rec))
	}
	return &ListCallsResponse{Object: "list", Data: data}
}
