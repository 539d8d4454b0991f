package call

import (
	"time"

	"github.com/janhq/voicecall/internal/domain/failure"
)

// State of a call record.
type State string

const (
	StateConnecting State = "connecting"
	StateConnected  State = "connected"
	StateFailed     State = "failed"
	StateEnded      State = "ended"
)

// Record is the history entry kept for every voice session started. It never
// holds the access token.
type Record struct {
	ID        string         `json:"id"`
	Identity  string         `json:"identity"`
	Room      string         `json:"room"`
	State     State          `json:"state"`
	Reason    failure.Reason `json:"reason,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	EndedAt   *time.Time     `json:"ended_at,omitempty"`
}

// View is what the UI renders.
type View string

const (
	ViewJoin       View = "join"
	ViewJoining    View = "joining"
	ViewConnecting View = "connecting"
	ViewConnected  View = "connected"
	ViewFailed     View = "failed"
	ViewEnded      View = "ended"
)

// Snapshot is the combined state of the join flow and the current call.
type Snapshot struct {
	View              View           `json:"view"`
	CallID            string         `json:"call_id,omitempty"`
	Identity          string         `json:"identity,omitempty"`
	Room              string         `json:"room"`
	Reason            failure.Reason `json:"reason,omitempty"`
	Message           string         `json:"message,omitempty"`
	Retryable         bool           `json:"retryable"`
	RemoteAudioTracks int            `json:"remote_audio_tracks"`
}

// Recorder receives call lifecycle events.
type Recorder interface {
	CallStarted()
	CallEnded()
	StateChanged(from, to string)
	RemoteTrackAttached()
	JoinFinished(outcome string)
}

type nopRecorder struct{}

func (nopRecorder) CallStarted()                 {}
func (nopRecorder) CallEnded()                   {}
func (nopRecorder) StateChanged(from, to string) {}
func (nopRecorder) RemoteTrackAttached()         {}
func (nopRecorder) JoinFinished(outcome string)  {}
