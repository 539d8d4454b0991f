package voice

import (
	"errors"

	"github.com/janhq/voicecall/internal/domain/failure"
)

var (
	// ErrMissingToken is returned when a session is created without a token.
	ErrMissingToken = errors.New("voice session requires an access token")
	// ErrMissingURL is returned when a session is created without a server URL.
	ErrMissingURL = errors.New("voice session requires a server URL")
	// ErrAlreadyStarted is returned by a second Start.
	ErrAlreadyStarted = errors.New("voice session already started")
	// ErrClosed is returned by Start after Close.
	ErrClosed = errors.New("voice session closed")
)

// State of a voice session.
type State string

const (
	StateIdle         State = "idle"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateFailed       State = "failed"
	StateDisconnected State = "disconnected"
)

// Terminal reports whether no further transitions except teardown happen.
func (s State) Terminal() bool {
	return s == StateFailed || s == StateDisconnected
}

// Status is a snapshot of a session. Reason and Err describe the failure
// that ended the session, if any. While connected, Err reports the last
// remote track that could not be played.
type Status struct {
	State             State          `json:"state"`
	Reason            failure.Reason `json:"reason,omitempty"`
	Err               string         `json:"error,omitempty"`
	RemoteAudioTracks int            `json:"remote_audio_tracks"`
}

// TrackKind is the media kind of a track.
type TrackKind string

const (
	TrackKindAudio TrackKind = "audio"
	TrackKindVideo TrackKind = "video"
)

// MediaOptions selects what the session takes part in.
type MediaOptions struct {
	Audio bool
	Video bool
}

// AudioOnly is how the client joins: microphone up, agent audio down, no video.
var AudioOnly = MediaOptions{Audio: true, Video: false}
