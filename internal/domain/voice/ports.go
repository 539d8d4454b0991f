package voice

import "context"

// LocalTrack is a captured media source ready to publish. Close releases the
// capture device.
type LocalTrack interface {
	ID() string
	Close() error
}

// RemoteTrack is a subscribed track published by another participant.
type RemoteTrack interface {
	SID() string
	Kind() TrackKind
	Participant() string
}

// RoomHandlers are the room events a session reacts to. The room may invoke
// them from any goroutine, including before Join returns.
type RoomHandlers struct {
	OnTrackSubscribed func(track RemoteTrack)
	OnDisconnected    func()
}

// Room is one connection to the real-time media service.
type Room interface {
	// Join connects with token. It must return promptly once ctx is done.
	Join(ctx context.Context, url, token string, opts MediaOptions) error
	// Publish sends a local track into the room.
	Publish(ctx context.Context, track LocalTrack) error
	// Disconnect closes the connection. Called exactly once per room.
	Disconnect()
}

// Connector creates rooms.
type Connector interface {
	NewRoom(handlers RoomHandlers) Room
}

// CaptureSource acquires the local microphone.
type CaptureSource interface {
	Open(ctx context.Context) (LocalTrack, error)
}

// PlaybackSink plays a remote audio track. Attach must not block for the
// lifetime of the track; playback stops when ctx is done or the track ends.
type PlaybackSink interface {
	Attach(ctx context.Context, track RemoteTrack) error
}
