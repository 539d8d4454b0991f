package livekit

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	lksdk "github.com/livekit/server-sdk-go/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/voicecall/internal/domain/failure"
	"github.com/janhq/voicecall/internal/domain/voice"
)

func TestClassifyJoinError(t *testing.T) {
	tests := []struct {
		err  error
		want failure.Reason
	}{
		{errors.New("unauthorized: invalid token"), failure.ReasonSessionRejected},
		{errors.New("websocket: bad handshake (HTTP 401)"), failure.ReasonSessionRejected},
		{errors.New("could not establish signal connection: 403 Forbidden"), failure.ReasonSessionRejected},
		{errors.New("dial tcp 127.0.0.1:7880: connect: connection refused"), failure.ReasonServerUnreachable},
		{errors.New("could not connect after timeout"), failure.ReasonServerUnreachable},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			err := classifyJoinError(tt.err)
			assert.Equal(t, tt.want, failure.ReasonOf(err))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestRoom_DisconnectBeforeJoinIsSafe(t *testing.T) {
	r := NewConnector(zerolog.Nop()).NewRoom(voice.RoomHandlers{}).(*Room)

	assert.NotPanics(t, r.Disconnect)
	assert.NotPanics(t, r.Disconnect)
	assert.True(t, r.abandoned)
	assert.False(t, r.joined)
}

// newBlockingRoom returns a room whose SDK join waits for release and then
// returns joinErr.
func newBlockingRoom(t *testing.T, joinErr error) (r *Room, started, release chan struct{}, disconnects *atomic.Int32) {
	t.Helper()
	r = NewConnector(zerolog.Nop()).NewRoom(voice.RoomHandlers{}).(*Room)
	started = make(chan struct{})
	release = make(chan struct{})
	disconnects = &atomic.Int32{}
	r.joinWithToken = func(url, token string, opts ...lksdk.ConnectOption) error {
		close(started)
		<-release
		return joinErr
	}
	r.disconnect = func() { disconnects.Add(1) }
	return r, started, release, disconnects
}

func TestRoom_LateJoinAfterCancelIsDisconnected(t *testing.T) {
	r, started, release, disconnects := newBlockingRoom(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- r.Join(ctx, "wss://example", "abc123", voice.AudioOnly) }()

	<-started
	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)
	assert.Equal(t, int32(0), disconnects.Load())

	close(release)
	require.Eventually(t, func() bool { return disconnects.Load() == 1 }, time.Second, 5*time.Millisecond)

	r.Disconnect()
	assert.Equal(t, int32(1), disconnects.Load())
}

func TestRoom_LateJoinFailureAfterCancel(t *testing.T) {
	r, started, release, disconnects := newBlockingRoom(t, errors.New("connection refused"))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- r.Join(ctx, "wss://example", "abc123", voice.AudioOnly) }()

	<-started
	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)

	close(release)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(0), disconnects.Load())
}

func TestRoom_DisconnectDuringJoin(t *testing.T) {
	r, started, release, disconnects := newBlockingRoom(t, nil)

	errCh := make(chan error, 1)
	go func() { errCh <- r.Join(context.Background(), "wss://example", "abc123", voice.AudioOnly) }()

	<-started
	r.Disconnect()
	assert.Equal(t, int32(0), disconnects.Load())

	close(release)
	assert.ErrorIs(t, <-errCh, voice.ErrClosed)
	assert.Equal(t, int32(1), disconnects.Load())
	assert.False(t, r.joined)
}

func TestRoom_JoinErrorIsClassified(t *testing.T) {
	r, _, release, disconnects := newBlockingRoom(t, errors.New("websocket: bad handshake (HTTP 401)"))
	close(release)

	err := r.Join(context.Background(), "wss://example", "abc123", voice.AudioOnly)
	require.Error(t, err)
	assert.Equal(t, failure.ReasonSessionRejected, failure.ReasonOf(err))
	assert.Equal(t, int32(0), disconnects.Load())
}
