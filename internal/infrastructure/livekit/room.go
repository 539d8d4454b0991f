// Package livekit adapts the LiveKit Go SDK to the voice session ports.
package livekit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/livekit/protocol/livekit"
	lksdk "github.com/livekit/server-sdk-go/v2"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"

	"github.com/janhq/voicecall/internal/domain/failure"
	"github.com/janhq/voicecall/internal/domain/voice"
)

// ErrNotPublishable is returned when a local track has no WebRTC side.
var ErrNotPublishable = errors.New("local track cannot be published")

// Publishable is a local track backed by a WebRTC track.
type Publishable interface {
	voice.LocalTrack
	TrackLocal() webrtc.TrackLocal
}

// Connector creates SDK-backed rooms.
type Connector struct {
	log zerolog.Logger
}

// NewConnector creates a new LiveKit connector.
func NewConnector(log zerolog.Logger) *Connector {
	return &Connector{log: log.With().Str("component", "livekit-room").Logger()}
}

// NewRoom implements voice.Connector.
func (c *Connector) NewRoom(handlers voice.RoomHandlers) voice.Room {
	r := &Room{handlers: handlers, log: c.log}
	r.room = lksdk.NewRoom(&lksdk.RoomCallback{
		ParticipantCallback: lksdk.ParticipantCallback{
			OnTrackPublished:  r.onTrackPublished,
			OnTrackSubscribed: r.onTrackSubscribed,
		},
		OnDisconnected: r.onDisconnected,
	})
	r.joinWithToken = r.room.JoinWithToken
	r.disconnect = r.room.Disconnect
	return r
}

// Room is one SDK room connection.
type Room struct {
	room     *lksdk.Room
	handlers voice.RoomHandlers
	log      zerolog.Logger

	// SDK calls, replaced in tests.
	joinWithToken func(url, token string, opts ...lksdk.ConnectOption) error
	disconnect    func()

	mu        sync.Mutex
	opts      voice.MediaOptions
	joined    bool
	abandoned bool
}

// Join connects with token. The SDK join cannot be interrupted, so when ctx
// ends first the join keeps running in the background and a late success is
// disconnected right away.
func (r *Room) Join(ctx context.Context, url, token string, opts voice.MediaOptions) error {
	r.mu.Lock()
	r.opts = opts
	r.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		done <- r.joinWithToken(url, token, lksdk.WithAutoSubscribe(opts.Audio && opts.Video))
	}()

	select {
	case err := <-done:
		if err != nil {
			return classifyJoinError(err)
		}
		r.mu.Lock()
		if r.abandoned {
			r.mu.Unlock()
			r.disconnect()
			return voice.ErrClosed
		}
		r.joined = true
		r.mu.Unlock()

		r.log.Info().Str("room", r.room.Name()).Str("identity", r.room.LocalParticipant.Identity()).Msg("joined room")
		r.subscribeExisting()
		return nil

	case <-ctx.Done():
		go func() {
			if err := <-done; err == nil {
				r.log.Debug().Msg("disconnecting join that completed after teardown")
				r.disconnect()
			}
		}()
		return ctx.Err()
	}
}

// Publish sends the microphone track into the room.
func (r *Room) Publish(ctx context.Context, track voice.LocalTrack) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	pt, ok := track.(Publishable)
	if !ok {
		return fmt.Errorf("%w: %T", ErrNotPublishable, track)
	}

	pub, err := r.room.LocalParticipant.PublishTrack(pt.TrackLocal(), &lksdk.TrackPublicationOptions{
		Name:   "microphone",
		Source: livekit.TrackSource_MICROPHONE,
	})
	if err != nil {
		return fmt.Errorf("publish track: %w", err)
	}
	r.log.Info().Str("track_sid", pub.SID()).Msg("published microphone track")
	return nil
}

// Disconnect leaves the room. A join still in flight is disconnected when it
// completes.
func (r *Room) Disconnect() {
	r.mu.Lock()
	r.abandoned = true
	joined := r.joined
	r.joined = false
	r.mu.Unlock()

	if joined {
		r.disconnect()
		r.log.Info().Msg("left room")
	}
}

func (r *Room) wants(kind lksdk.TrackKind) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch kind {
	case lksdk.TrackKindAudio:
		return r.opts.Audio
	case lksdk.TrackKindVideo:
		return r.opts.Video
	default:
		return false
	}
}

// onTrackPublished subscribes to the kinds the session asked for; auto
// subscribe is off unless it wants everything.
func (r *Room) onTrackPublished(pub *lksdk.RemoteTrackPublication, rp *lksdk.RemoteParticipant) {
	if !r.wants(pub.Kind()) {
		return
	}
	if err := pub.SetSubscribed(true); err != nil {
		r.log.Warn().Err(err).Str("track_sid", pub.SID()).Str("participant", rp.Identity()).Msg("subscribe failed")
	}
}

func (r *Room) subscribeExisting() {
	for _, rp := range r.room.GetRemoteParticipants() {
		for _, p := range rp.TrackPublications() {
			if pub, ok := p.(*lksdk.RemoteTrackPublication); ok {
				r.onTrackPublished(pub, rp)
			}
		}
	}
}

func (r *Room) onTrackSubscribed(track *webrtc.TrackRemote, pub *lksdk.RemoteTrackPublication, rp *lksdk.RemoteParticipant) {
	if r.handlers.OnTrackSubscribed == nil {
		return
	}
	r.log.Debug().
		Str("track_sid", pub.SID()).
		Str("participant", rp.Identity()).
		Str("codec", track.Codec().MimeType).
		Msg("track subscribed")
	r.handlers.OnTrackSubscribed(&RemoteTrack{
		track:       track,
		sid:         pub.SID(),
		participant: rp.Identity(),
	})
}

func (r *Room) onDisconnected() {
	if r.handlers.OnDisconnected != nil {
		r.handlers.OnDisconnected()
	}
}

// RemoteTrack wraps a subscribed SDK track.
type RemoteTrack struct {
	track       *webrtc.TrackRemote
	sid         string
	participant string
}

func (t *RemoteTrack) SID() string         { return t.sid }
func (t *RemoteTrack) Participant() string { return t.participant }

func (t *RemoteTrack) Kind() voice.TrackKind {
	if t.track.Kind() == webrtc.RTPCodecTypeVideo {
		return voice.TrackKindVideo
	}
	return voice.TrackKindAudio
}

// ReadRTP blocks for the next packet. It fails once the track ends.
func (t *RemoteTrack) ReadRTP() (*rtp.Packet, error) {
	pkt, _, err := t.track.ReadRTP()
	return pkt, err
}

// ClockRate is the negotiated codec clock rate.
func (t *RemoteTrack) ClockRate() uint32 { return t.track.Codec().ClockRate }

// Channels is the negotiated channel count.
func (t *RemoteTrack) Channels() uint16 { return t.track.Codec().Channels }

// MimeType is the negotiated codec.
func (t *RemoteTrack) MimeType() string { return t.track.Codec().MimeType }

// classifyJoinError maps SDK join errors to failure reasons. The SDK only
// exposes the signal error text, so this matches on it.
func classifyJoinError(err error) error {
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"401", "403", "unauthorized", "forbidden", "invalid token", "permission denied", "not allowed"} {
		if strings.Contains(msg, marker) {
			return failure.New(failure.ReasonSessionRejected, err)
		}
	}
	return failure.New(failure.ReasonServerUnreachable, err)
}
