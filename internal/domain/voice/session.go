package voice

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/janhq/voicecall/internal/domain/failure"
)

var tracer = otel.Tracer("voicecall/voice")

// Config holds what a session connects with.
type Config struct {
	URL     string
	Token   string
	Options MediaOptions
}

// Session owns one real-time audio connection from Start until Close.
//
// Connect runs on its own goroutine. Close cancels it, waits for it to
// unwind and then disconnects the room exactly once, so a connect that
// resolves late can never bring the session back.
type Session struct {
	cfg      Config
	room     Room
	capture  CaptureSource
	playback PlaybackSink
	log      zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	closeOnce sync.Once

	mu        sync.Mutex
	status    Status
	started   bool
	closed    bool
	local     LocalTrack
	attached  map[string]bool // track SID -> playback running
	listeners []func(Status)
}

// NewSession validates cfg and creates the room up front so teardown always
// has something to disconnect.
func NewSession(cfg Config, connector Connector, capture CaptureSource, playback PlaybackSink, log zerolog.Logger) (*Session, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, ErrMissingToken
	}
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, ErrMissingURL
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		cfg:      cfg,
		capture:  capture,
		playback: playback,
		log:      log.With().Str("component", "voice-session").Str("url", cfg.URL).Logger(),
		ctx:      ctx,
		cancel:   cancel,
		status:   Status{State: StateIdle},
		attached: make(map[string]bool),
	}
	s.room = connector.NewRoom(RoomHandlers{
		OnTrackSubscribed: s.handleTrackSubscribed,
		OnDisconnected:    s.handleRemoteDisconnect,
	})
	return s, nil
}

// OnChange registers a listener called after every status change, outside
// the session lock.
func (s *Session) OnChange(fn func(Status)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Status returns the current snapshot.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Start begins connecting in the background. It returns immediately.
func (s *Session) Start() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	s.wg.Add(1)
	s.mu.Unlock()

	s.transition(func(st *Status) { st.State = StateConnecting })

	go s.connect()
	return nil
}

func (s *Session) connect() {
	defer s.wg.Done()

	ctx, span := tracer.Start(s.ctx, "voice.connect")
	defer span.End()
	span.SetAttributes(
		attribute.String("livekit.url", s.cfg.URL),
		attribute.Bool("media.audio", s.cfg.Options.Audio),
		attribute.Bool("media.video", s.cfg.Options.Video),
	)

	s.log.Info().Msg("acquiring microphone")
	track, err := s.capture.Open(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		span.SetStatus(codes.Error, err.Error())
		s.fail(failure.Ensure(err, failure.ReasonMicrophoneDenied))
		return
	}
	if !s.holdLocal(track) {
		if cerr := track.Close(); cerr != nil {
			s.log.Warn().Err(cerr).Msg("release microphone after teardown")
		}
		return
	}

	s.log.Info().Msg("joining room")
	if err := s.room.Join(ctx, s.cfg.URL, s.cfg.Token, s.cfg.Options); err != nil {
		if ctx.Err() != nil {
			s.log.Debug().Err(err).Msg("join abandoned by teardown")
			return
		}
		span.SetStatus(codes.Error, err.Error())
		s.fail(failure.Ensure(err, failure.ReasonSessionRejected))
		return
	}

	if err := s.room.Publish(ctx, track); err != nil {
		if ctx.Err() != nil {
			return
		}
		span.SetStatus(codes.Error, err.Error())
		s.fail(failure.Ensure(err, failure.ReasonPublishFailed))
		return
	}

	s.transition(func(st *Status) {
		if st.State == StateConnecting {
			st.State = StateConnected
		}
	})
	s.log.Info().Str("track_id", track.ID()).Msg("microphone published")
}

// holdLocal records the capture track unless teardown already happened.
func (s *Session) holdLocal(track LocalTrack) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.local = track
	return true
}

func (s *Session) handleTrackSubscribed(track RemoteTrack) {
	if track == nil || track.Kind() != TrackKindAudio {
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if _, ok := s.attached[track.SID()]; ok {
		s.mu.Unlock()
		s.log.Debug().Str("track_sid", track.SID()).Msg("remote audio already attached")
		return
	}
	s.attached[track.SID()] = false
	s.mu.Unlock()

	if err := s.playback.Attach(s.ctx, track); err != nil {
		s.log.Error().Err(err).Str("track_sid", track.SID()).Str("participant", track.Participant()).Msg("attach remote audio")
		s.mu.Lock()
		delete(s.attached, track.SID())
		s.mu.Unlock()
		s.transition(func(st *Status) {
			if !st.State.Terminal() {
				st.Err = fmt.Sprintf("attach remote audio %s: %v", track.SID(), err)
			}
		})
		return
	}

	s.mu.Lock()
	s.attached[track.SID()] = true
	count := 0
	for _, playing := range s.attached {
		if playing {
			count++
		}
	}
	s.mu.Unlock()

	s.log.Info().Str("track_sid", track.SID()).Str("participant", track.Participant()).Msg("remote audio attached")
	s.transition(func(st *Status) {
		if !st.State.Terminal() {
			st.RemoteAudioTracks = count
			st.Err = ""
		}
	})
}

func (s *Session) handleRemoteDisconnect() {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return
	}
	s.log.Warn().Msg("room disconnected by server")
	s.transition(func(st *Status) {
		if st.State == StateConnected || st.State == StateConnecting {
			st.State = StateDisconnected
		}
	})
}

func (s *Session) fail(err error) {
	reason := failure.ReasonOf(err)
	s.log.Error().Err(err).Str("reason", string(reason)).Msg("voice session failed")
	s.transition(func(st *Status) {
		if st.State.Terminal() {
			return
		}
		st.State = StateFailed
		st.Reason = reason
		st.Err = err.Error()
	})
}

// Close tears the session down. Only the first call has any effect.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		s.cancel()
		s.wg.Wait()

		s.room.Disconnect()

		s.mu.Lock()
		local := s.local
		s.local = nil
		s.mu.Unlock()
		if local != nil {
			if err := local.Close(); err != nil {
				s.log.Warn().Err(err).Msg("release microphone")
			}
		}

		s.update(func(st *Status) {
			prev := *st
			*st = Status{State: StateDisconnected}
			if prev.State == StateFailed {
				st.Reason = prev.Reason
				st.Err = prev.Err
			}
		}, true)
		s.log.Info().Msg("voice session closed")
	})
}

// transition applies fn unless the session was closed.
func (s *Session) transition(fn func(*Status)) {
	s.update(fn, false)
}

func (s *Session) update(fn func(*Status), force bool) {
	s.mu.Lock()
	if s.closed && !force {
		s.mu.Unlock()
		return
	}
	before := s.status
	fn(&s.status)
	after := s.status
	listeners := make([]func(Status), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	if before == after {
		return
	}
	for _, l := range listeners {
		l(after)
	}
}
