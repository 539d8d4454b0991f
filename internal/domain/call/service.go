package call

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/janhq/voicecall/internal/domain/failure"
	"github.com/janhq/voicecall/internal/domain/join"
	"github.com/janhq/voicecall/internal/domain/voice"
	"github.com/janhq/voicecall/internal/utils/idgen"
)

// Media bundles the adapters a voice session is built from.
type Media struct {
	Connector voice.Connector
	Capture   voice.CaptureSource
	Playback  voice.PlaybackSink
}

// Service hands credentials from the initiator to voice sessions. It owns at
// most one session at a time.
type Service struct {
	initiator *join.Initiator
	media     Media
	store     Store
	recorder  Recorder
	serverURL string
	log       zerolog.Logger

	mu      sync.Mutex
	current *activeCall
	closed  bool
}

type activeCall struct {
	id       string
	identity string
	session  *voice.Session
	err      error

	mu    sync.Mutex
	last  voice.Status
	ended bool
}

// NewService creates a call service and registers it as the initiator's
// handoff. recorder may be nil.
func NewService(initiator *join.Initiator, media Media, store Store, serverURL string, recorder Recorder, log zerolog.Logger) *Service {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	s := &Service{
		initiator: initiator,
		media:     media,
		store:     store,
		recorder:  recorder,
		serverURL: serverURL,
		log:       log.With().Str("component", "call-service").Logger(),
	}
	initiator.OnToken(s.handoff)
	return s
}

// Join runs the join flow and returns the resulting snapshot. A failed join
// leaves the service ready for another attempt.
func (s *Service) Join(ctx context.Context) (Snapshot, error) {
	_, err := s.initiator.Join(ctx)
	outcome := "ok"
	if err != nil {
		outcome = string(failure.ReasonOf(err))
		if outcome == "" {
			outcome = "error"
		}
	}
	s.recorder.JoinFinished(outcome)
	return s.Snapshot(), err
}

// Snapshot returns the combined UI state. A live call wins over the join
// flow, so a failed or pending re-join never hides audio that is still
// playing.
func (s *Service) Snapshot() Snapshot {
	js := s.initiator.State()

	s.mu.Lock()
	cur := s.current
	s.mu.Unlock()

	if cur != nil && cur.live() {
		return cur.snapshot(js.Room)
	}

	snap := Snapshot{Room: js.Room, Identity: js.Identity}
	switch js.View {
	case join.ViewJoin:
		snap.View = ViewJoin
		return snap
	case join.ViewJoining:
		snap.View = ViewJoining
		return snap
	case join.ViewFailed:
		snap.View = ViewFailed
		snap.setFailure(js.Reason)
		return snap
	}

	if cur == nil {
		snap.View = ViewConnecting
		return snap
	}
	return cur.snapshot(js.Room)
}

// live reports whether the call still has a session that has not ended.
func (c *activeCall) live() bool {
	return c.err == nil && c.session != nil && !c.session.Status().State.Terminal()
}

func (c *activeCall) snapshot(room string) Snapshot {
	snap := Snapshot{Room: room, CallID: c.id, Identity: c.identity}
	if c.err != nil {
		snap.View = ViewFailed
		snap.setFailure(failure.ReasonOf(c.err))
		return snap
	}

	st := c.session.Status()
	snap.RemoteAudioTracks = st.RemoteAudioTracks
	switch st.State {
	case voice.StateConnected:
		snap.View = ViewConnected
	case voice.StateFailed:
		snap.View = ViewFailed
		snap.setFailure(st.Reason)
	case voice.StateDisconnected:
		snap.View = ViewEnded
		if st.Reason != failure.ReasonNone {
			snap.setFailure(st.Reason)
		}
	default:
		snap.View = ViewConnecting
	}
	return snap
}

func (snap *Snapshot) setFailure(reason failure.Reason) {
	snap.Reason = reason
	snap.Message = reason.Message()
	if snap.Message == "" {
		snap.Message = "something went wrong"
	}
	snap.Retryable = reason.Retryable()
}

// Calls returns call history, newest first.
func (s *Service) Calls(ctx context.Context) ([]*Record, error) {
	records, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list calls: %w", err)
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	return records, nil
}

// Call returns one call record.
func (s *Service) Call(ctx context.Context, id string) (*Record, error) {
	return s.store.Get(ctx, id)
}

// Close tears down the current session. Later handoffs are ignored.
func (s *Service) Close() {
	s.mu.Lock()
	s.closed = true
	cur := s.current
	s.mu.Unlock()

	if cur != nil && cur.session != nil {
		cur.session.Close()
	}
}

// handoff receives every credential the initiator obtains. A new token always
// means a fresh session; the previous one is torn down first.
func (s *Service) handoff(cred join.Credential) {
	id, err := idgen.GenerateSecureID("call", 16)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to generate call ID")
		return
	}

	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()

	now := time.Now()
	record := &Record{
		ID:        id,
		Identity:  cred.Identity,
		Room:      cred.Room,
		State:     StateConnecting,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(context.Background(), record); err != nil {
		s.log.Error().Err(err).Str("call_id", id).Msg("failed to store call record")
	}
	if closed {
		s.log.Info().Str("call_id", id).Msg("service closed, not starting voice session")
		s.updateRecord(id, StateEnded, failure.ReasonNone)
		return
	}

	next := &activeCall{id: id, identity: cred.Identity, last: voice.Status{State: voice.StateIdle}}
	session, err := voice.NewSession(
		voice.Config{URL: s.serverURL, Token: cred.Token, Options: voice.AudioOnly},
		s.media.Connector, s.media.Capture, s.media.Playback, s.log,
	)
	if err != nil {
		next.err = failure.Ensure(err, failure.ReasonMalformedResponse)
	} else {
		next.session = session
		session.OnChange(func(st voice.Status) { s.observe(next, st) })
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		if session != nil {
			session.Close()
		}
		s.updateRecord(id, StateEnded, failure.ReasonNone)
		return
	}
	prev := s.current
	s.current = next
	s.mu.Unlock()

	if prev != nil && prev.session != nil {
		s.log.Info().Str("call_id", prev.id).Msg("tearing down previous call")
		prev.session.Close()
	}

	if next.err != nil {
		s.log.Error().Err(next.err).Str("call_id", id).Msg("failed to create voice session")
		s.updateRecord(id, StateFailed, failure.ReasonOf(next.err))
		return
	}

	s.recorder.CallStarted()
	s.log.Info().Str("call_id", id).Str("identity", cred.Identity).Str("room", cred.Room).Msg("starting voice session")
	if err := session.Start(); err != nil {
		s.log.Error().Err(err).Str("call_id", id).Msg("failed to start voice session")
	}
}

// observe mirrors session status into the record and metrics.
func (s *Service) observe(c *activeCall, st voice.Status) {
	c.mu.Lock()
	prev := c.last
	c.last = st
	firstEnd := st.State == voice.StateDisconnected && !c.ended
	if firstEnd {
		c.ended = true
	}
	c.mu.Unlock()

	if prev.State != st.State {
		s.recorder.StateChanged(string(prev.State), string(st.State))
		if state, ok := recordState(st.State); ok {
			s.updateRecord(c.id, state, st.Reason)
		}
	}
	if st.RemoteAudioTracks > prev.RemoteAudioTracks {
		s.recorder.RemoteTrackAttached()
	}
	if firstEnd {
		s.recorder.CallEnded()
	}
}

func recordState(st voice.State) (State, bool) {
	switch st {
	case voice.StateConnecting:
		return StateConnecting, true
	case voice.StateConnected:
		return StateConnected, true
	case voice.StateFailed:
		return StateFailed, true
	case voice.StateDisconnected:
		return StateEnded, true
	default:
		return "", false
	}
}

func (s *Service) updateRecord(id string, state State, reason failure.Reason) {
	if err := s.store.UpdateState(context.Background(), id, state, reason); err != nil {
		s.log.Warn().Err(err).Str("call_id", id).Str("state", string(state)).Msg("failed to update call record")
	}
}
