package join

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/janhq/voicecall/internal/domain/failure"
	"github.com/janhq/voicecall/internal/utils/idgen"
)

const identityRandomLength = 8

// NewIdentityGenerator returns a generator of "<prefix>_<8 base36 chars>".
func NewIdentityGenerator(prefix string) IdentityGenerator {
	return func() (string, error) {
		return idgen.GenerateSecureID(prefix, identityRandomLength)
	}
}

// Initiator turns a join action into a credential.
type Initiator struct {
	fetcher    TokenFetcher
	identities IdentityGenerator
	room       string
	log        zerolog.Logger

	group singleflight.Group

	mu      sync.Mutex
	state   State
	onToken func(Credential)
}

// NewInitiator creates an initiator for room.
func NewInitiator(fetcher TokenFetcher, identities IdentityGenerator, room string, log zerolog.Logger) *Initiator {
	return &Initiator{
		fetcher:    fetcher,
		identities: identities,
		room:       room,
		log:        log.With().Str("component", "join-initiator").Logger(),
		state:      State{View: ViewJoin, Room: room},
	}
}

// OnToken registers the handoff invoked once for every token obtained.
// It runs on the goroutine that performed the fetch.
func (i *Initiator) OnToken(fn func(Credential)) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.onToken = fn
}

// State returns the current snapshot.
func (i *Initiator) State() State {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state
}

// Join requests a fresh token. Calls made while a request is in flight share
// its outcome instead of issuing another request.
func (i *Initiator) Join(ctx context.Context) (Credential, error) {
	v, err, shared := i.group.Do("join", func() (any, error) {
		return i.join(ctx)
	})
	if shared {
		i.log.Debug().Msg("join coalesced with in-flight request")
	}
	if err != nil {
		return Credential{}, err
	}
	return v.(Credential), nil
}

func (i *Initiator) join(ctx context.Context) (Credential, error) {
	identity, err := i.identities()
	if err != nil {
		err = fmt.Errorf("generate identity: %w", err)
		i.fail("", err)
		return Credential{}, err
	}

	i.setState(State{View: ViewJoining, Identity: identity, Room: i.room})
	i.log.Info().Str("identity", identity).Str("room", i.room).Msg("requesting access token")

	token, err := i.fetcher.FetchToken(ctx, identity, i.room)
	if err != nil {
		err = failure.Ensure(err, failure.ReasonServerUnreachable)
		i.fail(identity, err)
		return Credential{}, err
	}
	if token == "" {
		err = failure.Newf(failure.ReasonMalformedResponse, "token endpoint returned an empty token")
		i.fail(identity, err)
		return Credential{}, err
	}

	cred := Credential{Identity: identity, Room: i.room, Token: token}

	i.mu.Lock()
	i.state = State{View: ViewConnected, Identity: identity, Room: i.room}
	handoff := i.onToken
	i.mu.Unlock()

	i.log.Info().Str("identity", identity).Str("room", i.room).Msg("access token received")

	if handoff != nil {
		handoff(cred)
	}
	return cred, nil
}

func (i *Initiator) fail(identity string, err error) {
	reason := failure.ReasonOf(err)
	i.setState(State{
		View:     ViewFailed,
		Identity: identity,
		Room:     i.room,
		Reason:   reason,
		Err:      err.Error(),
	})
	i.log.Error().Err(err).Str("reason", string(reason)).Str("identity", identity).Msg("join failed")
}

func (i *Initiator) setState(s State) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.state = s
}
