package join

import (
	"context"

	"github.com/janhq/voicecall/internal/domain/failure"
)

// View is the state of the join UI.
type View string

const (
	// ViewJoin shows the join button.
	ViewJoin View = "join"
	// ViewJoining is shown while the token request is in flight.
	ViewJoining View = "joining"
	// ViewConnected means a token was obtained and handed to a voice session.
	ViewConnected View = "connected"
	// ViewFailed means the token request failed; joining again is allowed.
	ViewFailed View = "failed"
)

// Credential is what a successful join produces. Token is opaque and is
// never parsed by the client.
type Credential struct {
	Identity string
	Room     string
	Token    string
}

// State is a snapshot of the initiator.
type State struct {
	View     View
	Identity string
	Room     string
	Reason   failure.Reason
	Err      string
}

// TokenFetcher requests an access token for identity in room.
type TokenFetcher interface {
	FetchToken(ctx context.Context, identity, room string) (string, error)
}

// IdentityGenerator produces a participant identity per join attempt.
type IdentityGenerator func() (string, error)
