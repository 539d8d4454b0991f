package tokenclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/livekit/protocol/auth"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/voicecall/internal/domain/failure"
)

func mintToken(t *testing.T, identity, room string) string {
	t.Helper()
	at := auth.NewAccessToken("devkey", "devsecret-devsecret-devsecret-0123")
	at.AddGrant(&auth.VideoGrant{RoomJoin: true, Room: room}).
		SetIdentity(identity).
		SetValidFor(time.Minute)
	token, err := at.ToJWT()
	require.NoError(t, err)
	return token
}

func TestFetchToken_Success(t *testing.T) {
	var gotIdentity, gotRoom string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/get-livekit-token", r.URL.Path)
		gotIdentity = r.URL.Query().Get("identity")
		gotRoom = r.URL.Query().Get("room")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"token": mintToken(t, gotIdentity, gotRoom)})
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/get-livekit-token", time.Second, zerolog.Nop())
	token, err := c.FetchToken(context.Background(), "client-user_ab12cd34", "client-demo-room")
	require.NoError(t, err)

	assert.Equal(t, "client-user_ab12cd34", gotIdentity)
	assert.Equal(t, "client-demo-room", gotRoom)
	assert.NotEmpty(t, token)
}

func TestFetchToken_OpaqueToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// no content type; the body is still decoded
		_, _ = w.Write([]byte(`{"token":"abc123","expires_in":600}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, zerolog.Nop())
	token, err := c.FetchToken(context.Background(), "client-user_x", "client-demo-room")
	require.NoError(t, err)
	assert.Equal(t, "abc123", token)
}

func TestFetchToken_Failures(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantReason failure.Reason
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
			wantReason: failure.ReasonServerUnreachable,
		},
		{
			name: "bad gateway",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
			wantReason: failure.ReasonServerUnreachable,
		},
		{
			name: "forbidden",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "room closed", http.StatusForbidden)
			},
			wantReason: failure.ReasonSessionRejected,
		},
		{
			name: "not json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("<html>hello</html>"))
			},
			wantReason: failure.ReasonMalformedResponse,
		},
		{
			name: "missing token field",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"jwt":"abc123"}`))
			},
			wantReason: failure.ReasonMalformedResponse,
		},
		{
			name: "empty token",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"token":""}`))
			},
			wantReason: failure.ReasonMalformedResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := NewClient(srv.URL, time.Second, zerolog.Nop())
			token, err := c.FetchToken(context.Background(), "client-user_x", "client-demo-room")
			require.Error(t, err)
			assert.Empty(t, token)
			assert.Equal(t, tt.wantReason, failure.ReasonOf(err))
		})
	}
}

func TestFetchToken_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(url, time.Second, zerolog.Nop())
	_, err := c.FetchToken(context.Background(), "client-user_x", "client-demo-room")
	require.Error(t, err)
	assert.Equal(t, failure.ReasonServerUnreachable, failure.ReasonOf(err))
}

func TestFetchToken_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(srv.URL, 50*time.Millisecond, zerolog.Nop())
	start := time.Now()
	_, err := c.FetchToken(context.Background(), "client-user_x", "client-demo-room")
	require.Error(t, err)
	assert.Equal(t, failure.ReasonServerUnreachable, failure.ReasonOf(err))
	assert.Less(t, time.Since(start), time.Second)
}
