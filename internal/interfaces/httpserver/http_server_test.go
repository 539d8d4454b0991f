package httpserver_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/voicecall/internal/config"
	"github.com/janhq/voicecall/internal/domain/call"
	"github.com/janhq/voicecall/internal/domain/failure"
	"github.com/janhq/voicecall/internal/infrastructure/store"
	"github.com/janhq/voicecall/internal/interfaces/httpserver"
)

type mockCallService struct {
	JoinFunc     func(ctx context.Context) (call.Snapshot, error)
	SnapshotFunc func() call.Snapshot
	CallsFunc    func(ctx context.Context) ([]*call.Record, error)
	CallFunc     func(ctx context.Context, id string) (*call.Record, error)
}

func (m *mockCallService) Join(ctx context.Context) (call.Snapshot, error) {
	return m.JoinFunc(ctx)
}

func (m *mockCallService) Snapshot() call.Snapshot {
	if m.SnapshotFunc != nil {
		return m.SnapshotFunc()
	}
	return call.Snapshot{View: call.ViewJoin, Room: "client-demo-room"}
}

func (m *mockCallService) Calls(ctx context.Context) ([]*call.Record, error) {
	return m.CallsFunc(ctx)
}

func (m *mockCallService) Call(ctx context.Context, id string) (*call.Record, error) {
	return m.CallFunc(ctx, id)
}

func newServer(t *testing.T, svc *mockCallService) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{ServiceName: "voicecall-test", ShutdownTimeout: time.Second, HTTPPort: 0}
	return httpserver.New(cfg, zerolog.Nop(), svc).Handler()
}

func do(t *testing.T, h http.Handler, method, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestCoreRoutes(t *testing.T) {
	h := newServer(t, &mockCallService{})

	rec, body := do(t, h, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec, _ = do(t, h, http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, h, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "voicecall_http_requests_total")
}

func TestPage_RendersCurrentView(t *testing.T) {
	tests := []struct {
		name string
		snap call.Snapshot
		want []string
	}{
		{
			name: "join",
			snap: call.Snapshot{View: call.ViewJoin},
			want: []string{"AI Agent Voice Demo", `data-view="join"`, ">Join</button>"},
		},
		{
			name: "connected",
			snap: call.Snapshot{View: call.ViewConnected, CallID: "call_abc"},
			want: []string{"Talking to the AI agent...", `data-view="connected"`, "call_abc"},
		},
		{
			name: "failed",
			snap: call.Snapshot{View: call.ViewFailed, Message: "could not reach server", Retryable: true},
			want: []string{`data-view="failed"`, "could not reach server", "Retry"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newServer(t, &mockCallService{SnapshotFunc: func() call.Snapshot { return tt.snap }})

			rec, _ := do(t, h, http.MethodGet, "/")
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
			for _, w := range tt.want {
				assert.Contains(t, rec.Body.String(), w)
			}
		})
	}
}

func TestGetState(t *testing.T) {
	h := newServer(t, &mockCallService{SnapshotFunc: func() call.Snapshot {
		return call.Snapshot{View: call.ViewConnected, CallID: "call_1", Room: "client-demo-room", RemoteAudioTracks: 1}
	}})

	rec, body := do(t, h, http.MethodGet, "/v1/state")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "voicecall.state", body["object"])
	assert.Equal(t, "connected", body["view"])
	assert.Equal(t, "call_1", body["call_id"])
	assert.EqualValues(t, 1, body["remote_audio_tracks"])
}

func TestJoin(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		var detached bool
		h := newServer(t, &mockCallService{JoinFunc: func(ctx context.Context) (call.Snapshot, error) {
			detached = ctx.Done() == nil
			return call.Snapshot{View: call.ViewConnecting, CallID: "call_1"}, nil
		}})

		rec, body := do(t, h, http.MethodPost, "/v1/join")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "connecting", body["view"])
		assert.True(t, detached, "join must not be cancelled with the request")
	})

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantRetry  bool
	}{
		{
			name:       "server unreachable",
			err:        failure.New(failure.ReasonServerUnreachable, errors.New("dial tcp: connection refused")),
			wantStatus: http.StatusBadGateway,
			wantCode:   "server_unreachable",
			wantRetry:  true,
		},
		{
			name:       "session rejected",
			err:        failure.New(failure.ReasonSessionRejected, errors.New("token endpoint returned 403")),
			wantStatus: http.StatusForbidden,
			wantCode:   "session_rejected",
			wantRetry:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason := failure.ReasonOf(tt.err)
			h := newServer(t, &mockCallService{JoinFunc: func(ctx context.Context) (call.Snapshot, error) {
				return call.Snapshot{View: call.ViewFailed, Reason: reason, Message: reason.Message()}, tt.err
			}})

			rec, body := do(t, h, http.MethodPost, "/v1/join")
			require.Equal(t, tt.wantStatus, rec.Code)

			detail, ok := body["error"].(map[string]any)
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, detail["code"])
			assert.Equal(t, reason.Message(), detail["message"])
			assert.Equal(t, tt.wantRetry, detail["retryable"])
			assert.NotEmpty(t, detail["request_id"])
		})
	}
}

func TestCalls(t *testing.T) {
	created := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	ended := created.Add(90 * time.Second)
	records := []*call.Record{
		{ID: "call_2", Identity: "client-user_b", Room: "client-demo-room", State: call.StateConnected, CreatedAt: created.Add(time.Hour), UpdatedAt: created.Add(time.Hour)},
		{ID: "call_1", Identity: "client-user_a", Room: "client-demo-room", State: call.StateEnded, CreatedAt: created, UpdatedAt: ended, EndedAt: &ended},
	}
	svc := &mockCallService{
		CallsFunc: func(ctx context.Context) ([]*call.Record, error) { return records, nil },
		CallFunc: func(ctx context.Context, id string) (*call.Record, error) {
			for _, r := range records {
				if r.ID == id {
					return r, nil
				}
			}
			return nil, store.ErrCallNotFound
		},
	}
	h := newServer(t, svc)

	rec, body := do(t, h, http.MethodGet, "/v1/calls")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "list", body["object"])
	data, ok := body["data"].([]any)
	require.True(t, ok)
	require.Len(t, data, 2)
	assert.Equal(t, "call_2", data[0].(map[string]any)["id"])

	rec, body = do(t, h, http.MethodGet, "/v1/calls/call_1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ended", body["state"])
	assert.EqualValues(t, ended.Unix(), body["ended_at"])
	assert.EqualValues(t, 90, body["duration_seconds"])
	assert.NotContains(t, rec.Body.String(), "token")

	rec, body = do(t, h, http.MethodGet, "/v1/calls/missing")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found_error", body["error"].(map[string]any)["type"])
}

func TestCalls_StoreError(t *testing.T) {
	h := newServer(t, &mockCallService{CallsFunc: func(ctx context.Context) ([]*call.Record, error) {
		return nil, errors.New("disk on fire")
	}})

	rec, _ := do(t, h, http.MethodGet, "/v1/calls")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
