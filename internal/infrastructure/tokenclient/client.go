// Package tokenclient fetches LiveKit access tokens from the backend token
// endpoint.
package tokenclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/janhq/voicecall/internal/domain/failure"
	"github.com/janhq/voicecall/internal/infrastructure/metrics"
)

var tracer = otel.Tracer("voicecall/tokenclient")

// Client calls GET <endpoint>?identity=...&room=... and expects {"token": "..."}.
type Client struct {
	endpoint   string
	httpClient *resty.Client
	log        zerolog.Logger
}

type tokenResponse struct {
	Token string `json:"token"`
}

// NewClient creates a token client with the given request timeout.
func NewClient(endpoint string, timeout time.Duration, log zerolog.Logger) *Client {
	client := resty.New().
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "voicecall/1.0").
		SetTimeout(timeout)
	return &Client{
		endpoint:   strings.TrimSpace(endpoint),
		httpClient: client,
		log:        log.With().Str("component", "token-client").Logger(),
	}
}

// FetchToken requests a token for identity in room. Errors carry a
// failure.Reason: transport errors and 5xx responses are an unreachable
// server, other 4xx a rejected session, an unreadable body a malformed
// response.
func (c *Client) FetchToken(ctx context.Context, identity, room string) (string, error) {
	ctx, span := tracer.Start(ctx, "tokenclient.FetchToken")
	defer span.End()
	span.SetAttributes(
		attribute.String("livekit.identity", identity),
		attribute.String("livekit.room", room),
	)

	start := time.Now()
	token, err := c.fetch(ctx, identity, room)
	elapsed := time.Since(start)

	outcome := "ok"
	if err != nil {
		outcome = string(failure.ReasonOf(err))
		span.SetStatus(codes.Error, err.Error())
		c.log.Warn().Err(err).Str("identity", identity).Dur("elapsed", elapsed).Msg("token request failed")
	} else {
		c.log.Debug().Str("identity", identity).Dur("elapsed", elapsed).Msg("token received")
	}
	metrics.RecordTokenFetch(outcome, elapsed)
	return token, err
}

func (c *Client) fetch(ctx context.Context, identity, room string) (string, error) {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"identity": identity,
			"room":     room,
		}).
		Get(c.endpoint)
	if err != nil {
		return "", failure.New(failure.ReasonServerUnreachable, fmt.Errorf("token request failed: %w", err))
	}

	status := resp.StatusCode()
	switch {
	case status >= http.StatusInternalServerError:
		return "", failure.Newf(failure.ReasonServerUnreachable, "token endpoint error (%d): %s", status, snippet(resp.String()))
	case status >= http.StatusBadRequest:
		return "", failure.Newf(failure.ReasonSessionRejected, "token endpoint refused (%d): %s", status, snippet(resp.String()))
	case status < http.StatusOK || status >= http.StatusMultipleChoices:
		return "", failure.Newf(failure.ReasonMalformedResponse, "unexpected token endpoint status %d", status)
	}

	var body tokenResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return "", failure.New(failure.ReasonMalformedResponse, fmt.Errorf("decode token response: %w", err))
	}
	if body.Token == "" {
		return "", failure.Newf(failure.ReasonMalformedResponse, "token response has no token field")
	}
	return body.Token, nil
}

func snippet(s string) string {
	const limit = 200
	s = strings.TrimSpace(s)
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
