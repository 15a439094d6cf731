package session

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const HeaderRequestID = "X-Request-ID"

// Transport is the single interception point for authenticated calls. It
// attaches the credential held at dispatch time and ends the session when the
// server rejects that credential.
type Transport struct {
	Base      http.RoundTripper
	Session   *Session
	UserAgent string
	Logger    *zap.Logger
}

func NewTransport(base http.RoundTripper, s *Session, userAgent string, logger *zap.Logger) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Transport{Base: base, Session: s, UserAgent: userAgent, Logger: logger}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	credential, live := t.Session.Credential()

	out := req.Clone(req.Context())
	if live {
		out.Header.Set("Authorization", "Bearer "+credential)
	}
	if t.UserAgent != "" {
		out.Header.Set("User-Agent", t.UserAgent)
	}
	if out.Header.Get(HeaderRequestID) == "" {
		out.Header.Set(HeaderRequestID, uuid.NewString())
	}

	resp, err := t.Base.RoundTrip(out)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && live {
		// The store write must not depend on the caller's request lifetime.
		ctx := context.WithoutCancel(req.Context())
		if t.Session.ClearIfCurrent(ctx, credential, ReasonUnauthorized) {
			t.Logger.Warn("credential rejected by server",
				zap.String("url", req.URL.Redacted()),
				zap.String("request_id", out.Header.Get(HeaderRequestID)),
			)
		}
	}

	return resp, nil
}
