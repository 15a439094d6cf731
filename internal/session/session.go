// Package session owns the bearer credential shared by every authenticated
// call. All mutation goes through Set and Clear.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/clarityhire/clarity/internal/errs"
	"github.com/clarityhire/clarity/internal/store"
	"go.uber.org/zap"
)

type Reason string

const (
	ReasonLogout       Reason = "logout"
	ReasonUnauthorized Reason = "unauthorized"
)

// Stringified absence left behind by clients that wrote a missing value as text.
var absentSentinels = []string{"undefined", "null"}

type Session struct {
	mu         sync.Mutex
	store      store.Store
	logger     *zap.Logger
	credential string
	tokenType  string
	listeners  []func(Reason)
}

func New(st store.Store, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	if st == nil {
		st = store.NewMemory()
	}
	return &Session{store: st, logger: logger}
}

// Normalize trims the raw credential and reports whether it is usable.
// Empty values and absence sentinels are not.
func Normalize(raw string) (string, bool) {
	credential := strings.TrimSpace(raw)
	if credential == "" {
		return "", false
	}
	for _, sentinel := range absentSentinels {
		if strings.EqualFold(credential, sentinel) {
			return "", false
		}
	}
	return credential, true
}

// Load restores the credential persisted by a previous process. A sentinel
// value found in the store is removed from it.
func (s *Session) Load(ctx context.Context) (bool, error) {
	raw, err := s.store.Get(ctx, store.KeyAccessToken)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	credential, ok := Normalize(raw)
	if !ok {
		s.logger.Debug("discarding unusable stored credential")
		if err := s.store.Delete(ctx, store.KeyAccessToken, store.KeyTokenType); err != nil {
			return false, err
		}
		return false, nil
	}

	tokenType, err := s.store.Get(ctx, store.KeyTokenType)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return false, err
	}

	s.mu.Lock()
	s.credential = credential
	s.tokenType = strings.TrimSpace(tokenType)
	s.mu.Unlock()

	return true, nil
}

func (s *Session) Credential() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.credential, s.credential != ""
}

func (s *Session) Live() bool {
	_, ok := s.Credential()
	return ok
}

// Require returns an auth error when there is no live session.
func (s *Session) Require() error {
	if !s.Live() {
		return errs.Auth("not logged in", nil)
	}
	return nil
}

// Set is the only way a credential enters the session.
func (s *Session) Set(ctx context.Context, credential, tokenType string) error {
	credential, ok := Normalize(credential)
	if !ok {
		return errs.Validation("credential is empty", nil)
	}

	if err := s.store.Set(ctx, store.KeyAccessToken, credential); err != nil {
		return err
	}
	tokenType = strings.TrimSpace(tokenType)
	if tokenType != "" {
		if err := s.store.Set(ctx, store.KeyTokenType, tokenType); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.credential = credential
	s.tokenType = tokenType
	s.mu.Unlock()

	return nil
}

// Clear drops the credential and reports whether a live session ended.
// Listeners fire only on that transition.
func (s *Session) Clear(ctx context.Context, reason Reason) bool {
	s.mu.Lock()
	wasLive := s.credential != ""
	s.credential = ""
	s.tokenType = ""
	listeners := append([]func(Reason){}, s.listeners...)
	s.mu.Unlock()

	s.forget(ctx)

	if !wasLive {
		return false
	}

	s.logger.Info("session ended", zap.String("reason", string(reason)))
	for _, fn := range listeners {
		fn(reason)
	}
	return true
}

// ClearIfCurrent ends the session only if it still holds credential. A
// rejection of a credential that was already replaced or cleared is a no-op.
func (s *Session) ClearIfCurrent(ctx context.Context, credential string, reason Reason) bool {
	s.mu.Lock()
	if s.credential == "" || s.credential != credential {
		s.mu.Unlock()
		return false
	}
	s.credential = ""
	s.tokenType = ""
	listeners := append([]func(Reason){}, s.listeners...)
	s.mu.Unlock()

	s.forget(ctx)

	s.logger.Info("session ended", zap.String("reason", string(reason)))
	for _, fn := range listeners {
		fn(reason)
	}
	return true
}

// OnClear registers fn to run every time a live session ends.
func (s *Session) OnClear(fn func(Reason)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Session) forget(ctx context.Context) {
	if err := s.store.Delete(ctx, store.KeyAccessToken, store.KeyTokenType); err != nil {
		s.logger.Warn("removing stored credential failed", zap.Error(err))
	}
}
