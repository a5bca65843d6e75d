package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/trailpaw-ai/companion-platform/internal/errs"
	"github.com/trailpaw-ai/companion-platform/internal/model"
	"github.com/trailpaw-ai/companion-platform/pkg/logger"
	"github.com/trailpaw-ai/companion-platform/pkg/metrics"
)

const (
	sessionKeyPrefix = "user:session:"
	userTokenPrefix  = "user:token:"
)

// Store issues, renews, validates, and evicts login sessions. At most one
// live token per user: a new login evicts the previous token first
// (last-login-wins; a brief overlap between eviction and creation is
// tolerated).
type Store struct {
	kv         KV
	timeout    time.Duration
	renewBelow time.Duration
	log        *logger.Logger
}

// NewStore creates a session store. timeout is the base TTL; renewBelow is
// the threshold under which passive checks renew.
func NewStore(kv KV, timeout, renewBelow time.Duration, log *logger.Logger) *Store {
	return &Store{
		kv:         kv,
		timeout:    timeout,
		renewBelow: renewBelow,
		log:        log,
	}
}

func sessionKey(token string) string { return sessionKeyPrefix + token }
func userTokenKey(userID string) string { return userTokenPrefix + userID }

// newToken generates a fresh opaque token.
func newToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "") +
		strconv.FormatInt(time.Now().UnixMilli(), 36)
}

// Create issues a new session token for the user, evicting any prior token
// for the same user first. Store failures here are fatal to the request.
func (s *Store) Create(ctx context.Context, user *model.UserSnapshot) (string, error) {
	token := newToken()

	// Evict the previous session, if any. Old token first, then the new one.
	prev, err := s.kv.Get(ctx, userTokenKey(user.ID))
	if err == nil && len(prev) > 0 {
		if err := s.kv.Del(ctx, sessionKey(string(prev))); err != nil {
			return "", fmt.Errorf("failed to evict prior session: %w", err)
		}
		metrics.SessionsEvicted.Inc()
		s.log.Info("evicted prior session", zap.String("user_id", user.ID))
	} else if err != nil && !errors.Is(err, errs.ErrNotFound) {
		return "", fmt.Errorf("failed to look up prior session: %w", err)
	}

	data, err := json.Marshal(user)
	if err != nil {
		return "", fmt.Errorf("failed to encode session snapshot: %w", err)
	}

	if err := s.kv.Set(ctx, sessionKey(token), data, s.timeout); err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}
	if err := s.kv.Set(ctx, userTokenKey(user.ID), []byte(token), s.timeout); err != nil {
		return "", fmt.Errorf("failed to store session index: %w", err)
	}

	metrics.SessionsCreated.Inc()
	return token, nil
}

// Get returns the snapshot for a token and renews the session to the base
// timeout (sliding expiration). Missing, expired, malformed tokens and
// store read failures all yield errs.ErrUnauthenticated: the session layer
// fails open to "not logged in", never to an error page.
func (s *Store) Get(ctx context.Context, token string) (*model.UserSnapshot, error) {
	snap, err := s.lookup(ctx, token)
	if err != nil {
		return nil, err
	}

	if err := s.renew(ctx, token, snap.ID); err != nil {
		s.log.Warn("session renewal failed", zap.Error(err))
	} else {
		metrics.SessionRenewals.WithLabelValues("sliding").Inc()
	}
	return snap, nil
}

// Peek returns the snapshot for a token without renewing. The auth
// middleware pairs it with RenewIfNeeded so that passive checks do not
// cost a store write on every request.
func (s *Store) Peek(ctx context.Context, token string) (*model.UserSnapshot, error) {
	return s.lookup(ctx, token)
}

func (s *Store) lookup(ctx context.Context, token string) (*model.UserSnapshot, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errs.ErrUnauthenticated
	}

	data, err := s.kv.Get(ctx, sessionKey(token))
	if errors.Is(err, errs.ErrNotFound) {
		return nil, errs.ErrUnauthenticated
	}
	if err != nil {
		s.log.Warn("session store read failed", zap.Error(err))
		return nil, errs.ErrUnauthenticated
	}

	var snap model.UserSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		s.log.Warn("corrupt session snapshot", zap.Error(err))
		return nil, errs.ErrUnauthenticated
	}
	return &snap, nil
}

// RenewIfNeeded resets the TTL to the base timeout only when the remaining
// lifetime has dropped below the renewal threshold. Otherwise it is a no-op,
// so the interceptor path does not write to the store on every request.
func (s *Store) RenewIfNeeded(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return nil
	}

	remaining, err := s.kv.TTL(ctx, sessionKey(token))
	if errors.Is(err, errs.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if remaining >= s.renewBelow {
		return nil
	}

	snap, err := s.lookup(ctx, token)
	if err != nil {
		return nil
	}
	if err := s.renew(ctx, token, snap.ID); err != nil {
		return err
	}
	metrics.SessionRenewals.WithLabelValues("threshold").Inc()
	return nil
}

func (s *Store) renew(ctx context.Context, token, userID string) error {
	if err := s.kv.Expire(ctx, sessionKey(token), s.timeout); err != nil {
		return err
	}
	return s.kv.Expire(ctx, userTokenKey(userID), s.timeout)
}

// Remove invalidates a single token (logout), clearing the snapshot and
// the user→token reverse index.
func (s *Store) Remove(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return nil
	}

	keys := []string{sessionKey(token)}
	if snap, err := s.lookup(ctx, token); err == nil {
		keys = append(keys, userTokenKey(snap.ID))
	}
	return s.kv.Del(ctx, keys...)
}

// RemoveAllForUser invalidates whatever session the user currently holds.
func (s *Store) RemoveAllForUser(ctx context.Context, userID string) error {
	keys := []string{userTokenKey(userID)}
	if token, err := s.kv.Get(ctx, userTokenKey(userID)); err == nil && len(token) > 0 {
		keys = append(keys, sessionKey(string(token)))
	}
	return s.kv.Del(ctx, keys...)
}

// HasSession reports whether the user currently holds a live session.
func (s *Store) HasSession(ctx context.Context, userID string) bool {
	ok, err := s.kv.Exists(ctx, userTokenKey(userID))
	return err == nil && ok
}

// IsValid reports whether the token maps to a live session.
func (s *Store) IsValid(ctx context.Context, token string) bool {
	if strings.TrimSpace(token) == "" {
		return false
	}
	ok, err := s.kv.Exists(ctx, sessionKey(token))
	return err == nil && ok
}

// RemainingTTL returns the token's remaining lifetime, or errs.ErrNotFound.
func (s *Store) RemainingTTL(ctx context.Context, token string) (time.Duration, error) {
	if strings.TrimSpace(token) == "" {
		return 0, errs.ErrNotFound
	}
	return s.kv.TTL(ctx, sessionKey(token))
}
