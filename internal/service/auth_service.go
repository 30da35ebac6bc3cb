package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"learnbytech/internal/domain"
	"learnbytech/internal/repository"
	"learnbytech/internal/security"
)

// AuthService establishes and tears down sessions.
type AuthService struct {
	users    repository.UserRepository
	sessions repository.SessionRepository
	hasher   *security.Hasher
	handles  *security.HandleCodec
	log      logrus.FieldLogger
	now      func() time.Time
}

func NewAuthService(users repository.UserRepository, sessions repository.SessionRepository, hasher *security.Hasher, handles *security.HandleCodec, log logrus.FieldLogger) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		handles:  handles,
		log:      log,
		now:      time.Now,
	}
}

// Authenticate checks username and password and, on success, creates exactly
// one session and returns its signed handle. An unknown username and a wrong
// password both yield ErrInvalidCredentials.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (string, *domain.Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || strings.TrimSpace(password) == "" {
		return "", nil, ErrMissingCredentials
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, persistence("lookup user", err)
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		return "", nil, ErrInvalidCredentials
	}

	session := &domain.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Username:  user.Username,
		Role:      user.Role,
		CreatedAt: s.now().UTC(),
	}
	handle, err := s.handles.Encode(session.ID)
	if err != nil {
		return "", nil, err
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return "", nil, persistence("create session", err)
	}

	s.log.WithFields(logrus.Fields{"user_id": user.ID, "role": user.Role}).Info("login succeeded")
	return handle, session, nil
}

// Logout forgets the session behind handle. Unknown, malformed and already
// cleared handles are not errors.
func (s *AuthService) Logout(ctx context.Context, handle string) error {
	id, err := s.handles.Decode(handle)
	if err != nil {
		return nil
	}
	if err := s.sessions.Delete(ctx, id); err != nil {
		return persistence("delete session", err)
	}
	return nil
}

// PruneSessions deletes sessions whose handles can no longer be valid.
func (s *AuthService) PruneSessions(ctx context.Context) (int64, error) {
	ttl := s.handles.TTL()
	if ttl <= 0 {
		return 0, nil
	}
	n, err := s.sessions.DeleteCreatedBefore(ctx, s.now().Add(-ttl))
	if err != nil {
		return 0, persistence("prune sessions", err)
	}
	return n, nil
}

// RunPruner calls PruneSessions every interval until ctx is done.
func (s *AuthService) RunPruner(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.PruneSessions(ctx)
			if err != nil {
				s.log.Warnf("prune sessions: %v", err)
				continue
			}
			if n > 0 {
				s.log.Debugf("pruned %d expired sessions", n)
			}
		}
	}
}
