package service

import (
	"context"
	"errors"

	"learnbytech/internal/domain"
	"learnbytech/internal/repository"
	"learnbytech/internal/security"
)

// Guard runs the checks that precede a protected operation.
type Guard struct {
	sessions repository.SessionRepository
	handles  *security.HandleCodec
}

func NewGuard(sessions repository.SessionRepository, handles *security.HandleCodec) *Guard {
	return &Guard{sessions: sessions, handles: handles}
}

// RequireAuthenticated resolves handle to the identity stored at login.
func (g *Guard) RequireAuthenticated(ctx context.Context, handle string) (domain.Identity, error) {
	id, err := g.handles.Decode(handle)
	if err != nil {
		return domain.Identity{}, ErrUnauthenticated
	}
	session, err := g.sessions.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Identity{}, ErrUnauthenticated
		}
		return domain.Identity{}, persistence("load session", err)
	}
	return domain.Identity{
		SessionID: session.ID,
		UserID:    session.UserID,
		Username:  session.Username,
		Role:      session.Role,
	}, nil
}

// RequireRole compares the role captured at login with expected.
func (g *Guard) RequireRole(identity domain.Identity, expected domain.Role) error {
	if identity.Role != expected {
		return ErrForbidden
	}
	return nil
}

// Decide applies RequireAuthenticated and, when role is set, RequireRole.
// The role check never runs without a session.
func (g *Guard) Decide(ctx context.Context, handle string, role domain.Role) (domain.Identity, domain.AccessDecision, error) {
	var decision domain.AccessDecision

	identity, err := g.RequireAuthenticated(ctx, handle)
	if err != nil {
		return domain.Identity{}, decision, err
	}
	decision.Authenticated = true

	if role == "" {
		decision.RoleMatch = true
		return identity, decision, nil
	}
	if err := g.RequireRole(identity, role); err != nil {
		return identity, decision, err
	}
	decision.RoleMatch = true
	return identity, decision, nil
}
