package repository

import (
	"context"
	"time"

	"learnbytech/internal/domain"
)

// SessionRepository stores server-side session state keyed by session id.
// Delete and DeleteByUser succeed when nothing matches.
type SessionRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, session *domain.Session) error
	Get(ctx context.Context, id string) (*domain.Session, error)
	Delete(ctx context.Context, id string) error
	DeleteByUser(ctx context.Context, userID int64) error
	DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
