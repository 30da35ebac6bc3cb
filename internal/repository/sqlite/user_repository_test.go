package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"learnbytech/internal/domain"
	"learnbytech/internal/repository"
)

func newUser(username, email string, role domain.Role) *domain.User {
	return &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: "hash-" + username,
		Role:         role,
	}
}

func TestUserRepository_CreateAndGet(t *testing.T) {
	repo := NewUserRepository(openTestDB(t))
	ctx := context.Background()

	user := newUser("alice", "alice@example.com", domain.RoleStudent)
	id, err := repo.Create(ctx, user)
	require.NoError(t, err)
	assert.Positive(t, id)
	assert.Equal(t, id, user.ID)
	assert.False(t, user.CreatedAt.IsZero())

	byName, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, id, byName.ID)
	assert.Equal(t, "alice@example.com", byName.Email)
	assert.Equal(t, "hash-alice", byName.PasswordHash)
	assert.Equal(t, domain.RoleStudent, byName.Role)

	byEmail, err := repo.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, id, byEmail.ID)

	byID, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Username)
}

func TestUserRepository_UsernameIsCaseSensitive(t *testing.T) {
	repo := NewUserRepository(openTestDB(t))
	ctx := context.Background()

	_, err := repo.Create(ctx, newUser("alice", "alice@example.com", domain.RoleStudent))
	require.NoError(t, err)

	_, err = repo.GetByUsername(ctx, "Alice")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUserRepository_UniqueConstraints(t *testing.T) {
	repo := NewUserRepository(openTestDB(t))
	ctx := context.Background()

	_, err := repo.Create(ctx, newUser("bob", "bob@example.com", domain.RoleStudent))
	require.NoError(t, err)

	_, err = repo.Create(ctx, newUser("bob", "other@example.com", domain.RoleStudent))
	assert.ErrorIs(t, err, repository.ErrUsernameTaken)

	_, err = repo.Create(ctx, newUser("bobby", "bob@example.com", domain.RoleStudent))
	assert.ErrorIs(t, err, repository.ErrEmailTaken)

	users, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestUserRepository_RejectsUnknownRole(t *testing.T) {
	repo := NewUserRepository(openTestDB(t))

	_, err := repo.Create(context.Background(), newUser("eve", "eve@example.com", domain.Role("admin")))
	assert.Error(t, err)
}

func TestUserRepository_UpdateAndDelete(t *testing.T) {
	repo := NewUserRepository(openTestDB(t))
	ctx := context.Background()

	user := newUser("carol", "carol@example.com", domain.RoleTeacher)
	_, err := repo.Create(ctx, user)
	require.NoError(t, err)
	other := newUser("dave", "dave@example.com", domain.RoleStudent)
	_, err = repo.Create(ctx, other)
	require.NoError(t, err)

	user.Email = "carol@school.test"
	user.PasswordHash = "rehashed"
	require.NoError(t, repo.Update(ctx, user))

	got, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "carol@school.test", got.Email)
	assert.Equal(t, "rehashed", got.PasswordHash)

	user.Email = "dave@example.com"
	assert.ErrorIs(t, repo.Update(ctx, user), repository.ErrEmailTaken)

	require.NoError(t, repo.Delete(ctx, user.ID))
	_, err = repo.GetByID(ctx, user.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, user.ID), repository.ErrNotFound)
}

func TestUserRepository_ListOrdersByID(t *testing.T) {
	repo := NewUserRepository(openTestDB(t))
	ctx := context.Background()

	for _, name := range []string{"zed", "amy", "kim"} {
		_, err := repo.Create(ctx, newUser(name, name+"@example.com", domain.RoleStudent))
		require.NoError(t, err)
	}

	users, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, "zed", users[0].Username)
	assert.Equal(t, "amy", users[1].Username)
	assert.Equal(t, "kim", users[2].Username)
}
