package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"learnbytech/internal/domain"
	"learnbytech/internal/repository"
	"learnbytech/internal/repository/memory"
	"learnbytech/internal/repository/sqlite"
	"learnbytech/internal/security"
)

type testEnv struct {
	users    repository.UserRepository
	courses  repository.CourseRepository
	sessions *memory.SessionRepository
	hasher   *security.Hasher
	handles  *security.HandleCodec
	auth     *AuthService
	guard    *Guard
	userSvc  UserService
	logHook  *test.Hook
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	users := sqlite.NewUserRepository(db)
	require.NoError(t, users.Init(ctx))
	courses := sqlite.NewCourseRepository(db)
	require.NoError(t, courses.Init(ctx))

	handles, err := security.NewHandleCodec("0123456789abcdef0123456789abcdef", time.Hour)
	require.NoError(t, err)

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	env := &testEnv{
		users:    users,
		courses:  courses,
		sessions: memory.NewSessionRepository(),
		hasher:   security.NewHasher(bcrypt.MinCost),
		handles:  handles,
		logHook:  hook,
	}
	env.auth = NewAuthService(env.users, env.sessions, env.hasher, env.handles, logger)
	env.guard = NewGuard(env.sessions, env.handles)
	env.userSvc = NewUserService(env.users, env.sessions, env.hasher, logger)
	return env
}

func (e *testEnv) register(t *testing.T, username, password string, role domain.Role) int64 {
	t.Helper()
	id, err := e.userSvc.Register(context.Background(), RegisterInput{
		Username: username,
		Email:    username + "@x.com",
		Password: password,
		Role:     string(role),
	})
	require.NoError(t, err)
	return id
}

func (e *testEnv) login(t *testing.T, username, password string) string {
	t.Helper()
	handle, _, err := e.auth.Authenticate(context.Background(), username, password)
	require.NoError(t, err)
	return handle
}

// countingUsers records credential-store lookups.
type countingUsers struct {
	repository.UserRepository
	lookups atomic.Int32
}

func (c *countingUsers) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	c.lookups.Add(1)
	return c.UserRepository.GetByUsername(ctx, username)
}

// failingUsers fails every write.
type failingUsers struct {
	repository.UserRepository
}

var errDiskFull = errors.New("disk full")

func (f failingUsers) Create(context.Context, *domain.User) (int64, error) {
	return 0, errDiskFull
}

func (f failingUsers) Update(context.Context, *domain.User) error {
	return errDiskFull
}
