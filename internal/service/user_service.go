package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"learnbytech/internal/domain"
	"learnbytech/internal/repository"
	"learnbytech/internal/security"
)

const (
	minPasswordLength = 4
	maxUsernameLength = 80
	maxEmailLength    = 120
)

// RegisterInput carries a registration form.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	Role     string
}

// ProfileInput carries a profile edit. An empty Password keeps the current one.
type ProfileInput struct {
	Email    string
	Password string
}

// UserService describes user lifecycle operations.
type UserService interface {
	Register(ctx context.Context, in RegisterInput) (int64, error)
	UpdateProfile(ctx context.Context, userID int64, in ProfileInput) (*domain.User, error)
	DeleteAccount(ctx context.Context, userID int64) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
}

type userService struct {
	users    repository.UserRepository
	sessions repository.SessionRepository
	hasher   *security.Hasher
	log      logrus.FieldLogger
}

func NewUserService(users repository.UserRepository, sessions repository.SessionRepository, hasher *security.Hasher, log logrus.FieldLogger) UserService {
	return &userService{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		log:      log,
	}
}

// Register validates in, stopping at the first failure, then stores a new user.
func (s *userService) Register(ctx context.Context, in RegisterInput) (int64, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)

	if username == "" {
		return 0, invalid("username", "Username is required.")
	}
	if utf8.RuneCountInString(username) > maxUsernameLength {
		return 0, invalid("username", "Username is too long.")
	}
	if err := validateEmail(email); err != nil {
		return 0, err
	}
	if err := validatePassword(in.Password); err != nil {
		return 0, err
	}
	role, err := domain.ParseRole(in.Role)
	if err != nil {
		return 0, invalid("role", "Role must be student or teacher.")
	}

	if err := s.ensureUsernameFree(ctx, username); err != nil {
		return 0, err
	}
	if err := s.ensureEmailFree(ctx, email, 0); err != nil {
		return 0, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return 0, persistence("hash password", err)
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	id, err := s.users.Create(ctx, user)
	if err != nil {
		// the unique constraints catch registrations racing past the checks above
		switch {
		case errors.Is(err, repository.ErrUsernameTaken):
			return 0, invalid("username", "Username is already taken.")
		case errors.Is(err, repository.ErrEmailTaken):
			return 0, invalid("email", "Email is already registered.")
		}
		return 0, persistence("create user", err)
	}

	s.log.WithFields(logrus.Fields{"user_id": id, "username": username, "role": role}).Info("user registered")
	return id, nil
}

func (s *userService) UpdateProfile(ctx context.Context, userID int64, in ProfileInput) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, persistence("load user", err)
	}

	email := strings.TrimSpace(in.Email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if in.Password != "" {
		if err := validatePassword(in.Password); err != nil {
			return nil, err
		}
	}
	if email != user.Email {
		if err := s.ensureEmailFree(ctx, email, user.ID); err != nil {
			return nil, err
		}
		user.Email = email
	}
	if in.Password != "" {
		hash, err := s.hasher.Hash(in.Password)
		if err != nil {
			return nil, persistence("hash password", err)
		}
		user.PasswordHash = hash
	}

	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, invalid("email", "Email is already registered.")
		}
		return nil, persistence("update user", err)
	}

	s.log.WithFields(logrus.Fields{"user_id": user.ID, "password_changed": in.Password != ""}).Info("profile updated")
	return sanitizeUser(user), nil
}

// DeleteAccount removes the user and every session that still points at it.
func (s *userService) DeleteAccount(ctx context.Context, userID int64) error {
	if err := s.users.Delete(ctx, userID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return persistence("delete user", err)
	}
	if err := s.sessions.DeleteByUser(ctx, userID); err != nil {
		return persistence("delete user sessions", err)
	}
	s.log.WithField("user_id", userID).Info("account deleted")
	return nil
}

func (s *userService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		return nil, persistence("load user", err)
	}
	return sanitizeUser(user), nil
}

func (s *userService) ListUsers(ctx context.Context) ([]domain.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, persistence("list users", err)
	}
	for i := range users {
		users[i].PasswordHash = ""
	}
	return users, nil
}

func (s *userService) ensureUsernameFree(ctx context.Context, username string) error {
	_, err := s.users.GetByUsername(ctx, username)
	switch {
	case err == nil:
		return invalid("username", "Username is already taken.")
	case errors.Is(err, repository.ErrNotFound):
		return nil
	default:
		return persistence("lookup username", err)
	}
}

func (s *userService) ensureEmailFree(ctx context.Context, email string, selfID int64) error {
	existing, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.ID == selfID {
			return nil
		}
		return invalid("email", "Email is already registered.")
	case errors.Is(err, repository.ErrNotFound):
		return nil
	default:
		return persistence("lookup email", err)
	}
}

func validateEmail(email string) error {
	if email == "" {
		return invalid("email", "Email is required.")
	}
	if !strings.Contains(email, "@") {
		return invalid("email", "Email must contain @.")
	}
	if utf8.RuneCountInString(email) > maxEmailLength {
		return invalid("email", "Email is too long.")
	}
	return nil
}

func validatePassword(password string) error {
	if strings.TrimSpace(password) == "" {
		return invalid("password", "Password is required.")
	}
	if utf8.RuneCountInString(password) < minPasswordLength {
		return invalid("password", "Password must be at least 4 characters.")
	}
	if len(password) > security.MaxPasswordBytes {
		return invalid("password", "Password is too long.")
	}
	return nil
}

func sanitizeUser(user *domain.User) *domain.User {
	if user == nil {
		return nil
	}
	clean := *user
	clean.PasswordHash = ""
	return &clean
}
