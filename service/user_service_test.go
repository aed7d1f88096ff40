// service/user_service_test.go
package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/vanguard-api/vanguard/auth"
	apperrors "github.com/vanguard-api/vanguard/errors"
	"github.com/vanguard-api/vanguard/model"
	"github.com/vanguard-api/vanguard/util"
)

// fakeUserRepo is an in-memory UserRepository.
type fakeUserRepo struct {
	users map[string]model.User
}

func newFakeUserRepo(users ...model.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: make(map[string]model.User)}
	for _, user := range users {
		repo.users[user.ID] = user
	}
	return repo
}

func (r *fakeUserRepo) CreateUser(_ context.Context, user *model.User) error {
	for _, existing := range r.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return apperrors.ErrUserConflict
		}
	}
	r.users[user.ID] = *user
	return nil
}

func (r *fakeUserRepo) GetUserByID(_ context.Context, id string) (*model.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	return &user, nil
}

func (r *fakeUserRepo) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	for _, user := range r.users {
		if user.Username == username {
			return &user, nil
		}
	}
	return nil, apperrors.ErrUserNotFound
}

func (r *fakeUserRepo) UpdateUser(_ context.Context, user *model.User) error {
	if _, ok := r.users[user.ID]; !ok {
		return apperrors.ErrUserNotFound
	}
	r.users[user.ID] = *user
	return nil
}

func (r *fakeUserRepo) DeleteUser(_ context.Context, id string) error {
	if _, ok := r.users[id]; !ok {
		return apperrors.ErrUserNotFound
	}
	delete(r.users, id)
	return nil
}

func newUserService(t *testing.T, repo *fakeUserRepo) IUserService {
	t.Helper()
	_, layer := newCacheFixture(t)
	return NewUserService(repo, layer, util.NewEventBus())
}

func TestRegisterStoresHashedPassword(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newUserService(t, repo)

	user, err := svc.Register(context.Background(), model.RegisterRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "sup3rsecret",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, []string{"user"}, user.Roles)
	assert.True(t, user.IsActive)

	stored := repo.users[user.ID]
	assert.NotEqual(t, "sup3rsecret", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("sup3rsecret")))
}

func TestRegisterConflict(t *testing.T) {
	repo := newFakeUserRepo(model.User{ID: "user-1", Username: "alice", Email: "alice@example.com"})
	svc := newUserService(t, repo)

	_, err := svc.Register(context.Background(), model.RegisterRequest{
		Username: "alice",
		Email:    "other@example.com",
		Password: "sup3rsecret",
	})
	assert.True(t, errors.Is(err, apperrors.ErrUserConflict))
}

func registeredUser(t *testing.T, repo *fakeUserRepo, svc IUserService) *model.User {
	t.Helper()
	user, err := svc.Register(context.Background(), model.RegisterRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "sup3rsecret",
	})
	require.NoError(t, err)
	return user
}

func TestLogin(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newUserService(t, repo)
	registered := registeredUser(t, repo, svc)

	user, err := svc.Login(context.Background(), model.LoginRequest{Username: "alice", Password: "sup3rsecret"})
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)
}

func TestLoginWrongPassword(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newUserService(t, repo)
	registeredUser(t, repo, svc)

	_, err := svc.Login(context.Background(), model.LoginRequest{Username: "alice", Password: "wrong"})
	assert.True(t, errors.Is(err, apperrors.ErrBadCredentials))
}

func TestLoginUnknownUser(t *testing.T) {
	svc := newUserService(t, newFakeUserRepo())

	// Unknown usernames and wrong passwords produce the same error.
	_, err := svc.Login(context.Background(), model.LoginRequest{Username: "nobody", Password: "whatever"})
	assert.True(t, errors.Is(err, apperrors.ErrBadCredentials))
}

func TestLoginDeactivatedUser(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newUserService(t, repo)
	registered := registeredUser(t, repo, svc)

	stored := repo.users[registered.ID]
	stored.IsActive = false
	repo.users[registered.ID] = stored

	_, err := svc.Login(context.Background(), model.LoginRequest{Username: "alice", Password: "sup3rsecret"})
	assert.True(t, errors.Is(err, apperrors.ErrBadCredentials))
}

func TestUpdateUserOwnership(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newUserService(t, repo)
	registered := registeredUser(t, repo, svc)

	email := "new@example.com"
	_, err := svc.UpdateUser(context.Background(), registered.ID, model.UserUpdate{Email: &email}, intruder)
	assert.True(t, errors.Is(err, apperrors.ErrForbidden))

	// A user may modify themselves, an admin may modify anyone.
	self := &auth.Principal{Subject: registered.ID, Roles: []string{"user"}}
	user, err := svc.UpdateUser(context.Background(), registered.ID, model.UserUpdate{Email: &email}, self)
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", user.Email)

	inactive := false
	user, err = svc.UpdateUser(context.Background(), registered.ID, model.UserUpdate{IsActive: &inactive}, admin)
	require.NoError(t, err)
	assert.False(t, user.IsActive)
}

func TestDeleteUserOwnership(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newUserService(t, repo)
	registered := registeredUser(t, repo, svc)

	err := svc.DeleteUser(context.Background(), registered.ID, intruder)
	assert.True(t, errors.Is(err, apperrors.ErrForbidden))

	require.NoError(t, svc.DeleteUser(context.Background(), registered.ID, admin))
	assert.NotContains(t, repo.users, registered.ID)
}
