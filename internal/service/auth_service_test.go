package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/student-portal-api/internal/models"
	appErrors "github.com/noah-isme/student-portal-api/pkg/errors"
)

type mockAuthRepo struct {
	userByEmail    *models.User
	findByEmailErr error
	createErr      error
	created        *models.User
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.findByEmailErr != nil {
		return nil, m.findByEmailErr
	}
	if m.userByEmail == nil || m.userByEmail.Email != email {
		return nil, sql.ErrNoRows
	}
	return m.userByEmail, nil
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.userByEmail != nil && m.userByEmail.ID == id {
		return m.userByEmail, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) CreateWithProfile(ctx context.Context, user *models.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = user
	return nil
}

type mockSessionLifecycle struct {
	opened  []string
	closed  []string
	openErr error
}

func (m *mockSessionLifecycle) Open(ctx context.Context, studentID string) error {
	m.opened = append(m.opened, studentID)
	return m.openErr
}

func (m *mockSessionLifecycle) Close(studentID string) bool {
	m.closed = append(m.closed, studentID)
	return true
}

func newAuthFixture(repo *mockAuthRepo) (*AuthService, *mockSessionLifecycle) {
	sessions := &mockSessionLifecycle{}
	svc := NewAuthService(repo, sessions, NewTokenDenyList(nil, nil), validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret: "secret",
		AccessTokenExpiry: time.Hour,
		Issuer:            "student-portal-api",
	})
	return svc, sessions
}

func activeStudent(t *testing.T) *models.User {
	t.Helper()
	password, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.User{ID: "123", Email: "user@example.com", PasswordHash: string(password), FullName: "Ali", SapID: "7001", Active: true, Role: models.RoleStudent}
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	svc, sessions := newAuthFixture(&mockAuthRepo{userByEmail: activeStudent(t)})

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "User@Example.com", Password: "password"})

	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.Equal(t, int64(3600), res.ExpiresIn)
	assert.Equal(t, "7001", res.User.SapID)
	assert.Equal(t, []string{"123"}, sessions.opened)
}

func TestAuthServiceLoginSessionFailureIsNotFatal(t *testing.T) {
	svc, sessions := newAuthFixture(&mockAuthRepo{userByEmail: activeStudent(t)})
	sessions.openErr = appErrors.ErrPersistence

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "password"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	svc, sessions := newAuthFixture(&mockAuthRepo{userByEmail: activeStudent(t)})

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "nope"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
	assert.Empty(t, sessions.opened)
}

func TestAuthServiceLoginInactive(t *testing.T) {
	user := activeStudent(t)
	user.Active = false
	svc, _ := newAuthFixture(&mockAuthRepo{userByEmail: user})

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "password"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErr.Code)
}

func TestAuthServiceSignup(t *testing.T) {
	repo := &mockAuthRepo{}
	svc, _ := newAuthFixture(repo)

	info, err := svc.Signup(context.Background(), models.SignupRequest{Email: " New@Uni.edu ", Password: "secret1", FullName: "Sara", SapID: "7002"})

	require.NoError(t, err)
	assert.Equal(t, "new@uni.edu", info.Email)
	require.NotNil(t, repo.created)
	assert.Equal(t, models.RoleStudent, repo.created.Role)
	assert.True(t, repo.created.Active)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.created.PasswordHash), []byte("secret1")))
}

func TestAuthServiceSignupValidation(t *testing.T) {
	svc, _ := newAuthFixture(&mockAuthRepo{})

	_, err := svc.Signup(context.Background(), models.SignupRequest{Email: "a@b.co", Password: "12345", FullName: "X", SapID: "1"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestAuthServiceSignupDuplicate(t *testing.T) {
	svc, _ := newAuthFixture(&mockAuthRepo{userByEmail: activeStudent(t)})

	_, err := svc.Signup(context.Background(), models.SignupRequest{Email: "user@example.com", Password: "secret1", FullName: "X", SapID: "1"})
	assert.ErrorIs(t, err, appErrors.ErrConflict)
}

func TestAuthServiceSignupStoreFailure(t *testing.T) {
	svc, _ := newAuthFixture(&mockAuthRepo{createErr: errors.New("tx aborted")})

	_, err := svc.Signup(context.Background(), models.SignupRequest{Email: "n@uni.edu", Password: "secret1", FullName: "X", SapID: "1"})
	assert.ErrorIs(t, err, appErrors.ErrInternal)
}

func TestAuthServiceLogoutClosesSession(t *testing.T) {
	svc, sessions := newAuthFixture(&mockAuthRepo{})

	require.NoError(t, svc.Logout(context.Background(), &models.JWTClaims{UserID: "123"}))
	assert.Equal(t, []string{"123"}, sessions.closed)
	assert.ErrorIs(t, svc.Logout(context.Background(), nil), appErrors.ErrUnauthorized)
	assert.ErrorIs(t, svc.Logout(context.Background(), &models.JWTClaims{}), appErrors.ErrUnauthorized)
}

func TestAuthServiceLogoutRevokesTokenAndSession(t *testing.T) {
	ctx := context.Background()
	ledgers := NewLedgerSessions(testCatalog(), &mockProfileStore{}, time.Hour, zap.NewNop())
	svc := NewAuthService(&mockAuthRepo{userByEmail: activeStudent(t)}, ledgers, NewTokenDenyList(nil, nil), validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret: "secret",
		AccessTokenExpiry: time.Hour,
		Issuer:            "student-portal-api",
	})
	enrollment := NewEnrollmentService(ledgers, nil, nil, zap.NewNop())

	res, err := svc.Login(ctx, models.LoginRequest{Email: "user@example.com", Password: "password"})
	require.NoError(t, err)
	claims, err := svc.ValidateToken(ctx, res.AccessToken)
	require.NoError(t, err)
	_, err = enrollment.Toggle(ctx, claims.UserID, "a")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, claims))

	_, err = enrollment.Toggle(ctx, claims.UserID, "a")
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
	assert.Equal(t, 0, ledgers.Active())

	_, err = svc.ValidateToken(ctx, res.AccessToken)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	again, err := svc.Login(ctx, models.LoginRequest{Email: "user@example.com", Password: "password"})
	require.NoError(t, err)
	_, err = svc.ValidateToken(ctx, again.AccessToken)
	require.NoError(t, err)
	state, err := enrollment.State(ctx, claims.UserID)
	require.NoError(t, err)
	assert.Empty(t, state.SelectedCourses)
}

func TestValidateToken(t *testing.T) {
	svc, _ := newAuthFixture(&mockAuthRepo{})
	user := &models.User{ID: "u1", Email: "user@example.com", Role: models.RoleStudent}
	token, _, err := svc.generateAccessToken(user)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)

	tampered := token + "x"
	_, err = svc.ValidateToken(context.Background(), tampered)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestValidateTokenWrongIssuer(t *testing.T) {
	other := NewAuthService(&mockAuthRepo{}, nil, nil, nil, nil, AuthConfig{AccessTokenSecret: "secret", AccessTokenExpiry: time.Hour, Issuer: "someone-else"})
	token, _, err := other.generateAccessToken(&models.User{ID: "u1"})
	require.NoError(t, err)

	svc, _ := newAuthFixture(&mockAuthRepo{})
	_, err = svc.ValidateToken(context.Background(), token)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}
