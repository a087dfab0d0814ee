package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/carebridge/carebridge-api/internal/dto"
	"github.com/carebridge/carebridge-api/internal/models"
	appErrors "github.com/carebridge/carebridge-api/pkg/errors"
)

type mockUserRepo struct {
	users     map[string]models.User
	byEmail   map[string]string
	auditLogs []models.AuditLog
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if id, ok := m.byEmail[email]; ok {
		u := m.users[id]
		return &u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return &u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	var list []models.User
	for _, u := range m.users {
		list = append(list, u)
	}
	return list, len(list), nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	if m.users == nil {
		m.users = make(map[string]models.User)
		m.byEmail = make(map[string]string)
	}
	if user.ID == "" {
		user.ID = "new-user"
	}
	m.users[user.ID] = *user
	m.byEmail[user.Email] = user.ID
	return nil
}

func (m *mockUserRepo) Update(ctx context.Context, user *models.User) error {
	m.users[user.ID] = *user
	return nil
}

func (m *mockUserRepo) SetApproved(ctx context.Context, id string, approved bool, ts time.Time) error {
	u := m.users[id]
	u.Approved = approved
	m.users[id] = u
	return nil
}

func (m *mockUserRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, *log)
	return nil
}

func newUserService(repo *mockUserRepo) *UserService {
	return NewUserService(repo, validator.New(), zap.NewNop())
}

func TestUserCreateCarerStartsUnapproved(t *testing.T) {
	repo := &mockUserRepo{}
	svc := newUserService(repo)

	user, err := svc.Create(context.Background(), adminClaims(), dto.CreateUserRequest{
		Email:    "carer@example.com",
		Password: "password1",
		FullName: "New Carer",
		Role:     models.RoleSupportWorker,
	})
	require.NoError(t, err)
	assert.False(t, user.Approved)
	assert.True(t, user.Active)
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionUserCreate, repo.auditLogs[0].Action)
}

func TestUserCreateAdminStartsApproved(t *testing.T) {
	svc := newUserService(&mockUserRepo{})

	user, err := svc.Create(context.Background(), adminClaims(), dto.CreateUserRequest{
		Email:    "admin2@example.com",
		Password: "password1",
		FullName: "Second Admin",
		Role:     models.RoleAdmin,
	})
	require.NoError(t, err)
	assert.True(t, user.Approved)
}

func TestUserCreateDuplicateEmail(t *testing.T) {
	repo := &mockUserRepo{}
	svc := newUserService(repo)

	req := dto.CreateUserRequest{Email: "dup@example.com", Password: "password1", FullName: "Dup", Role: models.RoleSupportWorker}
	_, err := svc.Create(context.Background(), adminClaims(), req)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), adminClaims(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestUserCreateSuperAdminNeedsSuperAdmin(t *testing.T) {
	svc := newUserService(&mockUserRepo{})

	req := dto.CreateUserRequest{Email: "root@example.com", Password: "password1", FullName: "Root", Role: models.RoleSuperAdmin}
	_, err := svc.Create(context.Background(), adminClaims(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	super := &models.JWTClaims{UserID: "root-1", Role: models.RoleSuperAdmin, Approved: true}
	_, err = svc.Create(context.Background(), super, req)
	require.NoError(t, err)
}

func TestUserApproveUnlocksCarer(t *testing.T) {
	repo := &mockUserRepo{users: map[string]models.User{
		"u1": {ID: "u1", Email: "carer@example.com", Role: models.RoleSupportWorker, Active: true},
	}}
	svc := newUserService(repo)

	user, err := svc.Approve(context.Background(), adminClaims(), "u1", true)
	require.NoError(t, err)
	assert.True(t, user.Approved)
	assert.True(t, repo.users["u1"].Approved)
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionUserApprove, repo.auditLogs[0].Action)
}

func TestUserApproveRequiresAdmin(t *testing.T) {
	repo := &mockUserRepo{users: map[string]models.User{"u1": {ID: "u1"}}}
	svc := newUserService(repo)

	_, err := svc.Approve(context.Background(), carerClaims(), "u1", true)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestUserGetSelfAllowed(t *testing.T) {
	repo := &mockUserRepo{users: map[string]models.User{
		"carer-1": {ID: "carer-1", Email: "carer@example.com"},
		"u2":      {ID: "u2", Email: "other@example.com"},
	}}
	svc := newUserService(repo)

	user, err := svc.Get(context.Background(), carerClaims(), "carer-1")
	require.NoError(t, err)
	assert.Equal(t, "carer-1", user.ID)

	_, err = svc.Get(context.Background(), carerClaims(), "u2")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestUserListRequiresAdmin(t *testing.T) {
	svc := newUserService(&mockUserRepo{})

	_, _, err := svc.List(context.Background(), carerClaims(), models.UserFilter{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
