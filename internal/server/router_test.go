package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun/migrate"

	"github.com/Shonkurieta/ebookreader/internal/auth"
	"github.com/Shonkurieta/ebookreader/internal/db/bunx"
	readermw "github.com/Shonkurieta/ebookreader/internal/middleware"
	"github.com/Shonkurieta/ebookreader/internal/migrations"
	"github.com/Shonkurieta/ebookreader/internal/policy"
	"github.com/Shonkurieta/ebookreader/internal/repository"
	"github.com/Shonkurieta/ebookreader/internal/services/iam"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

type apiFixture struct {
	svc    *iam.Service
	codec  *auth.Codec
	router http.Handler
}

// newAPIFixture wires the full pipeline against an in-memory SQLite store.
func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	ctx := context.Background()

	db, err := bunx.NewDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = bunx.Close(db) })

	migrator := migrate.NewMigrator(db, migrations.Migrations)
	require.NoError(t, migrator.Init(ctx))
	_, err = migrator.Migrate(ctx)
	require.NoError(t, err)

	logger, _ := logtest.NewNullLogger()
	users := repository.NewBunUserRepository(db)
	resolver := iam.NewRoleResolver(users)

	codec, err := auth.NewCodec(testKey)
	require.NoError(t, err)

	svc, err := iam.NewService(iam.ServiceDependencies{
		Users:    users,
		Codec:    codec,
		Resolver: resolver,
		Logger:   logger,
	})
	require.NoError(t, err)

	pol := policy.Default()
	metrics := readermw.NewMetrics(prometheus.NewRegistry())
	gate, err := readermw.NewAuthenticationGate(readermw.GateDependencies{
		Policy:  pol,
		Codec:   codec,
		Lookup:  resolver,
		Logger:  logger,
		Metrics: metrics,
	})
	require.NoError(t, err)
	authz, err := readermw.NewAuthzMiddleware(readermw.AuthzDependencies{
		Policy:  pol,
		Logger:  logger,
		Metrics: metrics,
	})
	require.NoError(t, err)

	return &apiFixture{
		svc:   svc,
		codec: codec,
		router: NewRouter(RouterOptions{
			IAMService: svc,
			Logger:     logger,
			Gate:       gate,
			Authz:      authz,
		}),
	}
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) register(t *testing.T, nickname string) AuthResponse {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/auth/register", "", RegisterRequest{
		Username: nickname,
		Email:    nickname + "@example.com",
		Password: "correct-horse",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var res AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res
}

func (f *apiFixture) admin(t *testing.T, nickname string) AuthResponse {
	t.Helper()
	_, err := f.svc.CreateUser(context.Background(), iam.CreateUserInput{
		Nickname: nickname,
		Email:    nickname + "@example.com",
		Password: "correct-horse",
		Role:     auth.RoleAdmin,
	})
	require.NoError(t, err)

	rec := f.do(t, http.MethodPost, "/auth/login", "", LoginRequest{Username: nickname, Password: "correct-horse"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res
}

func message(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body readermw.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Message
}

func TestRouter_HealthIsPublic(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestRouter_RegisterAndProfile(t *testing.T) {
	f := newAPIFixture(t)

	res := f.register(t, "alice")
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "alice", res.Username)
	assert.Equal(t, "alice@example.com", res.Email)
	assert.Equal(t, auth.RoleUser, res.Role)

	parsed, err := f.codec.Parse(res.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", parsed.Subject)
	assert.Equal(t, []string{auth.RoleUser}, parsed.Roles)

	rec := f.do(t, http.MethodGet, "/user/profile", res.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var profile UserResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
	assert.Equal(t, parsed.PrincipalID, profile.ID)
	assert.Equal(t, "alice", profile.Username)
}

func TestRouter_RegisterRejections(t *testing.T) {
	f := newAPIFixture(t)
	f.register(t, "alice")

	tests := []struct {
		name string
		body RegisterRequest
	}{
		{"duplicate nickname", RegisterRequest{Username: "alice", Email: "other@example.com", Password: "correct-horse"}},
		{"duplicate email", RegisterRequest{Username: "bob", Email: "alice@example.com", Password: "correct-horse"}},
		{"short password", RegisterRequest{Username: "carol", Email: "carol@example.com", Password: "short"}},
		{"bad email", RegisterRequest{Username: "dave", Email: "not-an-email", Password: "correct-horse"}},
		{"empty nickname", RegisterRequest{Username: " ", Email: "erin@example.com", Password: "correct-horse"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/auth/register", "", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, message(t, rec))
		})
	}

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewBufferString("{"))
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid request body", message(t, rec))
	})
}

func TestRouter_Login(t *testing.T) {
	f := newAPIFixture(t)
	f.register(t, "alice")

	t.Run("by nickname", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/auth/login", "", LoginRequest{Username: "alice", Password: "correct-horse"})
		assert.Equal(t, http.StatusOK, rec.Code)
	})
	t.Run("by email", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/auth/login", "", LoginRequest{Username: "alice@example.com", Password: "correct-horse"})
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	// unknown account and wrong password are indistinguishable
	wrongPassword := f.do(t, http.MethodPost, "/auth/login", "", LoginRequest{Username: "alice", Password: "nope-nope"})
	unknown := f.do(t, http.MethodPost, "/auth/login", "", LoginRequest{Username: "mallory", Password: "correct-horse"})
	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, message(t, wrongPassword), message(t, unknown))
}

func TestRouter_AdminUsersScenario(t *testing.T) {
	f := newAPIFixture(t)
	user := f.register(t, "alice")
	admin := f.admin(t, "root")

	rec := f.do(t, http.MethodGet, "/admin/users", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodGet, "/admin/users", user.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Access denied", message(t, rec))

	rec = f.do(t, http.MethodGet, "/admin/users", admin.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var list []UserResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 2)
}

func TestRouter_RoleChangeReachesOutstandingTokens(t *testing.T) {
	f := newAPIFixture(t)
	user := f.register(t, "alice")
	admin := f.admin(t, "root")

	parsed, err := f.codec.Parse(user.Token)
	require.NoError(t, err)
	id := strconv.FormatInt(parsed.PrincipalID, 10)

	rec := f.do(t, http.MethodPut, "/admin/users/"+id+"/role", admin.Token, SetRoleRequest{Role: "admin"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated UserResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, auth.RoleAdmin, updated.Role)

	// the token still embeds USER; the refresh tier reports ADMIN
	rec = f.do(t, http.MethodGet, "/admin/users", user.Token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPut, "/admin/users/"+id+"/role", admin.Token, SetRoleRequest{Role: "OWNER"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_DeleteUser(t *testing.T) {
	f := newAPIFixture(t)
	user := f.register(t, "alice")
	admin := f.admin(t, "root")

	userID, err := f.codec.Parse(user.Token)
	require.NoError(t, err)
	adminID, err := f.codec.Parse(admin.Token)
	require.NoError(t, err)

	rec := f.do(t, http.MethodDelete, "/admin/users/"+strconv.FormatInt(adminID.PrincipalID, 10), admin.Token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodDelete, "/admin/users/"+strconv.FormatInt(userID.PrincipalID, 10), admin.Token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodDelete, "/admin/users/"+strconv.FormatInt(userID.PrincipalID, 10), admin.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodDelete, "/admin/users/abc", admin.Token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// the deleted principal's token no longer authenticates
	rec = f.do(t, http.MethodGet, "/user/profile", user.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_Refresh(t *testing.T) {
	f := newAPIFixture(t)
	user := f.register(t, "alice")

	rec := f.do(t, http.MethodPost, "/auth/refresh", user.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.NotEqual(t, user.Token, res.Token)
	assert.Equal(t, "alice", res.Username)

	rec = f.do(t, http.MethodPost, "/auth/refresh", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodPost, "/auth/refresh", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid token", message(t, rec))
}

func TestRouter_Rename(t *testing.T) {
	f := newAPIFixture(t)
	user := f.register(t, "alice")
	f.register(t, "bob")

	rec := f.do(t, http.MethodPut, "/user/nickname", user.Token, RenameRequest{Nickname: "bob"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPut, "/user/nickname", user.Token, RenameRequest{Nickname: ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPut, "/user/nickname", user.Token, RenameRequest{Nickname: "alicia"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "alicia", res.Username)

	parsed, err := f.codec.Parse(res.Token)
	require.NoError(t, err)
	assert.Equal(t, "alicia", parsed.Subject)

	// the old token names "alice" but the gate is keyed on the principal id
	rec = f.do(t, http.MethodGet, "/user/profile", user.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var profile UserResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
	assert.Equal(t, "alicia", profile.Username)
}

func TestRouter_ChangePassword(t *testing.T) {
	f := newAPIFixture(t)
	user := f.register(t, "alice")

	rec := f.do(t, http.MethodPut, "/user/password", user.Token, ChangePasswordRequest{OldPassword: "wrong-one", NewPassword: "new-password"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPut, "/user/password", user.Token, ChangePasswordRequest{OldPassword: "correct-horse", NewPassword: "short"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPut, "/user/password", user.Token, ChangePasswordRequest{OldPassword: "correct-horse", NewPassword: "new-password"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/auth/login", "", LoginRequest{Username: "alice", Password: "new-password"})
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(t, http.MethodPost, "/auth/login", "", LoginRequest{Username: "alice", Password: "correct-horse"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_UnknownPathFallsBackToAuthenticated(t *testing.T) {
	f := newAPIFixture(t)
	user := f.register(t, "alice")

	rec := f.do(t, http.MethodGet, "/library/shelf", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodGet, "/library/shelf", user.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// public prefix without a handler
	rec = f.do(t, http.MethodGet, "/books/1", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_WithoutService(t *testing.T) {
	router := NewRouter(RouterOptions{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
