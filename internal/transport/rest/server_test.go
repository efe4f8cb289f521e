package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/accounts-service/internal/config"
	"github.com/pribylovaa/accounts-service/internal/models"
	"github.com/pribylovaa/accounts-service/internal/service"
	"github.com/pribylovaa/accounts-service/internal/storage"
)

// Транспортные тесты гоняют полный стек service+rest через httptest
// поверх in-memory реализации storage.Storage.

type fakeStorage struct {
	mu       sync.Mutex
	nextID   int64
	accounts map[int64]*models.Account
	revoked  map[string]time.Time
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		accounts: make(map[int64]*models.Account),
		revoked:  make(map[string]time.Time),
	}
}

var _ storage.Storage = (*fakeStorage)(nil)

func (f *fakeStorage) SaveAccount(_ context.Context, account *models.Account) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, a := range f.accounts {
		if a.Email == account.Email {
			return 0, storage.ErrAlreadyExists
		}
	}

	f.nextID++
	cp := *account
	cp.ID = f.nextID
	f.accounts[cp.ID] = &cp
	return cp.ID, nil
}

func (f *fakeStorage) AccountByID(_ context.Context, id int64) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	a, ok := f.accounts[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeStorage) AccountByEmail(_ context.Context, email string) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, a := range f.accounts {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (f *fakeStorage) ListAccounts(_ context.Context, limit int) ([]models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]models.Account, 0, len(f.accounts))
	for _, a := range f.accounts {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStorage) UpdateAccount(_ context.Context, id int64, upd storage.AccountUpdate) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	a, ok := f.accounts[id]
	if !ok {
		return nil, storage.ErrNotFound
	}

	if upd.Email != nil {
		for oid, other := range f.accounts {
			if oid != id && other.Email == *upd.Email {
				return nil, storage.ErrAlreadyExists
			}
		}
		a.Email = *upd.Email
	}
	if upd.FullName != nil {
		a.FullName = *upd.FullName
	}
	if upd.IsActive != nil {
		a.IsActive = *upd.IsActive
	}
	if upd.Role != nil {
		a.Role = *upd.Role
	}
	a.UpdatedAt = time.Now().UTC()

	cp := *a
	return &cp, nil
}

func (f *fakeStorage) UpdatePassword(_ context.Context, id int64, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	a, ok := f.accounts[id]
	if !ok {
		return storage.ErrNotFound
	}
	a.PasswordHash = hash
	return nil
}

func (f *fakeStorage) DeleteAccount(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.accounts[id]; !ok {
		return storage.ErrNotFound
	}
	delete(f.accounts, id)
	return nil
}

func (f *fakeStorage) SetResetToken(_ context.Context, id int64, token string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for oid, other := range f.accounts {
		if oid != id && other.ResetToken == token {
			return storage.ErrAlreadyExists
		}
	}

	a, ok := f.accounts[id]
	if !ok {
		return storage.ErrNotFound
	}
	a.ResetToken = token
	a.ResetTokenExpires = expiresAt
	return nil
}

func (f *fakeStorage) ConsumeResetToken(_ context.Context, token, hash string, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, a := range f.accounts {
		if a.ResetToken != token || token == "" {
			continue
		}
		if !a.ResetTokenExpires.After(now) {
			return 0, storage.ErrExpired
		}
		a.PasswordHash = hash
		a.ResetToken = ""
		a.ResetTokenExpires = time.Time{}
		return a.ID, nil
	}
	return 0, storage.ErrNotFound
}

func (f *fakeStorage) SaveRevokedToken(_ context.Context, token *models.RevokedToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.revoked[token.Token]; !ok {
		f.revoked[token.Token] = token.ExpiresAt
	}
	return nil
}

func (f *fakeStorage) IsTokenRevoked(_ context.Context, token string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, ok := f.revoked[token]
	return ok, nil
}

func (f *fakeStorage) DeleteExpiredTokens(_ context.Context, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for tok, exp := range f.revoked {
		if !exp.After(now) {
			delete(f.revoked, tok)
		}
	}
	return nil
}

func (f *fakeStorage) Close() {}

// resetToken подсматривает выданный reset-токен аккаунта (только тесты).
func (f *fakeStorage) resetToken(email string) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, a := range f.accounts {
		if a.Email == email {
			return a.ResetToken
		}
	}
	return ""
}

func testServerConfig() *config.Config {
	return &config.Config{
		Env: "local",
		Auth: config.AuthConfig{
			JWTSecret:      "transport-secret",
			AccessTokenTTL: time.Minute,
			ResetTokenTTL:  24 * time.Hour,
			Issuer:         "accounts-service",
			Audience:       []string{"accounts-clients"},
			ListLimit:      100,
			ResetURLBase:   "https://example.com/reset",
		},
		Timeouts: config.TimeoutConfig{Service: 5 * time.Second},
	}
}

func newTestServer(t *testing.T) (*Server, *fakeStorage) {
	t.Helper()

	st := newFakeStorage()
	svc := service.New(st, testServerConfig().Auth)
	srv := New(svc, testServerConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	return srv, st
}

// doJSON выполняет запрос против echo-инстанса и возвращает ответ.
func doJSON(t *testing.T, srv *Server, method, path, bearer string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &decoded)
	}
	return rec, decoded
}

func registerAndLogin(t *testing.T, srv *Server, email, password string) string {
	t.Helper()

	rec, _ := doJSON(t, srv, http.MethodPost, "/api/v1/users", "", map[string]string{
		"email": email, "full_name": "Test User", "password": password,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, body := doJSON(t, srv, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": email, "password": password,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	token, _ := body["access_token"].(string)
	require.NotEmpty(t, token)
	return token
}

// promoteToAdmin — поднимает роль напрямую в хранилище (регистрация всегда CLIENT).
func promoteToAdmin(t *testing.T, st *fakeStorage, email string) {
	t.Helper()
	st.mu.Lock()
	defer st.mu.Unlock()
	for _, a := range st.accounts {
		if a.Email == email {
			a.Role = models.RoleAdmin
			return
		}
	}
	t.Fatalf("account %s not found", email)
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)

	rec, _ := doJSON(t, srv, http.MethodGet, "/livez", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = doJSON(t, srv, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRegister_Validation(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)

	rec, body := doJSON(t, srv, http.MethodPost, "/api/v1/users", "", map[string]string{
		"email": "not-an-email", "password": "Abcdef1!",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, body["error"], "email")

	rec, _ = doJSON(t, srv, http.MethodPost, "/api/v1/users", "", map[string]string{
		"email": "user@example.com", "password": "weak",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegister_PublicRoleIsAlwaysClient(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)

	// Попытка навязать роль через тело запроса игнорируется.
	rec, body := doJSON(t, srv, http.MethodPost, "/api/v1/users", "", map[string]string{
		"email": "user@example.com", "full_name": "U", "password": "Abcdef1!", "role": "ADMIN",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, string(models.RoleClient), body["role"])
	// Хэш пароля наружу не отдаётся.
	_, leaked := body["password_hash"]
	require.False(t, leaked)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)

	payload := map[string]string{"email": "user@example.com", "password": "Abcdef1!"}
	rec, _ := doJSON(t, srv, http.MethodPost, "/api/v1/users", "", payload)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, _ = doJSON(t, srv, http.MethodPost, "/api/v1/users", "", payload)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)

	// Неизвестный email и неверный пароль дают одинаковый 401.
	rec, _ := doJSON(t, srv, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "ghost@example.com", "password": "Abcdef1!",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	registerAndLogin(t, srv, "user@example.com", "Abcdef1!")
	rec, _ = doJSON(t, srv, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "user@example.com", "password": "Wrong-pass9",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthFlow_RegisterLoginMeLogout(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)

	token := registerAndLogin(t, srv, "user@example.com", "Abcdef1!")

	rec, body := doJSON(t, srv, http.MethodGet, "/api/v1/users/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "user@example.com", body["email"])

	rec, _ = doJSON(t, srv, http.MethodPost, "/api/v1/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Отозванный токен больше не аутентифицирует.
	rec, _ = doJSON(t, srv, http.MethodGet, "/api/v1/users/me", token, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// И не подлежит ротации.
	rec, _ = doJSON(t, srv, http.MethodGet, "/api/v1/auth/refresh", token, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefresh_RotatesToken(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)

	old := registerAndLogin(t, srv, "user@example.com", "Abcdef1!")

	rec, body := doJSON(t, srv, http.MethodGet, "/api/v1/auth/refresh", old, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	fresh, _ := body["access_token"].(string)
	require.NotEmpty(t, fresh)
	require.NotEqual(t, old, fresh)

	// Новый токен работает, старый отозван.
	rec, _ = doJSON(t, srv, http.MethodGet, "/api/v1/users/me", fresh, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = doJSON(t, srv, http.MethodGet, "/api/v1/users/me", old, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// Повторная ротация старого токена отклоняется.
	rec, _ = doJSON(t, srv, http.MethodGet, "/api/v1/auth/refresh", old, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProtectedEndpoints_RequireBearer(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)

	rec, _ := doJSON(t, srv, http.MethodGet, "/api/v1/users/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = doJSON(t, srv, http.MethodPost, "/api/v1/auth/logout", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = doJSON(t, srv, http.MethodGet, "/api/v1/users/me", "garbage-token", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminEndpoints_RoleEnforcement(t *testing.T) {
	t.Parallel()

	srv, st := newTestServer(t)

	clientToken := registerAndLogin(t, srv, "client@example.com", "Abcdef1!")

	// CLIENT не проходит на админские маршруты.
	rec, _ := doJSON(t, srv, http.MethodGet, "/api/v1/users", clientToken, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	promoteToAdmin(t, st, "client@example.com")
	adminToken := clientToken // роль читается из хранилища при каждом запросе

	rec, _ = doJSON(t, srv, http.MethodGet, "/api/v1/users", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminEndpoints_AccountCRUD(t *testing.T) {
	t.Parallel()

	srv, st := newTestServer(t)

	adminToken := registerAndLogin(t, srv, "admin@example.com", "Abcdef1!")
	promoteToAdmin(t, st, "admin@example.com")

	// Создаём второй аккаунт, которым будем управлять.
	rec, created := doJSON(t, srv, http.MethodPost, "/api/v1/users", "", map[string]string{
		"email": "victim@example.com", "password": "Abcdef1!",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	victimID := int64(created["id"].(float64))

	rec, body := doJSON(t, srv, http.MethodGet, fmt.Sprintf("/api/v1/users/%d", victimID), adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "victim@example.com", body["email"])

	rec, body = doJSON(t, srv, http.MethodPut, fmt.Sprintf("/api/v1/users/%d", victimID), adminToken, map[string]any{
		"full_name": "Renamed", "is_active": false,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Renamed", body["full_name"])
	require.Equal(t, false, body["is_active"])

	// Деактивированный аккаунт не может войти.
	rec, _ = doJSON(t, srv, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "victim@example.com", "password": "Abcdef1!",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = doJSON(t, srv, http.MethodDelete, fmt.Sprintf("/api/v1/users/%d", victimID), adminToken, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec, _ = doJSON(t, srv, http.MethodGet, fmt.Sprintf("/api/v1/users/%d", victimID), adminToken, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	// Невалидный :id — 400.
	rec, _ = doJSON(t, srv, http.MethodGet, "/api/v1/users/abc", adminToken, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChangePassword_Flow(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)

	token := registerAndLogin(t, srv, "user@example.com", "Abcdef1!")

	// Неверный текущий пароль — 401.
	rec, _ := doJSON(t, srv, http.MethodPut, "/api/v1/users/me/password", token, map[string]string{
		"current_password": "Wrong-pass9", "new_password": "Newpass1!",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = doJSON(t, srv, http.MethodPut, "/api/v1/users/me/password", token, map[string]string{
		"current_password": "Abcdef1!", "new_password": "Newpass1!",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// Старый пароль больше не действует, новый — работает.
	rec, _ = doJSON(t, srv, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "user@example.com", "password": "Abcdef1!",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = doJSON(t, srv, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "user@example.com", "password": "Newpass1!",
	})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestPasswordReset_Flow(t *testing.T) {
	t.Parallel()

	srv, st := newTestServer(t)

	registerAndLogin(t, srv, "user@example.com", "Abcdef1!")

	// Запрос для несуществующего email неотличим от успешного.
	rec, _ := doJSON(t, srv, http.MethodPost, "/api/v1/auth/password-reset/request", "", map[string]string{
		"email": "ghost@example.com",
	})
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec, _ = doJSON(t, srv, http.MethodPost, "/api/v1/auth/password-reset/request", "", map[string]string{
		"email": "user@example.com",
	})
	require.Equal(t, http.StatusAccepted, rec.Code)

	token := st.resetToken("user@example.com")
	require.NotEmpty(t, token)

	// Слабый новый пароль — 400, токен при этом жив.
	rec, _ = doJSON(t, srv, http.MethodPost, "/api/v1/auth/password-reset/confirm", "", map[string]string{
		"token": token, "new_password": "weak",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = doJSON(t, srv, http.MethodPost, "/api/v1/auth/password-reset/confirm", "", map[string]string{
		"token": token, "new_password": "Newpass1!",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// Токен одноразовый.
	rec, _ = doJSON(t, srv, http.MethodPost, "/api/v1/auth/password-reset/confirm", "", map[string]string{
		"token": token, "new_password": "Another1!",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// Пароль сменился.
	rec, _ = doJSON(t, srv, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "user@example.com", "password": "Newpass1!",
	})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestID_IsEchoedBack(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/livez", nil)
	req.Header.Set("X-Request-Id", "rid-123")
	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, req)

	require.Equal(t, "rid-123", rec.Header().Get("X-Request-Id"))
}
