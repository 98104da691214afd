package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/pipecraft/apiserver/config"
	"github.com/pipecraft/apiserver/internal/auth"
	"github.com/pipecraft/apiserver/internal/logging"
	"github.com/pipecraft/apiserver/internal/patch"
	"github.com/pipecraft/apiserver/internal/services"
	"github.com/pipecraft/apiserver/internal/storage"
	"github.com/pipecraft/apiserver/internal/store"
	"github.com/pipecraft/apiserver/types"
)

type userTable struct {
	mu   sync.Mutex
	rows map[string]types.User
}

func (t *userTable) GetByID(_ context.Context, id string) (types.User, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	u, ok := t.rows[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return u, nil
}

func (t *userTable) GetByEmail(_ context.Context, email string) (types.User, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, u := range t.rows {
		if u.Email == email {
			return u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (t *userTable) List(context.Context) ([]types.User, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]types.User, 0, len(t.rows))
	for _, u := range t.rows {
		out = append(out, u)
	}
	return out, nil
}

func (t *userTable) Create(_ context.Context, user types.User) (types.User, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, u := range t.rows {
		if u.Email == user.Email {
			return types.User{}, store.ErrConflict
		}
	}
	t.rows[user.ID] = user
	return user, nil
}

func (t *userTable) Patch(_ context.Context, id string, cs patch.Changeset) (types.User, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	u, ok := t.rows[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	for _, a := range cs.Assignments() {
		switch a.Column {
		case "refresh_token":
			if a.Value == nil {
				u.RefreshToken = nil
			} else {
				v := a.Value.(string)
				u.RefreshToken = &v
			}
		case "password_hash":
			u.PasswordHash = a.Value.(string)
		case "name":
			u.Name = a.Value.(string)
		case "avatar":
			v := a.Value.(string)
			u.Avatar = &v
		}
	}
	t.rows[id] = u
	return u, nil
}

func (t *userTable) Delete(_ context.Context, id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.rows, id)
	return nil
}

type careerTable struct {
	rows map[string]types.Career
}

func (t *careerTable) List(context.Context, types.CareerFilter) ([]types.Career, error) {
	out := make([]types.Career, 0, len(t.rows))
	for _, c := range t.rows {
		out = append(out, c)
	}
	return out, nil
}

func (t *careerTable) Get(_ context.Context, id string) (types.Career, error) {
	c, ok := t.rows[id]
	if !ok {
		return types.Career{}, store.ErrNotFound
	}
	return c, nil
}

func (t *careerTable) Create(_ context.Context, c types.Career) (types.Career, error) {
	t.rows[c.ID] = c
	return c, nil
}

func (t *careerTable) Patch(_ context.Context, id string, cs patch.Changeset) (types.Career, error) {
	c, ok := t.rows[id]
	if !ok {
		return types.Career{}, store.ErrNotFound
	}
	for _, a := range cs.Assignments() {
		if a.Column == "is_active" {
			c.IsActive = a.Value.(bool)
		}
	}
	t.rows[id] = c
	return c, nil
}

func (t *careerTable) Delete(_ context.Context, id string) error {
	if _, ok := t.rows[id]; !ok {
		return store.ErrNotFound
	}
	delete(t.rows, id)
	return nil
}

type memObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *memObjects) EnsureBucket(context.Context) error { return nil }
func (m *memObjects) Bucket() string                     { return "test" }

func (m *memObjects) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memObjects) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

type testAPI struct {
	router  http.Handler
	users   *userTable
	careers *careerTable
	objects *memObjects
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	logger := logging.Discard()
	users := &userTable{rows: map[string]types.User{}}
	careers := &careerTable{rows: map[string]types.Career{
		"CAR0000000000000001": {ID: "CAR0000000000000001", JobTitle: "Backend Engineer", IsActive: true},
	}}
	objects := &memObjects{objects: map[string][]byte{}}
	blobs := storage.NewLifecycle(storage.NewStorage(objects, "https://cdn.example.com"), logger, nil)

	tokens := auth.NewTokenCodec("access-secret", time.Minute, "refresh-secret", time.Hour)
	sessions := services.NewSessionService(users, auth.NewBcryptHasher(bcrypt.MinCost), tokens, blobs, logger)
	cookies := config.CookieConfig{SameSite: http.SameSiteLaxMode, AccessMaxAge: 24 * time.Hour, RefreshMaxAge: 240 * time.Hour}
	authMiddleware := RequireAuth(sessions, logger)

	r := chi.NewRouter()
	r.Get("/healthz", Healthz)
	r.Route("/api", func(r chi.Router) {
		r.Get("/pingme", Ping)
		r.Route("/users", func(r chi.Router) {
			AuthRouter(r, NewAuthHandler(sessions, services.NewUserService(users, blobs, logger), cookies, logger), authMiddleware)
		})
		r.Route("/careers", func(r chi.Router) {
			CareerRouter(r, NewCareerHandler(services.NewCareerService(careers, logger), logger), authMiddleware)
		})
	})
	return &testAPI{router: r, users: users, careers: careers, objects: objects}
}

func (a *testAPI) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	var resp Response
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func (a *testAPI) registerAndLogin(t *testing.T, email string) (string, []*http.Cookie) {
	t.Helper()
	rec, _ := a.do(t, http.MethodPost, "/api/users/register", map[string]any{
		"email": email, "password": "secret1", "name": "Ann Example",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec, resp := a.do(t, http.MethodPost, "/api/users/login", map[string]any{"email": email, "password": "secret1"})
	require.Equal(t, http.StatusOK, rec.Code)
	data := resp.Data.(map[string]any)
	user := data["user"].(map[string]any)
	return user["userId"].(string), rec.Result().Cookies()
}

func (a *testAPI) promote(id string) {
	a.users.mu.Lock()
	defer a.users.mu.Unlock()
	u := a.users.rows[id]
	u.Role = auth.RoleAdmin
	a.users.rows[id] = u
}

func cookieNamed(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t)

	rec, _ := api.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, resp := api.do(t, http.MethodGet, "/api/pingme", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
}

func TestRegister_NeverExposesSecrets(t *testing.T) {
	api := newTestAPI(t)

	rec, resp := api.do(t, http.MethodPost, "/api/users/register", map[string]any{
		"email": "a@x.com", "password": "secret1", "name": "Ann Example",
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, resp.Success)
	assert.NotContains(t, rec.Body.String(), "secret1")
	assert.NotContains(t, rec.Body.String(), "password")
	assert.NotContains(t, rec.Body.String(), "refresh")

	rec, resp = api.do(t, http.MethodPost, "/api/users/register", map[string]any{
		"email": "a@x.com", "password": "secret1", "name": "Ann Example",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.False(t, resp.Success)
	assert.Nil(t, resp.Data)
}

func TestRegister_Multipart(t *testing.T) {
	api := newTestAPI(t)
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	require.NoError(t, mw.WriteField("email", "m@x.com"))
	require.NoError(t, mw.WriteField("password", "secret1"))
	require.NoError(t, mw.WriteField("name", "Multi Part"))
	require.NoError(t, mw.WriteField("age", "31"))
	part, err := mw.CreateFormFile("avatar", "me.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("png-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/users/register", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	user := resp.Data.(map[string]any)
	assert.EqualValues(t, 31, user["age"])
	assert.Contains(t, user["avatar"], "https://cdn.example.com/avatars/")
	assert.Len(t, api.objects.objects, 1)
}

func TestValidationErrorsAreListed(t *testing.T) {
	api := newTestAPI(t)

	rec, resp := api.do(t, http.MethodPost, "/api/users/register", map[string]any{"email": "nope"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Errors)
}

func TestLoginSetsSessionCookies(t *testing.T) {
	api := newTestAPI(t)
	_, cookies := api.registerAndLogin(t, "a@x.com")

	access := cookieNamed(cookies, accessCookie)
	refresh := cookieNamed(cookies, refreshCookie)
	require.NotNil(t, access)
	require.NotNil(t, refresh)
	assert.True(t, access.HttpOnly)
	assert.Equal(t, "/", access.Path)
	assert.Equal(t, 86400, access.MaxAge)
	assert.Equal(t, 864000, refresh.MaxAge)
}

func TestLogin_BadCredentials(t *testing.T) {
	api := newTestAPI(t)
	api.registerAndLogin(t, "a@x.com")

	rec, resp := api.do(t, http.MethodPost, "/api/users/login", map[string]any{"email": "a@x.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	wrongPassword := resp.Message

	rec, resp = api.do(t, http.MethodPost, "/api/users/login", map[string]any{"email": "z@x.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, wrongPassword, resp.Message)
}

func TestMe_CookieAndBearer(t *testing.T) {
	api := newTestAPI(t)
	id, cookies := api.registerAndLogin(t, "a@x.com")

	rec, resp := api.do(t, http.MethodGet, "/api/users/me", nil, cookieNamed(cookies, accessCookie))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id, resp.Data.(map[string]any)["userId"])

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+cookieNamed(cookies, accessCookie).Value)
	bearer := httptest.NewRecorder()
	api.router.ServeHTTP(bearer, req)
	assert.Equal(t, http.StatusOK, bearer.Code)

	rec, resp = api.do(t, http.MethodGet, "/api/users/me", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, resp.Success)

	rec, _ = api.do(t, http.MethodGet, "/api/users/me", nil, &http.Cookie{Name: accessCookie, Value: "forged"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutRevokesRefresh(t *testing.T) {
	api := newTestAPI(t)
	_, cookies := api.registerAndLogin(t, "a@x.com")
	refresh := cookieNamed(cookies, refreshCookie)

	rec, resp := api.do(t, http.MethodGet, "/api/users/refresh-token", nil, refresh)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, refresh.Value, resp.Data.(map[string]any)["refreshToken"])

	rec, _ = api.do(t, http.MethodGet, "/api/users/logout", nil, cookieNamed(cookies, accessCookie))
	require.Equal(t, http.StatusOK, rec.Code)
	cleared := cookieNamed(rec.Result().Cookies(), refreshCookie)
	require.NotNil(t, cleared)
	assert.Less(t, cleared.MaxAge, 0)

	rec, _ = api.do(t, http.MethodGet, "/api/users/refresh-token", nil, refresh)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = api.do(t, http.MethodPost, "/api/users/refresh-token", map[string]string{"refreshToken": refresh.Value})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminRoutes(t *testing.T) {
	api := newTestAPI(t)
	id, cookies := api.registerAndLogin(t, "a@x.com")
	access := cookieNamed(cookies, accessCookie)

	rec, resp := api.do(t, http.MethodPut, "/api/careers/CAR0000000000000001", map[string]any{"isActive": false}, access)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, resp.Success)

	rec, _ = api.do(t, http.MethodGet, "/api/users/users", nil, access)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// The role is read from the live record, not from the token.
	api.promote(id)

	rec, resp = api.do(t, http.MethodPut, "/api/careers/CAR0000000000000001", map[string]any{"isActive": false}, access)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, resp.Data.(map[string]any)["isActive"])

	rec, resp = api.do(t, http.MethodPut, "/api/careers/CAR0000000000000001", map[string]any{"unknownField": 1}, access)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "no fields to update", resp.Message)

	rec, _ = api.do(t, http.MethodGet, "/api/users/users", nil, access)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = api.do(t, http.MethodDelete, "/api/users/users/"+id, nil, access)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotNil(t, cookieNamed(rec.Result().Cookies(), accessCookie))
}

func TestPublicCareerRoutes(t *testing.T) {
	api := newTestAPI(t)

	rec, resp := api.do(t, http.MethodGet, "/api/careers/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, resp.Data, 1)

	rec, resp = api.do(t, http.MethodGet, "/api/careers/CAR0000000000000009", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "job posting not found", resp.Message)

	rec, _ = api.do(t, http.MethodGet, "/api/careers/?isActive=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCORS(t *testing.T) {
	h := CORS("http://localhost:3000")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	preflight := func(origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/api/users/login", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		req.Header.Set("Access-Control-Request-Headers", "Content-Type")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	rec := preflight("http://localhost:3000")
	assert.NotEqual(t, http.StatusTeapot, rec.Code)
	assert.Less(t, rec.Code, http.StatusMultipleChoices)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, http.MethodPost, rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "600", rec.Header().Get("Access-Control-Max-Age"))

	rec = preflight("http://evil.example")
	assert.NotEqual(t, http.StatusTeapot, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestDecodeJSON_BodyLimit(t *testing.T) {
	api := newTestAPI(t)
	big := bytes.Repeat([]byte("a"), maxJSONBytes+1)

	rec, resp := api.do(t, http.MethodPost, "/api/users/login", map[string]any{"email": string(big), "password": "x"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "request body too large", resp.Message)
}
