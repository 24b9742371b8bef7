package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/shareyt/backend/internal/auth"
	"github.com/shareyt/backend/internal/models"
	"github.com/shareyt/backend/internal/relay"
	"github.com/shareyt/backend/internal/repositories"
)

type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]models.User
}

func newFakeUserStore(users ...models.User) *fakeUserStore {
	s := &fakeUserStore{users: make(map[string]models.User)}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *fakeUserStore) Create(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == user.Email {
			return repositories.ErrConflict
		}
	}
	s.users[user.ID] = user
	return nil
}

func (s *fakeUserStore) FindByEmail(_ context.Context, email string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, repositories.ErrNotFound
}

func (s *fakeUserStore) FindByID(_ context.Context, id string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	return u, nil
}

type fakeRelay struct {
	mu       sync.Mutex
	signedIn map[string]bool
}

func newFakeRelay() *fakeRelay {
	return &fakeRelay{signedIn: make(map[string]bool)}
}

func (r *fakeRelay) SignIn(_ context.Context, user models.Profile) {
	r.mu.Lock()
	r.signedIn[user.UID] = true
	r.mu.Unlock()
}

func (r *fakeRelay) SignOut(uid string) {
	r.mu.Lock()
	delete(r.signedIn, uid)
	r.mu.Unlock()
}

func (r *fakeRelay) Snapshot(string) (relay.Snapshot, bool) {
	return relay.Snapshot{}, false
}

func (r *fakeRelay) has(uid string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.signedIn[uid]
}

func newSessionManager(t *testing.T) *auth.Manager {
	t.Helper()
	return auth.NewManager(time.Minute, time.Hour, auth.NewInMemorySessionStore())
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return string(hashed)
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestLoginSuccessOpensRelaySession(t *testing.T) {
	users := newFakeUserStore(models.User{
		ID:          "alice",
		Email:       "alice@example.com",
		Password:    hashPassword(t, "password123"),
		DisplayName: "Alice",
	})
	rel := newFakeRelay()
	handler := AuthHandler{Users: users, Sessions: newSessionManager(t), Relay: rel}

	rec := postJSON(t, handler.Login, "/api/v1/auth/login", map[string]string{
		"email":    "alice@example.com",
		"password": "password123",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		User   *models.Profile      `json:"user"`
		Tokens models.SessionTokens `json:"tokens"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Tokens.AccessToken == "" || resp.Tokens.RefreshToken == "" {
		t.Fatalf("expected tokens got %+v", resp.Tokens)
	}
	if resp.User == nil || resp.User.DisplayName != "Alice" {
		t.Fatalf("expected user profile got %+v", resp.User)
	}
	if !rel.has("alice") {
		t.Fatal("expected relay session to open on login")
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	users := newFakeUserStore(models.User{
		ID:       "alice",
		Email:    "alice@example.com",
		Password: hashPassword(t, "password123"),
	})
	handler := AuthHandler{Users: users, Sessions: newSessionManager(t)}

	rec := postJSON(t, handler.Login, "/api/v1/auth/login", map[string]string{
		"email":    "alice@example.com",
		"password": "wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}

	rec = postJSON(t, handler.Login, "/api/v1/auth/login", map[string]string{
		"email":    "nobody@example.com",
		"password": "password123",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown user got %d", rec.Code)
	}
}

func TestSignUpValidation(t *testing.T) {
	handler := AuthHandler{Users: newFakeUserStore(), Sessions: newSessionManager(t)}

	cases := []struct {
		name    string
		payload map[string]string
	}{
		{"missing email", map[string]string{"password": "password123"}},
		{"invalid email", map[string]string{"email": "nope", "password": "password123"}},
		{"short password", map[string]string{"email": "a@example.com", "password": "short"}},
	}
	for _, tc := range cases {
		rec := postJSON(t, handler.SignUp, "/api/v1/auth/signup", tc.payload)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400 got %d", tc.name, rec.Code)
		}
	}
}

func TestSignUpConflict(t *testing.T) {
	users := newFakeUserStore(models.User{ID: "alice", Email: "alice@example.com"})
	handler := AuthHandler{Users: users, Sessions: newSessionManager(t)}

	rec := postJSON(t, handler.SignUp, "/api/v1/auth/signup", map[string]string{
		"email":    "alice@example.com",
		"password": "password123",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", rec.Code)
	}
}

func TestSignUpStoresProfileFields(t *testing.T) {
	users := newFakeUserStore()
	rel := newFakeRelay()
	handler := AuthHandler{Users: users, Sessions: newSessionManager(t), Relay: rel}

	rec := postJSON(t, handler.SignUp, "/api/v1/auth/signup", map[string]string{
		"email":       "Bob@Example.com",
		"password":    "password123",
		"displayName": "Bob",
		"photoURL":    "https://example.com/bob.png",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}

	user, err := users.FindByEmail(context.Background(), "bob@example.com")
	if err != nil {
		t.Fatalf("expected user to be created: %v", err)
	}
	if user.DisplayName != "Bob" || user.PhotoURL != "https://example.com/bob.png" {
		t.Fatalf("expected profile fields stored got %+v", user)
	}
	if !rel.has(user.ID) {
		t.Fatal("expected relay session to open on signup")
	}
}

func TestRefreshRotatesTokens(t *testing.T) {
	sessions := newSessionManager(t)
	tokens, err := sessions.Issue(context.Background(), "alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	handler := AuthHandler{Users: newFakeUserStore(), Sessions: sessions}

	rec := postJSON(t, handler.Refresh, "/api/v1/auth/refresh", map[string]string{
		"refreshToken": tokens.RefreshToken,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}

	rec = postJSON(t, handler.Refresh, "/api/v1/auth/refresh", map[string]string{
		"refreshToken": tokens.RefreshToken,
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected reused refresh token to be rejected got %d", rec.Code)
	}
}

func TestLogoutClosesRelaySession(t *testing.T) {
	sessions := newSessionManager(t)
	tokens, err := sessions.Issue(context.Background(), "alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	rel := newFakeRelay()
	rel.SignIn(context.Background(), models.Profile{UID: "alice"})
	handler := AuthHandler{Users: newFakeUserStore(), Sessions: sessions, Relay: rel}

	body, _ := json.Marshal(map[string]string{"refreshToken": tokens.RefreshToken})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
	rec := httptest.NewRecorder()

	requireAuth(sessions, handler.Logout)(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if rel.has("alice") {
		t.Fatal("expected relay session to close on logout")
	}
	if _, err := sessions.Validate(context.Background(), tokens.AccessToken); !errors.Is(err, auth.ErrSessionNotFound) {
		t.Fatalf("expected access token revoked got %v", err)
	}
	if _, err := sessions.Refresh(context.Background(), tokens.RefreshToken); !errors.Is(err, auth.ErrSessionNotFound) {
		t.Fatalf("expected refresh token revoked got %v", err)
	}
}

func TestRequireAuthRejectsBadTokens(t *testing.T) {
	sessions := newSessionManager(t)

	called := false
	protected := requireAuth(sessions, func(http.ResponseWriter, *http.Request, string) {
		called = true
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/search", nil)
	rec := httptest.NewRecorder()
	protected(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/users/search", nil)
	req.Header.Set("Authorization", "Bearer bogus")
	rec = httptest.NewRecorder()
	protected(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with bogus token got %d", rec.Code)
	}

	if called {
		t.Fatal("expected handler to stay unreached")
	}

	tokens, err := sessions.Issue(context.Background(), "alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	req = httptest.NewRequest(http.MethodGet, "/api/v1/users/search", nil)
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
	rec = httptest.NewRecorder()
	protected(rec, req)
	if !called {
		t.Fatal("expected handler to run with a valid token")
	}
}
