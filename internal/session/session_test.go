package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mwalcott/account-portal/internal/models"
)

// memStorage is an in-memory Storage for tests.
type memStorage struct {
	mu   sync.Mutex
	data []byte
	ok   bool
}

func (m *memStorage) Save(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append([]byte(nil), data...)
	m.ok = true
	return nil
}

func (m *memStorage) Load() ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data, m.ok, nil
}

func (m *memStorage) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = nil
	m.ok = false
	return nil
}

func (m *memStorage) stored(t *testing.T) (persisted, bool) {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ok {
		return persisted{}, false
	}
	var p persisted
	require.NoError(t, json.Unmarshal(m.data, &p))
	return p, true
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"message": msg})
}

// newFakeServer serves the auth endpoints against one fixed account:
// a@x.com / secret1 with token "tok-1". requests counts every inbound call.
func newFakeServer(t *testing.T, requests *atomic.Int64) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		var req models.LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Email != "a@x.com" || req.Password != "secret1" {
			writeMessage(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		json.NewEncoder(w).Encode(models.AuthResponse{
			ID: "id-1", Name: "A", Email: "a@x.com", Token: "tok-1",
		})
	})

	mux.HandleFunc("POST /api/auth/register", func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		var req models.RegisterRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Email == "a@x.com" {
			writeMessage(w, http.StatusBadRequest, "User already exists")
			return
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(models.AuthResponse{
			ID: "id-2", Name: req.Name, Email: req.Email, Token: "tok-2",
		})
	})

	mux.HandleFunc("PUT /api/users/profile", func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			writeMessage(w, http.StatusUnauthorized, "Not authorized, token failed")
			return
		}
		var req models.UpdateProfileRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Email != nil && *req.Email == "taken@x.com" {
			writeMessage(w, http.StatusBadRequest, "Email already in use")
			return
		}
		resp := models.ProfileResponse{ID: "id-1", Name: "A", Email: "a@x.com"}
		if req.Name != nil {
			resp.Name = *req.Name
		}
		if req.Email != nil {
			resp.Email = *req.Email
		}
		json.NewEncoder(w).Encode(resp)
	})

	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Write([]byte(`{"status":"ok"}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestLogin_Success(t *testing.T) {
	var requests atomic.Int64
	srv := newFakeServer(t, &requests)
	storage := &memStorage{}
	s := New(srv.URL, storage)

	require.Equal(t, StateAnonymous, s.State())

	require.NoError(t, s.Login(context.Background(), "a@x.com", "secret1"))

	require.Equal(t, StateAuthenticated, s.State())
	require.False(t, s.Loading())
	require.Empty(t, s.Err())
	require.Equal(t, "tok-1", s.Token())

	user, ok := s.Current()
	require.True(t, ok)
	require.Equal(t, User{ID: "id-1", Name: "A", Email: "a@x.com"}, user)

	p, ok := storage.stored(t)
	require.True(t, ok)
	require.Equal(t, "tok-1", p.Token)
	require.Equal(t, "a@x.com", p.Email)
}

func TestLogin_WrongThenRightPassword(t *testing.T) {
	var requests atomic.Int64
	srv := newFakeServer(t, &requests)
	storage := &memStorage{}
	s := New(srv.URL, storage)

	err := s.Login(context.Background(), "a@x.com", "wrong")
	require.Error(t, err)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusUnauthorized, apiErr.Status)

	require.Equal(t, StateAnonymous, s.State())
	require.Equal(t, "Invalid email or password", s.Err())
	_, ok := storage.stored(t)
	require.False(t, ok)

	// A new attempt clears the error before running.
	require.NoError(t, s.Login(context.Background(), "a@x.com", "secret1"))
	require.Equal(t, StateAuthenticated, s.State())
	require.Empty(t, s.Err())
}

func TestRegister_Success(t *testing.T) {
	var requests atomic.Int64
	srv := newFakeServer(t, &requests)
	s := New(srv.URL, &memStorage{})

	require.NoError(t, s.Register(context.Background(), "B", "b@x.com", "secret2"))
	require.Equal(t, StateAuthenticated, s.State())
	require.Equal(t, "tok-2", s.Token())
}

func TestRegister_DuplicateEmail(t *testing.T) {
	var requests atomic.Int64
	srv := newFakeServer(t, &requests)
	s := New(srv.URL, &memStorage{})

	err := s.Register(context.Background(), "A", "a@x.com", "secret1")
	require.Error(t, err)
	require.Equal(t, StateAnonymous, s.State())
	require.Equal(t, "User already exists", s.Err())
}

func TestLogout_ThenUpdateProfileMakesNoNetworkCall(t *testing.T) {
	var requests atomic.Int64
	srv := newFakeServer(t, &requests)
	storage := &memStorage{}
	s := New(srv.URL, storage)

	require.NoError(t, s.Login(context.Background(), "a@x.com", "secret1"))
	s.Logout()

	require.Equal(t, StateAnonymous, s.State())
	require.Empty(t, s.Token())
	_, ok := storage.stored(t)
	require.False(t, ok)

	before := requests.Load()
	name := "B"
	err := s.UpdateProfile(context.Background(), models.UpdateProfileRequest{Name: &name})
	require.True(t, errors.Is(err, ErrNotAuthenticated))
	require.Equal(t, before, requests.Load())
}

func TestUpdateProfile_MergesReturnedFields(t *testing.T) {
	var requests atomic.Int64
	srv := newFakeServer(t, &requests)
	storage := &memStorage{}
	s := New(srv.URL, storage)

	require.NoError(t, s.Login(context.Background(), "a@x.com", "secret1"))

	name := "B"
	require.NoError(t, s.UpdateProfile(context.Background(), models.UpdateProfileRequest{Name: &name}))

	user, ok := s.Current()
	require.True(t, ok)
	require.Equal(t, "B", user.Name)
	require.Equal(t, "a@x.com", user.Email) // unchanged
	require.Equal(t, "tok-1", s.Token())    // token survives the edit

	p, ok := storage.stored(t)
	require.True(t, ok)
	require.Equal(t, "B", p.Name)
}

func TestUpdateProfile_RejectedCredentialClearsSession(t *testing.T) {
	var requests atomic.Int64
	srv := newFakeServer(t, &requests)
	storage := &memStorage{}

	// Rehydrate from a stale token the server no longer accepts.
	stale, err := json.Marshal(persisted{
		User:  User{ID: "id-1", Name: "A", Email: "a@x.com"},
		Token: "tok-stale",
	})
	require.NoError(t, err)
	require.NoError(t, storage.Save(stale))

	s := New(srv.URL, storage)
	require.Equal(t, StateAuthenticated, s.State()) // trust-on-read

	name := "B"
	err = s.UpdateProfile(context.Background(), models.UpdateProfileRequest{Name: &name})
	require.Error(t, err)

	// The 401 is authoritative: session and storage are cleared.
	require.Equal(t, StateAnonymous, s.State())
	require.Empty(t, s.Token())
	require.Equal(t, "Not authorized, token failed", s.Err())
	_, ok := storage.stored(t)
	require.False(t, ok)
}

func TestUpdateProfile_ServerErrorKeepsSession(t *testing.T) {
	var requests atomic.Int64
	srv := newFakeServer(t, &requests)
	s := New(srv.URL, &memStorage{})

	require.NoError(t, s.Login(context.Background(), "a@x.com", "secret1"))

	taken := "taken@x.com"
	err := s.UpdateProfile(context.Background(), models.UpdateProfileRequest{Email: &taken})
	require.Error(t, err)

	// A failed edit does not log the user out.
	require.Equal(t, StateAuthenticated, s.State())
	require.Equal(t, "Email already in use", s.Err())
	user, ok := s.Current()
	require.True(t, ok)
	require.Equal(t, "a@x.com", user.Email)
}

func TestRehydrate_RestoresWithoutServerRoundTrip(t *testing.T) {
	var requests atomic.Int64
	srv := newFakeServer(t, &requests)
	storage := &memStorage{}

	blob, err := json.Marshal(persisted{
		User:  User{ID: "id-1", Name: "A", Email: "a@x.com"},
		Token: "tok-1",
	})
	require.NoError(t, err)
	require.NoError(t, storage.Save(blob))

	s := New(srv.URL, storage)
	require.Equal(t, StateAuthenticated, s.State())
	require.Equal(t, int64(0), requests.Load())

	user, ok := s.Current()
	require.True(t, ok)
	require.Equal(t, "A", user.Name)
}

func TestRehydrate_IgnoresCorruptBlob(t *testing.T) {
	storage := &memStorage{}
	require.NoError(t, storage.Save([]byte("{not json")))

	s := New("http://localhost:0", storage)
	require.Equal(t, StateAnonymous, s.State())
}

func TestServerStatus(t *testing.T) {
	var requests atomic.Int64
	srv := newFakeServer(t, &requests)

	s := New(srv.URL, &memStorage{})
	require.Equal(t, "ok", s.ServerStatus(context.Background()))

	down := New("http://127.0.0.1:1", &memStorage{})
	require.Equal(t, "offline", down.ServerStatus(context.Background()))
}
