// Package session is the client-side session store: it authenticates
// against the server, holds the current user and credential, persists them
// to durable storage, and attaches the credential to subsequent requests.
//
// Operations do not queue or serialize each other. Each call runs its
// network request independently and applies its result to the session state
// atomically when it resolves; when two calls overlap, the last one to
// resolve wins.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"

	"github.com/mwalcott/account-portal/internal/models"
)

// ErrNotAuthenticated is returned when a privileged client-side action is
// attempted with no live session. No network call is made.
var ErrNotAuthenticated = errors.New("you must be logged in to update your profile")

// State names the session lifecycle position.
type State string

const (
	StateAnonymous      State = "anonymous"
	StateAuthenticating State = "authenticating"
	StateAuthenticated  State = "authenticated"
)

// User is the client-held identity of the authenticated user.
type User struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// persisted is the durable storage value. It mirrors the login/register
// response body so rehydration restores exactly what the server issued.
type persisted struct {
	User
	Token string `json:"token"`
}

// Store is the client session state machine.
type Store struct {
	baseURL    string
	httpClient *http.Client
	storage    Storage

	mu      sync.Mutex
	state   State
	user    User
	token   string
	loading bool
	lastErr string
}

// Option configures a Store.
type Option func(*Store)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Store) { s.httpClient = c }
}

// New builds a Store pointed at baseURL and rehydrates any previously
// persisted session from storage. Rehydration is optimistic: the restored
// token is not re-validated against the server, so the session may appear
// authenticated locally until the first protected call is rejected.
func New(baseURL string, storage Storage, opts ...Option) *Store {
	s := &Store{
		baseURL:    baseURL,
		httpClient: &http.Client{},
		storage:    storage,
		state:      StateAnonymous,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.rehydrate()
	return s
}

func (s *Store) rehydrate() {
	data, ok, err := s.storage.Load()
	if err != nil {
		log.Printf("session: load stored session: %v", err)
		return
	}
	if !ok {
		return
	}
	var p persisted
	if err := json.Unmarshal(data, &p); err != nil || p.Token == "" {
		return
	}
	s.user = p.User
	s.token = p.Token
	s.state = StateAuthenticated
}

// State returns the current lifecycle state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Current returns the held user identity, if authenticated.
func (s *Store) Current() (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user, s.state == StateAuthenticated
}

// Token returns the held credential, empty when anonymous.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Loading reports whether a call is outstanding.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Err returns the message of the last failed attempt. It is cleared at the
// start of each new attempt.
func (s *Store) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Login authenticates with email and password. On success the session is
// persisted and the credential attached to subsequent requests. On failure
// the session returns to anonymous with the server-reported message, and the
// error is returned so callers can react.
func (s *Store) Login(ctx context.Context, email, password string) error {
	s.beginAttempt(StateAuthenticating)

	var resp models.AuthResponse
	err := s.doJSON(ctx, http.MethodPost, "/api/auth/login", "", models.LoginRequest{
		Email:    email,
		Password: password,
	}, &resp)

	return s.finishAuthAttempt(resp, err, "An error occurred during login")
}

// Register creates a new account. Success and failure semantics match Login.
func (s *Store) Register(ctx context.Context, name, email, password string) error {
	s.beginAttempt(StateAuthenticating)

	var resp models.AuthResponse
	err := s.doJSON(ctx, http.MethodPost, "/api/auth/register", "", models.RegisterRequest{
		Name:     name,
		Email:    email,
		Password: password,
	}, &resp)

	return s.finishAuthAttempt(resp, err, "An error occurred during registration")
}

// Logout clears durable storage and the session synchronously. It cannot
// fail; a storage error is logged and the in-memory session is cleared
// regardless.
func (s *Store) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storage.Clear(); err != nil {
		log.Printf("session: clear storage: %v", err)
	}
	s.user = User{}
	s.token = ""
	s.state = StateAnonymous
}

// UpdateProfile sends a partial profile update with the current credential.
// Without a live session it fails with ErrNotAuthenticated before any
// network call. On success the returned fields are merged into the held
// user and re-persisted. A 401 is the authoritative signal that the
// credential is no longer valid and clears the session; any other failure
// only sets the error message and leaves the session authenticated.
func (s *Store) UpdateProfile(ctx context.Context, upd models.UpdateProfileRequest) error {
	s.mu.Lock()
	if s.state != StateAuthenticated || s.token == "" {
		s.mu.Unlock()
		return ErrNotAuthenticated
	}
	tok := s.token
	s.loading = true
	s.lastErr = ""
	s.mu.Unlock()

	var resp models.ProfileResponse
	err := s.doJSON(ctx, http.MethodPut, "/api/users/profile", "Bearer "+tok, upd, &resp)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false

	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			s.lastErr = apiErr.Message
			if apiErr.Status == http.StatusUnauthorized {
				// Server rejected the credential; local state follows.
				if clearErr := s.storage.Clear(); clearErr != nil {
					log.Printf("session: clear storage: %v", clearErr)
				}
				s.user = User{}
				s.token = ""
				s.state = StateAnonymous
			}
		} else {
			s.lastErr = "An error occurred while updating profile"
		}
		return err
	}

	if resp.Name != "" {
		s.user.Name = resp.Name
	}
	if resp.Email != "" {
		s.user.Email = resp.Email
	}
	s.persistLocked()
	return nil
}

// ServerStatus reads the health endpoint, for display only. It is not part
// of the authentication contract and needs no credential.
func (s *Store) ServerStatus(ctx context.Context) string {
	var resp struct {
		Status string `json:"status"`
	}
	if err := s.doJSON(ctx, http.MethodGet, "/api/health", "", nil, &resp); err != nil {
		return "offline"
	}
	return resp.Status
}

func (s *Store) beginAttempt(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = true
	s.lastErr = ""
	s.state = state
}

func (s *Store) finishAuthAttempt(resp models.AuthResponse, err error, fallbackMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false

	if err != nil {
		s.state = StateAnonymous
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			s.lastErr = apiErr.Message
		} else {
			s.lastErr = fallbackMsg
		}
		return err
	}

	s.user = User{ID: resp.ID, Name: resp.Name, Email: resp.Email}
	s.token = resp.Token
	s.state = StateAuthenticated
	s.persistLocked()
	return nil
}

// persistLocked writes the current {user, token} to durable storage.
// Callers must hold s.mu.
func (s *Store) persistLocked() {
	data, err := json.Marshal(persisted{User: s.user, Token: s.token})
	if err != nil {
		log.Printf("session: marshal session: %v", err)
		return
	}
	if err := s.storage.Save(data); err != nil {
		log.Printf("session: save session: %v", err)
	}
}
