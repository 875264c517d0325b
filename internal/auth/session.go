package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Naveen474/fake-product-detection/internal/ledger"
	"github.com/Naveen474/fake-product-detection/internal/models"
	"github.com/Naveen474/fake-product-detection/internal/utils"
)

var (
	// ErrNotAuthenticated is returned when a gated action runs without a session.
	ErrNotAuthenticated = errors.New("not logged in")
	// ErrForbidden is returned when the session's role may not run an action.
	ErrForbidden = errors.New("action not permitted for role")
	// ErrSellerSelfRegistration is returned for every seller self-registration.
	ErrSellerSelfRegistration = errors.New("sellers must be added by a manufacturer")
	// ErrRoleMismatch is returned when the ledger confirms a different role than requested.
	ErrRoleMismatch = errors.New("role mismatch")
)

const (
	loginFailedMessage    = "Login failed due to an unknown error."
	registerFailedMessage = "Registration failed due to an unknown error."
)

// Ledger is the part of the ledger client the session manager needs.
type Ledger interface {
	Login(ctx context.Context, username, password string, role models.Role) (*ledger.AuthResult, error)
	RegisterUser(ctx context.Context, request ledger.RegisterUserRequest) (*ledger.AuthResult, error)
}

// Session is the authenticated identity plus the credential echoed on
// authenticated ledger calls.
type Session struct {
	Identity   models.Identity
	Credential ledger.Credential
	CreatedAt  time.Time
}

// Manager owns the single process-wide session slot.
type Manager struct {
	ledger Ledger
	logger *slog.Logger
	now    func() time.Time

	mu      sync.RWMutex
	current *Session
}

func NewManager(l Ledger, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{ledger: l, logger: logger.With("component", "session"), now: time.Now}
}

// Login authenticates and replaces the current session. On any failure the
// current session is left untouched.
func (m *Manager) Login(ctx context.Context, username, password string, role models.Role) (models.Identity, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return models.Identity{}, utils.Validation("", "Username and Password are required.")
	}
	if !role.Valid() {
		return models.Identity{}, utils.Validation("role", "unknown role %q", role)
	}

	result, err := m.ledger.Login(ctx, username, password, role)
	if err != nil {
		return models.Identity{}, authFailure(err, loginFailedMessage)
	}
	if result.Identity.Role != role {
		m.logger.Warn("login role mismatch", "username", username, "requested", role, "confirmed", result.Identity.Role)
		return models.Identity{}, &utils.AuthError{
			Message: fmt.Sprintf("Account %s is registered as %s, not %s.", username, result.Identity.Role, role),
			Err:     ErrRoleMismatch,
		}
	}
	m.establish(result)
	return result.Identity, nil
}

// Logout clears the session. It is idempotent.
func (m *Manager) Logout() {
	m.mu.Lock()
	previous := m.current
	m.current = nil
	m.mu.Unlock()
	if previous != nil {
		m.logger.Info("logged out", "username", previous.Identity.Username)
	}
}

// Current returns the session's identity.
func (m *Manager) Current() (models.Identity, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return models.Identity{}, false
	}
	return m.current.Identity, true
}

// Authenticated reports whether a session exists.
func (m *Manager) Authenticated() bool {
	_, ok := m.Current()
	return ok
}

// Credential returns the current credential, or nil without a session.
func (m *Manager) Credential() ledger.Credential {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return nil
	}
	return append(ledger.Credential(nil), m.current.Credential...)
}

// Can reports whether the current session may perform action. Public
// actions are allowed without a session; every gated action is refused
// when there is none.
func (m *Manager) Can(action Action) bool {
	r, ok := permissions[action]
	if !ok {
		return false
	}
	if r.public {
		return true
	}
	identity, ok := m.Current()
	return ok && Allowed(identity.Role, action)
}

// Require returns a snapshot of the session when action is permitted, and
// an *utils.AuthError wrapping ErrNotAuthenticated or ErrForbidden
// otherwise. Public actions return a nil session when nobody is logged in.
func (m *Manager) Require(action Action) (*Session, error) {
	r, ok := permissions[action]
	if !ok {
		return nil, &utils.AuthError{Message: fmt.Sprintf("Unknown action %q.", action), Err: ErrForbidden}
	}
	m.mu.RLock()
	var snapshot *Session
	if m.current != nil {
		copied := *m.current
		copied.Credential = append(ledger.Credential(nil), m.current.Credential...)
		snapshot = &copied
	}
	m.mu.RUnlock()

	if r.public {
		return snapshot, nil
	}
	if snapshot == nil {
		return nil, &utils.AuthError{Message: "Please log in to " + r.verb + ".", Err: ErrNotAuthenticated}
	}
	if !Allowed(snapshot.Identity.Role, action) {
		names := make([]string, len(r.roles))
		for i, role := range r.roles {
			names[i] = string(role) + "s"
		}
		return nil, &utils.AuthError{
			Message: fmt.Sprintf("Only %s can %s.", strings.Join(names, " or "), r.verb),
			Err:     ErrForbidden,
		}
	}
	return snapshot, nil
}

func (m *Manager) establish(result *ledger.AuthResult) {
	m.mu.Lock()
	m.current = &Session{
		Identity:   result.Identity,
		Credential: append(ledger.Credential(nil), result.Credential...),
		CreatedAt:  m.now(),
	}
	m.mu.Unlock()
	m.logger.Info("session established", "username", result.Identity.Username, "role", result.Identity.Role)
}

// authFailure maps a ledger error to an AuthError carrying the backend's
// reason. Network errors pass through unchanged.
func authFailure(err error, fallback string) error {
	var netErr *utils.NetworkError
	if errors.As(err, &netErr) {
		return err
	}
	return &utils.AuthError{Message: utils.UserMessage(err, fallback), Err: err}
}
