package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"

	"cloud-backend/internal/models"
	"cloud-backend/internal/services"
	"cloud-backend/utils/response"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
)

type contextKey string

const UserContextKey contextKey = "user"

const (
	SessionName    = "sessionid"
	sessionUserKey = "user_id"
)

// UserLookup is implemented by *services.AuthService.
type UserLookup interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// SessionAuth binds server-side sessions to users. Only the signed session
// id travels in the cookie; the user id lives in the store.
type SessionAuth struct {
	store  sessions.Store
	users  UserLookup
	logger *log.Logger
}

func NewSessionAuth(store sessions.Store, users UserLookup) *SessionAuth {
	return &SessionAuth{
		store:  store,
		users:  users,
		logger: log.New(log.Writer(), "[SessionAuth] ", log.LstdFlags),
	}
}

// Authenticate resolves the session cookie to an identity and stores it in
// the request context. Requests without a usable session continue
// anonymously.
func (m *SessionAuth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := m.resolve(r)
		if err != nil {
			m.logger.Printf("Failed to resolve session: %v", err)
			response.Error(w, http.StatusInternalServerError, "Failed to load session")
			return
		}
		if identity != nil {
			r = r.WithContext(WithIdentity(r.Context(), identity))
		}
		next.ServeHTTP(w, r)
	})
}

func (m *SessionAuth) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetUserFromContext(r.Context()) == nil {
			response.Error(w, http.StatusUnauthorized, "Authentication credentials were not provided")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m *SessionAuth) RequireAdmin(next http.Handler) http.Handler {
	return m.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := GetUserFromContext(r.Context())
		if !identity.IsAdmin {
			m.logger.Printf("User %s denied access to admin route %s %s", identity.Username, r.Method, r.URL.Path)
			response.Error(w, http.StatusForbidden, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	}))
}

// Login binds a fresh session to user. The session id is cleared first so
// the store issues a new one.
func (m *SessionAuth) Login(w http.ResponseWriter, r *http.Request, user *models.User) error {
	session, err := m.store.Get(r, SessionName)
	if err != nil && session == nil {
		return err
	}
	session.ID = ""
	session.IsNew = true
	session.Values = map[interface{}]interface{}{
		sessionUserKey: user.ID.String(),
	}
	return session.Save(r, w)
}

// Logout removes the stored session and expires the cookie.
func (m *SessionAuth) Logout(w http.ResponseWriter, r *http.Request) error {
	session, err := m.store.Get(r, SessionName)
	if err != nil && session == nil {
		return err
	}
	session.Options.MaxAge = -1
	return session.Save(r, w)
}

func (m *SessionAuth) resolve(r *http.Request) (*models.Identity, error) {
	// A cookie that no longer decodes, or whose file is gone, yields a new
	// empty session together with an error; that is just an anonymous caller.
	session, err := m.store.Get(r, SessionName)
	if session == nil {
		return nil, err
	}

	raw, ok := session.Values[sessionUserKey].(string)
	if !ok {
		return nil, nil
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return nil, nil
	}

	user, err := m.users.GetUserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return models.IdentityOf(user), nil
}

func WithIdentity(ctx context.Context, identity *models.Identity) context.Context {
	return context.WithValue(ctx, UserContextKey, identity)
}

func GetUserFromContext(ctx context.Context) *models.Identity {
	identity, ok := ctx.Value(UserContextKey).(*models.Identity)
	if !ok {
		return nil
	}
	return identity
}
