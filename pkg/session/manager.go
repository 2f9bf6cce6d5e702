package session

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// Cookie names. The session cookie is HttpOnly; the CSRF cookie is readable
// by the client so the token can be echoed in the X-CSRF-Token header
// (double submit).
const (
	SessionCookieName = "admin_session"
	CSRFCookieName    = "csrf_token"
	CSRFHeader        = "X-CSRF-Token"
)

// Manager establishes and terminates admin sessions and issues the paired
// anti-forgery token.
type Manager struct {
	store      Store
	ttl        time.Duration
	csrfKey    []byte
	domain     string
	production bool
	sameSite   http.SameSite
}

func NewManager(store Store, ttl time.Duration, csrfKey, cookieDomain string) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if len(csrfKey) < 16 {
		return nil, fmt.Errorf("csrf signing key must be at least 16 bytes")
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Manager{
		store:    store,
		ttl:      ttl,
		csrfKey:  []byte(csrfKey),
		domain:   cookieDomain,
		sameSite: http.SameSiteLaxMode,
	}, nil
}

// SetProductionMode toggles Secure cookies. SameSite=None requires Secure,
// so it is only used in production (HTTPS).
func (m *Manager) SetProductionMode(production bool) {
	m.production = production
	if production {
		m.sameSite = http.SameSiteNoneMode
	} else {
		m.sameSite = http.SameSiteLaxMode
	}
}

// csrfClaims binds the anti-forgery token to one session.
type csrfClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// Establish creates a fresh session for the admin and returns the cookies to
// set plus the CSRF token value. The session ID is always newly generated;
// a pre-auth session ID is never reused (fixation mitigation).
func (m *Manager) Establish(ctx context.Context, adminID uint, role string) (*Session, []CookieSpec, string, error) {
	sess := &Session{
		ID:        uuid.New().String(),
		AdminID:   adminID,
		Role:      role,
		CreatedAt: time.Now(),
	}
	if err := m.store.Save(ctx, sess, m.ttl); err != nil {
		return nil, nil, "", fmt.Errorf("failed to save session: %w", err)
	}

	csrfToken, err := m.signCSRFToken(sess.ID)
	if err != nil {
		// Roll back the half-established session; a session without its
		// anti-forgery pair must not exist.
		_ = m.store.Delete(ctx, sess.ID)
		return nil, nil, "", fmt.Errorf("failed to sign csrf token: %w", err)
	}

	cookies := []CookieSpec{
		{
			Name:     SessionCookieName,
			Value:    sess.ID,
			Path:     "/",
			Domain:   m.domain,
			MaxAge:   int(m.ttl.Seconds()),
			Secure:   m.production,
			HttpOnly: true,
			SameSite: m.sameSite,
		},
		{
			Name:     CSRFCookieName,
			Value:    csrfToken,
			Path:     "/",
			Domain:   m.domain,
			MaxAge:   int(m.ttl.Seconds()),
			Secure:   m.production,
			HttpOnly: false, // client JS echoes it in the CSRF header
			SameSite: m.sameSite,
		},
	}
	return sess, cookies, csrfToken, nil
}

// Resolve loads the session referenced by the request's session cookie.
func (m *Manager) Resolve(ctx context.Context, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil, ErrSessionNotFound
	}
	return m.store.Get(ctx, cookie.Value)
}

// Terminate invalidates the server-side session (best effort) and returns
// expired cookie specs for both cookies. Logout always succeeds from the
// client's perspective, even when the session lookup or delete fails.
func (m *Manager) Terminate(ctx context.Context, r *http.Request) []CookieSpec {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		if err := m.store.Delete(ctx, cookie.Value); err != nil {
			log.Printf("[Session] Failed to delete session on logout: %v", err)
		}
	}
	return m.expiredCookies()
}

func (m *Manager) expiredCookies() []CookieSpec {
	expired := time.Unix(0, 0)
	specs := make([]CookieSpec, 0, 2)
	for _, spec := range []struct {
		name     string
		httpOnly bool
	}{
		{SessionCookieName, true},
		{CSRFCookieName, false},
	} {
		specs = append(specs, CookieSpec{
			Name:     spec.name,
			Value:    "",
			Path:     "/",
			Domain:   m.domain,
			MaxAge:   -1,
			Expires:  expired,
			Secure:   m.production,
			HttpOnly: spec.httpOnly,
			SameSite: m.sameSite,
		})
	}
	return specs
}

func (m *Manager) signCSRFToken(sessionID string) (string, error) {
	now := time.Now()
	claims := csrfClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.csrfKey)
}

// VerifyCSRF checks that the token is validly signed, unexpired and bound to
// the given session.
func (m *Manager) VerifyCSRF(tokenString, sessionID string) error {
	claims := &csrfClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.csrfKey, nil
	})
	if err != nil {
		return fmt.Errorf("invalid csrf token: %w", err)
	}
	if !token.Valid {
		return fmt.Errorf("invalid csrf token")
	}
	if claims.SessionID != sessionID {
		return fmt.Errorf("csrf token not bound to this session")
	}
	return nil
}
