package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"log"
	"net/http"
	"time"

	"cloud-backend/utils/response"

	"github.com/golang-jwt/jwt"
)

const (
	CSRFCookieName = "csrftoken"
	CSRFHeaderName = "X-CSRFToken"
	csrfTokenTTL   = 12 * time.Hour
	csrfNonceBytes = 32
)

var ErrCSRFMismatch = errors.New("csrf token does not match cookie")

// CSRF issues anti-forgery tokens: a random nonce goes into a cookie and a
// signed token binding that nonce is handed to the client, which echoes it
// in a header on unsafe requests.
type CSRF struct {
	secret []byte
	secure bool
	logger *log.Logger
}

func NewCSRF(secret string, secure bool) *CSRF {
	return &CSRF{
		secret: []byte(secret),
		secure: secure,
		logger: log.New(log.Writer(), "[CSRF] ", log.LstdFlags),
	}
}

func (c *CSRF) Issue(w http.ResponseWriter) (string, error) {
	b := make([]byte, csrfNonceBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	nonce := base64.RawURLEncoding.EncodeToString(b)

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.StandardClaims{
		Id:        nonce,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(csrfTokenTTL).Unix(),
	})
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    nonce,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(csrfTokenTTL.Seconds()),
	})
	return signed, nil
}

// Verify checks the token signature and expiry and that it binds nonce.
func (c *CSRF) Verify(tokenString, nonce string) error {
	claims := &jwt.StandardClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return c.secret, nil
	})
	if err != nil {
		return err
	}
	if !token.Valid {
		return jwt.ErrSignatureInvalid
	}
	if nonce == "" || subtle.ConstantTimeCompare([]byte(claims.Id), []byte(nonce)) != 1 {
		return ErrCSRFMismatch
	}
	return nil
}

// RequireCSRF rejects unsafe requests from authenticated callers that do not
// present a valid token. It must run after Authenticate.
func (c *CSRF) RequireCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := GetUserFromContext(r.Context())
		if identity == nil || isSafeMethod(r.Method) {
			next.ServeHTTP(w, r)
			return
		}

		var nonce string
		if cookie, err := r.Cookie(CSRFCookieName); err == nil {
			nonce = cookie.Value
		}
		if err := c.Verify(r.Header.Get(CSRFHeaderName), nonce); err != nil {
			c.logger.Printf("Rejected %s %s from user %s: %v", r.Method, r.URL.Path, identity.Username, err)
			response.Error(w, http.StatusForbidden, "CSRF verification failed")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}
