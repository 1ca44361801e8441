package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"giftcircle/internal/config"
	"giftcircle/pkg/logger"
	"github.com/golang-jwt/jwt/v5"
)

var errInvalidToken = errors.New("invalid token")

// SupabaseAuth resolves the caller from a Supabase access token. Tokens are
// verified locally when the project JWT secret is configured and through
// the Supabase user endpoint otherwise.
type SupabaseAuth struct {
	baseURL   string
	apiKey    string
	jwtSecret []byte
	client    *http.Client
	skipAuth  bool
	mockUser  User
	log       logger.Logger
}

type contextKey int

const (
	userIDKey contextKey = iota
	userKey
)

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Sub   string `json:"sub"`
	User  struct {
		ID  string `json:"id"`
		Sub string `json:"sub"`
	} `json:"user"`
}

type supabaseClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

type User struct {
	ID    string
	Email string
}

func NewSupabaseAuth(cfg config.SupabaseConfig, log logger.Logger) *SupabaseAuth {
	baseURL := strings.TrimRight(cfg.URL, "/")
	timeout := cfg.AuthTimeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	var secret []byte
	if cfg.JWTSecret != "" {
		secret = []byte(cfg.JWTSecret)
	}

	return &SupabaseAuth{
		baseURL:   baseURL,
		apiKey:    cfg.PublishableKey,
		jwtSecret: secret,
		client: &http.Client{
			Timeout: timeout,
		},
		skipAuth: cfg.SkipAuth,
		mockUser: User{
			ID:    strings.TrimSpace(cfg.MockUserID),
			Email: strings.TrimSpace(cfg.MockUserEmail),
		},
		log: log,
	}
}

// Middleware rejects requests without a valid token.
func (a *SupabaseAuth) Middleware(next http.Handler) http.Handler {
	return a.handle(next, true)
}

// Optional attaches the user when a token is present and lets anonymous
// requests through. A token that is present but invalid is still rejected.
func (a *SupabaseAuth) Optional(next http.Handler) http.Handler {
	return a.handle(next, false)
}

func (a *SupabaseAuth) handle(next http.Handler, required bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.skipAuth {
			if a.mockUser.ID == "" {
				writeError(w, http.StatusInternalServerError, "auth_not_configured", "auth mock user id not configured")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), a.mockUser)))
			return
		}

		header := r.Header.Get("Authorization")
		if header == "" && !required {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := bearerToken(header)
		if !ok {
			unauthorized(w)
			return
		}

		if a.jwtSecret == nil && (a.baseURL == "" || a.apiKey == "") {
			writeError(w, http.StatusInternalServerError, "auth_not_configured", "auth not configured")
			return
		}

		user, err := a.resolve(r.Context(), token)
		if err != nil {
			a.log.BusinessError("auth: token rejected", err, "path", r.URL.Path)
			unauthorized(w)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

func (a *SupabaseAuth) resolve(ctx context.Context, token string) (User, error) {
	if a.jwtSecret != nil {
		return a.verifyLocal(token)
	}
	return a.fetchUser(ctx, token)
}

func (a *SupabaseAuth) verifyLocal(token string) (User, error) {
	var claims supabaseClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return a.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return User{}, err
	}
	if !parsed.Valid || claims.Subject == "" {
		return User{}, errInvalidToken
	}
	if claims.Role == "anon" {
		return User{}, fmt.Errorf("%w: anonymous role", errInvalidToken)
	}
	return User{ID: claims.Subject, Email: claims.Email}, nil
}

func (a *SupabaseAuth) fetchUser(ctx context.Context, token string) (User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return User{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("apikey", a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return User{}, fmt.Errorf("supabase user request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return User{}, fmt.Errorf("%w: supabase status %d", errInvalidToken, resp.StatusCode)
	}

	var payload userResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return User{}, fmt.Errorf("decode supabase user: %w", err)
	}

	userID := firstNonEmpty(payload.ID, payload.Sub, payload.User.ID, payload.User.Sub)
	if userID == "" {
		return User{}, errInvalidToken
	}
	return User{ID: userID, Email: payload.Email}, nil
}

func bearerToken(value string) (string, bool) {
	parts := strings.Fields(value)
	if len(parts) != 2 {
		return "", false
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

func unauthorized(w http.ResponseWriter) {
	writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
}

func WithUser(ctx context.Context, user User) context.Context {
	ctx = context.WithValue(ctx, userKey, user)
	return context.WithValue(ctx, userIDKey, user.ID)
}

func UserFromContext(ctx context.Context) (User, bool) {
	value := ctx.Value(userKey)
	user, ok := value.(User)
	if !ok || user.ID == "" {
		return User{}, false
	}
	return user, true
}

// UserIDFromContext returns the caller id, or nil for anonymous requests.
func UserIDFromContext(ctx context.Context) *string {
	value := ctx.Value(userIDKey)
	userID, ok := value.(string)
	if !ok || userID == "" {
		return nil
	}
	return &userID
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
