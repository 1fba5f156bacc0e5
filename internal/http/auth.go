package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"materna-data/internal/domain"
)

// TokenVerifier resolves a bearer token to a caller scope. Claims issuance
// lives in the external identity provider; this service only consumes the
// (role, territories, email) triple.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (domain.Scope, error)
}

// errUnauthorized is mapped to HTTP 401 by the auth middleware.
var errUnauthorized = fmt.Errorf("invalid or missing credentials")

// StaticVerifier accepts a single fixed admin token. Development and tests
// only; never run it facing the network.
type StaticVerifier struct {
	token string
}

func NewStaticVerifier(token string) *StaticVerifier {
	return &StaticVerifier{token: token}
}

func (v *StaticVerifier) Verify(_ context.Context, token string) (domain.Scope, error) {
	if v.token == "" || token != v.token {
		return domain.Scope{}, errUnauthorized
	}
	return domain.Scope{Role: domain.RoleAdmin, Email: "dev@localhost"}, nil
}

// introspectionResponse is the identity provider's token introspection shape.
type introspectionResponse struct {
	Active      bool     `json:"active"`
	Role        string   `json:"role"`
	Territories []string `json:"territories"`
	Email       string   `json:"email"`
}

// RemoteVerifier asks the identity provider's introspection endpoint whether
// a token is live and what scope it carries.
type RemoteVerifier struct {
	client *resty.Client
	logger *zap.Logger
}

func NewRemoteVerifier(introspectURL, serviceToken string, timeout time.Duration, logger *zap.Logger) *RemoteVerifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := resty.New().
		SetBaseURL(introspectURL).
		SetTimeout(timeout).
		SetAuthToken(serviceToken).
		SetHeader("Content-Type", "application/json")
	return &RemoteVerifier{client: client, logger: logger}
}

func (v *RemoteVerifier) Verify(ctx context.Context, token string) (domain.Scope, error) {
	var out introspectionResponse
	resp, err := v.client.R().
		SetContext(ctx).
		SetBody(map[string]string{"token": token}).
		SetResult(&out).
		Post("")
	if err != nil {
		return domain.Scope{}, fmt.Errorf("token introspection: %w", domain.ErrStoreUnavailable)
	}
	if resp.IsError() {
		v.logger.Warn("token introspection rejected", zap.Int("status", resp.StatusCode()))
		return domain.Scope{}, errUnauthorized
	}
	if !out.Active {
		return domain.Scope{}, errUnauthorized
	}
	return domain.Scope{Role: out.Role, Territories: out.Territories, Email: out.Email}, nil
}

type scopeContextKey struct{}

// ScopeFrom returns the caller scope stored by the auth middleware.
func ScopeFrom(ctx context.Context) (domain.Scope, bool) {
	s, ok := ctx.Value(scopeContextKey{}).(domain.Scope)
	return s, ok
}

// RequireAuth wraps a handler with bearer-token verification. The resolved
// scope is placed on the request context.
func RequireAuth(verifier TokenVerifier, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeJSON(w, http.StatusUnauthorized, Fail("missing bearer token"))
			return
		}
		scope, err := verifier.Verify(r.Context(), token)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, Fail("invalid credentials"))
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), scopeContextKey{}, scope)))
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
}
