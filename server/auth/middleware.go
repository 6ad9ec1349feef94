package auth

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/cyp0633/schedcore/protocol"
)

type contextKey string

const (
	// PrincipalContextKey is the context key for the resolved principal
	PrincipalContextKey contextKey = "principal"

	// DefaultHeader carries the owner id when no other identity is configured.
	DefaultHeader = "X-User-ID"
)

// GetPrincipalFromContext retrieves the resolved principal from the context
func GetPrincipalFromContext(ctx context.Context) *Principal {
	if p, ok := ctx.Value(PrincipalContextKey).(*Principal); ok {
		return p
	}
	return nil
}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, PrincipalContextKey, p)
}

// Config controls how a request is mapped to an owner. Basic credentials are
// checked first when an Authenticator is set, then Header, then DefaultOwner.
type Config struct {
	// Header names the request header a trusted front end sets to the
	// owner id. Empty selects DefaultHeader.
	Header string
	// DefaultOwner is used for requests presenting no identity. Empty
	// rejects them.
	DefaultOwner string
	// Authenticator validates Basic credentials when set.
	Authenticator Authenticator
	// Realm is announced in WWW-Authenticate when Authenticator is set.
	Realm string
	// Public lists path prefixes served without an owner.
	Public []string
	Logger *slog.Logger
}

// Middleware resolves the owner of every request and stores it in the request
// context. Requests without one are answered 401.
func Middleware(cfg Config) func(http.Handler) http.Handler {
	if cfg.Header == "" {
		cfg.Header = DefaultHeader
	}
	if cfg.Realm == "" {
		cfg.Realm = "schedcore"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, prefix := range cfg.Public {
				if strings.HasPrefix(r.URL.Path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}

			principal, err := resolve(r, cfg)
			if err != nil {
				cfg.Logger.Info("request rejected",
					"path", r.URL.Path,
					"error", err)
				unauthorized(w, cfg, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

func resolve(r *http.Request, cfg Config) (*Principal, error) {
	if username, password, ok := r.BasicAuth(); ok && cfg.Authenticator != nil {
		return cfg.Authenticator.Authenticate(r.Context(), Credentials{
			Username: username,
			Password: password,
		})
	}
	if id := strings.TrimSpace(r.Header.Get(cfg.Header)); id != "" {
		return &Principal{ID: id}, nil
	}
	if cfg.DefaultOwner != "" {
		return &Principal{ID: cfg.DefaultOwner}, nil
	}
	return nil, &Error{
		Reason: ReasonNoOwner,
		Detail: "no credentials, owner header or default owner",
	}
}

func unauthorized(w http.ResponseWriter, cfg Config, err error) {
	if cfg.Authenticator != nil {
		w.Header().Set("WWW-Authenticate", `Basic realm="`+cfg.Realm+`"`)
	}
	msg := "authentication required"
	if IsBadCredentials(err) {
		msg = "invalid credentials"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(protocol.ErrorResponse{Error: msg, Code: protocol.CodeUnauthorized})
}
