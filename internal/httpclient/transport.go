package httpclient

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// AuthTransport implements http.RoundTripper and identifies the caller on
// every outgoing request, either with Basic credentials or with an owner
// header set by a trusted front end.
type AuthTransport struct {
	Username string
	Password string
	// Header and Owner are used when Username is empty.
	Header    string
	Owner     string
	Transport http.RoundTripper
	Logger    *slog.Logger
}

// NewBasicAuthTransport creates a transport sending Basic credentials. If
// transport is nil, http.DefaultTransport will be used.
func NewBasicAuthTransport(username, password string, transport http.RoundTripper, logger *slog.Logger) *AuthTransport {
	t := &AuthTransport{Username: username, Password: password, Transport: transport, Logger: logger}
	t.defaults()
	return t
}

// NewOwnerTransport creates a transport setting header to owner.
func NewOwnerTransport(header, owner string, transport http.RoundTripper, logger *slog.Logger) *AuthTransport {
	t := &AuthTransport{Header: header, Owner: owner, Transport: transport, Logger: logger}
	t.defaults()
	return t
}

func (t *AuthTransport) defaults() {
	if t.Transport == nil {
		t.Transport = http.DefaultTransport
	}
	if t.Logger == nil {
		t.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
}

// RoundTrip implements the http.RoundTripper interface. The request is cloned
// before credentials are added.
func (t *AuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Transport == nil {
		return nil, errors.New("transport cannot be nil")
	}

	req = req.Clone(req.Context())
	switch {
	case t.Username != "":
		if t.Password == "" {
			return nil, errors.New("basic auth password cannot be empty")
		}
		req.SetBasicAuth(t.Username, t.Password)
	case t.Header != "" && t.Owner != "":
		req.Header.Set(t.Header, t.Owner)
	default:
		return nil, errors.New("no credentials configured")
	}

	start := time.Now()
	t.Logger.Debug("outgoing request",
		"method", req.Method,
		"url", req.URL.String())

	resp, err := t.Transport.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	t.Logger.Debug("incoming response",
		"status", resp.Status,
		"duration", time.Since(start))
	return resp, nil
}
