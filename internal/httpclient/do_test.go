package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockTransport struct {
	response *http.Response
	err      error
	request  *http.Request
}

func (m *mockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	m.request = req
	return m.response, m.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newWrapper(t *testing.T, rt http.RoundTripper) HttpClientWrapper {
	t.Helper()
	base, _ := url.Parse("http://example.com/api/")
	c, err := NewHttpClientWrapper(&http.Client{Transport: rt}, *base, testLogger())
	require.NoError(t, err)
	return c
}

func response(status int, body string, header http.Header) *http.Response {
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestNewHttpClientWrapper_RequiresLogger(t *testing.T) {
	_, err := NewHttpClientWrapper(nil, url.URL{}, nil)
	assert.Error(t, err)
}

func TestDoJSON(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantErr    bool
		wantCode   string
		wantStatus int
	}{
		{name: "ok", status: http.StatusOK, body: `{"title":"Journal"}`},
		{name: "no content", status: http.StatusNoContent},
		{name: "api error", status: http.StatusUnprocessableEntity, body: `{"error":"invalid scope","code":"invalid_scope"}`, wantErr: true, wantCode: "invalid_scope", wantStatus: 422},
		{name: "error without body", status: http.StatusBadGateway, wantErr: true, wantStatus: 502},
		{name: "bad json", status: http.StatusOK, body: `{`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{"Etag": []string{`"abc"`}}
			rt := &mockTransport{response: response(tt.status, tt.body, header)}
			c := newWrapper(t, rt)

			var out struct {
				Title string `json:"title"`
			}
			etag, err := c.DoJSON(context.Background(), http.MethodPut, "events/x", url.Values{"a": {"b"}}, map[string]string{"title": "Journal"}, &out)

			require.NotNil(t, rt.request)
			assert.Equal(t, "http://example.com/api/events/x?a=b", rt.request.URL.String())
			assert.Equal(t, "application/json", rt.request.Header.Get("Content-Type"))

			if tt.wantErr {
				require.Error(t, err)
				if tt.wantStatus != 0 {
					var apiErr *APIError
					require.True(t, errors.As(err, &apiErr))
					assert.Equal(t, tt.wantStatus, apiErr.StatusCode)
					assert.Equal(t, tt.wantCode, apiErr.Code)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, `"abc"`, etag)
			if tt.status == http.StatusOK {
				assert.Equal(t, "Journal", out.Title)
			}
		})
	}
}

func TestDoJSON_TransportError(t *testing.T) {
	c := newWrapper(t, &mockTransport{err: errors.New("connection refused")})
	_, err := c.DoJSON(context.Background(), http.MethodGet, "events", nil, nil, nil)
	assert.ErrorContains(t, err, "connection refused")
}

func TestDoGET(t *testing.T) {
	rt := &mockTransport{response: response(http.StatusOK, "BEGIN:VCALENDAR", nil)}
	c := newWrapper(t, rt)

	body, _, err := c.DoGET(context.Background(), "events/x/ics", "text/calendar")
	require.NoError(t, err)
	assert.Equal(t, "BEGIN:VCALENDAR", string(body))
	assert.Equal(t, "text/calendar", rt.request.Header.Get("Accept"))

	rt.response = response(http.StatusNotFound, `{"error":"event not found","code":"not_found"}`, nil)
	_, _, err = c.DoGET(context.Background(), "events/y/ics", "")
	assert.True(t, IsNotFound(err))
}

func TestAuthTransport(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer srv.Close()

	t.Run("basic", func(t *testing.T) {
		client := &http.Client{Transport: NewBasicAuthTransport("alice", "secret", nil, nil)}
		resp, err := client.Get(srv.URL)
		require.NoError(t, err)
		resp.Body.Close()
		assert.True(t, strings.HasPrefix(got.Get("Authorization"), "Basic "))
	})

	t.Run("owner header", func(t *testing.T) {
		client := &http.Client{Transport: NewOwnerTransport("X-User-ID", "alice", nil, nil)}
		resp, err := client.Get(srv.URL)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, "alice", got.Get("X-User-ID"))
		assert.Empty(t, got.Get("Authorization"))
	})

	t.Run("missing password", func(t *testing.T) {
		client := &http.Client{Transport: NewBasicAuthTransport("alice", "", nil, nil)}
		_, err := client.Get(srv.URL)
		assert.Error(t, err)
	})

	t.Run("no credentials", func(t *testing.T) {
		client := &http.Client{Transport: &AuthTransport{Transport: http.DefaultTransport}}
		_, err := client.Get(srv.URL)
		assert.Error(t, err)
	})
}
