package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeKey struct {
	key   string
	err   error
	calls int
}

func (f *fakeKey) Resolve(_ context.Context) (string, error) {
	f.calls++
	return f.key, f.err
}

func newTestClient(t *testing.T, srv *httptest.Server, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{
		WithBaseURL(srv.URL),
		WithHTTPClient(&http.Client{Timeout: 2 * time.Second}),
	}, opts...)
	c, err := NewClient(&fakeKey{key: "g-test"}, opts...)
	require.NoError(t, err)
	return c
}

func TestGenerateURL(t *testing.T) {
	cases := []struct {
		base  string
		model string
		want  string
	}{
		{"https://generativelanguage.googleapis.com", "gemini-pro", "https://generativelanguage.googleapis.com/v1beta/models/gemini-pro:generateContent"},
		{"https://generativelanguage.googleapis.com/v1beta/", "gemini-pro", "https://generativelanguage.googleapis.com/v1beta/models/gemini-pro:generateContent"},
		{"", "gemini-1.5-flash", "https://generativelanguage.googleapis.com/v1beta/models/gemini-1.5-flash:generateContent"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, generateURL(tc.base, tc.model), "base=%q", tc.base)
	}
}

func TestNewClient_NilKey(t *testing.T) {
	_, err := NewClient(nil)
	require.ErrorContains(t, err, "nil")
}

func TestNewClient_Defaults(t *testing.T) {
	c, err := NewClient(&fakeKey{}, WithModel(" "))
	require.NoError(t, err)
	require.Equal(t, defaultModel, c.model)
	require.Equal(t, defaultTemperature, c.temperature)
	require.Equal(t, defaultBaseURL, c.baseURL)
}

func TestClient_Generate_HappyPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1beta/models/gemini-pro:generateContent", r.URL.Path)
		require.Equal(t, "g-test", r.Header.Get("x-goog-api-key"))
		require.Empty(t, r.URL.Query().Get("key"))

		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var req generateRequest
		require.NoError(t, json.Unmarshal(raw, &req))
		require.Len(t, req.Contents, 1)
		require.Equal(t, "Patient prompt", req.Contents[0].Parts[0].Text)
		require.InDelta(t, 0.7, req.GenerationConfig.Temperature, 1e-9)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"Drink water."}]},"finishReason":"STOP"}]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	out, err := c.Generate(context.Background(), "Patient prompt")
	require.NoError(t, err)
	require.Equal(t, "Drink water.", out)
}

func TestClient_Generate_CustomModelAndTemperature(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1beta/models/gemini-1.5-flash:generateContent", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		require.Contains(t, string(raw), `"temperature":0.2`)
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, WithModel("gemini-1.5-flash"), WithTemperature(0.2))
	out, err := c.Generate(context.Background(), "p")
	require.NoError(t, err)
	require.Equal(t, "ok", out)
}

func TestClient_Generate_NoText(t *testing.T) {
	bodies := []string{
		`{"candidates":[]}`,
		`{}`,
		`{"candidates":[{"content":{"parts":[]}}]}`,
		`{"candidates":[{"content":{"parts":[{"text":"  "}]}}]}`,
	}
	for _, body := range bodies {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		}))
		c := newTestClient(t, srv)
		_, err := c.Generate(context.Background(), "p")
		require.ErrorIs(t, err, ErrNoText, "body=%s", body)
		srv.Close()
	}
}

func TestClient_Generate_StatusErrors(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusTooManyRequests, http.StatusInternalServerError} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"nope"}}`))
		}))
		c := newTestClient(t, srv)
		_, err := c.Generate(context.Background(), "p")
		require.Error(t, err)

		var statusErr *HTTPStatusError
		require.True(t, errors.As(err, &statusErr))
		require.Equal(t, status, statusErr.HTTPStatusCode())
		srv.Close()
	}
}

func TestClient_Generate_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not-a-json`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.Generate(context.Background(), "p")
	require.ErrorContains(t, err, "decode response")
}

func TestClient_Generate_KeyError(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	c, err := NewClient(&fakeKey{err: errors.New("ssm unavailable")}, WithBaseURL(srv.URL))
	require.NoError(t, err)
	require.ErrorContains(t, c.Ready(context.Background()), "ssm unavailable")
	_, err = c.Generate(context.Background(), "p")
	require.ErrorContains(t, err, "resolve api key")
	require.False(t, called)
}

func TestClient_Generate_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	c.httpClient = &http.Client{Timeout: 50 * time.Millisecond}
	_, err := c.Generate(context.Background(), "p")
	require.ErrorContains(t, err, "request failed")
}
