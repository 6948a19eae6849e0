package core

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProbe struct {
	name string
	err  error
}

func (p *fakeProbe) Name() string                  { return p.name }
func (p *fakeProbe) Check(_ context.Context) error { return p.err }

func TestHandleHealth(t *testing.T) {
	t.Run("no probes reports healthy", func(t *testing.T) {
		s := testServer(t)

		w := httptest.NewRecorder()
		s.HandleHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		require.Equal(t, http.StatusOK, w.Code)

		var resp healthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "healthy", resp.Status)
	})

	t.Run("all probes healthy", func(t *testing.T) {
		s := testServer(t)
		s.HealthProbes = []HealthProbe{
			&fakeProbe{name: "model"},
			&fakeProbe{name: "database"},
		}

		w := httptest.NewRecorder()
		s.HandleHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		require.Equal(t, http.StatusOK, w.Code)

		var resp healthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "healthy", resp.Status)
		assert.Equal(t, "healthy", resp.Components["model"].Status)
		assert.Equal(t, "healthy", resp.Components["database"].Status)
	})

	t.Run("failing probe reports unhealthy", func(t *testing.T) {
		s := testServer(t)
		s.HealthProbes = []HealthProbe{
			&fakeProbe{name: "model"},
			&fakeProbe{name: "database", err: errors.New("connection refused")},
		}

		w := httptest.NewRecorder()
		s.HandleHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		require.Equal(t, http.StatusServiceUnavailable, w.Code)

		var resp healthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "unhealthy", resp.Status)
		assert.Equal(t, "healthy", resp.Components["model"].Status)
		assert.Equal(t, "unhealthy", resp.Components["database"].Status)
		assert.Contains(t, resp.Components["database"].Message, "connection refused")
	})

	t.Run("panicking probe reports unhealthy", func(t *testing.T) {
		s := testServer(t)
		panicky := &fakeProbe{name: "model"}
		s.HealthProbes = []HealthProbe{panicky, &probePanics{}}

		w := httptest.NewRecorder()
		s.HandleHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		require.Equal(t, http.StatusServiceUnavailable, w.Code)

		var resp healthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Contains(t, resp.Components["flaky"].Message, "panicked")
	})
}

type probePanics struct{}

func (p *probePanics) Name() string                  { return "flaky" }
func (p *probePanics) Check(_ context.Context) error { panic("unexpected state") }
