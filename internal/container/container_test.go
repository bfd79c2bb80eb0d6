package container

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goelicit/adapters/memory"
	"goelicit/internal"
	"goelicit/internal/config"
	"goelicit/internal/testkit"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "space.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testkit.SmallSpace), 0o644))

	cfg := config.Default()
	cfg.Engine = testkit.EngineConfig()
	cfg.Engine.ProfileConfigPath = path
	return cfg
}

func TestNew(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig(t)
	store := memory.NewBatteryStore(2)

	c, err := New(cfg, internal.NewNopLogger(), WithBatteryStore(store), WithBeliefUpdater(&testkit.BeliefUpdaterMock{}))
	require.NoError(t, err)
	defer c.Shutdown(context.Background())

	assert.Same(t, store, c.Batteries)
	assert.NotNil(t, c.Metrics)
	assert.NotNil(t, c.SSEHub)
	assert.NoError(t, c.Ready())

	w := httptest.NewRecorder()
	c.APIHandler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/design/static", nil))
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 1, store.Len())

	w = httptest.NewRecorder()
	c.AdminHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "goelicit_fim_evaluations_total 66")
}

func TestNew_Disabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.MetricsEnabled = false
	cfg.Server.SSEEnabled = false

	c, err := New(cfg, internal.NewNopLogger())
	require.NoError(t, err)
	assert.Nil(t, c.Metrics)
	assert.Nil(t, c.SSEHub)
	assert.NotNil(t, c.Batteries)
	assert.NoError(t, c.Shutdown(context.Background()))
}

func TestNew_Errors(t *testing.T) {
	_, err := New(nil, nil)
	assert.Error(t, err)

	cfg := testConfig(t)
	cfg.Engine.ProfileConfigPath = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = New(cfg, internal.NewNopLogger())
	assert.Error(t, err)
}
