package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"landfilter/internal/config"
	"landfilter/internal/model"
)

const savedPage = `<html><head></head><body><div id="listContents1"><div class="item_list">
<div class="item" id="a"><span class="spec">B1/5층</span></div>
<div class="item" id="b"><span class="spec">3/5층</span></div>
<div class="item" id="c"><span class="spec">5/5층</span></div>
</div></div></body></html>`

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("SQLITE_PATH", filepath.Join(dir, "state.db"))
	t.Setenv("LOCATORS_FILE", filepath.Join(dir, "missing.yaml"))
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("PG_HOST", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("POSTGRESQL_URI", "")
	t.Setenv("PG_DSN", "")
	input := filepath.Join(dir, "page.html")
	require.NoError(t, os.WriteFile(input, []byte(savedPage), 0o644))
	return dir
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestApplyWithFlags(t *testing.T) {
	dir := setupEnv(t)
	out := filepath.Join(dir, "out.html")

	_, stderr, err := execute(t, "apply", filepath.Join(dir, "page.html"), "-o", out,
		"--enable", "hide-basement", "--enable", "고층", "--save")
	require.NoError(t, err)
	assert.Contains(t, stderr, "3 total, 2 hidden, 1 visible")

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	page := string(raw)
	assert.Contains(t, page, `class="item naver-land-hidden" id="a"`)
	assert.Contains(t, page, `class="item" id="b"`)
	assert.Contains(t, page, `class="item naver-land-hidden" id="c"`)
	assert.Contains(t, page, `id="naver-land-filter-styles"`)

	// the saved selection is used when no flags are given
	stdout, stderr, err := execute(t, "apply", filepath.Join(dir, "page.html"))
	require.NoError(t, err)
	assert.Contains(t, stderr, "2 hidden")
	assert.Equal(t, 2, strings.Count(stdout, "naver-land-hidden\""))
}

func TestApplyWithoutSaveLeavesStoreAlone(t *testing.T) {
	dir := setupEnv(t)

	_, stderr, err := execute(t, "apply", filepath.Join(dir, "page.html"), "-o", filepath.Join(dir, "out.html"),
		"--enable", "hide-basement")
	require.NoError(t, err)
	assert.Contains(t, stderr, "1 hidden")
	assert.NoFileExists(t, filepath.Join(dir, "state.db"))

	_, _, err = execute(t, "apply", filepath.Join(dir, "page.html"), "-o", filepath.Join(dir, "out.html"))
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "state.db"), "loading the saved state opens the store")
}

func TestApplyErrors(t *testing.T) {
	dir := setupEnv(t)

	_, _, err := execute(t, "apply", filepath.Join(dir, "nope.html"))
	assert.Error(t, err)

	_, _, err = execute(t, "apply", filepath.Join(dir, "page.html"), "--enable", "hide-everything")
	assert.Error(t, err)

	_, _, err = execute(t, "apply")
	assert.Error(t, err)
}

type stubCommander struct{}

func (stubCommander) HandleCommand(_ context.Context, req model.CommandRequest) model.CommandResponse {
	return model.CommandResponse{Success: true, Message: req.Action}
}

func TestRouter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "landfilter_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	r := newRouter(config.ServerConfig{
		AllowedOrigins: "*",
		AllowedMethods: "GET,POST,OPTIONS",
		AllowedHeaders: "Content-Type",
	}, stubCommander{}, reg)

	get := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}

	w := get("/health")
	assert.Equal(t, http.StatusOK, w.Code)
	var health map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health["status"])

	w = get("/version")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), Version)

	w = get("/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "landfilter_test_total 1")

	w = get("/nowhere")
	assert.Equal(t, http.StatusNotFound, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/command", strings.NewReader(`{"action":"reapplyFilters"}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "reapplyFilters")
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"GET", "POST"}, splitList(" GET, ,POST "))
	assert.Nil(t, splitList(""))
}
