package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"landfilter/internal/app"
	"landfilter/internal/dom/htmldoc"
	"landfilter/internal/model"
	"landfilter/internal/watcher"
)

type recordingCommander struct {
	requests []model.CommandRequest
}

func (r *recordingCommander) HandleCommand(_ context.Context, req model.CommandRequest) model.CommandResponse {
	r.requests = append(r.requests, req)
	if app.IsUnknownAction(req.Action) {
		return model.CommandResponse{Success: false, Message: app.MsgUnknownAction}
	}
	return model.CommandResponse{Success: true, Message: req.Action}
}

func newRouter(c Commander) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewCommandHandler(c).Register(r.Group("/api/v1"))
	return r
}

func do(t *testing.T, r http.Handler, method, path, body string) (int, model.CommandResponse) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp model.CommandResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w.Code, resp
}

func TestCommand(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantCode    int
		wantSuccess bool
		wantMessage string
	}{
		{"known action", `{"action":"reapplyFilters"}`, http.StatusOK, true, "reapplyFilters"},
		{"with filter id", `{"action":"toggleFilter","filterId":"hide-basement"}`, http.StatusOK, true, "toggleFilter"},
		{"unknown action", `{"action":"selfDestruct"}`, http.StatusBadRequest, false, "unknown action"},
		{"missing action", `{}`, http.StatusBadRequest, false, ""},
		{"malformed json", `{"action":`, http.StatusBadRequest, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRouter(&recordingCommander{})
			code, resp := do(t, r, http.MethodPost, "/api/v1/command", tt.body)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantSuccess, resp.Success)
			if tt.wantMessage != "" {
				assert.Equal(t, tt.wantMessage, resp.Message)
			} else {
				assert.True(t, strings.HasPrefix(resp.Message, "Invalid request: "), resp.Message)
			}
		})
	}
}

func TestBadRequestSkipsCommander(t *testing.T) {
	rec := &recordingCommander{}
	code, _ := do(t, newRouter(rec), http.MethodPost, "/api/v1/command", `not json`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Empty(t, rec.requests)

	_, _ = do(t, newRouter(rec), http.MethodPost, "/api/v1/command", `{"action":"toggleFilter","filterId":"hide-low-floor"}`)
	require.Len(t, rec.requests, 1)
	assert.Equal(t, "hide-low-floor", rec.requests[0].FilterID)
}

func TestReadRoutes(t *testing.T) {
	rec := &recordingCommander{}
	r := newRouter(rec)

	code, resp := do(t, r, http.MethodGet, "/api/v1/filters", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, model.ActionListFilters, resp.Message)

	code, resp = do(t, r, http.MethodGet, "/api/v1/status", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, model.ActionCheckFilterStatus, resp.Message)
}

func TestCommandAgainstSession(t *testing.T) {
	doc, err := htmldoc.ParseString(`<html><body><div id="complex_etc_type_filter"></div>` +
		`<div class="item_list"><div class="item"><span class="spec">고/12층</span></div></div></body></html>`)
	require.NoError(t, err)
	s := app.NewSession(app.Deps{Doc: doc, Scheduler: watcher.NewManualScheduler()})
	s.Start(context.Background())
	t.Cleanup(s.Close)

	code, resp := do(t, newRouter(s), http.MethodPost, "/api/v1/command", `{"action":"toggleFilter","filterId":"hide-high-floor"}`)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, resp.Success)
	assert.Equal(t, app.MsgFilterApplied, resp.Message)

	code, resp = do(t, newRouter(s), http.MethodPost, "/api/v1/command", `{"action":"toggleFilterPanel"}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, model.PanelExpanded, resp.Action)
	require.NotNil(t, resp.IsExpanded)
	assert.True(t, *resp.IsExpanded)
}
