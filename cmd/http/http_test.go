package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mg52/autocomplete/internal/engine"
)

func newTestHTTP(t *testing.T, seed map[string][]string, maxLimit int) (*HTTP, *engine.Index) {
	t.Helper()
	ix, err := engine.Open(engine.Options{
		DataDir:    t.TempDir(),
		Categories: []string{"products", "brands"},
		Seed:       seed,
		CacheSize:  16,
	})
	require.NoError(t, err)
	t.Cleanup(func() { ix.Close() })
	h := NewHTTP(ix, Options{
		DefaultLimits: map[string]int{"products": 25, "brands": 15},
		MaxLimit:      maxLimit,
	})
	return h, ix
}

func do(h *HTTP, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.Routes().ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp), rr.Body.String())
	return resp
}

func TestHealthHandler(t *testing.T) {
	h, _ := newTestHTTP(t, nil, 0)
	rr := do(h, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", decode(t, rr)["status"])

	rr = do(h, http.MethodPost, "/health", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Equal(t, http.MethodGet, rr.Header().Get("Allow"))
}

func TestSearchHandler_Success(t *testing.T) {
	h, _ := newTestHTTP(t, engine.DefaultSeed(), 100)
	rr := do(h, http.MethodGet, "/search?category=brands&q=GH", "")
	require.Equal(t, http.StatusOK, rr.Code)

	resp := decode(t, rr)
	assert.Equal(t, "success", resp["status"])
	assert.Equal(t, []interface{}{"ghost"}, resp["response"])
}

func TestSearchHandler_EmptyResultIsArray(t *testing.T) {
	h, _ := newTestHTTP(t, nil, 100)
	rr := do(h, http.MethodGet, "/search?category=brands&q=zzz", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"response":[]`)
}

func TestSearchHandler_Errors(t *testing.T) {
	h, _ := newTestHTTP(t, nil, 100)

	cases := []struct {
		target string
		code   int
	}{
		{"/search?q=a", http.StatusBadRequest},
		{"/search?category=shoes&q=a", http.StatusNotFound},
		{"/search?category=brands&q=a&limit=abc", http.StatusBadRequest},
		{"/search?category=brands&q=a&limit=-1", http.StatusBadRequest},
	}
	for _, tc := range cases {
		rr := do(h, http.MethodGet, tc.target, "")
		assert.Equal(t, tc.code, rr.Code, tc.target)
		assert.Contains(t, decode(t, rr), "err")
	}
}

func TestSearchHandler_Limits(t *testing.T) {
	h, ix := newTestHTTP(t, nil, 28)
	words := make([]string, 30)
	for i := range words {
		words[i] = fmt.Sprintf("whey %02d", i)
	}
	_, err := ix.AddBatch("products", words)
	require.NoError(t, err)

	count := func(target string) int {
		rr := do(h, http.MethodGet, target, "")
		require.Equal(t, http.StatusOK, rr.Code)
		return len(decode(t, rr)["response"].([]interface{}))
	}
	assert.Equal(t, 25, count("/search?category=products&q=whey"), "category default")
	assert.Equal(t, 3, count("/search?category=products&q=whey&limit=3"))
	assert.Equal(t, 28, count("/search?category=products&q=whey&limit=1000"), "clamped to max")
	assert.Equal(t, 0, count("/search?category=products&q=whey&limit=0"))
}

func TestExistsHandler(t *testing.T) {
	h, _ := newTestHTTP(t, engine.DefaultSeed(), 0)

	rr := do(h, http.MethodGet, "/exists?category=products&word=Jacked3D", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, true, decode(t, rr)["exists"])

	rr = do(h, http.MethodGet, "/exists?category=products&word=nope", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, false, decode(t, rr)["exists"])
}

func TestAddToIndexHandler(t *testing.T) {
	h, ix := newTestHTTP(t, nil, 0)

	rr := do(h, http.MethodPost, "/add-to-index?category=products", `["Creatine HCL","creatine hcl","BCAA"]`)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp AddToIndexResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "products", resp.Category)
	assert.Equal(t, 3, resp.Received)
	assert.Equal(t, 2, resp.AddedCount)

	ok, err := ix.Exists("products", "bcaa")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAddToIndexHandler_BadBody(t *testing.T) {
	h, _ := newTestHTTP(t, nil, 0)

	for _, body := range []string{`["ok", 42]`, `{"word":"x"}`, `not json`} {
		rr := do(h, http.MethodPost, "/add-to-index?category=products", body)
		assert.Equal(t, http.StatusBadRequest, rr.Code, body)
	}
	rr := do(h, http.MethodGet, "/add-to-index?category=products", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestAddAndRemoveWordHandlers(t *testing.T) {
	h, ix := newTestHTTP(t, nil, 0)

	rr := do(h, http.MethodPost, "/add-word?category=brands", `{"word":"Transparent Labs"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	ok, err := ix.Exists("brands", "transparent labs")
	require.NoError(t, err)
	assert.True(t, ok)

	rr = do(h, http.MethodDelete, "/remove-word?category=brands&word=Transparent%20Labs", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, true, decode(t, rr)["removed"])

	rr = do(h, http.MethodDelete, "/remove-word?category=brands&word=ghost", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, false, decode(t, rr)["removed"])

	rr = do(h, http.MethodDelete, "/remove-word?category=brands", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAddWordHandler_MissingWord(t *testing.T) {
	h, ix := newTestHTTP(t, nil, 0)

	for _, body := range []string{`{}`, `{"word":null}`, `{"name":"gnc"}`} {
		rr := do(h, http.MethodPost, "/add-word?category=brands", body)
		assert.Equal(t, http.StatusBadRequest, rr.Code, body)
	}
	ok, err := ix.Exists("brands", "")
	require.NoError(t, err)
	assert.False(t, ok, "empty string must not be indexed by a malformed body")
}

func TestBodySizeLimit(t *testing.T) {
	_, ix := newTestHTTP(t, nil, 0)
	h := NewHTTP(ix, Options{MaxBodyBytes: 64})

	words := make([]string, 100)
	for i := range words {
		words[i] = fmt.Sprintf("protein %03d", i)
	}
	big, err := json.Marshal(words)
	require.NoError(t, err)

	for _, target := range []string{"/add-to-index?category=products", "/rebuild"} {
		body := string(big)
		if target == "/rebuild" {
			body = `{"products":` + body + `}`
		}
		rr := do(h, http.MethodPost, target, body)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code, target)
	}
	rr := do(h, http.MethodPost, "/add-word?category=products", `{"word":"`+strings.Repeat("a", 100)+`"}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)

	st := ix.Stats()
	assert.Zero(t, st.Categories["products"])
	assert.False(t, ix.IsRebuildInProgress())

	rr = do(h, http.MethodPost, "/add-to-index?category=products", `["c4"]`)
	assert.Equal(t, http.StatusOK, rr.Code, "small bodies still accepted")
}

func TestRebuildHandler(t *testing.T) {
	h, ix := newTestHTTP(t, engine.DefaultSeed(), 0)

	rr := do(h, http.MethodPost, "/rebuild", `{"brands":["Kaged","Legion"]}`)
	require.Equal(t, http.StatusAccepted, rr.Code)
	var resp RebuildResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "accepted", resp.Status)
	require.NotEmpty(t, resp.ID)

	require.Eventually(t, func() bool {
		return ix.LastRebuild().ID == resp.ID && !ix.IsRebuildInProgress()
	}, 2*time.Second, 5*time.Millisecond)

	got, err := ix.Search("brands", "", -1)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"kaged", "legion"}, got)

	rr = do(h, http.MethodGet, "/rebuild-status", "")
	require.Equal(t, http.StatusOK, rr.Code)
	status := decode(t, rr)
	assert.Equal(t, false, status["inProgress"])
	last := status["last"].(map[string]interface{})
	assert.Equal(t, resp.ID, last["id"])
	assert.Equal(t, true, last["succeeded"])
}

func TestRebuildHandler_BadRequests(t *testing.T) {
	h, ix := newTestHTTP(t, nil, 0)

	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodPost, "/rebuild", `{"brands":[1]}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodPost, "/rebuild", `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodPost, "/rebuild", `[]`).Code)
	assert.Equal(t, http.StatusNotFound, do(h, http.MethodPost, "/rebuild", `{"shoes":["a"]}`).Code)
	assert.False(t, ix.IsRebuildInProgress())
}

func TestSaveAndStatsHandlers(t *testing.T) {
	h, ix := newTestHTTP(t, map[string][]string{"products": {"a", "b"}}, 0)

	rr := do(h, http.MethodPost, "/save", "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(h, http.MethodGet, "/stats", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var st engine.Stats
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&st))
	assert.Equal(t, map[string]int{"products": 2, "brands": 0}, st.Categories)

	require.NoError(t, ix.Close())
	rr = do(h, http.MethodPost, "/save", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestReloadHandler(t *testing.T) {
	h, ix := newTestHTTP(t, map[string][]string{"brands": {"GNC"}}, 0)
	_, err := ix.AddBatch("brands", []string{"not saved"})
	require.NoError(t, err)

	rr := do(h, http.MethodPost, "/reload", "")
	require.Equal(t, http.StatusAccepted, rr.Code)

	require.Eventually(t, func() bool {
		ok, _ := ix.Exists("brands", "not saved")
		return !ok && !ix.IsRebuildInProgress()
	}, 2*time.Second, 5*time.Millisecond)

	ok, err := ix.Exists("brands", "gnc")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMetricsEndpoint(t *testing.T) {
	h, _ := newTestHTTP(t, nil, 0)
	rr := do(h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestErrWriterStatusCodes(t *testing.T) {
	cases := map[error]int{
		fmt.Errorf("wrap: %w", engine.ErrInvalidInput):      http.StatusBadRequest,
		fmt.Errorf("wrap: %w", engine.ErrUnknownCategory):   http.StatusNotFound,
		fmt.Errorf("wrap: %w", engine.ErrRebuildInProgress): http.StatusConflict,
		engine.ErrClosed:                                     http.StatusServiceUnavailable,
		fmt.Errorf("wrap: %w", engine.ErrReadOnly):          http.StatusForbidden,
		fmt.Errorf("wrap: %w", errBodyTooLarge):             http.StatusRequestEntityTooLarge,
		fmt.Errorf("disk full"):                              http.StatusInternalServerError,
	}
	for err, code := range cases {
		rr := httptest.NewRecorder()
		ErrWriter(rr, err)
		assert.Equal(t, code, rr.Code, err.Error())
		assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	}
}
