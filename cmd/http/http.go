package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mg52/autocomplete/internal/engine"
	"github.com/mg52/autocomplete/internal/pkg/logger"
)

const (
	// fallbackLimit is used when a category has no configured default limit.
	fallbackLimit = 10

	DefaultMaxBodyBytes int64 = 8 << 20
)

var errBodyTooLarge = errors.New("request body too large")

// Options configures the handlers.
type Options struct {
	DefaultLimits map[string]int // per category, 0 falls back to 10
	MaxLimit      int            // upper bound for ?limit=, 0 = unbounded
	MaxBodyBytes  int64          // request body cap, 0 = DefaultMaxBodyBytes
	Logger        logger.Logger
}

// AddWordRequest is the payload for adding a single word.
type AddWordRequest struct {
	Word *string `json:"word"`
}

// AddToIndexResponse is returned after a batch add.
type AddToIndexResponse struct {
	Category   string `json:"category"`
	Received   int    `json:"received"`
	AddedCount int    `json:"addedCount"`
	Duration   string `json:"duration"`
	DurationMs int64  `json:"durationMs"`
}

// RebuildResponse is returned when a rebuild is accepted.
type RebuildResponse struct {
	Status    string    `json:"status"`
	ID        string    `json:"id"`
	StartedAt time.Time `json:"startedAt"`
}

type HTTP struct {
	index         *engine.Index
	defaultLimits map[string]int
	maxLimit      int
	maxBodyBytes  int64
	log           logger.Logger
}

func NewHTTP(index *engine.Index, opts Options) *HTTP {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}
	return &HTTP{
		index:         index,
		defaultLimits: opts.DefaultLimits,
		maxLimit:      opts.MaxLimit,
		maxBodyBytes:  maxBody,
		log:           log,
	}
}

// Routes registers every endpoint on a new ServeMux.
func (ht *HTTP) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/search", ht.Search)
	mux.HandleFunc("/exists", ht.Exists)
	mux.HandleFunc("/add-to-index", ht.AddToIndex)
	mux.HandleFunc("/add-word", ht.AddWord)
	mux.HandleFunc("/remove-word", ht.RemoveWord)
	mux.HandleFunc("/rebuild", ht.Rebuild)
	mux.HandleFunc("/rebuild-status", ht.RebuildStatus)
	mux.HandleFunc("/reload", ht.Reload)
	mux.HandleFunc("/save", ht.Save)
	mux.HandleFunc("/stats", ht.Stats)
	mux.HandleFunc("/health", ht.Health)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrUnknownCategory):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrRebuildInProgress):
		return http.StatusConflict
	case errors.Is(err, engine.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, engine.ErrReadOnly):
		return http.StatusForbidden
	case errors.Is(err, errBodyTooLarge):
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusInternalServerError
}

func ErrWriter(w http.ResponseWriter, err error) {
	var jsonBytes []byte
	jsonBytes, jsonErr := json.Marshal(map[string]interface{}{
		"err": fmt.Sprintf("%v", err),
	})
	if jsonErr != nil {
		jsonBytes = []byte(fmt.Sprintf("err: %v", err))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusFor(err))
	w.Write(jsonBytes)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func methodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	writeJSON(w, http.StatusMethodNotAllowed, map[string]interface{}{
		"err": "method not allowed",
	})
}

// decodeBody decodes at most maxBodyBytes of JSON from the request into v.
func (ht *HTTP) decodeBody(w http.ResponseWriter, r *http.Request, v interface{}, shape string) error {
	body := http.MaxBytesReader(w, r.Body, ht.maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("%w: limit is %d bytes", errBodyTooLarge, tooLarge.Limit)
		}
		return fmt.Errorf("%w: %s: %v", engine.ErrInvalidInput, shape, err)
	}
	return nil
}

func requiredParam(r *http.Request, name string) (string, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return "", fmt.Errorf("%w: `%s` query parameter is required", engine.ErrInvalidInput, name)
	}
	return v, nil
}

func (ht *HTTP) limitFor(r *http.Request, category string) (int, error) {
	limit := ht.defaultLimits[category]
	if limit <= 0 {
		limit = fallbackLimit
	}
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("%w: invalid limit %q", engine.ErrInvalidInput, s)
		}
		limit = n
	}
	if ht.maxLimit > 0 && limit > ht.maxLimit {
		limit = ht.maxLimit
	}
	return limit, nil
}

// Search handles GET /search?category=<name>&q=<prefix>&limit=<n>.
func (ht *HTTP) Search(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	category, err := requiredParam(r, "category")
	if err != nil {
		ErrWriter(w, err)
		return
	}
	limit, err := ht.limitFor(r, category)
	if err != nil {
		ErrWriter(w, err)
		return
	}
	query := r.URL.Query().Get("q")

	startTime := time.Now()
	result, err := ht.index.Search(category, query, limit)
	if err != nil {
		ErrWriter(w, err)
		return
	}
	duration := time.Since(startTime)
	ht.log.Debug("search", "category", category, "query", query, "results", len(result), "took", duration)

	if result == nil {
		result = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "success",
		"statusCode": 200,
		"category":   category,
		"query":      query,
		"response":   result,
		"duration":   duration.String(),
	})
}

// Exists handles GET /exists?category=<name>&word=<word>.
func (ht *HTTP) Exists(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	category, err := requiredParam(r, "category")
	if err != nil {
		ErrWriter(w, err)
		return
	}
	word := r.URL.Query().Get("word")
	ok, err := ht.index.Exists(category, word)
	if err != nil {
		ErrWriter(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "success",
		"statusCode": 200,
		"category":   category,
		"word":       word,
		"exists":     ok,
	})
}

// AddToIndex handles POST /add-to-index?category=<name> with a JSON array of
// strings as the body.
func (ht *HTTP) AddToIndex(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	category, err := requiredParam(r, "category")
	if err != nil {
		ErrWriter(w, err)
		return
	}

	var words []string
	if err := ht.decodeBody(w, r, &words, "body must be a JSON array of strings"); err != nil {
		ErrWriter(w, err)
		return
	}

	start := time.Now()
	added, err := ht.index.AddBatch(category, words)
	if err != nil {
		ErrWriter(w, err)
		return
	}
	elapsed := time.Since(start)

	writeJSON(w, http.StatusOK, AddToIndexResponse{
		Category:   category,
		Received:   len(words),
		AddedCount: added,
		Duration:   elapsed.String(),
		DurationMs: elapsed.Milliseconds(),
	})
}

// AddWord handles POST /add-word?category=<name> with {"word": "..."}.
func (ht *HTTP) AddWord(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	category, err := requiredParam(r, "category")
	if err != nil {
		ErrWriter(w, err)
		return
	}

	var req AddWordRequest
	if err := ht.decodeBody(w, r, &req, "invalid JSON body"); err != nil {
		ErrWriter(w, err)
		return
	}
	if req.Word == nil {
		ErrWriter(w, fmt.Errorf("%w: `word` field is required", engine.ErrInvalidInput))
		return
	}
	if err := ht.index.Add(category, *req.Word); err != nil {
		ErrWriter(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "success",
		"statusCode": 200,
		"category":   category,
		"word":       *req.Word,
	})
}

// RemoveWord handles DELETE /remove-word?category=<name>&word=<word>.
func (ht *HTTP) RemoveWord(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, http.MethodDelete)
		return
	}
	category, err := requiredParam(r, "category")
	if err != nil {
		ErrWriter(w, err)
		return
	}
	word, err := requiredParam(r, "word")
	if err != nil {
		ErrWriter(w, err)
		return
	}
	removed, err := ht.index.Remove(category, word)
	if err != nil {
		ErrWriter(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "success",
		"statusCode": 200,
		"category":   category,
		"word":       word,
		"removed":    removed,
	})
}

// Rebuild handles POST /rebuild with a JSON object mapping category names to
// arrays of strings. It answers 202 once the background rebuild has started
// and 409 while another one is running.
func (ht *HTTP) Rebuild(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	var words map[string][]string
	if err := ht.decodeBody(w, r, &words, "body must map categories to arrays of strings"); err != nil {
		ErrWriter(w, err)
		return
	}
	if len(words) == 0 {
		ErrWriter(w, fmt.Errorf("%w: no categories to rebuild", engine.ErrInvalidInput))
		return
	}

	ticket, err := ht.index.TriggerRebuild(words)
	if err != nil {
		ErrWriter(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, RebuildResponse{
		Status:    "accepted",
		ID:        ticket.ID,
		StartedAt: ticket.StartedAt,
	})
}

// RebuildStatus handles GET /rebuild-status.
func (ht *HTTP) RebuildStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"inProgress": ht.index.IsRebuildInProgress(),
		"last":       ht.index.LastRebuild(),
	})
}

// Reload handles POST /reload: rebuilds every category from its word file.
func (ht *HTTP) Reload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	ticket, err := ht.index.ReloadFromDisk()
	if err != nil {
		ErrWriter(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, RebuildResponse{
		Status:    "accepted",
		ID:        ticket.ID,
		StartedAt: ticket.StartedAt,
	})
}

// Save handles POST /save: writes every category to its word file.
func (ht *HTTP) Save(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	start := time.Now()
	if err := ht.index.Save(); err != nil {
		ErrWriter(w, fmt.Errorf("failed to save index: %w", err))
		return
	}
	duration := time.Since(start)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "success",
		"statusCode": 200,
		"duration":   duration.String(),
		"durationMs": duration.Milliseconds(),
	})
}

// Stats handles GET /stats.
func (ht *HTTP) Stats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, ht.index.Stats())
}

// Health is a simple health-check endpoint.
func (ht *HTTP) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	start := time.Now()
	duration := time.Since(start)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "ok",
		"duration":   duration.String(),
		"durationMs": duration.Milliseconds(),
	})
}
