package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mg52/autocomplete/internal/pkg/logger"
	"github.com/mg52/autocomplete/internal/pkg/wordfile"
)

// Options configures Open.
type Options struct {
	DataDir       string              // directory holding <category>.json word files
	Categories    []string            // category names, at least one
	Seed          map[string][]string // used for categories without a word file
	CacheSize     int
	MaxWordLength int
	SaveOnClose   bool
	ReadOnly      bool // never create or write word files
	Logger        logger.Logger
}

// Stats summarizes the index.
type Stats struct {
	Categories        map[string]int `json:"categories"`
	DataDir           string         `json:"dataDir"`
	RebuildInProgress bool           `json:"rebuildInProgress"`
	Searches          int64          `json:"searches"`
	AvgSearchMicros   float64        `json:"avgSearchMicros"`
}

// Index owns one Category per configured name plus the rebuild coordinator.
// It is created by Open and released by Close.
type Index struct {
	dataDir     string
	categories  map[string]*Category
	order       []*Category // sorted by name
	coordinator *Coordinator
	log         logger.Logger
	saveOnClose bool
	readOnly    bool

	saveMu sync.Mutex // one writer per word file at a time

	searches    atomic.Int64
	searchNanos atomic.Int64

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// Open builds the categories and loads each one from its word file. A missing
// or unreadable file falls back to the seed list; a seeded category whose
// file was missing is written out right away unless the index is read-only.
func Open(opts Options) (*Index, error) {
	if opts.DataDir == "" {
		return nil, fmt.Errorf("%w: data dir is required", ErrInvalidInput)
	}
	if len(opts.Categories) == 0 {
		return nil, fmt.Errorf("%w: at least one category is required", ErrInvalidInput)
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	if !opts.ReadOnly {
		if err := os.MkdirAll(opts.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", opts.DataDir, err)
		}
	}

	names := slices.Clone(opts.Categories)
	slices.Sort(names)
	ix := &Index{
		dataDir:     opts.DataDir,
		categories:  make(map[string]*Category, len(names)),
		log:         log,
		saveOnClose: opts.SaveOnClose && !opts.ReadOnly,
		readOnly:    opts.ReadOnly,
	}
	for i, name := range names {
		if name == "" {
			return nil, fmt.Errorf("%w: empty category name", ErrInvalidInput)
		}
		if i > 0 && names[i-1] == name {
			return nil, fmt.Errorf("%w: duplicate category %q", ErrInvalidInput, name)
		}
		c := NewCategory(name, CategoryOptions{
			CacheSize:     opts.CacheSize,
			MaxWordLength: opts.MaxWordLength,
		})
		ix.categories[name] = c
		ix.order = append(ix.order, c)
	}
	ix.coordinator = NewCoordinator(ix.order, log)

	for _, c := range ix.order {
		ix.load(c, opts.Seed[c.Name()])
	}
	return ix, nil
}

func (ix *Index) load(c *Category, seed []string) {
	path := ix.path(c.Name())
	words, found, err := wordfile.Load(path)
	switch {
	case err != nil:
		ix.log.Warn("word file unreadable, using seed data", "category", c.Name(), "path", path, "err", err)
		c.AddBatch(seed)
	case !found:
		ix.log.Info("no word file yet, using seed data", "category", c.Name(), "path", path)
		c.AddBatch(seed)
		if !ix.readOnly {
			if err := ix.saveCategory(c); err != nil {
				ix.log.Warn("saving seed data failed", "category", c.Name(), "err", err)
			}
		}
	default:
		c.AddBatch(words)
	}
	ix.log.Info("category loaded", "category", c.Name(), "words", c.Len())
}

func (ix *Index) path(category string) string {
	return filepath.Join(ix.dataDir, category+".json")
}

func (ix *Index) category(name string) (*Category, error) {
	if ix.closed.Load() {
		return nil, ErrClosed
	}
	c, ok := ix.categories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, name)
	}
	return c, nil
}

// Categories returns the category names in swap order.
func (ix *Index) Categories() []string {
	names := make([]string, len(ix.order))
	for i, c := range ix.order {
		names[i] = c.Name()
	}
	return names
}

// Search returns up to limit words of category starting with prefix. The
// order of the results is unspecified.
func (ix *Index) Search(category, prefix string, limit int) ([]string, error) {
	c, err := ix.category(category)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	res := c.Search(prefix, limit)
	took := time.Since(start)

	ix.searches.Add(1)
	ix.searchNanos.Add(int64(took))
	SearchCount.WithLabelValues(category).Inc()
	SearchDuration.WithLabelValues(category).Observe(took.Seconds())
	return res, nil
}

// Exists reports whether word is indexed in category.
func (ix *Index) Exists(category, word string) (bool, error) {
	c, err := ix.category(category)
	if err != nil {
		return false, err
	}
	return c.Contains(word), nil
}

func (ix *Index) Add(category, word string) error {
	c, err := ix.category(category)
	if err != nil {
		return err
	}
	c.Add(word)
	return nil
}

// AddBatch indexes words under one write lock and returns how many were new.
func (ix *Index) AddBatch(category string, words []string) (int, error) {
	c, err := ix.category(category)
	if err != nil {
		return 0, err
	}
	added := c.AddBatch(words)
	ix.log.Debug("batch added", "category", category, "words", len(words), "new", added)
	return added, nil
}

func (ix *Index) Remove(category, word string) (bool, error) {
	c, err := ix.category(category)
	if err != nil {
		return false, err
	}
	return c.Remove(word), nil
}

// TriggerRebuild replaces the categories named in words in the background.
func (ix *Index) TriggerRebuild(words map[string][]string) (*RebuildTicket, error) {
	if ix.closed.Load() {
		return nil, ErrClosed
	}
	ticket, err := ix.coordinator.Trigger(words)
	if errors.Is(err, ErrRebuildInProgress) {
		ix.log.Warn("rebuild rejected", "reason", err)
	}
	return ticket, err
}

func (ix *Index) IsRebuildInProgress() bool {
	return ix.coordinator.InProgress()
}

func (ix *Index) LastRebuild() RebuildStatus {
	return ix.coordinator.Last()
}

// ReloadFromDisk rebuilds every category that has a word file from that
// file. Categories without a file keep their data.
func (ix *Index) ReloadFromDisk() (*RebuildTicket, error) {
	if ix.closed.Load() {
		return nil, ErrClosed
	}
	words := make(map[string][]string, len(ix.order))
	for _, c := range ix.order {
		list, found, err := wordfile.Load(ix.path(c.Name()))
		if err != nil {
			return nil, fmt.Errorf("reload %s: %w", c.Name(), err)
		}
		if found {
			words[c.Name()] = list
		}
	}
	return ix.TriggerRebuild(words)
}

// Save writes every category to its word file. A failing category does not
// stop the others; all failures are returned together.
func (ix *Index) Save() error {
	if ix.closed.Load() {
		return ErrClosed
	}
	if ix.readOnly {
		return ErrReadOnly
	}
	return ix.saveAll()
}

func (ix *Index) saveAll() error {
	var errs []error
	for _, c := range ix.order {
		if err := ix.saveCategory(c); err != nil {
			ix.log.Error("save failed", "category", c.Name(), "err", err)
			errs = append(errs, fmt.Errorf("save %s: %w", c.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (ix *Index) saveCategory(c *Category) error {
	ix.saveMu.Lock()
	defer ix.saveMu.Unlock()

	words := c.Words()
	if err := wordfile.Save(ix.path(c.Name()), words); err != nil {
		return err
	}
	ix.log.Debug("category saved", "category", c.Name(), "words", len(words))
	return nil
}

func (ix *Index) Stats() Stats {
	st := Stats{
		Categories:        make(map[string]int, len(ix.order)),
		DataDir:           ix.dataDir,
		RebuildInProgress: ix.coordinator.InProgress(),
		Searches:          ix.searches.Load(),
	}
	for _, c := range ix.order {
		st.Categories[c.Name()] = c.Len()
	}
	if st.Searches > 0 {
		st.AvgSearchMicros = float64(ix.searchNanos.Load()) / float64(st.Searches) / 1e3
	}
	return st
}

// Clear empties every category.
func (ix *Index) Clear() {
	for _, c := range ix.order {
		c.Clear()
	}
	ix.log.Info("all categories cleared")
}

// Close waits for a running rebuild, saves when configured to, and drops
// every category. Calls after the first return the first result.
func (ix *Index) Close() error {
	ix.closeOnce.Do(func() {
		ix.closed.Store(true)
		ix.coordinator.Close()
		if ix.saveOnClose {
			ix.closeErr = ix.saveAll()
		}
		ix.Clear()
		ix.log.Info("index closed")
	})
	return ix.closeErr
}
