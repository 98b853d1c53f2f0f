package engine

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mg52/autocomplete/internal/pkg/logger"
	"github.com/mg52/autocomplete/internal/pkg/trie"
)

// BuildFunc produces a fresh trie for category c from raw words.
type BuildFunc func(ctx context.Context, c *Category, words []string) (*trie.Trie, error)

func defaultBuild(ctx context.Context, c *Category, words []string) (*trie.Trie, error) {
	return c.build(ctx, words)
}

// RebuildStatus describes the most recent rebuild.
type RebuildStatus struct {
	ID         string         `json:"id,omitempty"`
	StartedAt  time.Time      `json:"startedAt,omitempty"`
	FinishedAt time.Time      `json:"finishedAt,omitempty"`
	InProgress bool           `json:"inProgress"`
	Succeeded  bool           `json:"succeeded"`
	Error      string         `json:"error,omitempty"`
	Words      map[string]int `json:"words,omitempty"` // words indexed per swapped category
}

// RebuildTicket is handed out for every accepted rebuild.
type RebuildTicket struct {
	ID        string
	StartedAt time.Time

	done chan struct{}
	err  error
}

// Done is closed once the rebuild has swapped or been abandoned.
func (t *RebuildTicket) Done() <-chan struct{} {
	return t.done
}

// Err returns the rebuild error once Done is closed, nil before that.
func (t *RebuildTicket) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Wait blocks until the rebuild finishes and returns its error.
func (t *RebuildTicket) Wait() error {
	<-t.done
	return t.err
}

// Coordinator runs at most one background rebuild at a time. A rebuild
// builds new tries with no category lock held and then swaps them in one
// category at a time, in name order. Readers may briefly observe one
// category already swapped while the next one is not.
type Coordinator struct {
	categories []*Category // swap order
	byName     map[string]*Category
	build      BuildFunc
	log        logger.Logger

	busy atomic.Bool

	mu     sync.Mutex
	closed bool
	last   RebuildStatus
	wg     sync.WaitGroup
}

// NewCoordinator takes categories already sorted by name.
func NewCoordinator(categories []*Category, log logger.Logger) *Coordinator {
	byName := make(map[string]*Category, len(categories))
	for _, c := range categories {
		byName[c.Name()] = c
	}
	return &Coordinator{
		categories: categories,
		byName:     byName,
		build:      defaultBuild,
		log:        log.With("component", "rebuild"),
	}
}

// Trigger starts a background rebuild of every category named in words.
// Categories missing from words keep their data. It fails fast with
// ErrRebuildInProgress while another rebuild runs. The word slices must not
// be modified until the ticket is done.
func (rc *Coordinator) Trigger(words map[string][]string) (*RebuildTicket, error) {
	for name := range words {
		if _, ok := rc.byName[name]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, name)
		}
	}

	rc.mu.Lock()
	defer rc.mu.Unlock()

	if rc.closed {
		return nil, ErrClosed
	}
	if !rc.busy.CompareAndSwap(false, true) {
		RebuildResults.WithLabelValues("rejected").Inc()
		return nil, ErrRebuildInProgress
	}

	ticket := &RebuildTicket{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
		done:      make(chan struct{}),
	}
	rc.last = RebuildStatus{ID: ticket.ID, StartedAt: ticket.StartedAt, InProgress: true}
	RebuildInProgress.Set(1)

	rc.wg.Add(1)
	go rc.run(ticket, maps.Clone(words))
	return ticket, nil
}

func (rc *Coordinator) run(ticket *RebuildTicket, words map[string][]string) {
	defer rc.wg.Done()
	log := rc.log.With("id", ticket.ID)
	log.Info("rebuild started", "categories", len(words))

	counts := make(map[string]int, len(words))
	built, err := rc.buildAll(words)
	if err != nil {
		log.Error("rebuild abandoned, live data untouched", "err", err)
		RebuildResults.WithLabelValues("failed").Inc()
	} else {
		for i, c := range rc.categories {
			if built[i] == nil {
				continue
			}
			c.SwapWith(built[i])
			counts[c.Name()] = built[i].Len()
		}
		log.Info("rebuild swapped", "words", counts, "took", time.Since(ticket.StartedAt))
		RebuildResults.WithLabelValues("succeeded").Inc()
	}

	finished := time.Now()
	RebuildDuration.Observe(finished.Sub(ticket.StartedAt).Seconds())

	status := RebuildStatus{
		ID:         ticket.ID,
		StartedAt:  ticket.StartedAt,
		FinishedAt: finished,
		Succeeded:  err == nil,
	}
	if err != nil {
		status.Error = err.Error()
	} else {
		status.Words = counts
	}

	rc.mu.Lock()
	rc.last = status
	rc.mu.Unlock()

	ticket.err = err
	RebuildInProgress.Set(0)
	rc.busy.Store(false)
	close(ticket.done)
}

// buildAll builds one trie per requested category in parallel. The result is
// indexed like rc.categories; entries for categories not requested are nil.
func (rc *Coordinator) buildAll(words map[string][]string) ([]*trie.Trie, error) {
	built := make([]*trie.Trie, len(rc.categories))
	g, ctx := errgroup.WithContext(context.Background())
	for i, c := range rc.categories {
		list, ok := words[c.Name()]
		if !ok {
			continue
		}
		i, c := i, c
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("build %s: panic: %v", c.Name(), r)
				}
			}()
			t, err := rc.build(ctx, c, list)
			if err != nil {
				return fmt.Errorf("build %s: %w", c.Name(), err)
			}
			built[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return built, nil
}

// InProgress reports whether a rebuild is running.
func (rc *Coordinator) InProgress() bool {
	return rc.busy.Load()
}

// Last returns the status of the running or most recent rebuild.
func (rc *Coordinator) Last() RebuildStatus {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	st := rc.last
	st.Words = maps.Clone(st.Words)
	return st
}

// Close rejects further triggers and waits for a running rebuild to finish.
func (rc *Coordinator) Close() {
	rc.mu.Lock()
	rc.closed = true
	rc.mu.Unlock()
	rc.wg.Wait()
}
