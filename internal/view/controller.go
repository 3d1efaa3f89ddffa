// Package view ties the roster view together: a controller owning the
// filter/sort/pagination state, the URL sink it re-encodes into, the fetch
// and mutation collaborators, the column-visibility preference store and a
// supervisory render boundary.
package view

import (
	"context"
	"sync"
	"time"

	"github.com/coachpo/rosterview/errs"
	"github.com/coachpo/rosterview/internal/fetch"
	"github.com/coachpo/rosterview/internal/mutate"
	"github.com/coachpo/rosterview/internal/schema"
	"github.com/coachpo/rosterview/internal/viewstate"
	"github.com/coachpo/rosterview/lib/debounce"
)

// DefaultDebounceWindow applies when Options carries no window.
const DefaultDebounceWindow = 300 * time.Millisecond

// Sink receives the canonical query-string after every committed state
// change. Typically wired to a browser-history or address-bar writer.
type Sink func(encoded string)

// Options configures a Controller.
type Options struct {
	// DebounceWindow delays query propagation until typing has settled.
	DebounceWindow time.Duration
	// URLSink receives the re-encoded state. Optional.
	URLSink Sink
	// Prefs persists column visibility. Optional.
	Prefs *PrefStore
	// InitialURL hydrates the state once at construction; afterwards the
	// controller is the single source of truth and sync runs state to URL
	// only.
	InitialURL string
}

// Controller owns the view state and drives fetches and mutations from it.
// All state transitions re-encode to the URL sink; the raw query reaches the
// debounced query, the fingerprint and the URL only after the debounce window
// has elapsed.
type Controller struct {
	mu    sync.Mutex
	state viewstate.State

	orch      *fetch.Orchestrator
	coord     *mutate.Coordinator
	sink      Sink
	prefs     *PrefStore
	debouncer *debounce.Emitter[string]
}

// NewController hydrates state from opts.InitialURL and wires the debounced
// query path.
func NewController(orch *fetch.Orchestrator, coord *mutate.Coordinator, opts Options) (*Controller, error) {
	if orch == nil {
		return nil, errs.New("view/new", errs.CodeInvalid, errs.WithMessage("orchestrator must not be nil"))
	}
	if coord == nil {
		return nil, errs.New("view/new", errs.CodeInvalid, errs.WithMessage("coordinator must not be nil"))
	}
	window := opts.DebounceWindow
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	c := &Controller{
		state: viewstate.Decode(opts.InitialURL),
		orch:  orch,
		coord: coord,
		sink:  opts.URLSink,
		prefs: opts.Prefs,
	}
	c.debouncer = debounce.New(window, c.commitQuery)
	return c, nil
}

// State returns a copy of the current view state.
func (c *Controller) State() viewstate.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Fingerprint returns the cache key for what the view currently shows.
func (c *Controller) Fingerprint() viewstate.Fingerprint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Fingerprint()
}

// SetQuery records a keystroke. The raw value is visible immediately through
// State; the debounced value, the URL and the fetch fingerprint move only
// once typing has settled for the configured window.
func (c *Controller) SetQuery(raw string) {
	c.mu.Lock()
	c.state.RawQuery = raw
	c.mu.Unlock()
	c.debouncer.Set(raw)
}

// FlushQuery commits a pending raw query immediately, e.g. on an explicit
// submit action.
func (c *Controller) FlushQuery() {
	c.debouncer.Flush()
}

// commitQuery runs on the debounce timer goroutine.
func (c *Controller) commitQuery(settled string) {
	c.commit(func(s *viewstate.State) {
		if s.DebouncedQuery == settled {
			return
		}
		s.DebouncedQuery = settled
		s.Page = 0
	})
}

// SetPage moves to a 0-based page.
func (c *Controller) SetPage(page int) {
	c.commit(func(s *viewstate.State) { s.Page = page })
}

// SetPageSize changes the page size and returns to the first page.
func (c *Controller) SetPageSize(size int) {
	c.commit(func(s *viewstate.State) {
		s.PageSize = size
		s.Page = 0
	})
}

// SetStatusFilter narrows the roster by lifecycle state and returns to the
// first page.
func (c *Controller) SetStatusFilter(status viewstate.StatusFilter) {
	c.commit(func(s *viewstate.State) {
		s.Status = status
		s.Page = 0
	})
}

// SetSort applies a sort pair, or clears it when by is empty.
func (c *Controller) SetSort(by string, order viewstate.SortOrder) {
	c.commit(func(s *viewstate.State) {
		s.SortBy = by
		s.SortOrder = order
		s.Page = 0
	})
}

// commit applies one state transition, normalizes, and re-encodes to the URL
// sink. The sink runs outside the lock so it may call back into the
// controller.
func (c *Controller) commit(mutateState func(*viewstate.State)) {
	c.mu.Lock()
	mutateState(&c.state)
	c.state = viewstate.Normalize(c.state)
	encoded := viewstate.Encode(c.state)
	sink := c.sink
	c.mu.Unlock()
	if sink != nil {
		sink(encoded)
	}
}

// Refresh resolves the page the current state points at, then warms the
// adjacent pages.
func (c *Controller) Refresh(ctx context.Context) (schema.CollectionPage, error) {
	c.mu.Lock()
	params := c.state.Params()
	c.mu.Unlock()
	entry, err := c.orch.Resolve(ctx, params)
	if err != nil {
		return schema.CollectionPage{}, err
	}
	c.orch.Prefetch(ctx, params)
	return entry.Payload, nil
}

// Invalidate marks every cached page stale, forcing the next Refresh to hit
// the network.
func (c *Controller) Invalidate(ctx context.Context) {
	c.orch.Invalidate(ctx)
}

// SetUserStatus routes a row-level status change through the mutation
// coordinator, scoped to the fingerprint the view currently shows.
func (c *Controller) SetUserStatus(ctx context.Context, userID string, status schema.UserStatus) (mutate.Result, error) {
	return c.coord.SetStatus(ctx, userID, status, c.Fingerprint())
}

// SetColumnVisible records a column-visibility choice. No-op without a
// preference store.
func (c *Controller) SetColumnVisible(column string, visible bool) error {
	if c.prefs == nil {
		return nil
	}
	return c.prefs.SetVisible(column, visible)
}

// VisibleColumns returns the columns the view should render.
func (c *Controller) VisibleColumns() []string {
	if c.prefs == nil {
		return append([]string(nil), DefaultColumns...)
	}
	return c.prefs.VisibleColumns()
}

// Close cancels any pending debounced query without emitting it.
func (c *Controller) Close() {
	c.debouncer.Close()
}
