// Package fetch resolves view parameters against the query cache, issuing at
// most one network call per fingerprint and retrying transient failures.
package fetch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/sourcegraph/conc"
	"golang.org/x/sync/singleflight"

	"github.com/coachpo/rosterview/errs"
	"github.com/coachpo/rosterview/internal/observability"
	"github.com/coachpo/rosterview/internal/querycache"
	"github.com/coachpo/rosterview/internal/schema"
	"github.com/coachpo/rosterview/internal/telemetry"
	"github.com/coachpo/rosterview/internal/viewstate"
)

// Func is the transport collaborator: it performs one network call for the
// given parameters.
type Func func(ctx context.Context, params viewstate.Params) (schema.CollectionPage, error)

const (
	defaultStalenessWindow = 30 * time.Second
	defaultMaxAttempts     = 3
	defaultInitialBackoff  = 500 * time.Millisecond
	defaultMaxBackoff      = 2 * time.Second
)

// Options configure an Orchestrator.
type Options struct {
	// StalenessWindow bounds how long a cached entry is served without
	// revalidation. Zero means the default; negative disables expiry.
	StalenessWindow time.Duration
	// MaxAttempts bounds total network attempts per resolve, including the
	// first. Zero means the default.
	MaxAttempts int
	// InitialBackoff is the wait before the first retry; each subsequent
	// wait doubles up to MaxBackoff.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// Metrics receives orchestrator telemetry. Nil disables recording.
	Metrics *telemetry.CoreMetrics
}

func (o Options) withDefaults() Options {
	if o.StalenessWindow == 0 {
		o.StalenessWindow = defaultStalenessWindow
	}
	if o.StalenessWindow < 0 {
		o.StalenessWindow = 0
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = defaultMaxAttempts
	}
	if o.InitialBackoff <= 0 {
		o.InitialBackoff = defaultInitialBackoff
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = defaultMaxBackoff
	}
	return o
}

// Orchestrator serves cached pages when fresh and otherwise fetches them,
// deduplicating concurrent requests per fingerprint.
type Orchestrator struct {
	cache *querycache.Store
	fetch Func
	opts  Options

	flight singleflight.Group

	mu     sync.Mutex
	issued map[string]uint64
}

// New constructs an orchestrator around an explicit cache instance and a
// transport fetch function.
func New(cache *querycache.Store, fetch Func, opts Options) (*Orchestrator, error) {
	if cache == nil {
		return nil, errs.New("fetch/new", errs.CodeInvalid, errs.WithMessage("cache must not be nil"))
	}
	if fetch == nil {
		return nil, errs.New("fetch/new", errs.CodeInvalid, errs.WithMessage("fetch func must not be nil"))
	}
	o := new(Orchestrator)
	o.cache = cache
	o.fetch = fetch
	o.opts = opts.withDefaults()
	o.issued = make(map[string]uint64)
	return o, nil
}

// Resolve returns the cached entry for the parameters when fresh, otherwise
// performs exactly one network call for the fingerprint, populates the cache
// and returns the stored entry. Concurrent resolves for the same fingerprint
// share one call.
func (o *Orchestrator) Resolve(ctx context.Context, params viewstate.Params) (querycache.Entry, error) {
	fp := params.Fingerprint()
	if entry, ok := o.cache.Get(fp); ok && entry.Fresh(time.Now().UTC(), o.opts.StalenessWindow) {
		o.opts.Metrics.RecordCacheLookup(ctx, fp.Sum64(), telemetry.ResultHit)
		return entry, nil
	} else if ok {
		o.opts.Metrics.RecordCacheLookup(ctx, fp.Sum64(), telemetry.ResultStale)
	} else {
		o.opts.Metrics.RecordCacheLookup(ctx, fp.Sum64(), telemetry.ResultMiss)
	}

	result, err, shared := o.flight.Do(fp.Key(), func() (any, error) {
		issue := o.nextIssue(fp)
		start := time.Now()
		page, err := o.fetchWithRetry(ctx, fp, params)
		if err != nil {
			o.opts.Metrics.RecordFetch(ctx, fp.Sum64(), telemetry.ResultError, 0)
			return querycache.Entry{}, err
		}
		o.opts.Metrics.RecordFetch(ctx, fp.Sum64(), telemetry.ResultSuccess, time.Since(start))
		if ctx.Err() != nil {
			// The caller abandoned the fetch; its result must not land in
			// the cache after the fact.
			return querycache.Entry{}, fmt.Errorf("fetch abandoned: %w", ctx.Err())
		}
		if !o.isLatestIssue(fp, issue) {
			o.opts.Metrics.RecordDiscard(ctx, fp.Sum64())
			observability.Log().Debug("fetch result discarded by sequencing guard",
				observability.Field{Key: "fingerprint", Value: fp.Key()})
			return querycache.Entry{Payload: page, FetchedAt: time.Now().UTC()}, nil
		}
		return o.cache.Set(fp, page), nil
	})
	if err != nil {
		return querycache.Entry{}, err
	}
	if shared {
		o.opts.Metrics.RecordDedup(ctx, fp.Sum64())
	}
	entry, ok := result.(querycache.Entry)
	if !ok {
		return querycache.Entry{}, errs.New("fetch/resolve", errs.CodeInvalid, errs.WithMessage("unexpected flight result"))
	}
	return entry, nil
}

// Invalidate marks every cached fingerprint stale so the next resolve refetches.
func (o *Orchestrator) Invalidate(ctx context.Context) {
	o.cache.InvalidateAll()
	o.opts.Metrics.RecordInvalidation(ctx)
	observability.Log().Info("query cache invalidated")
}

// Prefetch warms the cache for the pages adjacent to params. Results land
// through the same single-flight path as Resolve; failures are logged and
// never surfaced.
func (o *Orchestrator) Prefetch(ctx context.Context, params viewstate.Params) {
	var candidates []viewstate.Params
	if prev := params; prev.Page > 0 {
		prev.Page--
		candidates = append(candidates, prev)
	}
	next := params
	next.Page++
	if o.pageExists(params, next.Page) {
		candidates = append(candidates, next)
	}
	if len(candidates) == 0 {
		return
	}

	var (
		wg      conc.WaitGroup
		errMu   sync.Mutex
		errList []error
	)
	for _, candidate := range candidates {
		wg.Go(func() {
			if _, err := o.Resolve(ctx, candidate); err != nil {
				errMu.Lock()
				errList = append(errList, err)
				errMu.Unlock()
			}
		})
	}
	wg.Wait()
	_ = observability.AggregateErrors("prefetch", errList,
		observability.Field{Key: "fingerprint", Value: params.Fingerprint().Key()})
}

// pageExists reports whether page is within the collection bounds known from
// the cached entry for params. Unknown totals allow the prefetch.
func (o *Orchestrator) pageExists(params viewstate.Params, page int) bool {
	entry, ok := o.cache.Get(params.Fingerprint())
	if !ok || params.PageSize <= 0 {
		return true
	}
	lastPage := (entry.Payload.TotalCount - 1) / params.PageSize
	return page <= lastPage
}

func (o *Orchestrator) fetchWithRetry(ctx context.Context, fp viewstate.Fingerprint, params viewstate.Params) (schema.CollectionPage, error) {
	backoffCfg := backoff.NewExponentialBackOff()
	backoffCfg.InitialInterval = o.opts.InitialBackoff
	backoffCfg.MaxInterval = o.opts.MaxBackoff
	backoffCfg.Multiplier = 2
	backoffCfg.RandomizationFactor = 0

	attempt := 1
	for {
		page, err := o.fetch(ctx, params)
		if err == nil {
			return page, nil
		}
		code := errs.CodeOf(err)
		if !errs.Retryable(code) {
			return schema.CollectionPage{}, err
		}
		if attempt >= o.opts.MaxAttempts {
			return schema.CollectionPage{}, err
		}
		sleep := backoffCfg.NextBackOff()
		o.opts.Metrics.RecordRetry(ctx, fp.Sum64(), attempt)
		observability.Log().Debug("fetch retry scheduled",
			observability.Field{Key: "fingerprint", Value: fp.Key()},
			observability.Field{Key: "attempt", Value: attempt},
			observability.Field{Key: "code", Value: string(code)},
			observability.Field{Key: "sleep", Value: sleep.String()})
		select {
		case <-ctx.Done():
			return schema.CollectionPage{}, errs.New("fetch/retry", errs.CodeTimeout,
				errs.WithMessage("context cancelled during backoff"), errs.WithCause(ctx.Err()))
		case <-time.After(sleep):
		}
		attempt++
	}
}

func (o *Orchestrator) nextIssue(fp viewstate.Fingerprint) uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.issued[fp.Key()]++
	return o.issued[fp.Key()]
}

func (o *Orchestrator) isLatestIssue(fp viewstate.Fingerprint, issue uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.issued[fp.Key()] == issue
}
