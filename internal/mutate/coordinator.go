// Package mutate executes status changes against single roster records using
// an optimistic-apply, rollback-on-failure, merge-on-success protocol scoped
// to one cache entry.
package mutate

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/coachpo/rosterview/errs"
	"github.com/coachpo/rosterview/internal/observability"
	"github.com/coachpo/rosterview/internal/querycache"
	"github.com/coachpo/rosterview/internal/schema"
	"github.com/coachpo/rosterview/internal/telemetry"
	"github.com/coachpo/rosterview/internal/viewstate"
)

// PatchFunc is the transport collaborator: it issues one status change for
// one record and returns the server-authoritative record on success.
type PatchFunc func(ctx context.Context, userID string, status schema.UserStatus) (schema.User, error)

// State names the terminal state of one mutation attempt.
type State string

const (
	// StateConfirmed means the optimistic edit was confirmed and the server
	// record merged in place.
	StateConfirmed State = "confirmed"
	// StateRolledBack means the network call failed and the prior snapshot
	// was restored.
	StateRolledBack State = "rolled_back"
	// StateInvalidated means no view context was available, so success fell
	// back to a bulk invalidation.
	StateInvalidated State = "invalidated"
)

// Result reports the outcome of one mutation attempt.
type Result struct {
	AttemptID uuid.UUID
	State     State
	// Confirmed carries the server-authoritative record when State is
	// StateConfirmed.
	Confirmed schema.User
}

// snapshot captures the cache entry for one fingerprint at the start of a
// mutation attempt. Consumed at most once, on rollback.
type snapshot struct {
	fingerprint viewstate.Fingerprint
	previous    schema.CollectionPage
	version     uint64
	present     bool
}

// Coordinator routes record mutations through the query cache so the view
// reflects changes with zero perceived latency.
type Coordinator struct {
	cache   *querycache.Store
	patch   PatchFunc
	metrics *telemetry.CoreMetrics
}

// New constructs a coordinator around an explicit cache instance and a
// transport patch function.
func New(cache *querycache.Store, patch PatchFunc, metrics *telemetry.CoreMetrics) (*Coordinator, error) {
	if cache == nil {
		return nil, errs.New("mutate/new", errs.CodeInvalid, errs.WithMessage("cache must not be nil"))
	}
	if patch == nil {
		return nil, errs.New("mutate/new", errs.CodeInvalid, errs.WithMessage("patch func must not be nil"))
	}
	return &Coordinator{cache: cache, patch: patch, metrics: metrics}, nil
}

// SetStatus changes one record's status. With a fingerprint the cached page
// is edited optimistically before the network call; a failed call restores
// the captured snapshot and surfaces the transport error. Without a
// fingerprint, success falls back to a bulk invalidation.
func (c *Coordinator) SetStatus(ctx context.Context, userID string, status schema.UserStatus, fp viewstate.Fingerprint) (Result, error) {
	result := Result{AttemptID: uuid.New()}
	if userID == "" {
		return result, errs.New("mutate/set-status", errs.CodeInvalid, errs.WithMessage("user id required"))
	}
	if !status.Valid() {
		return result, errs.New("mutate/set-status", errs.CodeInvalid, errs.WithMessage("unknown status"))
	}

	if fp.IsZero() {
		return c.setStatusWithoutView(ctx, result, userID, status)
	}

	snap := c.capture(fp)
	appliedVersion, applied := c.applyOptimistic(fp, userID, status)

	serverRecord, err := c.patch(ctx, userID, status)
	if err != nil {
		if applied {
			c.rollback(ctx, snap, appliedVersion)
		}
		c.metrics.RecordMutation(ctx, fp.Sum64(), telemetry.ResultError, string(errs.CodeOf(err)))
		result.State = StateRolledBack
		return result, fmt.Errorf("set status %s=%s: %w", userID, status, err)
	}

	if applied {
		c.merge(ctx, fp, appliedVersion, serverRecord)
	} else {
		observability.Log().Debug("mutation confirmed with no cached page to merge into",
			observability.Field{Key: "fingerprint", Value: fp.Key()},
			observability.Field{Key: "user_id", Value: userID})
	}
	c.metrics.RecordMutation(ctx, fp.Sum64(), telemetry.ResultSuccess, "")
	result.State = StateConfirmed
	result.Confirmed = serverRecord
	return result, nil
}

func (c *Coordinator) setStatusWithoutView(ctx context.Context, result Result, userID string, status schema.UserStatus) (Result, error) {
	serverRecord, err := c.patch(ctx, userID, status)
	if err != nil {
		c.metrics.RecordMutation(ctx, 0, telemetry.ResultError, string(errs.CodeOf(err)))
		return result, fmt.Errorf("set status %s=%s: %w", userID, status, err)
	}
	c.cache.InvalidateAll()
	c.metrics.RecordInvalidation(ctx)
	c.metrics.RecordMutation(ctx, 0, telemetry.ResultSuccess, "")
	result.State = StateInvalidated
	result.Confirmed = serverRecord
	return result, nil
}

// capture records the MutationSnapshot for the fingerprint before any edit.
func (c *Coordinator) capture(fp viewstate.Fingerprint) snapshot {
	entry, ok := c.cache.Get(fp)
	return snapshot{
		fingerprint: fp,
		previous:    entry.Payload,
		version:     entry.Version,
		present:     ok,
	}
}

// applyOptimistic edits the cached page synchronously, before the network
// call is issued. Absent entries stay absent.
func (c *Coordinator) applyOptimistic(fp viewstate.Fingerprint, userID string, status schema.UserStatus) (uint64, bool) {
	entry, ok := c.cache.Update(fp, func(page schema.CollectionPage) schema.CollectionPage {
		return page.WithUserStatus(userID, status)
	})
	if !ok {
		return 0, false
	}
	return entry.Version, true
}

// rollback restores the captured snapshot with a full replace, not a merge.
// A version conflict means another writer touched the entry since the
// optimistic edit; the snapshot is stale and must not clobber their work.
func (c *Coordinator) rollback(ctx context.Context, snap snapshot, appliedVersion uint64) {
	if !snap.present {
		return
	}
	if _, err := c.cache.CompareAndSwap(snap.fingerprint, appliedVersion, snap.previous); err != nil {
		c.metrics.RecordMutation(ctx, snap.fingerprint.Sum64(), telemetry.ResultConflict, string(errs.CodeOf(err)))
		observability.Log().Error("rollback skipped: cache entry moved past captured snapshot",
			observability.Field{Key: "fingerprint", Value: snap.fingerprint.Key()},
			observability.Field{Key: "error", Value: err.Error()})
	}
}

// merge replaces the single matching record with the server-returned
// authoritative one, leaving the rest of the page untouched. No bulk
// invalidation happens on this path: the point is to avoid a visible reload.
func (c *Coordinator) merge(ctx context.Context, fp viewstate.Fingerprint, appliedVersion uint64, serverRecord schema.User) {
	entry, ok := c.cache.Get(fp)
	if !ok {
		return
	}
	if entry.Version != appliedVersion {
		c.metrics.RecordMutation(ctx, fp.Sum64(), telemetry.ResultConflict, string(errs.CodeConflict))
		observability.Log().Debug("merge skipped: cache entry moved past optimistic edit",
			observability.Field{Key: "fingerprint", Value: fp.Key()})
		return
	}
	merged := entry.Payload.ReplaceUser(serverRecord)
	if _, err := c.cache.CompareAndSwap(fp, appliedVersion, merged); err != nil {
		c.metrics.RecordMutation(ctx, fp.Sum64(), telemetry.ResultConflict, string(errs.CodeOf(err)))
		observability.Log().Debug("merge lost the race to a newer writer",
			observability.Field{Key: "fingerprint", Value: fp.Key()})
	}
}

// Deadline bounds how long a single mutation attempt may run when the caller
// supplies no deadline of its own.
const Deadline = 30 * time.Second

// WithDeadline derives a context bounded by Deadline unless one is already set.
func WithDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, Deadline)
}
