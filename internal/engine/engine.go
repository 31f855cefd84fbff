// Package engine converges a batch of resource intents toward their desired
// state, one terminal outcome per intent.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/clouddesk/tenantctl/internal/driver"
	"github.com/clouddesk/tenantctl/internal/intent"
	"github.com/clouddesk/tenantctl/internal/logger"
	"github.com/clouddesk/tenantctl/internal/model"
	"github.com/clouddesk/tenantctl/internal/report"
)

// Options configures a reconciliation engine.
type Options struct {
	Drivers *driver.Set
	Poll    PollPolicy
	// DryRun reports would-create/would-remove after the existence check and
	// never mutates.
	DryRun bool
	// Parallel caps in-flight intents. Values below 2 select the sequential
	// path; remote directory APIs are rate-limited per tenant, so the default
	// is sequential.
	Parallel int
	Logger   *logger.Logger
}

// Engine reconciles intents against the drivers it was built with. It holds
// no state between runs.
type Engine struct {
	drivers  *driver.Set
	poll     PollPolicy
	dryRun   bool
	parallel int
	log      *logger.Logger
}

// New validates options and builds an engine.
func New(opts Options) (*Engine, error) {
	if opts.Drivers == nil {
		return nil, fmt.Errorf("engine: driver set is nil")
	}

	return &Engine{
		drivers:  opts.Drivers,
		poll:     opts.Poll.normalized(),
		dryRun:   opts.DryRun,
		parallel: opts.Parallel,
		log:      opts.Logger,
	}, nil
}

// Reconcile processes intents in input order and returns one outcome per
// intent. Per-intent failures are folded into their outcomes and never abort
// the batch; the returned error is reserved for defects in the call itself.
//
// Cancelling ctx stops the run: the in-flight intent and all remaining
// intents are recorded as Cancelled, preserving the one-outcome-per-intent
// invariant.
func (e *Engine) Reconcile(ctx context.Context, intents []intent.Intent) (*model.RunResult, error) {
	if ctx == nil {
		return nil, fmt.Errorf("engine: context is nil")
	}

	start := time.Now()

	var outcomes []model.Outcome
	if e.parallel > 1 {
		outcomes = e.reconcileParallel(ctx, intents)
	} else {
		outcomes = e.reconcileSequential(ctx, intents)
	}

	result := report.Aggregate(outcomes)
	result.Duration = time.Since(start)
	return result, nil
}

func (e *Engine) reconcileSequential(ctx context.Context, intents []intent.Intent) []model.Outcome {
	outcomes := make([]model.Outcome, 0, len(intents))
	for _, in := range intents {
		outcomes = append(outcomes, e.reconcileOne(ctx, in))
	}
	return outcomes
}

// reconcileParallel fans intents out over a bounded worker pool. Outcomes
// land at their intent's input position, so ordering is preserved. One
// intent's failure never cancels the others.
func (e *Engine) reconcileParallel(ctx context.Context, intents []intent.Intent) []model.Outcome {
	outcomes := make([]model.Outcome, len(intents))
	pool := make(chan struct{}, e.parallel)
	var wg sync.WaitGroup

	for i := range intents {
		wg.Add(1)
		go func(i int, in intent.Intent) {
			defer wg.Done()
			pool <- struct{}{}
			defer func() { <-pool }()
			outcomes[i] = e.reconcileOne(ctx, in)
		}(i, intents[i])
	}

	wg.Wait()
	return outcomes
}

func (e *Engine) reconcileOne(ctx context.Context, in intent.Intent) model.Outcome {
	start := time.Now()
	log := e.log.WithResource(string(in.Type), in.Key)

	outcome := e.converge(ctx, in, log)
	outcome.Key = in.Key
	outcome.Type = string(in.Type)
	outcome.Duration = time.Since(start)
	outcome.Timestamp = time.Now()

	if outcome.Error != nil {
		log.Error(outcome.Error, string(outcome.Status))
	} else {
		log.Debug(string(outcome.Status))
	}

	return outcome
}

func (e *Engine) converge(ctx context.Context, in intent.Intent, log *logger.Logger) model.Outcome {
	if err := ctx.Err(); err != nil {
		return model.Outcome{Status: model.StatusCancelled, Detail: "run cancelled", Error: err}
	}

	d, ok := e.drivers.Get(in.Type)
	if !ok {
		return model.Outcome{
			Status: model.StatusFailed,
			Detail: fmt.Sprintf("no driver registered for type %s", in.Type),
			Error:  driver.NewError(driver.KindPermanent, "lookup", in.Key, fmt.Errorf("no driver for %s", in.Type)),
		}
	}

	exists, err := d.Exists(ctx, in.Key)
	if err != nil {
		return failureOutcome(ctx, "existence check failed", err)
	}

	if in.DesiredState == intent.StateAbsent {
		return e.convergeAbsent(ctx, d, in, exists)
	}
	return e.convergePresent(ctx, d, in, exists, log)
}

func (e *Engine) convergePresent(ctx context.Context, d driver.Driver, in intent.Intent, exists bool, log *logger.Logger) model.Outcome {
	if exists {
		return model.Outcome{Status: model.StatusAlreadyExists, Detail: "resource already present"}
	}

	if e.dryRun {
		return model.Outcome{Status: model.StatusWouldCreate, Detail: "dry-run: create skipped"}
	}

	handle, err := d.Create(ctx, in)
	if err != nil {
		// The existence check raced a concurrent creator; the resource is
		// there, which is what the intent wanted.
		if driver.IsDuplicate(err) {
			return model.Outcome{Status: model.StatusAlreadyExists, Detail: "create reported an existing resource"}
		}
		return failureOutcome(ctx, "create failed", err)
	}

	if in.Type.EventuallyConsistent() {
		log.Debug("awaiting visibility")
		visible, err := WaitUntil(ctx, e.poll, func(ctx context.Context) (bool, error) {
			return d.Exists(ctx, in.Key)
		})
		if err != nil {
			return failureOutcome(ctx, "verification failed", err)
		}
		if !visible {
			// The create call succeeded, so the resource may still exist
			// remotely. Recorded as a distinct detail rather than guessed at;
			// callers needing certainty must re-query out of band.
			return model.Outcome{
				Status: model.StatusFailed,
				Detail: fmt.Sprintf("not verified after %d attempts", e.poll.MaxAttempts),
				Error:  driver.NewError(driver.KindTransient, "verify", in.Key, fmt.Errorf("resource not visible")),
			}
		}
	}

	if len(in.Members) > 0 {
		if outcome, failed := e.addMembers(ctx, d, in, handle); failed {
			return outcome
		}
	}

	return model.Outcome{Status: model.StatusCreated, Detail: "resource created"}
}

func (e *Engine) addMembers(ctx context.Context, d driver.Driver, in intent.Intent, handle driver.Handle) (model.Outcome, bool) {
	adder, ok := d.(driver.MemberAdder)
	if !ok {
		return model.Outcome{
			Status: model.StatusFailed,
			Detail: fmt.Sprintf("created, but driver for %s does not support members", in.Type),
			Error:  driver.NewError(driver.KindPermanent, "add_member", in.Key, fmt.Errorf("members not supported")),
		}, true
	}

	for _, member := range in.Members {
		if err := adder.AddMember(ctx, handle, member); err != nil {
			outcome := failureOutcome(ctx, fmt.Sprintf("created, but adding member %s failed", member), err)
			return outcome, true
		}
	}
	return model.Outcome{}, false
}

func (e *Engine) convergeAbsent(ctx context.Context, d driver.Driver, in intent.Intent, exists bool) model.Outcome {
	if !exists {
		return model.Outcome{Status: model.StatusNotFound, Detail: "resource already absent"}
	}

	if e.dryRun {
		return model.Outcome{Status: model.StatusWouldRemove, Detail: "dry-run: remove skipped"}
	}

	if err := d.Remove(ctx, in.Key); err != nil {
		// Raced an external remover; the end state matches the intent.
		if driver.IsNotFound(err) {
			return model.Outcome{Status: model.StatusNotFound, Detail: "resource removed by another actor"}
		}
		return failureOutcome(ctx, "remove failed", err)
	}

	return model.Outcome{Status: model.StatusRemoved, Detail: "resource removed"}
}

func failureOutcome(ctx context.Context, detail string, err error) model.Outcome {
	if ctx.Err() != nil {
		return model.Outcome{Status: model.StatusCancelled, Detail: "run cancelled: " + detail, Error: err}
	}
	return model.Outcome{Status: model.StatusFailed, Detail: detail + ": " + err.Error(), Error: err}
}
