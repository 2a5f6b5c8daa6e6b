package engine

import (
	"context"

	"github.com/syncbridge/syncbridge/internal/awsiam"
	"github.com/syncbridge/syncbridge/internal/metrics"
	"github.com/syncbridge/syncbridge/internal/render"
)

// StreamRotating chains one pagination pass per credential set from source,
// followed by a final pass under the connector's own API authorization.
//
// Every rotating pass tolerates an empty first page: a role that sees no data
// is not an error. The final pass tolerates it only when the rotating passes
// produced at least one record, so a run that extracts nothing anywhere still
// fails with the empty-start phase.
func (e *Engine) StreamRotating(ctx context.Context, rctx *render.Context, source awsiam.Source) *Stream {
	it := &rotationIterator{
		e:      e,
		ctx:    ctx,
		rctx:   rctx,
		source: source,
	}
	return &Stream{advance: it.advance}
}

type rotationIterator struct {
	e      *Engine
	ctx    context.Context
	rctx   *render.Context
	source awsiam.Source

	current     *Stream
	passIndex   int
	records     int
	defaultPass bool
}

func (it *rotationIterator) advance() (Item, bool, *Failure) {
	for {
		if it.current == nil {
			set, ok, err := it.source.Next(it.ctx)
			if err != nil {
				return Item{}, false, it.reclassify(newFailure(PhaseEarly, err.Error()))
			}
			if !ok {
				it.defaultPass = true
				it.current = it.e.Stream(it.ctx, it.rctx, Options{
					TolerateEmptyStart: it.records > 0,
				})
			} else {
				metrics.CredentialRotationsTotal.WithLabelValues(it.e.cfg.ID, it.e.cfg.Name).Inc()
				it.e.logger.Info("rotating to next credential set", "role_arn", set.RoleARN, "pass", it.passIndex)
				it.current = it.e.Stream(it.ctx, it.rctx, Options{
					IAMCredentials:     &set,
					TolerateEmptyStart: true,
				})
			}
		}

		if it.current.Next() {
			if !it.defaultPass {
				it.records++
			}
			return it.current.Item(), true, nil
		}
		if err := it.current.Err(); err != nil {
			failure, _ := AsFailure(err)
			if it.defaultPass {
				return Item{}, false, failure
			}
			return Item{}, false, it.reclassify(failure)
		}
		if it.defaultPass {
			return Item{}, false, nil
		}
		it.passIndex++
		it.current = nil
	}
}

// reclassify folds a rotating-pass failure into the early/mid taxonomy based
// on how many passes completed before it.
func (it *rotationIterator) reclassify(failure *Failure) *Failure {
	cause := failure.Cause
	if cause == "" {
		cause = failure.Error()
	}
	if it.passIndex == 0 {
		return newFailure(PhaseEarly, cause)
	}
	return newFailure(PhaseMid, cause)
}
