package jobs

import (
	"context"
	"errors"

	"reservation-settlement-backend/internal/domain"
	"reservation-settlement-backend/internal/logger"
)

// ExpireStaleNegotiations moves pending negotiation requests past their
// deadline to expired. Each request is re-checked under its own row lock, so a
// manager decision that lands first wins and the request is skipped.
func (jr *JobRunner) ExpireStaleNegotiations(ctx context.Context) Result {
	return jr.runWithRecovery(ctx, JobExpireStaleNegotiations, func(ctx context.Context, res *Result) {
		log := logger.WithJob(res.Job, res.RunID)

		ids, err := jr.services.Negotiation.ListExpiredNegotiationIDs(ctx)
		if err != nil {
			log.Error("Failed to list expired negotiations", "error", err)
			res.Error = err.Error()
			return
		}
		res.Candidates = len(ids)

		for _, id := range ids {
			if ctx.Err() != nil {
				res.Error = ctx.Err().Error()
				return
			}

			expired, err := jr.services.Negotiation.ExpireNegotiation(ctx, id)
			switch {
			case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrNotFound):
				log.Debug("Negotiation no longer expirable", "negotiation_id", id, "reason", err)
				res.Skipped++
			case err != nil:
				log.Error("Failed to expire negotiation", "negotiation_id", id, "error", err)
				res.Failed++
			case expired:
				log.Debug("Expired negotiation", "negotiation_id", id)
				res.Changed++
			default:
				res.Skipped++
			}
		}
	})
}

// FlagOverdueFinancingStages marks financing stages past their deadline as
// overdue on every in-progress tracker.
func (jr *JobRunner) FlagOverdueFinancingStages(ctx context.Context) Result {
	return jr.runWithRecovery(ctx, JobFlagOverdueFinancing, func(ctx context.Context, res *Result) {
		log := logger.WithJob(res.Job, res.RunID)

		ids, err := jr.services.Financing.ListOverdueTrackerIDs(ctx)
		if err != nil {
			log.Error("Failed to list overdue financing trackers", "error", err)
			res.Error = err.Error()
			return
		}
		res.Candidates = len(ids)

		for _, id := range ids {
			if ctx.Err() != nil {
				res.Error = ctx.Err().Error()
				return
			}

			stages, err := jr.services.Financing.FlagOverdue(ctx, id)
			switch {
			case errors.Is(err, domain.ErrNotFound):
				res.Skipped++
			case err != nil:
				log.Error("Failed to flag overdue stages", "tracker_id", id, "error", err)
				res.Failed++
			case len(stages) > 0:
				log.Debug("Flagged overdue stages", "tracker_id", id, "stages", stages)
				res.Changed++
			default:
				res.Skipped++
			}
		}
	})
}
