package compliance

import (
	"context"
	"time"

	"github.com/aurora-banking-core/internal/apperr"
	"github.com/aurora-banking-core/internal/domain/shared"
	"github.com/google/uuid"
)

// StatusFetcher returns the current settlement status for an idempotency
// key.
type StatusFetcher func(ctx context.Context, idempotencyKey uuid.UUID) (shared.TransactionStatus, error)

// PollTransactionStatus resolves a just-submitted transaction's settlement
// outcome: it invokes fetch up to maxRetry+1 times, waiting delay between
// attempts. Terminal statuses return immediately. If the budget runs out
// while the authority still reports a non-terminal status, that status is
// returned with no error; the transaction stays unsettled and is resolved
// later by reconciliation. Only a budget spent entirely on fetch failures
// surfaces as a timeout.
func PollTransactionStatus(ctx context.Context, idempotencyKey uuid.UUID, fetch StatusFetcher, maxRetry int, delay time.Duration) (shared.TransactionStatus, error) {
	var lastErr error

	for retry := 0; retry <= maxRetry; retry++ {
		status, err := fetch(ctx, idempotencyKey)
		if err != nil {
			lastErr = err
			if retry >= maxRetry {
				return "", apperr.Wrap(apperr.KindTimeout, "settlement polling exhausted retries", lastErr)
			}
		} else {
			if status.IsTerminal() {
				return status, nil
			}
			if retry >= maxRetry {
				// Unsettled, resolve later via reconciliation
				return status, nil
			}
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", apperr.Wrap(apperr.KindTimeout, "settlement polling cancelled", ctx.Err())
		}
	}

	return "", apperr.New(apperr.KindTimeout, "settlement polling exhausted retries")
}
