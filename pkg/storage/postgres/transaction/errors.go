package transaction

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// HandleError annotates err with the transaction name and the step that
// failed. The chain is kept intact for errors.Is/As.
func HandleError(operation, step string, err error) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("transaction %s: %s: %w", operation, step, err)
}

// IsRetryable reports serialization, deadlock and connection failures.
func IsRetryable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40P01", "40001", "08000", "08003", "08006", "08001", "08004", "08007", "08P01":
			return true
		}
		return false
	}

	return errors.Is(err, pgx.ErrTxClosed)
}
