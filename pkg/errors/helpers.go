package errors

import (
	"context"
)

// CheckContext returns an error if the context is canceled or timed out.
// Used by collaborators that perform I/O (checkpointing); the selection
// core itself never blocks.
func CheckContext(ctx context.Context, operation string) error {
	if err := ctx.Err(); err != nil {
		return Wrap(err, Canceled, operation+" canceled")
	}
	return nil
}
