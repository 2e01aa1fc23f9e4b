// File: internal/precheck/confirm.go
// Brief: The single confirm-or-abort gate.

package precheck

import (
	"context"
	"fmt"

	"github.com/example/kycstack/internal/errs"
)

// Confirmer asks the operator a yes/no question.
type Confirmer interface {
	Confirm(ctx context.Context, question string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, question string) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, question string) (bool, error) {
	return f(ctx, question)
}

// ConfirmOrAbort returns nil when the operator agrees and a PreconditionDeclined error otherwise.
func ConfirmOrAbort(ctx context.Context, c Confirmer, question string) error {
	if c == nil {
		return errs.Invariant("no confirmer configured")
	}
	ok, err := c.Confirm(ctx, question)
	if err != nil {
		return fmt.Errorf("confirm: %w", err)
	}
	if !ok {
		return errs.Declined(question)
	}
	return nil
}
