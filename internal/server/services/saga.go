package services

import (
	"context"
	"errors"
	"fmt"
)

// saga collects compensating actions for a multi-step write that spans the
// database and external systems.
type saga struct {
	undo []compensation
}

type compensation struct {
	name string
	fn   func(context.Context) error
}

// onFailure registers fn to run if a later step fails.
func (s *saga) onFailure(name string, fn func(context.Context) error) {
	s.undo = append(s.undo, compensation{name, fn})
}

// abort runs the registered compensations in reverse order and returns cause
// joined with any compensation failures. Compensations run even when ctx has
// been cancelled.
func (s *saga) abort(ctx context.Context, cause error) error {
	ctx = context.WithoutCancel(ctx)
	errs := []error{cause}
	for i := len(s.undo) - 1; i >= 0; i-- {
		c := s.undo[i]
		if err := c.fn(ctx); err != nil {
			errs = append(errs, fmt.Errorf("undo %s: %w", c.name, err))
		}
	}
	s.undo = nil
	return errors.Join(errs...)
}
