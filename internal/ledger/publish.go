package ledger

import (
	"context"
	"errors"
)

// Publishers fans an event out to several publishers, reporting every failure.
type Publishers []EventPublisher

func (p Publishers) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, pub := range p {
		if pub == nil {
			continue
		}
		if err := pub.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
