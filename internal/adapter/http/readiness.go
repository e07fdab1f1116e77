package http

import (
	"context"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

type allReady []sharedobs.ReadinessChecker

// AllReady combines checkers; the first failing checker decides the result.
func AllReady(checkers ...sharedobs.ReadinessChecker) sharedobs.ReadinessChecker {
	return allReady(checkers)
}

func (a allReady) CheckReadiness(ctx context.Context) error {
	for _, c := range a {
		if err := c.CheckReadiness(ctx); err != nil {
			return err
		}
	}
	return nil
}
