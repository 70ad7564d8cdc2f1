package engine

import (
	"context"
)

// Scenario is one stage of a run.
type Scenario interface {
	// Name is the human readable stage title.
	Name() string

	// Run blocks until the scenario is finished or ctx is cancelled.
	Run(ctx context.Context) error
}

// StatusSource contributes extra text to the live status line.
type StatusSource interface {
	StatusLine() string
}
