package engine

import (
	"context"
	"errors"
	"time"
)

// Schedule describes when sessions are launched: BatchSize sessions every
// Interval, until Total sessions were launched or Duration has elapsed.
// A zero Total or Duration disables that limit.
type Schedule struct {
	Interval  time.Duration
	BatchSize int
	Total     int
	Duration  time.Duration
}

// Validate checks that the schedule can make progress.
func (s Schedule) Validate() error {
	if s.Interval <= 0 {
		return errors.New("schedule interval must be positive")
	}

	if s.BatchSize <= 0 {
		return errors.New("schedule batch size must be positive")
	}

	if s.Total < 0 || s.Duration < 0 {
		return errors.New("schedule limits must not be negative")
	}

	return nil
}

// Batch is one group of sessions that are launched together.
type Batch struct {
	// Seq is the 0-based batch number.
	Seq int

	// First is the 1-based client number of the first session in the batch.
	First int

	// Size is the number of sessions to launch.
	Size int

	// Elapsed is the time since the pacer started.
	Elapsed time.Duration
}

// Pacer drives a Schedule with a ticker. The first batch is released
// immediately, every further batch on the next tick.
type Pacer struct {
	schedule Schedule
}

// NewPacer creates a new Pacer.
func NewPacer(schedule Schedule) *Pacer {
	return &Pacer{schedule: schedule}
}

// Run calls launch for every batch and returns the number of launched
// sessions. launch must not block for long; it runs on the pacing goroutine.
// Run returns ctx.Err() when the context is cancelled between batches.
func (p *Pacer) Run(ctx context.Context, launch func(Batch)) (int, error) {
	if err := p.schedule.Validate(); err != nil {
		return 0, err
	}

	start := time.Now()

	ticker := time.NewTicker(p.schedule.Interval)
	defer ticker.Stop()

	launched := 0

	for seq := 0; ; seq++ {
		if err := ctx.Err(); err != nil {
			return launched, err
		}

		elapsed := time.Since(start)
		if p.schedule.Duration > 0 && elapsed >= p.schedule.Duration {
			return launched, nil
		}

		size := p.schedule.BatchSize
		if p.schedule.Total > 0 {
			size = min(size, p.schedule.Total-launched)
		}

		launch(Batch{Seq: seq, First: launched + 1, Size: size, Elapsed: elapsed})

		launched += size

		if p.schedule.Total > 0 && launched >= p.schedule.Total {
			return launched, nil
		}

		select {
		case <-ctx.Done():
			return launched, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Partition splits total into consecutive batch sizes of at most size.
func Partition(total, size int) []int {
	if total <= 0 || size <= 0 {
		return nil
	}

	batches := make([]int, 0, (total+size-1)/size)
	for total > 0 {
		n := min(size, total)
		batches = append(batches, n)
		total -= n
	}

	return batches
}
