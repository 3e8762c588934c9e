package usecase

import "time"

// Clock supplies the current instant. Usecases never call time.Now directly so
// lifecycle classification stays a pure function of its inputs.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock returns a preset instant; test helper.
type FixedClock struct {
	T time.Time
}

func (c FixedClock) Now() time.Time { return c.T }
