package service

import (
	"context"
	"sync"
	"time"
)

// Pacer spaces consecutive upstream calls by a fixed delay.
// The first call never waits.
type Pacer struct {
	delay time.Duration

	mu   sync.Mutex
	last time.Time
}

// NewPacer creates a pacer. A non-positive delay disables pacing.
func NewPacer(delay time.Duration) *Pacer {
	return &Pacer{delay: delay}
}

// Wait blocks until the delay has passed since the previous Wait returned.
func (p *Pacer) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.delay > 0 && !p.last.IsZero() {
		if remaining := p.delay - time.Since(p.last); remaining > 0 {
			timer := time.NewTimer(remaining)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	p.last = time.Now()
	return nil
}
