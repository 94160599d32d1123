// Package dispatch delivers named tasks to handlers through per-queue worker pools.
// Delivery is at-least-once while the dispatcher is open: handlers must tolerate
// redelivery. Tasks still queued at Close are reported as dropped, not run.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNoHandler is returned when a task name has no registered handler.
	ErrNoHandler = errors.New("no handler registered")
	// ErrClosed is returned by Dispatch after Close.
	ErrClosed = errors.New("dispatcher closed")
)

// Task is a unit of asynchronous work.
type Task struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Queue   string          `json:"queue"`
	Payload json.RawMessage `json:"payload"`
	Delay   time.Duration   `json:"delay,omitempty"`
	// Attempt is 1 on first delivery.
	Attempt int `json:"attempt"`
}

// NewTask builds a task with a JSON payload.
func NewTask(name, queue string, payload any) (Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Task{}, fmt.Errorf("marshal task payload: %w", err)
	}
	return Task{
		ID:      uuid.NewString(),
		Name:    name,
		Queue:   queue,
		Payload: data,
	}, nil
}

// Decode unmarshals the payload into v.
func (t Task) Decode(v any) error {
	if err := json.Unmarshal(t.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", t.Name, err)
	}
	return nil
}

// Handler processes one task. A returned error triggers redelivery.
type Handler func(ctx context.Context, task Task) error

// Dispatcher accepts tasks for asynchronous delivery.
type Dispatcher interface {
	Dispatch(ctx context.Context, task Task) error
}
