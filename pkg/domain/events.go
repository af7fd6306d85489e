package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventEvaluate EventType = "evaluate"
	EventRescale  EventType = "rescale"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
}

// EvaluationEvent summarises one log-likelihood evaluation.
type EvaluationEvent struct {
	EventBase
	LogLikelihood      float64       `json:"log_likelihood"`
	RecomputedBranches int           `json:"recomputed_branches"`
	DirectMatrices     int           `json:"direct_matrices"`
	Operations         int           `json:"operations"`
	Retried            bool          `json:"retried"`
	RecomputedScales   bool          `json:"recomputed_scales"`
	Duration           time.Duration `json:"duration"`
}

// RescaleEvent is emitted when a non-finite likelihood triggers the rescaling controller.
type RescaleEvent struct {
	EventBase
	Scheme  Scheme `json:"scheme"`
	Attempt int    `json:"attempt"`
	Retry   bool   `json:"retry"` // false when the evaluation gives up with -Inf
}

// EvaluationHooks defines callbacks for likelihood observability.
type EvaluationHooks struct {
	OnEvaluate func(context.Context, *EvaluationEvent)
	OnRescale  func(context.Context, *RescaleEvent)
}
