// Package metrics defines the recorder used by the worker loop and mailer.
// Disabled metrics use NoOp so callers never nil-check.
package metrics

import "time"

// Recorder records suspicious-login service metrics.
type Recorder interface {
	// RecordReceived counts an event read from the bus.
	RecordReceived()

	// RecordDispatched records an event handed to its listeners.
	RecordDispatched(latency time.Duration)

	// RecordError counts events that could not be decoded or committed.
	RecordError()

	// RecordSent counts delivered notification mails.
	RecordSent()

	// RecordFailed counts notification mails no provider accepted.
	RecordFailed()

	// RecordLoginRecorded counts rows appended to the login-address log.
	RecordLoginRecorded()
}

// NoOp discards all metrics.
type NoOp struct{}

// NewNoOp creates a new no-op metrics recorder.
func NewNoOp() *NoOp {
	return &NoOp{}
}

func (n *NoOp) RecordReceived()                  {}
func (n *NoOp) RecordDispatched(_ time.Duration) {}
func (n *NoOp) RecordError()                     {}
func (n *NoOp) RecordSent()                      {}
func (n *NoOp) RecordFailed()                    {}
func (n *NoOp) RecordLoginRecorded()             {}

var _ Recorder = (*NoOp)(nil)
