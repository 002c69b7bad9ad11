package metrics

import (
	"time"

	"github.com/victorlap/suspicious-login/pkg/metrics"
)

// Custom counter names published in the snapshot.
const (
	CounterMailsSent      = "mails_sent"
	CounterMailsFailed    = "mails_failed"
	CounterLoginsRecorded = "logins_recorded"
)

// CollectorAdapter adapts pkg/metrics.Collector to Recorder.
type CollectorAdapter struct {
	collector *metrics.Collector
}

// NewCollectorAdapter wraps collector.
func NewCollectorAdapter(collector *metrics.Collector) *CollectorAdapter {
	return &CollectorAdapter{collector: collector}
}

func (a *CollectorAdapter) RecordReceived() {
	a.collector.RecordReceived()
}

func (a *CollectorAdapter) RecordDispatched(latency time.Duration) {
	a.collector.RecordDispatched(latency)
}

func (a *CollectorAdapter) RecordError() {
	a.collector.RecordError()
}

func (a *CollectorAdapter) RecordSent() {
	a.collector.Increment(CounterMailsSent)
}

func (a *CollectorAdapter) RecordFailed() {
	a.collector.Increment(CounterMailsFailed)
}

func (a *CollectorAdapter) RecordLoginRecorded() {
	a.collector.Increment(CounterLoginsRecorded)
}

var _ Recorder = (*CollectorAdapter)(nil)
