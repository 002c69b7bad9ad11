package main

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/segmentio/kafka-go"

	"github.com/victorlap/suspicious-login/internal/events"
	"github.com/victorlap/suspicious-login/internal/metrics"
)

const (
	commitTimeout = 5 * time.Second
	readBackoff   = time.Second

	defaultDispatchTimeout = 2 * time.Minute
)

type eventSource interface {
	ReadMessage(ctx context.Context) (events.Event, *kafka.Message, error)
	CommitMessage(ctx context.Context, msg *kafka.Message) error
}

type eventDispatcher interface {
	Dispatch(ctx context.Context, ev events.Event) int
}

// work is a decoded event together with the message to commit after it.
type work struct {
	event events.Event
	msg   *kafka.Message
}

type processorDeps struct {
	source     eventSource
	dispatcher eventDispatcher
	metrics    metrics.Recorder
	timeout    time.Duration // per Dispatch; zero means defaultDispatchTimeout
}

// processEvents reads events and hands them to workers until ctx is done.
// Events of one user always go to the same worker, so they are dispatched in
// the order they were published.
func processEvents(ctx context.Context, deps *processorDeps, workerCount int) error {
	if workerCount <= 0 {
		workerCount = 1
	}
	slog.Info("Starting event processing loop", "workers", workerCount)

	queues := make([]chan work, workerCount)
	var wg sync.WaitGroup
	for i := range queues {
		queues[i] = make(chan work, 16)
		wg.Add(1)
		go runWorker(ctx, deps, queues[i], &wg)
	}

	readMessages(ctx, deps, queues)

	for _, q := range queues {
		close(q)
	}
	wg.Wait()
	slog.Info("Event processing loop stopped")
	return nil
}

func runWorker(ctx context.Context, deps *processorDeps, jobs <-chan work, wg *sync.WaitGroup) {
	defer wg.Done()
	for job := range jobs {
		// Queued events left uncommitted are redelivered after a restart.
		if ctx.Err() != nil {
			continue
		}
		processOne(ctx, deps, job)
	}
}

func readMessages(ctx context.Context, deps *processorDeps, queues []chan work) {
	for {
		ev, msg, err := deps.source.ReadMessage(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil && msg == nil {
			slog.Error("Failed to read event", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(readBackoff):
			}
			continue
		}

		deps.metrics.RecordReceived()
		if err != nil {
			// Undecodable messages are skipped so they cannot block the partition.
			deps.metrics.RecordError()
			slog.Error("Skipping undecodable event",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
			commit(ctx, deps, msg)
			continue
		}

		q := queues[xxhash.Sum64String(events.UIDOf(ev))%uint64(len(queues))]
		select {
		case q <- work{event: ev, msg: msg}:
		case <-ctx.Done():
			return
		}
	}
}

// processOne dispatches one event and commits it. Listeners absorb their own
// failures, so the offset is committed whatever the notification outcome.
// Dispatch is bounded by deps.timeout so a stuck mail server cannot hold the
// worker.
func processOne(ctx context.Context, deps *processorDeps, job work) {
	timeout := deps.timeout
	if timeout <= 0 {
		timeout = defaultDispatchTimeout
	}
	dispatchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	n := deps.dispatcher.Dispatch(dispatchCtx, job.event)
	deps.metrics.RecordDispatched(time.Since(start))

	if n == 0 {
		slog.Debug("No listener for event", "event_name", job.event.EventName())
	}
	commit(ctx, deps, job.msg)
}

func commit(ctx context.Context, deps *processorDeps, msg *kafka.Message) {
	commitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), commitTimeout)
	defer cancel()
	if err := deps.source.CommitMessage(commitCtx, msg); err != nil {
		deps.metrics.RecordError()
		slog.Error("Failed to commit offset",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"error", err,
		)
	}
}
