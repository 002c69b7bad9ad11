// Package metrics collects service counters and publishes periodic snapshots
// to Redis, where operators (or the admin API) can read them back.
package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// KeyPrefix is the Redis key prefix for service snapshots.
	KeyPrefix = "metrics:"
	// TTL is how long a snapshot stays in Redis if not refreshed.
	TTL = 2 * time.Minute
	// DefaultReportInterval is the default interval for writing snapshots.
	DefaultReportInterval = 30 * time.Second
)

// Snapshot is the JSON document written to Redis.
type Snapshot struct {
	ServiceName string    `json:"service_name"`
	StartedAt   time.Time `json:"started_at"`
	LastUpdated time.Time `json:"last_updated"`
	Status      string    `json:"status"`

	EventsReceived   uint64 `json:"events_received"`
	EventsDispatched uint64 `json:"events_dispatched"`
	ProcessingErrors uint64 `json:"processing_errors"`

	EventsPerSecond      float64 `json:"events_per_second"`
	AvgDispatchLatencyNs float64 `json:"avg_dispatch_latency_ns"`

	Counters map[string]uint64 `json:"counters,omitempty"`
}

// Collector accumulates counters in memory and reports them on an interval.
type Collector struct {
	serviceName    string
	redis          *redis.Client
	startedAt      time.Time
	reportInterval time.Duration

	eventsReceived   atomic.Uint64
	eventsDispatched atomic.Uint64
	processingErrors atomic.Uint64

	totalLatencyNs atomic.Uint64
	latencyCount   atomic.Uint64

	rateMu            sync.Mutex
	lastReportTime    time.Time
	lastDispatchCount uint64

	countersMu sync.RWMutex
	counters   map[string]*atomic.Uint64

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewCollector creates a collector. A nil Redis client keeps counting but
// never reports.
func NewCollector(serviceName string, redisClient *redis.Client) *Collector {
	now := time.Now().UTC()
	return &Collector{
		serviceName:    serviceName,
		redis:          redisClient,
		startedAt:      now,
		reportInterval: DefaultReportInterval,
		lastReportTime: now,
		counters:       make(map[string]*atomic.Uint64),
		stopCh:         make(chan struct{}),
	}
}

// SetReportInterval sets the interval for writing snapshots. Call before Start.
func (c *Collector) SetReportInterval(interval time.Duration) {
	c.reportInterval = interval
}

// Start begins periodic reporting until ctx is done or Stop is called.
func (c *Collector) Start(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(c.reportInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				c.write(context.Background())
				return
			case <-c.stopCh:
				c.write(context.Background())
				return
			case <-ticker.C:
				c.write(ctx)
			}
		}
	}()
}

// Stop stops reporting after a final write. Safe to call more than once.
func (c *Collector) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
	c.wg.Wait()
}

// RecordReceived counts an event read from the transport.
func (c *Collector) RecordReceived() {
	c.eventsReceived.Add(1)
}

// RecordDispatched counts an event handed to its listeners and its latency.
func (c *Collector) RecordDispatched(latency time.Duration) {
	c.eventsDispatched.Add(1)
	c.totalLatencyNs.Add(uint64(latency.Nanoseconds()))
	c.latencyCount.Add(1)
}

// RecordError counts a processing error.
func (c *Collector) RecordError() {
	c.processingErrors.Add(1)
}

// Increment increments a named counter.
func (c *Collector) Increment(name string) {
	c.counter(name).Add(1)
}

func (c *Collector) counter(name string) *atomic.Uint64 {
	c.countersMu.RLock()
	counter, ok := c.counters[name]
	c.countersMu.RUnlock()
	if ok {
		return counter
	}

	c.countersMu.Lock()
	defer c.countersMu.Unlock()
	if counter, ok = c.counters[name]; !ok {
		counter = &atomic.Uint64{}
		c.counters[name] = counter
	}
	return counter
}

// Snapshot returns the current values without writing them anywhere.
func (c *Collector) Snapshot() *Snapshot {
	now := time.Now().UTC()
	dispatched := c.eventsDispatched.Load()

	c.rateMu.Lock()
	var rate float64
	if elapsed := now.Sub(c.lastReportTime).Seconds(); elapsed > 0 {
		rate = float64(dispatched-c.lastDispatchCount) / elapsed
	}
	c.rateMu.Unlock()

	var avgLatencyNs float64
	if n := c.latencyCount.Load(); n > 0 {
		avgLatencyNs = float64(c.totalLatencyNs.Load()) / float64(n)
	}

	c.countersMu.RLock()
	counters := make(map[string]uint64, len(c.counters))
	for name, counter := range c.counters {
		counters[name] = counter.Load()
	}
	c.countersMu.RUnlock()

	return &Snapshot{
		ServiceName:          c.serviceName,
		StartedAt:            c.startedAt,
		LastUpdated:          now,
		Status:               "healthy",
		EventsReceived:       c.eventsReceived.Load(),
		EventsDispatched:     dispatched,
		ProcessingErrors:     c.processingErrors.Load(),
		EventsPerSecond:      rate,
		AvgDispatchLatencyNs: avgLatencyNs,
		Counters:             counters,
	}
}

func (c *Collector) write(ctx context.Context) {
	if c.redis == nil {
		return
	}

	snap := c.Snapshot()

	c.rateMu.Lock()
	c.lastReportTime = snap.LastUpdated
	c.lastDispatchCount = snap.EventsDispatched
	c.rateMu.Unlock()

	data, err := json.Marshal(snap)
	if err != nil {
		slog.Error("Failed to marshal metrics", "service", c.serviceName, "error", err)
		return
	}

	key := KeyPrefix + c.serviceName
	if err := c.redis.Set(ctx, key, data, TTL).Err(); err != nil {
		slog.Error("Failed to write metrics to Redis", "service", c.serviceName, "error", err)
		return
	}

	slog.Debug("Metrics written to Redis", "service", c.serviceName, "key", key)
}

// Reader reads snapshots back from Redis.
type Reader struct {
	redis *redis.Client
}

// NewReader creates a metrics reader.
func NewReader(redisClient *redis.Client) *Reader {
	return &Reader{redis: redisClient}
}

// Get retrieves the snapshot for a service. Snapshots older than TTL are
// reported as unhealthy.
func (r *Reader) Get(ctx context.Context, serviceName string) (*Snapshot, error) {
	data, err := r.redis.Get(ctx, KeyPrefix+serviceName).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("no metrics found for service: %s", serviceName)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read metrics: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metrics: %w", err)
	}

	if time.Since(snap.LastUpdated) > TTL {
		snap.Status = "unhealthy"
	}

	return &snap, nil
}
