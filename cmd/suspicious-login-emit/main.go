// Command suspicious-login-emit publishes a single login event. It is meant
// for operators and local testing.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/victorlap/suspicious-login/internal/events"
	"github.com/victorlap/suspicious-login/internal/producer"
	kafkautil "github.com/victorlap/suspicious-login/pkg/kafka"
	"github.com/victorlap/suspicious-login/pkg/shared"
)

type emitOptions struct {
	eventType string
	uid       string
	ip        string
	noIP      bool
	at        int64
}

// buildEvent turns command-line options into an event.
func buildEvent(o emitOptions) (events.Event, error) {
	if o.uid == "" {
		return nil, fmt.Errorf("uid cannot be empty")
	}
	switch o.eventType {
	case events.NameSuspiciousLogin:
		if o.noIP {
			return events.SuspiciousLoginEvent{UID: o.uid}, nil
		}
		return events.NewSuspiciousLoginEvent(o.uid, o.ip), nil
	case events.NameLogin:
		ev := events.LoginEvent{UID: o.uid, IP: o.ip}
		if o.at > 0 {
			ev.At = time.Unix(o.at, 0).UTC()
		} else {
			ev.At = time.Now().UTC()
		}
		return ev, nil
	}
	return nil, fmt.Errorf("unknown event type %q (want %s or %s)", o.eventType, events.NameSuspiciousLogin, events.NameLogin)
}

func main() {
	if err := shared.LoadDotEnv(); err != nil {
		slog.Warn("Ignoring .env file", "error", err)
	}

	var (
		brokers string
		topic   string
		dryRun  bool
		opts    emitOptions
	)
	flag.StringVar(&brokers, "kafka-brokers", shared.GetEnvOrDefault("KAFKA_BROKERS", "localhost:9092"), "Kafka broker addresses (comma-separated)")
	flag.StringVar(&topic, "events-topic", shared.GetEnvOrDefault("EVENTS_TOPIC", kafkautil.DefaultEventsTopic), "Kafka topic carrying login events")
	flag.BoolVar(&dryRun, "dry-run", false, "Log the event instead of publishing it")
	flag.StringVar(&opts.eventType, "type", events.NameSuspiciousLogin, "Event type (suspicious_login or login)")
	flag.StringVar(&opts.uid, "uid", "", "User id")
	flag.StringVar(&opts.ip, "ip", "", "Observed IP address")
	flag.BoolVar(&opts.noIP, "no-ip", false, "Send a suspicious_login event without an IP address")
	flag.Int64Var(&opts.at, "at", 0, "Login time as unix seconds (login events; default now)")
	flag.Parse()

	shared.SetupLogging()

	ev, err := buildEvent(opts)
	if err != nil {
		slog.Error("Invalid event", "error", err)
		os.Exit(1)
	}

	var pub producer.Publisher
	if dryRun {
		pub = producer.NewMock(topic)
	} else {
		p, err := producer.NewProducer(brokers, topic)
		if err != nil {
			slog.Error("Failed to create Kafka producer", "error", err)
			os.Exit(1)
		}
		pub = p
	}
	defer pub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), kafkautil.WriteTimeout+5*time.Second)
	defer cancel()

	id, err := pub.Publish(ctx, ev)
	if err != nil {
		slog.Error("Failed to publish event", "error", err)
		pub.Close()
		os.Exit(1)
	}
	slog.Info("Published event",
		"event_id", id,
		"event_name", ev.EventName(),
		"uid", opts.uid,
		"topic", topic,
	)
}
