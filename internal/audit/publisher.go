package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Publisher buffers events in memory and ships them to Kafka from a
// background worker. Record never blocks: when the buffer is full the event
// is dropped and logged. The booking saga must never fail because a broker
// is slow.
type Publisher struct {
	client *kgo.Client
	topic  string
	inbox  chan Event
	logger *slog.Logger
}

const defaultInboxSize = 256

// NewPublisher connects a franz-go producer to the given brokers.
func NewPublisher(brokers []string, topic string, logger *slog.Logger) (*Publisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, err
	}
	return &Publisher{
		client: client,
		topic:  topic,
		inbox:  make(chan Event, defaultInboxSize),
		logger: logger,
	}, nil
}

// Record queues an event for publishing; it drops rather than blocks.
func (p *Publisher) Record(_ context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	select {
	case p.inbox <- event:
	default:
		p.logger.Warn("audit inbox full, dropping event", "action", event.Action)
	}
}

// Run consumes the inbox until ctx is cancelled. Call from a goroutine.
func (p *Publisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			p.client.Close()
			return ctx.Err()
		case event := <-p.inbox:
			p.publish(ctx, event)
		}
	}
}

func (p *Publisher) publish(ctx context.Context, event Event) {
	value, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("marshal audit event", "error", err)
		return
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(event.BookingID.String()),
		Value: value,
	}
	p.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			p.logger.Error("publish audit event", "error", err, "action", event.Action)
		}
	})
}

// Nop is the Recorder used when no brokers are configured.
type Nop struct{}

func (Nop) Record(context.Context, Event) {}
