// Package events provides a pub/sub EventBus built on Watermill.
//
// The production bus uses the PostgreSQL transport from watermill-sql:
//   - ConsumerGroup set: messages are load-balanced across every instance in the
//     group, so only one instance processes each message.
//   - ConsumerGroup empty: every subscriber receives every message (broadcast).
//
// NewInMemoryEventBus uses Watermill's gochannel transport for tests and
// single-process runs.
//
// Handlers should be idempotent. On failure a message is retried up to 3 times
// with exponential backoff and then Nacked.
//
// Trace context and the request frame (txctx) travel in message metadata: they
// are injected on Publish and restored before the handler runs, so log lines
// of a handler carry the requestId of the request that caused the event.
package events

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	watermillsql "github.com/ThreeDotsLabs/watermill-sql/v3/pkg/sql"
	"github.com/ThreeDotsLabs/watermill/components/forwarder"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/ghuser/appkit/pkg/logger"
	"github.com/ghuser/appkit/pkg/txctx"
)

const (
	maxRetries      = 3
	retryBaseDelay  = time.Second
	shutdownTimeout = 30 * time.Second
	forwarderTopic  = "_forwarder_queue" // internal outbox topic for the Forwarder daemon

	// MetadataRequestID carries the publishing request's id.
	MetadataRequestID = "request_id"
)

// ErrNoTransactions is returned by NewTxPublisher on a bus without a database.
var ErrNoTransactions = errors.New("events: transactional publishing needs the SQL transport")

// ErrForwarderStopped is wrapped by StartForwarder when the forwarder exits
// cleanly before it ever reported running.
var ErrForwarderStopped = errors.New("events: forwarder stopped")

// Options configures the SQL-backed EventBus.
type Options struct {
	DatabaseURL string
	// ConsumerGroup load-balances messages between instances; empty means broadcast.
	ConsumerGroup string
	// Forwarder routes publishes through a durable queue drained by
	// StartForwarder, giving at-least-once delivery to the target topic.
	Forwarder bool
}

// EventBus publishes and subscribes to domain events.
type EventBus struct {
	publisher    message.Publisher // either direct publisher or forwarder-decorated
	subscriber   message.Subscriber
	fwd          *forwarder.Forwarder // non-nil only once StartForwarder ran
	db           *sql.DB              // nil for the in-memory bus
	log          logger.Logger
	wlog         watermill.LoggerAdapter
	wg           sync.WaitGroup
	useForwarder bool
}

// NewEventBus opens its own connection to opts.DatabaseURL and initializes a
// Watermill SQL publisher and subscriber. Schema tables are created
// automatically on first use.
func NewEventBus(opts Options, log logger.Logger) (*EventBus, error) {
	db, err := sql.Open("pgx", opts.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("events: open db: %w", err)
	}

	wlog := &slogAdapter{log: log}

	pub, err := watermillsql.NewPublisher(
		db,
		watermillsql.PublisherConfig{
			SchemaAdapter:        watermillsql.DefaultPostgreSQLSchema{},
			AutoInitializeSchema: true,
		},
		wlog,
	)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("events: new publisher: %w", err)
	}

	var publisher message.Publisher = pub
	if opts.Forwarder {
		publisher = forwarder.NewPublisher(pub, forwarder.PublisherConfig{
			ForwarderTopic: forwarderTopic,
		})
	}

	sub, err := watermillsql.NewSubscriber(
		db,
		watermillsql.SubscriberConfig{
			SchemaAdapter:    watermillsql.DefaultPostgreSQLSchema{},
			OffsetsAdapter:   watermillsql.DefaultPostgreSQLOffsetsAdapter{},
			InitializeSchema: true,
			ConsumerGroup:    opts.ConsumerGroup,
		},
		wlog,
	)
	if err != nil {
		_ = pub.Close()
		_ = db.Close()
		return nil, fmt.Errorf("events: new subscriber: %w", err)
	}

	return &EventBus{
		publisher:    publisher,
		subscriber:   sub,
		db:           db,
		log:          log,
		wlog:         wlog,
		useForwarder: opts.Forwarder,
	}, nil
}

// NewInMemoryEventBus returns a bus on Watermill's gochannel transport.
// Every subscriber receives every message; nothing is persisted.
func NewInMemoryEventBus(log logger.Logger) *EventBus {
	wlog := &slogAdapter{log: log}
	ps := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, wlog)
	return &EventBus{
		publisher:  ps,
		subscriber: ps,
		log:        log,
		wlog:       wlog,
	}
}

// StartForwarder starts the background Forwarder daemon that reads messages from
// the internal forwarder queue and publishes them to their target topics.
// Must only be called once on an EventBus created with Options.Forwarder.
//
// ctx bounds only the wait for the forwarder to come up; the forwarder itself
// keeps running until Close. If the forwarder stops before it is running, its
// error is returned.
func (q *EventBus) StartForwarder(ctx context.Context) error {
	if !q.useForwarder {
		return fmt.Errorf("events: StartForwarder called on non-forwarder EventBus")
	}
	if q.fwd != nil {
		return fmt.Errorf("events: forwarder already started")
	}

	fwdSub, err := watermillsql.NewSubscriber(
		q.db,
		watermillsql.SubscriberConfig{
			SchemaAdapter:    watermillsql.DefaultPostgreSQLSchema{},
			OffsetsAdapter:   watermillsql.DefaultPostgreSQLOffsetsAdapter{},
			InitializeSchema: true,
			ConsumerGroup:    "forwarder-consumer",
		},
		q.wlog,
	)
	if err != nil {
		return fmt.Errorf("events: new forwarder subscriber: %w", err)
	}

	targetPub, err := watermillsql.NewPublisher(
		q.db,
		watermillsql.PublisherConfig{
			SchemaAdapter:        watermillsql.DefaultPostgreSQLSchema{},
			AutoInitializeSchema: true,
		},
		q.wlog,
	)
	if err != nil {
		_ = fwdSub.Close()
		return fmt.Errorf("events: new forwarder target publisher: %w", err)
	}

	fwd, err := forwarder.NewForwarder(fwdSub, targetPub, q.wlog, forwarder.Config{
		ForwarderTopic: forwarderTopic,
	})
	if err != nil {
		_ = targetPub.Close()
		_ = fwdSub.Close()
		return fmt.Errorf("events: create forwarder: %w", err)
	}
	q.fwd = fwd

	runCtx := context.WithoutCancel(ctx)
	runErr := make(chan error, 1)
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		q.log.InfoContext(runCtx, "events: forwarder started")
		err := fwd.Run(runCtx)
		if err != nil {
			q.log.ErrorContext(runCtx, "events: forwarder stopped with error", "error", err)
		} else {
			q.log.InfoContext(runCtx, "events: forwarder stopped")
		}
		runErr <- err
	}()

	select {
	case <-fwd.Running():
		return nil
	case err := <-runErr:
		if err == nil {
			err = ErrForwarderStopped
		}
		q.fwd = nil
		_ = targetPub.Close()
		_ = fwdSub.Close()
		return fmt.Errorf("events: forwarder failed to start: %w", err)
	case <-ctx.Done():
		return fmt.Errorf("events: context cancelled waiting for forwarder: %w", ctx.Err())
	}
}

// NewTxPublisher returns a Publisher bound to tx, so an event is stored
// atomically with the business data written in the same transaction.
func (q *EventBus) NewTxPublisher(tx *sql.Tx) (message.Publisher, error) {
	if q.db == nil {
		return nil, ErrNoTransactions
	}
	pub, err := watermillsql.NewPublisher(
		tx,
		watermillsql.PublisherConfig{
			SchemaAdapter:        watermillsql.DefaultPostgreSQLSchema{},
			AutoInitializeSchema: false,
		},
		q.wlog,
	)
	if err != nil {
		return nil, fmt.Errorf("events: new tx publisher: %w", err)
	}
	if q.useForwarder {
		return forwarder.NewPublisher(pub, forwarder.PublisherConfig{
			ForwarderTopic: forwarderTopic,
		}), nil
	}
	return pub, nil
}

// NewMessage builds a message carrying payload plus the trace context and
// request id found in ctx.
func NewMessage(ctx context.Context, payload []byte) *message.Message {
	msg := message.NewMessage(watermill.NewUUID(), payload)
	injectMetadata(ctx, msg)
	return msg
}

// Publish sends one or more messages to the given topic.
func (q *EventBus) Publish(ctx context.Context, topic string, msgs ...*message.Message) error {
	for _, msg := range msgs {
		injectMetadata(ctx, msg)
	}
	if err := q.publisher.Publish(topic, msgs...); err != nil { //nolint:contextcheck
		return fmt.Errorf("events: publish to %s: %w", topic, err)
	}
	return nil
}

// Subscribe registers handler to process messages from topic asynchronously.
//
// The handler context carries the publisher's trace and a txctx frame seeded
// with the publishing request's id and the message id.
//
// Ack/Nack is managed by the bus:
//   - handler returns nil   → Ack
//   - handler returns error → retried up to 3× with exponential backoff (1s, 2s, 4s)
//   - all retries exhausted → Nack + error forwarded to the returned channel
//
// The returned error channel is buffered (capacity 100). Callers must drain it.
// All in-flight handlers complete before Close returns.
func (q *EventBus) Subscribe(ctx context.Context, topic string, handler func(context.Context, *message.Message) error) (<-chan error, error) {
	ch, err := q.subscriber.Subscribe(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("events: subscribe to %s: %w", topic, err)
	}

	errCh := make(chan error, 100)

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		defer close(errCh)

		for msg := range ch {
			msgCtx := extractMetadata(ctx, msg)
			if err := retryWithBackoff(msgCtx, msg, handler, maxRetries, retryBaseDelay, q.log); err != nil {
				msg.Nack()
				select {
				case errCh <- err:
				default:
					q.log.ErrorContext(msgCtx, "events: error channel full, dropping error",
						"error", err, "topic", topic)
				}
			} else {
				msg.Ack()
			}
		}
	}()

	return errCh, nil
}

func injectMetadata(ctx context.Context, msg *message.Message) {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	for k, v := range carrier {
		msg.Metadata.Set(k, v)
	}
	if id, ok := txctx.Get(ctx, txctx.FieldRequestID); ok {
		if s, ok := id.(string); ok && s != "" && msg.Metadata.Get(MetadataRequestID) == "" {
			msg.Metadata.Set(MetadataRequestID, s)
		}
	}
}

func extractMetadata(ctx context.Context, msg *message.Message) context.Context {
	carrier := propagation.MapCarrier{}
	for k, v := range msg.Metadata {
		carrier[k] = v
	}
	ctx = otel.GetTextMapPropagator().Extract(ctx, carrier)

	fields := map[string]any{"messageId": msg.UUID}
	if id := msg.Metadata.Get(MetadataRequestID); id != "" {
		fields[txctx.FieldRequestID] = id
	}
	return txctx.NewFrame(ctx, fields)
}

// retryWithBackoff calls handler up to maxRetries times with exponential backoff.
// Returns nil on first success; returns the last error after all retries exhaust.
func retryWithBackoff(
	ctx context.Context,
	msg *message.Message,
	handler func(context.Context, *message.Message) error,
	maxRetries int,
	baseDelay time.Duration,
	log logger.Logger,
) error {
	delay := baseDelay
	var err error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if err = handler(ctx, msg); err == nil {
			return nil
		}
		if attempt < maxRetries {
			log.WarnContext(ctx, "events: handler failed, retrying",
				"attempt", attempt,
				"max_retries", maxRetries,
				"next_delay", delay,
				"error", err,
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
	}
	return fmt.Errorf("events: handler failed after %d retries: %w", maxRetries, err)
}

// Ping checks the EventBus database connection health. The in-memory bus is
// always healthy.
func (q *EventBus) Ping(ctx context.Context) error {
	if q.db == nil {
		return nil
	}
	if err := q.db.PingContext(ctx); err != nil {
		return fmt.Errorf("events: ping db: %w", err)
	}
	return nil
}

// Close gracefully shuts down the EventBus.
// Shutdown order: stop subscriber → stop forwarder (if running) → wait for
// in-flight handlers (30 s max) → close publisher → close database connection.
func (q *EventBus) Close() error {
	if err := q.subscriber.Close(); err != nil {
		return fmt.Errorf("events: close subscriber: %w", err)
	}

	if q.fwd != nil {
		if err := q.fwd.Close(); err != nil {
			return fmt.Errorf("events: close forwarder: %w", err)
		}
	}

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	select {
	case <-done:
	case <-ctx.Done():
		q.log.Error("events: timed out waiting for in-flight handlers to complete")
	}

	if err := q.publisher.Close(); err != nil {
		return fmt.Errorf("events: close publisher: %w", err)
	}
	if q.db == nil {
		return nil
	}
	return q.db.Close()
}

// slogAdapter bridges logger.Logger to watermill.LoggerAdapter.
type slogAdapter struct{ log logger.Logger }

func (a *slogAdapter) Error(msg string, err error, fields watermill.LogFields) {
	a.log.Error(msg, append(fieldsToArgs(fields), "error", err)...)
}
func (a *slogAdapter) Info(msg string, fields watermill.LogFields) {
	a.log.Info(msg, fieldsToArgs(fields)...)
}
func (a *slogAdapter) Debug(msg string, fields watermill.LogFields) {
	a.log.Debug(msg, fieldsToArgs(fields)...)
}
func (a *slogAdapter) Trace(msg string, fields watermill.LogFields) {
	a.log.Trace(msg, fieldsToArgs(fields)...)
}
func (a *slogAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &slogAdapter{log: a.log.With(fieldsToArgs(fields)...)}
}

func fieldsToArgs(fields watermill.LogFields) []any {
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return args
}
