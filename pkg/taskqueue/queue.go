package taskqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"city-inspect-be/pkg/events"
	"city-inspect-be/pkg/store"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/patrickmn/go-cache"
)

// Handler executes one task. progress reports completion 0..100 and
// may be called at any point. Returning an error consumes one attempt
// from the retry budget.
type Handler func(ctx context.Context, payload json.RawMessage, progress func(int)) (interface{}, error)

type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks a handler error as structural: it fails the task
// immediately instead of consuming the remaining retry budget.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// EventSink receives task lifecycle events. The NATS publisher
// satisfies it; a nil sink drops events.
type EventSink interface {
	Publish(ctx context.Context, event events.Event) error
}

// Config encapsulates queue parameters.
type Config struct {
	Workers      int
	RetryBudget  int
	RetryBackoff time.Duration
	ResultTTL    time.Duration
	Topic        string
}

// DefaultConfig returns default queue configuration.
func DefaultConfig() Config {
	return Config{
		Workers:      4,
		RetryBudget:  3,
		RetryBackoff: time.Second,
		ResultTTL:    time.Hour,
		Topic:        "inspect.tasks",
	}
}

// Queue is a FIFO task queue backed by a watermill in-process pub/sub
// and a TTL'd result registry. Register all handlers before Start.
type Queue struct {
	pubSub   *gochannel.GoChannel
	registry *cache.Cache
	handlers map[string]Handler
	cancels  map[string]context.CancelFunc
	config   Config
	sink     EventSink
	logger   *log.Logger

	// Guards task mutation and the cancel map; the registry alone only
	// guarantees safety of single operations.
	mu sync.Mutex
}

func NewQueue(config Config, sink EventSink, logger *log.Logger) *Queue {
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 256},
		watermill.NewStdLogger(false, false),
	)
	return &Queue{
		pubSub:   pubSub,
		registry: cache.New(config.ResultTTL, 10*time.Minute),
		handlers: make(map[string]Handler),
		cancels:  make(map[string]context.CancelFunc),
		config:   config,
		sink:     sink,
		logger:   logger,
	}
}

// Register binds a handler to a task kind. Not safe to call after
// Start.
func (q *Queue) Register(kind string, handler Handler) {
	q.handlers[kind] = handler
}

// Start subscribes the worker pool. Workers exit when ctx is cancelled
// or the queue is closed.
func (q *Queue) Start(ctx context.Context) error {
	messages, err := q.pubSub.Subscribe(ctx, q.config.Topic)
	if err != nil {
		return fmt.Errorf("failed to subscribe to task topic: %w", err)
	}

	workers := q.config.Workers
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		go func() {
			for msg := range messages {
				q.process(ctx, msg)
				// Retries are handled inside process; redelivery would
				// break the attempt accounting.
				msg.Ack()
			}
		}()
	}
	return nil
}

// Close shuts down the transport. In-flight tasks finish their current
// attempt.
func (q *Queue) Close() error {
	return q.pubSub.Close()
}

// Enqueue registers a task and publishes it for the worker pool.
// Returns the task id for polling.
func (q *Queue) Enqueue(ctx context.Context, kind string, payload interface{}) (string, error) {
	if _, ok := q.handlers[kind]; !ok {
		return "", fmt.Errorf("no handler registered for task kind %q", kind)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal task payload: %w", err)
	}

	task := &Task{
		ID:         watermill.NewUUID(),
		Kind:       kind,
		Status:     StatusQueued,
		Payload:    raw,
		EnqueuedAt: time.Now(),
	}

	q.mu.Lock()
	q.registry.Set(task.ID, task, cache.DefaultExpiration)
	q.mu.Unlock()

	msg := message.NewMessage(task.ID, raw)
	if err := q.pubSub.Publish(q.config.Topic, msg); err != nil {
		q.mu.Lock()
		q.registry.Delete(task.ID)
		q.mu.Unlock()
		return "", fmt.Errorf("failed to publish task: %w", err)
	}

	q.logger.Printf("[DEBUG] Enqueued task %s kind=%s", task.ID, kind)
	return task.ID, nil
}

// Status returns a snapshot of the task. Unknown or swept-out ids
// yield store.ErrTaskNotFound.
func (q *Queue) Status(id string) (*Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	task, ok := q.lookup(id)
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	return task.clone(), nil
}

// Cancel stops a task. A QUEUED task flips to CANCELLED immediately; a
// RUNNING one has its context cancelled and flips once the handler
// returns. Terminal tasks are left alone.
func (q *Queue) Cancel(ctx context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	task, ok := q.lookup(id)
	if !ok {
		return store.ErrTaskNotFound
	}

	switch task.Status {
	case StatusQueued:
		now := time.Now()
		task.Status = StatusCancelled
		task.FinishedAt = &now
		q.registry.Set(task.ID, task, cache.DefaultExpiration)
		q.emit(ctx, events.NewTaskCancelled(task.ID, task.Kind))
	case StatusRunning:
		if cancel, found := q.cancels[id]; found {
			cancel()
		}
	}
	return nil
}

// Wait polls until the task reaches a terminal status or ctx expires.
// A FAILED task returns the snapshot alongside store.ErrTaskFailed.
func (q *Queue) Wait(ctx context.Context, id string, pollInterval time.Duration) (*Task, error) {
	if pollInterval <= 0 {
		pollInterval = 100 * time.Millisecond
	}
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		task, err := q.Status(id)
		if err != nil {
			return nil, err
		}
		if task.Status.Terminal() {
			if task.Status == StatusFailed {
				return task, fmt.Errorf("%w: %w", store.ErrTaskFailed, task.Err)
			}
			return task, nil
		}

		select {
		case <-ctx.Done():
			return task, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (q *Queue) process(ctx context.Context, msg *message.Message) {
	id := msg.UUID

	q.mu.Lock()
	task, ok := q.lookup(id)
	if !ok || task.Status != StatusQueued {
		// Cancelled while queued, or the registry swept it out.
		q.mu.Unlock()
		return
	}

	handler := q.handlers[task.Kind]
	taskCtx, cancel := context.WithCancel(ctx)
	q.cancels[id] = cancel

	now := time.Now()
	task.Status = StatusRunning
	task.StartedAt = &now
	q.mu.Unlock()

	defer func() {
		cancel()
		q.mu.Lock()
		delete(q.cancels, id)
		q.mu.Unlock()
	}()

	progress := func(percent int) {
		if percent < 0 {
			percent = 0
		}
		if percent > 100 {
			percent = 100
		}
		q.mu.Lock()
		task.Progress = percent
		q.mu.Unlock()
	}

	var (
		result  interface{}
		lastErr error
	)
	for attempt := 1; attempt <= q.budget(); attempt++ {
		q.mu.Lock()
		task.Attempts = attempt
		q.mu.Unlock()

		result, lastErr = handler(taskCtx, task.Payload, progress)
		if lastErr == nil {
			break
		}
		if taskCtx.Err() != nil {
			q.finish(ctx, task, StatusCancelled, nil, taskCtx.Err())
			q.emit(ctx, events.NewTaskCancelled(task.ID, task.Kind))
			return
		}

		var permanent *permanentError
		if errors.As(lastErr, &permanent) {
			lastErr = permanent.err
			break
		}

		q.logger.Printf("[WARN] Task %s attempt %d/%d failed: %v", id, attempt, q.budget(), lastErr)
		if attempt < q.budget() {
			select {
			case <-taskCtx.Done():
			case <-time.After(q.config.RetryBackoff):
			}
		}
	}

	if lastErr != nil {
		q.finish(ctx, task, StatusFailed, nil, lastErr)
		q.emit(ctx, events.NewTaskFailed(task.ID, task.Kind, task.Attempts, lastErr.Error()))
		return
	}

	q.finish(ctx, task, StatusFinished, result, nil)
	q.emit(ctx, events.NewTaskFinished(task.ID, task.Kind, task.Attempts))
}

func (q *Queue) finish(_ context.Context, task *Task, status Status, result interface{}, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now()
	task.Status = status
	task.Result = result
	if status == StatusFinished {
		task.Progress = 100
	}
	task.FinishedAt = &now
	if err != nil {
		task.Error = err.Error()
		task.Err = err
	}
	// Re-set so the result lives a full TTL from completion.
	q.registry.Set(task.ID, task, cache.DefaultExpiration)
}

func (q *Queue) emit(ctx context.Context, event events.Event) {
	if q.sink == nil {
		return
	}
	if err := q.sink.Publish(ctx, event); err != nil {
		q.logger.Printf("[WARN] Failed to publish %s event: %v", event.EventType(), err)
	}
}

func (q *Queue) budget() int {
	if q.config.RetryBudget <= 0 {
		return 1
	}
	return q.config.RetryBudget
}

func (q *Queue) lookup(id string) (*Task, bool) {
	x, found := q.registry.Get(id)
	if !found {
		return nil, false
	}
	return x.(*Task), true
}
