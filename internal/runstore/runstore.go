// Package runstore persists synthesis reports in Redis.
//
// Key pattern: consolidate:{namespace}:run:{id}
// Index:       consolidate:{namespace}:runs (sorted set scored by creation time)
// Channel:     consolidate:{namespace}:run_events
package runstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dusk-indust/consolidate/internal/export"
	"github.com/dusk-indust/consolidate/internal/synthesis"
)

// ErrNotFound is returned by Get when no run has the given ID.
var ErrNotFound = errors.New("runstore: run not found")

// Summary is a short description of a stored run, published on every save.
type Summary struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	State     synthesis.State `json:"state"`
	Score     float64         `json:"score"`
	CreatedAt time.Time       `json:"createdAt"`
}

// RunKey returns the Redis key for a run report.
func RunKey(namespace, id string) string {
	return fmt.Sprintf("consolidate:%s:run:%s", namespace, id)
}

// IndexKey returns the Redis key of the run index.
func IndexKey(namespace string) string {
	return fmt.Sprintf("consolidate:%s:runs", namespace)
}

// EventsChannel returns the Pub/Sub channel run summaries are published to.
func EventsChannel(namespace string) string {
	return fmt.Sprintf("consolidate:%s:run_events", namespace)
}

// Store saves and loads run reports. It is safe for concurrent use.
type Store struct {
	rdb       *redis.Client
	namespace string
	now       func() time.Time
}

// New creates a Store for the given namespace.
func New(opts *redis.Options, namespace string) (*Store, error) {
	if namespace == "" {
		return nil, fmt.Errorf("runstore: namespace cannot be empty")
	}
	return &Store{
		rdb:       redis.NewClient(opts),
		namespace: namespace,
		now:       time.Now,
	}, nil
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.rdb.Close()
}

// Ping verifies Redis connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// Save stores the report of res under a new run ID and publishes its
// summary. It returns the run ID.
func (s *Store) Save(ctx context.Context, res synthesis.Result) (string, error) {
	id := NewRunID()
	at := s.now().UTC()
	report := export.NewReport(id, res, at)
	data, err := report.JSON()
	if err != nil {
		return "", err
	}

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, RunKey(s.namespace, id), data, 0)
	pipe.ZAdd(ctx, IndexKey(s.namespace), redis.Z{Score: float64(at.UnixMilli()), Member: id})
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("runstore: save %s: %w", id, err)
	}

	event, err := json.Marshal(Summary{
		ID:        id,
		Title:     report.Title,
		State:     report.State,
		Score:     report.Score.Total,
		CreatedAt: at,
	})
	if err != nil {
		return "", fmt.Errorf("runstore: marshal event: %w", err)
	}
	if err := s.rdb.Publish(ctx, EventsChannel(s.namespace), event).Err(); err != nil {
		return "", fmt.Errorf("runstore: publish %s: %w", id, err)
	}
	return id, nil
}

// Get loads the report of a run. It returns ErrNotFound for unknown IDs.
func (s *Store) Get(ctx context.Context, id string) (*export.Report, error) {
	data, err := s.rdb.Get(ctx, RunKey(s.namespace, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("runstore: get %s: %w", id, err)
	}
	return export.ParseReport(data)
}

// List returns the IDs of the most recent runs, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 20
	}
	ids, err := s.rdb.ZRevRange(ctx, IndexKey(s.namespace), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("runstore: list: %w", err)
	}
	return ids, nil
}

// Subscribe returns a subscription to run summaries. The caller closes it.
func (s *Store) Subscribe(ctx context.Context) *redis.PubSub {
	return s.rdb.Subscribe(ctx, EventsChannel(s.namespace))
}
