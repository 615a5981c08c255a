package store

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/lexatlas/wordmap/pkg/cache"
)

// MongoStore publishes item snapshots from a MongoDB collection.
//
// MongoDB change streams require a replica set, so the store polls instead:
// Run refreshes the collection on a fixed interval and publishes a new
// snapshot only when the data actually changed (revision discipline is kept
// by comparing the fetched items' content hash against the last publish).
type MongoStore struct {
	coll     *mongo.Collection
	interval time.Duration
	logger   *log.Logger

	mu       sync.RWMutex
	snap     Snapshot
	lastHash string

	notifier
}

// MongoStoreOptions configures a MongoStore.
type MongoStoreOptions struct {
	URI        string
	Database   string
	Collection string

	// PollInterval between refreshes. Defaults to 30s.
	PollInterval time.Duration

	// Logger for refresh diagnostics. Defaults to log.Default().
	Logger *log.Logger
}

// NewMongoStore connects to MongoDB and returns a store over the configured
// collection. The connection is verified with a ping so a bad URI fails at
// startup. The returned store publishes a loading snapshot until the first
// successful refresh.
func NewMongoStore(ctx context.Context, opts MongoStoreOptions) (*MongoStore, error) {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(opts.URI))
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	s := &MongoStore{
		coll:     client.Database(opts.Database).Collection(opts.Collection),
		interval: opts.PollInterval,
		logger:   opts.Logger,
		snap:     Snapshot{Loading: true, Revision: 1},
	}
	return s, nil
}

// Snapshot returns the current state.
func (s *MongoStore) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Subscribe registers a change notification.
func (s *MongoStore) Subscribe(fn func()) (cancel func()) {
	return s.subscribe(fn)
}

// Run polls the collection until ctx is cancelled. The first refresh happens
// immediately so consumers are not stuck in the loading state for a full
// interval.
func (s *MongoStore) Run(ctx context.Context) {
	s.refresh(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refresh(ctx)
		}
	}
}

// Refresh forces a single reload outside the polling loop.
func (s *MongoStore) Refresh(ctx context.Context) {
	s.refresh(ctx)
}

// Close disconnects the underlying client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.coll.Database().Client().Disconnect(ctx)
}

func (s *MongoStore) refresh(ctx context.Context) {
	items, err := s.fetch(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Error("refresh items", "err", err)
		s.publishError(err.Error())
		return
	}

	// Content hash gate: identical fetches do not publish a new revision,
	// so pollers do not cause notification storms downstream.
	data, _ := bson.Marshal(bson.M{"items": items})
	hash := cache.Hash(data)

	s.mu.Lock()
	if hash == s.lastHash && s.snap.Err == "" && !s.snap.Loading {
		s.mu.Unlock()
		return
	}
	s.lastHash = hash
	s.snap = Snapshot{
		Items:    items,
		Revision: s.snap.Revision + 1,
	}
	s.mu.Unlock()

	s.logger.Debug("published items", "count", len(items))
	s.notifyAll()
}

func (s *MongoStore) fetch(ctx context.Context) ([]Item, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var items []Item
	err := cache.RetryWithBackoff(fetchCtx, func() error {
		cursor, err := s.coll.Find(fetchCtx, bson.M{})
		if err != nil {
			return cache.Retryable(err)
		}
		defer cursor.Close(fetchCtx)

		items = items[:0]
		if err := cursor.All(fetchCtx, &items); err != nil {
			return cache.Retryable(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *MongoStore) publishError(msg string) {
	s.mu.Lock()
	s.snap = Snapshot{
		Items:    s.snap.Items,
		Err:      msg,
		Revision: s.snap.Revision + 1,
	}
	s.mu.Unlock()
	s.notifyAll()
}

// Ensure MongoStore implements Store.
var _ Store = (*MongoStore)(nil)
