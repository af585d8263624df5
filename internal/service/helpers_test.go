package service

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/mlimwengu/CourseHubGo/internal/cache"
	"github.com/mlimwengu/CourseHubGo/internal/event"
	"github.com/mlimwengu/CourseHubGo/internal/repository"
	apperrors "github.com/mlimwengu/CourseHubGo/pkg/errors"
	pkgkafka "github.com/mlimwengu/CourseHubGo/pkg/kafka"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newTestProducer builds an event producer against a broker that does not
// exist; publish failures are logged and never fail the operation under test.
func newTestProducer() *event.Producer {
	logger := newTestLogger()
	cfg := pkgkafka.DefaultProducerConfig([]string{"localhost:9092"})
	return event.NewProducer(pkgkafka.NewProducer(cfg, logger), logger)
}

func newTestInvalidator(mr *miniredis.Miniredis) *cache.Invalidator {
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return cache.NewInvalidator(client, newTestLogger())
}

// memStore is an in-memory repository.DocumentStore with real version
// arithmetic, so service tests exercise the same read-mutate-write contract
// the PostgreSQL store provides.
type memStore struct {
	mu   sync.Mutex
	docs map[string]*repository.Document
}

func newMemStore() *memStore {
	return &memStore{docs: make(map[string]*repository.Document)}
}

func key(collection, id string) string {
	return collection + "/" + id
}

func (m *memStore) Get(ctx context.Context, collection, id string) (*repository.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[key(collection, id)]
	if !ok {
		return nil, apperrors.NotFound(collection, id)
	}
	cp := *doc
	cp.Data = append([]byte(nil), doc.Data...)
	return &cp, nil
}

func (m *memStore) Insert(ctx context.Context, collection, id string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key(collection, id)
	if _, ok := m.docs[k]; ok {
		return apperrors.AlreadyExists(collection, "id", id)
	}
	m.docs[k] = &repository.Document{
		Collection: collection,
		ID:         id,
		Version:    1,
		Data:       append([]byte(nil), data...),
		UpdatedAt:  time.Now().UTC(),
	}
	return nil
}

func (m *memStore) Apply(ctx context.Context, collection, id string, fn repository.Mutate) (*repository.Document, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[key(collection, id)]
	if !ok {
		return nil, false, apperrors.NotFound(collection, id)
	}

	newData, changed, err := fn(doc.Data)
	if err != nil {
		return nil, false, err
	}
	if !changed {
		cp := *doc
		return &cp, false, nil
	}

	doc.Version++
	doc.Data = append([]byte(nil), newData...)
	doc.UpdatedAt = time.Now().UTC()
	cp := *doc
	return &cp, true, nil
}

func (m *memStore) List(ctx context.Context, collection string, page, perPage int) ([]repository.Document, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var docs []repository.Document
	for _, doc := range m.docs {
		if doc.Collection == collection {
			docs = append(docs, *doc)
		}
	}
	return docs, len(docs), nil
}
