package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dgraph-io/ristretto"
)

// MemoryConfig configures the in-process ristretto cache.
type MemoryConfig struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
	Metrics     bool
}

// DefaultMemoryConfig is sized for a single-node deployment.
var DefaultMemoryConfig = MemoryConfig{
	NumCounters: 100000,
	MaxCost:     256 << 20, // 256MB
	BufferItems: 64,
}

// Memory is a ristretto-backed Provider.
type Memory struct {
	client *ristretto.Cache
}

// NewMemory creates a new in-process cache provider.
func NewMemory(cfg MemoryConfig) (*Memory, error) {
	client, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}

	return &Memory{client: client}, nil
}

func (m *Memory) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	cost := int64(1)
	if data, ok := value.([]byte); ok {
		cost = int64(len(data))
	}

	if m.client.SetWithTTL(key, value, cost, expiration) {
		// Ristretto applies writes asynchronously; wait so a Set is
		// visible to the Get that follows it.
		m.client.Wait()
	}
	return nil
}

func (m *Memory) Get(ctx context.Context, key string, dest interface{}) error {
	value, found := m.client.Get(key)
	if !found {
		return ErrCacheMiss
	}

	switch dest := dest.(type) {
	case *[]byte:
		if data, ok := value.([]byte); ok {
			*dest = data
			return nil
		}
		data, err := json.Marshal(value)
		if err != nil {
			return ErrCacheMiss
		}
		*dest = data
	default:
		var data []byte
		if byteData, ok := value.([]byte); ok {
			data = byteData
		} else {
			jsonData, err := json.Marshal(value)
			if err != nil {
				return ErrCacheMiss
			}
			data = jsonData
		}
		if err := json.Unmarshal(data, dest); err != nil {
			return ErrCacheMiss
		}
	}

	return nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	m.client.Del(key)
	return nil
}

func (m *Memory) Exists(ctx context.Context, key string) (bool, error) {
	_, found := m.client.Get(key)
	return found, nil
}

func (m *Memory) Close() error {
	m.client.Close()
	return nil
}

func (m *Memory) Name() string {
	return "memory"
}
