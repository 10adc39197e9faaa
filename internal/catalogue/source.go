package catalogue

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
)

var ErrSourceEmpty = errors.New("catalogue source is empty")

// Source yields the raw catalogue document.
type Source interface {
	Read(ctx context.Context) ([]byte, error)
	String() string
}

type FileSource struct {
	Path string
}

func (s FileSource) Read(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.Path, err)
	}
	return data, nil
}

func (s FileSource) String() string { return "file:" + s.Path }

// RedisSource reads the catalogue document stored as a single string value.
type RedisSource struct {
	Client redis.Cmdable
	Key    string
}

func (s RedisSource) Read(ctx context.Context) ([]byte, error) {
	data, err := s.Client.Get(ctx, s.Key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("key %q: %w", s.Key, ErrSourceEmpty)
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %q: %w", s.Key, err)
	}
	return data, nil
}

func (s RedisSource) String() string { return "redis:" + s.Key }
