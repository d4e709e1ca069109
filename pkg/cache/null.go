package cache

import (
	"context"
	"time"
)

var _ Cache = (*NullCache)(nil)

// NullCache discards every write. It backs the "none" cache setting and
// stands in when the file cache directory cannot be created, so weather
// lookups always go to the network.
type NullCache struct{}

// NewNullCache returns a cache that never hits.
func NewNullCache() Cache { return &NullCache{} }

func (*NullCache) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (*NullCache) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (*NullCache) Delete(context.Context, string) error { return nil }

func (*NullCache) Close() error { return nil }
