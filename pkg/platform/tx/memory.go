package tx

import (
	"context"
	"sync"
	"time"

	dErrors "saccoflow/pkg/domain-errors"
)

// numShards spreads record keys over independent mutexes so unrelated records
// never contend. Must be a power of two is not required; modulo is fine here.
const numShards = 128

// defaultTimeout bounds an in-memory unit of work.
const defaultTimeout = 5 * time.Second

type keyCtx struct{}

// WithKey tags the context with the record key the unit of work mutates. The
// MemoryRunner locks the shard for that key, which linearizes concurrent
// reviews of the same record id.
func WithKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, keyCtx{}, key)
}

// MemoryRunner serializes units of work per record key using sharded mutexes.
// It backs the in-memory stores; the SQL runner supersedes it in production.
type MemoryRunner struct {
	shards  [numShards]sync.Mutex
	timeout time.Duration
}

// NewMemoryRunner constructs a MemoryRunner with the default timeout.
func NewMemoryRunner() *MemoryRunner {
	return &MemoryRunner{timeout: defaultTimeout}
}

func (r *MemoryRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "unit of work aborted before start")
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	shard := r.selectShard(ctx)
	r.shards[shard].Lock()
	defer r.shards[shard].Unlock()

	// The lock may have been held by a competing review; re-check.
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "unit of work aborted while waiting for lock")
	}

	return fn(ctx)
}

func (r *MemoryRunner) selectShard(ctx context.Context) int {
	if key, ok := ctx.Value(keyCtx{}).(string); ok && key != "" {
		return int(fnv32(key) % numShards)
	}
	return 0
}

// fnv32 is FNV-1a, chosen for distribution quality over simple multiply-add.
func fnv32(s string) uint32 {
	const (
		offset = 2166136261
		prime  = 16777619
	)
	h := uint32(offset)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= prime
	}
	return h
}
