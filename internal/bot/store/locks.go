// internal/bot/store/locks.go
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrConversationBusy means another message for the same customer is
// still mid-turn.
var ErrConversationBusy = errors.New("conversation busy")

const operatorLockPrefix = "operator_lock:"

// LockManager tracks which conversations a human operator has taken over.
// Operator locks deliberately carry no TTL: the operator holds the
// customer until an explicit unlock.
type LockManager struct {
	rdb redis.Cmdable
}

func NewLockManager(rdb redis.Cmdable) *LockManager {
	return &LockManager{rdb: rdb}
}

func (l *LockManager) Lock(ctx context.Context, customerID string) error {
	if err := l.rdb.Set(ctx, operatorLockPrefix+customerID, "1", 0).Err(); err != nil {
		return fmt.Errorf("lock conversation %s: %w", customerID, err)
	}
	return nil
}

func (l *LockManager) Unlock(ctx context.Context, customerID string) error {
	if err := l.rdb.Del(ctx, operatorLockPrefix+customerID).Err(); err != nil {
		return fmt.Errorf("unlock conversation %s: %w", customerID, err)
	}
	return nil
}

func (l *LockManager) IsLocked(ctx context.Context, customerID string) (bool, error) {
	n, err := l.rdb.Exists(ctx, operatorLockPrefix+customerID).Result()
	if err != nil {
		return false, fmt.Errorf("check lock %s: %w", customerID, err)
	}
	return n > 0, nil
}

const turnLeasePrefix = "turn_lease:"

// TurnGuard serializes message processing per customer. A local mutex
// orders goroutines inside this process; a Redis lease with a TTL keeps
// replicas from interleaving turns, and expires on its own if a process
// dies mid-turn.
type TurnGuard struct {
	rdb      redis.Cmdable
	leaseTTL time.Duration

	mu    sync.Mutex
	local map[string]*sync.Mutex
}

func NewTurnGuard(rdb redis.Cmdable, leaseTTL time.Duration) *TurnGuard {
	return &TurnGuard{
		rdb:      rdb,
		leaseTTL: leaseTTL,
		local:    make(map[string]*sync.Mutex),
	}
}

func (g *TurnGuard) localMutex(customerID string) *sync.Mutex {
	g.mu.Lock()
	defer g.mu.Unlock()
	m, ok := g.local[customerID]
	if !ok {
		m = &sync.Mutex{}
		g.local[customerID] = m
	}
	return m
}

// Acquire takes the per-customer turn lease and returns a release func.
// It fails fast with ErrConversationBusy when another replica holds the
// lease; within one process it waits on the local mutex instead.
func (g *TurnGuard) Acquire(ctx context.Context, customerID string) (func(), error) {
	m := g.localMutex(customerID)
	m.Lock()

	key := turnLeasePrefix + customerID
	ok, err := g.rdb.SetNX(ctx, key, "1", g.leaseTTL).Result()
	if err != nil {
		m.Unlock()
		return nil, fmt.Errorf("acquire turn lease %s: %w", customerID, err)
	}
	if !ok {
		m.Unlock()
		return nil, ErrConversationBusy
	}

	return func() {
		g.rdb.Del(context.Background(), key)
		m.Unlock()
	}, nil
}
