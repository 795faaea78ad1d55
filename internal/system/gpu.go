package system

import (
	"context"
	"sync"
)

// GPULock serializes local inference on the single accelerator. It is a
// one-slot semaphore so waiting can be abandoned when ctx ends.
type GPULock struct {
	slot chan struct{}
}

// NewGPULock returns an unlocked lock.
func NewGPULock() *GPULock {
	return &GPULock{slot: make(chan struct{}, 1)}
}

// Acquire blocks until the lock is held or ctx is done. The returned release
// func is safe to call more than once.
func (g *GPULock) Acquire(ctx context.Context) (func(), error) {
	select {
	case g.slot <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	var once sync.Once
	return func() { once.Do(func() { <-g.slot }) }, nil
}

// TryAcquire takes the lock only if it is free.
func (g *GPULock) TryAcquire() (func(), bool) {
	select {
	case g.slot <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-g.slot }) }, true
	default:
		return nil, false
	}
}

// Lock and Unlock make GPULock a sync.Locker for callers without a context.
func (g *GPULock) Lock()   { g.slot <- struct{}{} }
func (g *GPULock) Unlock() { <-g.slot }
