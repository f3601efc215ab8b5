package lock

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// LocalFactory 进程内锁工厂，单测和单实例部署使用
type LocalFactory struct {
	mu    sync.Mutex
	locks map[string]bool
}

func NewLocalFactory() *LocalFactory {
	return &LocalFactory{locks: make(map[string]bool)}
}

func (f *LocalFactory) AccrualPassLock(owner string) Locker {
	return &localLock{f: f, key: "accrual:lock:pass"}
}

func (f *LocalFactory) UserLock(userID int64, owner string) Locker {
	return &localLock{f: f, key: fmt.Sprintf("ledger:lock:user:%d", userID)}
}

type localLock struct {
	f   *LocalFactory
	key string
}

func (l *localLock) TryLock(ctx context.Context) (bool, error) {
	l.f.mu.Lock()
	defer l.f.mu.Unlock()
	if l.f.locks[l.key] {
		return false, nil
	}
	l.f.locks[l.key] = true
	return true, nil
}

func (l *localLock) Lock(ctx context.Context, retryInterval time.Duration, maxRetries int) error {
	for i := 0; i < maxRetries; i++ {
		success, err := l.TryLock(ctx)
		if err != nil {
			return err
		}
		if success {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
		}
	}
	return ErrLockFailed
}

func (l *localLock) Unlock(ctx context.Context) error {
	l.f.mu.Lock()
	defer l.f.mu.Unlock()
	delete(l.f.locks, l.key)
	return nil
}
