package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ============================================================================
// 分布式锁
// ============================================================================
//
// 两个使用场景：
//
// 1. 收益轮次锁（全局一把）：外部调度器可能在上一轮还没跑完时再次触发，
//    两轮并发扫描同一批投资单。轮次锁让后到的触发直接空转返回。
//    正确性并不依赖这把锁——每个投资单的条件更新（last_payout_date 令牌、
//    status 闸门）才是兜底，锁只是避免无谓的空扫。
//
// 2. 用户维度锁：佣金发放、购买套餐按用户加锁，同一用户的资金操作串行，
//    不同用户互不影响。
//
// 加锁用 SET key value NX EX，value 记录持有者；释放用 Lua 脚本先验证
// value 再删除，避免误删别人的锁。
//
// ============================================================================

var ErrLockFailed = errors.New("获取分布式锁失败")

// Locker 锁的抽象，redis 实现用于线上，本地实现用于单测
type Locker interface {
	TryLock(ctx context.Context) (bool, error)
	Lock(ctx context.Context, retryInterval time.Duration, maxRetries int) error
	Unlock(ctx context.Context) error
}

// Factory 按业务场景构造锁
type Factory interface {
	// AccrualPassLock 全局收益轮次锁
	AccrualPassLock(owner string) Locker
	// UserLock 用户维度资金操作锁
	UserLock(userID int64, owner string) Locker
}

// DistributedLock 基于 redis 的锁实现
type DistributedLock struct {
	client     *redis.Client
	key        string
	value      string // 持有者标识，释放时验证
	expiration time.Duration
}

func NewDistributedLock(client *redis.Client, key, value string, expiration time.Duration) *DistributedLock {
	return &DistributedLock{
		client:     client,
		key:        key,
		value:      value,
		expiration: expiration,
	}
}

// TryLock 非阻塞获取，SetNX 保证同一时刻只有一个持有者
func (l *DistributedLock) TryLock(ctx context.Context) (bool, error) {
	success, err := l.client.SetNX(ctx, l.key, l.value, l.expiration).Result()
	if err != nil {
		return false, err
	}
	return success, nil
}

// Lock 阻塞式获取（带重试）
func (l *DistributedLock) Lock(ctx context.Context, retryInterval time.Duration, maxRetries int) error {
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

// Unlock 释放锁，Lua 脚本保证"验证+删除"原子执行
func (l *DistributedLock) Unlock(ctx context.Context) error {
	script := `
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("DEL", KEYS[1])
		else
			return 0
		end
	`
	_, err := l.client.Eval(ctx, script, []string{l.key}, l.value).Result()
	return err
}

// RedisFactory 线上使用的锁工厂
type RedisFactory struct {
	client *redis.Client
}

func NewRedisFactory(client *redis.Client) *RedisFactory {
	return &RedisFactory{client: client}
}

func (f *RedisFactory) AccrualPassLock(owner string) Locker {
	// 过期时间要盖过一轮全量扫描的最坏耗时
	return NewDistributedLock(f.client, "accrual:lock:pass", owner, 10*time.Minute)
}

func (f *RedisFactory) UserLock(userID int64, owner string) Locker {
	key := fmt.Sprintf("ledger:lock:user:%d", userID)
	return NewDistributedLock(f.client, key, owner, 30*time.Second)
}
