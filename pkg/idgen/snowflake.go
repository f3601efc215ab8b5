package idgen

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// ============================================================================
// 雪花算法 ID 生成器
// ============================================================================
//
// 投资单号、流水号要求全局唯一、趋势递增且不暴露业务量，
// 用 64 位雪花 ID：41位毫秒时间戳 + 10位机器ID + 12位序列号
//
// ============================================================================

const (
	epoch          = int64(1704067200000) // 起始时间戳（2024-01-01 00:00:00 UTC）
	workerIDBits   = 10
	sequenceBits   = 12
	maxWorkerID    = -1 ^ (-1 << workerIDBits)
	maxSequence    = -1 ^ (-1 << sequenceBits)
	workerIDShift  = sequenceBits
	timestampShift = sequenceBits + workerIDBits
)

// Snowflake 雪花算法ID生成器
type Snowflake struct {
	mu        sync.Mutex
	timestamp int64
	workerID  int64
	sequence  int64
}

var (
	defaultGenerator *Snowflake
	once             sync.Once
)

// Init 初始化默认ID生成器
func Init(workerID int64) {
	once.Do(func() {
		if workerID < 0 || workerID > maxWorkerID {
			log.Fatalf("workerID 必须在 0-%d 之间", maxWorkerID)
		}
		defaultGenerator = &Snowflake{workerID: workerID}
	})
}

// NextID 生成下一个ID
func NextID() int64 {
	if defaultGenerator == nil {
		Init(1)
	}
	return defaultGenerator.Generate()
}

// Generate 生成ID
func (s *Snowflake) Generate() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixMilli()

	if now == s.timestamp {
		// 同一毫秒内，序列号递增
		s.sequence = (s.sequence + 1) & maxSequence
		if s.sequence == 0 {
			// 序列号用完，等待下一毫秒
			for now <= s.timestamp {
				now = time.Now().UnixMilli()
			}
		}
	} else {
		s.sequence = 0
	}

	s.timestamp = now

	return ((now - epoch) << timestampShift) |
		(s.workerID << workerIDShift) |
		s.sequence
}

func generateNo(prefix string) string {
	id := NextID()
	timestamp := time.Now().Format("20060102150405")
	return fmt.Sprintf("%s%s%08d", prefix, timestamp, id%100000000)
}

// GenerateInvestmentNo 生成投资单号
// 格式：INV + 年月日时分秒 + 雪花ID后8位，例如 INV20240115143052_12345678
func GenerateInvestmentNo() string {
	return generateNo("INV")
}

// GenerateTransactionNo 生成流水号
func GenerateTransactionNo() string {
	return generateNo("TXN")
}

// GenerateDepositNo 生成充值单号
func GenerateDepositNo() string {
	return generateNo("DEP")
}

// GenerateWithdrawalNo 生成提现单号
func GenerateWithdrawalNo() string {
	return generateNo("WDR")
}

// GenerateReferralCode 生成推荐码
// 格式：REF + 雪花ID的36进制，足够短且全局唯一
func GenerateReferralCode() string {
	return fmt.Sprintf("REF%X", NextID()%0xFFFFFFFF)
}
