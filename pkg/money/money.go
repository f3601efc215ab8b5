// Package money 提供整数货币单位的舍入原语。
//
// 全系统只有一套舍入规则（half-up）：日收益摊分和到期补发必须共用这里的
// 实现，两条路径各自舍入会让累计误差随时间漂移，最终对不上 expected_return。
package money

import (
	"math"
)

// Round 浮点金额四舍五入到最小货币单位（用于佣金率、手续费率等比例计算）
func Round(v float64) int64 {
	return int64(math.Floor(v + 0.5))
}

// DivRound 整数金额 half-up 均摊
// 调用方保证 parts > 0：durationDays 的合法性在创建投资时校验
func DivRound(total int64, parts int64) int64 {
	return (total + parts/2) / parts
}

// Percentage 按比例取整数金额，如 Percentage(20000, 0.05) = 1000
func Percentage(amount int64, rate float64) int64 {
	return Round(float64(amount) * rate)
}
