package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config 全局配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	MySQL    MySQLConfig    `mapstructure:"mysql"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Business BusinessConfig `mapstructure:"business"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers []string         `mapstructure:"brokers"`
	Topic   KafkaTopicConfig `mapstructure:"topic"`
}

type KafkaTopicConfig struct {
	PayoutResult     string `mapstructure:"payout_result"`
	CommissionResult string `mapstructure:"commission_result"`
}

// BusinessConfig 业务参数
type BusinessConfig struct {
	// CommissionRate 首充推荐佣金比例（参考部署为 0.05）
	CommissionRate float64 `mapstructure:"commission_rate"`
	// AccrualIntervalMinutes 收益轮询周期；引擎对更频繁的触发也安全
	AccrualIntervalMinutes int `mapstructure:"accrual_interval_minutes"`
	// AccrualBatchSize 每批扫描的 active 投资单数量
	AccrualBatchSize int `mapstructure:"accrual_batch_size"`
	// WithdrawFeeRate 提现手续费率，WithdrawMinFee 为手续费下限
	WithdrawFeeRate float64 `mapstructure:"withdraw_fee_rate"`
	WithdrawMinFee  int64   `mapstructure:"withdraw_min_fee"`
	MinWithdrawal   int64   `mapstructure:"min_withdrawal"`
	// SignupBonus 新用户注册赠金；ReferrerSignupBonus 推荐人注册奖励
	SignupBonus         int64 `mapstructure:"signup_bonus"`
	ReferrerSignupBonus int64 `mapstructure:"referrer_signup_bonus"`
	MaxRetryCount       int   `mapstructure:"max_retry_count"`
}

// AccrualInterval 轮询周期，未配置时默认一小时
func (b *BusinessConfig) AccrualInterval() time.Duration {
	if b.AccrualIntervalMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(b.AccrualIntervalMinutes) * time.Minute
}

var GlobalConfig *Config

// LoadConfig 加载配置文件
func LoadConfig(configPath string) *Config {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("读取配置文件失败: %v", err)
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		log.Fatalf("解析配置文件失败: %v", err)
	}

	GlobalConfig = config
	return config
}
