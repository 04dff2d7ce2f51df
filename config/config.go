// config/config.go
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"timelock/types"
)

// DefaultProgramID 时间锁程序 ID（与原链上程序一致）
const DefaultProgramID = "HFamjVWTqbLba9TL3Yr2cx19y38RHHsFHRRBXk53wAVy"

// Config 主配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Program  ProgramConfig  `mapstructure:"program"`
	Rent     RentConfig     `mapstructure:"rent"`
	Executor ExecutorConfig `mapstructure:"executor"`
	Log      LogConfig      `mapstructure:"log"`
	Faucet   FaucetConfig   `mapstructure:"faucet"`
}

// ServerConfig HTTP / HTTP3 服务配置
type ServerConfig struct {
	ListenAddr         string        `mapstructure:"listen_addr"`          // ":8899"
	HTTPTimeout        time.Duration `mapstructure:"http_timeout"`         // 30 * time.Second
	MaxRequestBodySize int64         `mapstructure:"max_request_body_size"` // 1 << 20

	// HTTP/3（QUIC）配置；证书为空时启动时生成自签名证书
	HTTP3Enabled        bool          `mapstructure:"http3_enabled"`
	HTTP3ListenAddr     string        `mapstructure:"http3_listen_addr"` // ":8900"
	CertFile            string        `mapstructure:"cert_file"`
	KeyFile             string        `mapstructure:"key_file"`
	CertValidityDays    int           `mapstructure:"cert_validity_days"` // 365
	QUICKeepAlivePeriod time.Duration `mapstructure:"quic_keep_alive_period"`
	QUICMaxIdleTimeout  time.Duration `mapstructure:"quic_max_idle_timeout"`

	// 每个 IP 的限流
	RateLimitPerSecond float64 `mapstructure:"rate_limit_per_second"` // 50
	RateLimitBurst     int     `mapstructure:"rate_limit_burst"`      // 100
}

// DatabaseConfig BadgerDB 配置
type DatabaseConfig struct {
	DataDir          string `mapstructure:"data_dir"`  // "./data"
	InMemory         bool   `mapstructure:"in_memory"` // 测试 / devnet
	ValueLogFileSize int64  `mapstructure:"value_log_file_size"`
	SyncWrites       bool   `mapstructure:"sync_writes"`
}

// ProgramConfig 时间锁程序配置
type ProgramConfig struct {
	ProgramID string `mapstructure:"program_id"`
}

// RentConfig 存储最低余额（免租金门槛）参数
type RentConfig struct {
	LamportsPerByteYear uint64 `mapstructure:"lamports_per_byte_year"` // 3480
	ExemptionYears      uint64 `mapstructure:"exemption_years"`        // 2
	// FundReserveOnAllocate 分配账户时由 payer 预存免租金额
	FundReserveOnAllocate bool `mapstructure:"fund_reserve_on_allocate"`
}

// ExecutorConfig 执行器配置
type ExecutorConfig struct {
	LockStripes      int `mapstructure:"lock_stripes"`       // 256
	ReceiptCacheSize int `mapstructure:"receipt_cache_size"` // 4096
}

// LogConfig 日志配置
type LogConfig struct {
	Level    string `mapstructure:"level"`    // "info"
	Encoding string `mapstructure:"encoding"` // "console" / "json"
}

// FaucetConfig 测试网水龙头
type FaucetConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	MaxLamports uint64 `mapstructure:"max_lamports"` // 单次上限
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr:          ":8899",
			HTTPTimeout:         30 * time.Second,
			MaxRequestBodySize:  1 << 20,
			HTTP3Enabled:        false,
			HTTP3ListenAddr:     ":8900",
			CertValidityDays:    365,
			QUICKeepAlivePeriod: 10 * time.Second,
			QUICMaxIdleTimeout:  5 * time.Minute,
			RateLimitPerSecond:  50,
			RateLimitBurst:      100,
		},
		Database: DatabaseConfig{
			DataDir:          "./data",
			InMemory:         false,
			ValueLogFileSize: 64 << 20,
			SyncWrites:       true,
		},
		Program: ProgramConfig{
			ProgramID: DefaultProgramID,
		},
		Rent: RentConfig{
			LamportsPerByteYear:   3480,
			ExemptionYears:        2,
			FundReserveOnAllocate: true,
		},
		Executor: ExecutorConfig{
			LockStripes:      256,
			ReceiptCacheSize: 4096,
		},
		Log: LogConfig{
			Level:    "info",
			Encoding: "console",
		},
		Faucet: FaucetConfig{
			Enabled:     false,
			MaxLamports: 2_000_000_000,
		},
	}
}

// LoadFromFile 从文件加载配置；path 为空时只应用环境变量（TIMELOCK_SERVER_LISTEN_ADDR 等）
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetEnvPrefix("TIMELOCK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindDefaults(v, cfg)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// bindDefaults 让 viper 知道所有 key，AutomaticEnv 才能覆盖到嵌套字段
func bindDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("server.listen_addr", cfg.Server.ListenAddr)
	v.SetDefault("server.http_timeout", cfg.Server.HTTPTimeout)
	v.SetDefault("server.max_request_body_size", cfg.Server.MaxRequestBodySize)
	v.SetDefault("server.http3_enabled", cfg.Server.HTTP3Enabled)
	v.SetDefault("server.http3_listen_addr", cfg.Server.HTTP3ListenAddr)
	v.SetDefault("server.cert_file", cfg.Server.CertFile)
	v.SetDefault("server.key_file", cfg.Server.KeyFile)
	v.SetDefault("server.cert_validity_days", cfg.Server.CertValidityDays)
	v.SetDefault("server.quic_keep_alive_period", cfg.Server.QUICKeepAlivePeriod)
	v.SetDefault("server.quic_max_idle_timeout", cfg.Server.QUICMaxIdleTimeout)
	v.SetDefault("server.rate_limit_per_second", cfg.Server.RateLimitPerSecond)
	v.SetDefault("server.rate_limit_burst", cfg.Server.RateLimitBurst)

	v.SetDefault("database.data_dir", cfg.Database.DataDir)
	v.SetDefault("database.in_memory", cfg.Database.InMemory)
	v.SetDefault("database.value_log_file_size", cfg.Database.ValueLogFileSize)
	v.SetDefault("database.sync_writes", cfg.Database.SyncWrites)

	v.SetDefault("program.program_id", cfg.Program.ProgramID)

	v.SetDefault("rent.lamports_per_byte_year", cfg.Rent.LamportsPerByteYear)
	v.SetDefault("rent.exemption_years", cfg.Rent.ExemptionYears)
	v.SetDefault("rent.fund_reserve_on_allocate", cfg.Rent.FundReserveOnAllocate)

	v.SetDefault("executor.lock_stripes", cfg.Executor.LockStripes)
	v.SetDefault("executor.receipt_cache_size", cfg.Executor.ReceiptCacheSize)

	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.encoding", cfg.Log.Encoding)

	v.SetDefault("faucet.enabled", cfg.Faucet.Enabled)
	v.SetDefault("faucet.max_lamports", cfg.Faucet.MaxLamports)
}

// ProgramAddress 解析后的程序 ID
func (c *Config) ProgramAddress() (types.Address, error) {
	return types.ParseAddress(c.Program.ProgramID)
}

// Validate 验证配置合法性
func (c *Config) Validate() error {
	if _, err := c.ProgramAddress(); err != nil {
		return fmt.Errorf("program.program_id: %w", err)
	}
	if c.Rent.LamportsPerByteYear == 0 {
		return errors.New("rent.lamports_per_byte_year must be positive")
	}
	if c.Executor.LockStripes <= 0 {
		return errors.New("executor.lock_stripes must be positive")
	}
	if !c.Database.InMemory && c.Database.DataDir == "" {
		return errors.New("database.data_dir is required unless database.in_memory is set")
	}
	if c.Server.ListenAddr == "" {
		return errors.New("server.listen_addr is required")
	}
	if c.Server.HTTP3Enabled && c.Server.HTTP3ListenAddr == "" {
		return errors.New("server.http3_listen_addr is required when http3 is enabled")
	}
	if (c.Server.CertFile == "") != (c.Server.KeyFile == "") {
		return errors.New("server.cert_file and server.key_file must be set together")
	}
	return nil
}
