package vm

import (
	"fmt"

	"timelock/config"
	"timelock/ledger"
)

// BankOptionsFromConfig 账本参数
func BankOptionsFromConfig(cfg *config.Config) []ledger.Option {
	return []ledger.Option{
		ledger.WithRent(ledger.Rent{
			LamportsPerByteYear: cfg.Rent.LamportsPerByteYear,
			ExemptionYears:      cfg.Rent.ExemptionYears,
		}),
		ledger.WithReserveFunding(cfg.Rent.FundReserveOnAllocate),
	}
}

// RegisterDefaultHandlers 注册所有默认的交易处理器；水龙头按配置决定是否注册
func RegisterDefaultHandlers(reg *HandlerRegistry, prog *Program, cfg *config.Config) error {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	handlers := []TxHandler{
		&InitializeLockTxHandler{Program: prog}, // 锁仓
		&WithdrawTxHandler{Program: prog},       // 到期提取
		&TransferTxHandler{Program: prog},       // 转账
	}
	if cfg.Faucet.Enabled {
		handlers = append(handlers, &AirdropTxHandler{Program: prog, MaxLamports: cfg.Faucet.MaxLamports})
	}

	for _, h := range handlers {
		if err := reg.Register(h); err != nil {
			return fmt.Errorf("register %s: %w", h.Kind(), err)
		}
	}
	return nil
}
