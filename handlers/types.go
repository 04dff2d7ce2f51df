package handlers

import (
	"github.com/ethereum/go-ethereum/common/hexutil"

	"timelock/vm"
)

// APIError 接口统一的错误体；Code/Name 只有程序错误才有
type APIError struct {
	Message   string `json:"message"`
	Name      string `json:"name,omitempty"`
	Code      uint32 `json:"code,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

// ErrorResponse 非交易接口出错时返回
type ErrorResponse struct {
	Error *APIError `json:"error"`
}

// TxResponse POST /tx 的返回：交易被受理时一定带回执，业务失败时同时带错误
type TxResponse struct {
	Receipt *vm.Receipt `json:"receipt,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

// AccountResponse GET /getaccount
type AccountResponse struct {
	Address  string        `json:"address"`
	Lamports uint64        `json:"lamports"`
	SOL      string        `json:"sol"`
	Owner    string        `json:"owner"`
	Data     hexutil.Bytes `json:"data,omitempty"`
}

// VaultResponse 金库记录加上查询时刻派生的字段
type VaultResponse struct {
	Address          string `json:"address"`
	Owner            string `json:"owner"`
	Recipient        string `json:"recipient"`
	Amount           uint64 `json:"amount"`
	UnlockTimestamp  int64  `json:"unlock_timestamp"`
	IsInitialized    bool   `json:"is_initialized"`
	Status           string `json:"status"`
	RemainingSeconds int64  `json:"remaining_seconds"`
	Lamports         uint64 `json:"lamports"` // 账户实际持有
	Withdrawable     uint64 `json:"withdrawable"`
}

// VaultsResponse GET /vaults
type VaultsResponse struct {
	Now    int64           `json:"now"`
	Vaults []VaultResponse `json:"vaults"`
}

// DeriveResponse GET /derive
type DeriveResponse struct {
	Address string          `json:"address"`
	Bump    uint8           `json:"bump"`
	Seeds   []hexutil.Bytes `json:"seeds"`
}

// StatusResponse GET /status
type StatusResponse struct {
	Status    string            `json:"status"`
	ProgramID string            `json:"program_id"`
	Now       int64             `json:"now,omitempty"`
	Uptime    string            `json:"uptime"`
	TxKinds   []string          `json:"tx_kinds"`
	APICalls  map[string]uint64 `json:"api_calls"`
}
