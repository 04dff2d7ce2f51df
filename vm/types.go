package vm

import (
	"errors"

	"timelock/types"
	"timelock/vault"
)

// ========== 错误定义 ==========

var (
	ErrNilTx           = errors.New("nil transaction")
	ErrInvalidSnapshot = errors.New("invalid snapshot index")
	ErrUnknownKind     = errors.New("no handler for tx kind")
	ErrDuplicateTx     = errors.New("transaction already executed")
	ErrInvalidTx       = errors.New("invalid transaction")
)

// 回执状态
const (
	StatusSucceed = "SUCCEED"
	StatusFailed  = "FAILED"
)

// ========== 基础类型定义 ==========

// WriteOp “要怎么改状态”的清单，与 db.ApplyBatch 共用
type WriteOp = types.WriteOp

// Receipt 记录执行结果
type Receipt struct {
	TxID       string   `json:"tx_id"`
	Kind       string   `json:"kind"`
	Status     string   `json:"status"` // "SUCCEED" or "FAILED"
	Error      string   `json:"error,omitempty"`
	Code       uint32   `json:"code,omitempty"` // 程序错误码，见 vault.Code
	Timestamp  int64    `json:"timestamp"`
	Logs       []string `json:"logs,omitempty"`
	Amount     uint64   `json:"amount"` // 本笔交易移动的 lamports
	WriteCount int      `json:"write_count"`
}

// Succeeded 是否执行成功
func (r *Receipt) Succeeded() bool {
	return r != nil && r.Status == StatusSucceed
}

// Resubmittable 失败且错误可重试（TooEarly / 时钟故障）：同一笔交易允许再次执行
func (r *Receipt) Resubmittable() bool {
	if r == nil || r.Status != StatusFailed {
		return false
	}
	return r.Code == vault.ErrTooEarly.Code() || r.Code == vault.ErrClockUnavailable.Code()
}

func failedReceipt(txID, kind string, err error) *Receipt {
	return &Receipt{
		TxID:   txID,
		Kind:   kind,
		Status: StatusFailed,
		Error:  err.Error(),
	}
}
