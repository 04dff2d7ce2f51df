package vm

import (
	"timelock/types"
)

// ========== 核心接口定义 ==========

// StateView 状态视图接口
type StateView interface {
	// 读/写/删某个 key 的状态；写入只写进这个视图，不直接落到底层 DB。
	Get(key string) ([]byte, bool, error)
	Set(key string, val []byte)
	Del(key string)
	// 做一个快照点、必要时回滚到该点，实现预执行与失败回滚。
	Snapshot() int
	Revert(snap int) error
	// 把预执行期间累积的写集导出来，给后续落库用。
	Diff() []WriteOp
}

// TxHandler 交易处理器接口
type TxHandler interface {
	// 标识这个 Handler 处理哪种交易类型（比如 "withdraw"）。
	Kind() string
	// Accounts 交易会读写的全部账户，执行器据此加锁。
	Accounts(tx *types.AnyTx) ([]types.Address, error)
	// 在给定 StateView 上预执行，返回写集与回执。
	// 业务失败返回 FAILED 回执和 error；只有 error 没有回执表示交易本身不合法。
	DryRun(tx *types.AnyTx, sv StateView) ([]WriteOp, *Receipt, error)
}

// DBManager 执行器需要的存储能力；*db.Manager 实现了它
type DBManager interface {
	Get(key string) ([]byte, error)
	Scan(prefix string) (map[string][]byte, error)
	ScanKeys(prefix string) ([]string, error)
	ApplyBatch(ops []types.WriteOp) error
}

// ReadThroughFn 当 StateView 本地 overlay 没命中时，定义如何从底层存储读真实值；
// key 不存在时返回 (nil, nil)
type ReadThroughFn func(key string) ([]byte, error)

// KindFn 给 AnyTx 提取交易种类
type KindFn func(tx *types.AnyTx) (string, error)
