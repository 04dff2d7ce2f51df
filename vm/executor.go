package vm

import (
	"context"
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"timelock/clock"
	"timelock/config"
	"timelock/keys"
	"timelock/ledger"
	"timelock/logs"
	"timelock/stats"
	"timelock/types"
	"timelock/vault"
)

// Executor 单笔交易执行器：校验 -> 加锁 -> 去重 -> 预执行 -> 原子落库
type Executor struct {
	DB     DBManager
	Reg    *HandlerRegistry
	KFn    KindFn
	ReadFn ReadThroughFn
	Clock  clock.Clock
	Stats  *stats.Stats
	Logger logs.Logger

	locks    *accountLocks
	seen     *replayFilter
	receipts *lru.Cache
}

// NewExecutor cfg 为 nil 时使用默认配置；st 可以为 nil
func NewExecutor(db DBManager, reg *HandlerRegistry, clk clock.Clock, st *stats.Stats, logger logs.Logger, cfg *config.Config) (*Executor, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if reg == nil {
		reg = NewHandlerRegistry()
	}
	if logger == nil {
		logger = logs.NewNopLogger()
	}
	if clk == nil {
		clk = clock.System{}
	}
	size := cfg.Executor.ReceiptCacheSize
	if size <= 0 {
		size = 4096
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("receipt cache: %w", err)
	}

	x := &Executor{
		DB:       db,
		Reg:      reg,
		KFn:      DefaultKindFn,
		Clock:    clk,
		Stats:    st,
		Logger:   logger.Named("vm"),
		locks:    newAccountLocks(cfg.Executor.LockStripes),
		seen:     newReplayFilter(),
		receipts: cache,
	}
	x.ReadFn = func(key string) ([]byte, error) {
		return db.Get(key)
	}
	return x, nil
}

// LoadSeen 从已落库的回执重建去重过滤器，启动时调用
func (x *Executor) LoadSeen() (int, error) {
	ks, err := x.DB.ScanKeys(keys.KeyReceiptPrefix())
	if err != nil {
		return 0, fmt.Errorf("scan receipts: %w", err)
	}
	ids := make([]string, 0, len(ks))
	for _, k := range ks {
		if id, ok := keys.TxIDFromReceiptKey(k); ok {
			ids = append(ids, id)
		}
	}
	x.seen.reset(ids)
	x.Logger.Info("[VM] loaded %d executed tx ids (%d hashes)", len(ids), x.seen.size())
	return len(ids), nil
}

// LoadOpenVaults 统计库里仍锁着金额的金库并重置 gauge，启动时调用
func (x *Executor) LoadOpenVaults(programID types.Address) (int, error) {
	rows, err := x.DB.Scan(keys.KeyAccountPrefix())
	if err != nil {
		return 0, fmt.Errorf("scan accounts: %w", err)
	}
	n := 0
	for _, raw := range rows {
		acc, err := ledger.DecodeAccount(raw)
		if err != nil || acc.Owner != programID || !vault.IsRecord(acc.Data) {
			continue
		}
		v, err := vault.Unmarshal(acc.Data)
		if err != nil || !v.IsInitialized || v.Amount == 0 {
			continue
		}
		n++
	}
	if x.Stats != nil {
		x.Stats.SetOpenVaults(n)
	}
	x.Logger.Info("[VM] %d open vaults", n)
	return n, nil
}

// GetReceipt 先查缓存再查库；不存在返回 (nil, nil)
func (x *Executor) GetReceipt(txID string) (*Receipt, error) {
	if v, ok := x.receipts.Get(txID); ok {
		return v.(*Receipt), nil
	}
	raw, err := x.DB.Get(keys.KeyReceipt(txID))
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	rc, err := DecodeReceipt(raw)
	if err != nil {
		return nil, fmt.Errorf("receipt %s: %w", txID, err)
	}
	x.receipts.Add(txID, rc)
	return rc, nil
}

// Execute 执行并提交一笔交易。
// 业务失败时回执（FAILED）已经落库，同时返回具体错误；
// 回执为 nil 表示交易没被受理，没有任何写入。
func (x *Executor) Execute(ctx context.Context, tx *types.AnyTx) (*Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	kind, err := x.KFn(tx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTx, err)
	}
	h, ok := x.Reg.Get(kind)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	if err := tx.VerifySignature(); err != nil {
		return nil, err
	}
	txID, err := tx.TxID()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTx, err)
	}
	accounts, err := h.Accounts(tx)
	if err != nil {
		return nil, err
	}

	unlock := x.locks.lock(accounts)
	defer unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if x.seen.mayContain(txID) {
		prev, err := x.GetReceipt(txID)
		if err != nil {
			return nil, err
		}
		if prev != nil && !prev.Resubmittable() {
			return prev, fmt.Errorf("%w: %s", ErrDuplicateTx, txID)
		}
	}

	start := time.Now()
	sv := NewStateView(x.ReadFn)
	ws, rc, runErr := h.DryRun(tx, sv)
	if runErr != nil && rc == nil {
		return nil, runErr
	}
	if runErr != nil {
		// 失败交易只落回执
		ws = nil
		rc.Status = StatusFailed
		rc.WriteCount = 0
		if rc.Error == "" {
			rc.Error = runErr.Error()
		}
	}
	rc.TxID = txID
	rc.Kind = kind
	if now, err := x.Clock.Now(); err == nil {
		rc.Timestamp = now
	}

	batch := make([]WriteOp, 0, len(ws)+1)
	batch = append(batch, ws...)
	batch = append(batch, WriteOp{
		Key:      keys.KeyReceipt(txID),
		Value:    EncodeReceipt(rc),
		Category: keys.Label(keys.KeyReceipt(txID)),
	})
	if err := x.DB.ApplyBatch(batch); err != nil {
		x.Logger.Error("[VM] commit tx %s failed: %v", txID, err)
		return nil, fmt.Errorf("commit tx %s: %w", txID, err)
	}

	x.seen.add(txID)
	x.receipts.Add(txID, rc)
	x.record(kind, rc, time.Since(start))

	if runErr != nil {
		x.Logger.Info("[VM] Tx %s (%s) mark as FAILED: %v", txID, kind, runErr)
		return rc, runErr
	}
	x.Logger.Debug("[VM] Tx %s (%s) SUCCEED writes=%d", txID, kind, rc.WriteCount)
	return rc, nil
}

func (x *Executor) record(kind string, rc *Receipt, elapsed time.Duration) {
	if x.Stats == nil {
		return
	}
	x.Stats.RecordTx(kind, rc.Status, elapsed)
	if !rc.Succeeded() {
		return
	}
	switch kind {
	case types.KindInitializeLock:
		x.Stats.RecordLamports(stats.DirectionLocked, rc.Amount)
		x.Stats.VaultOpened()
	case types.KindWithdraw:
		// 重复提取是 0 金额的 no-op，不算释放
		if rc.Amount > 0 {
			x.Stats.RecordLamports(stats.DirectionWithdrawn, rc.Amount)
			x.Stats.VaultReleased()
		}
	case types.KindTransfer:
		x.Stats.RecordLamports(stats.DirectionMoved, rc.Amount)
	case types.KindAirdrop:
		x.Stats.RecordLamports(stats.DirectionMinted, rc.Amount)
	}
}

// IsDuplicate 错误是否是重复提交
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicateTx)
}
