// Package vault 时间锁金库：锁仓 (InitializeLock) 与到期提取 (Withdraw)
package vault

import (
	"errors"
	"fmt"

	"timelock/clock"
	"timelock/ledger"
	"timelock/logs"
	"timelock/types"
)

// Ledger 控制器依赖的账本能力；*ledger.Bank 实现了它
type Ledger interface {
	BalanceOf(addr types.Address) (uint64, error)
	Transfer(from, to types.Address, amount uint64) error
	MinimumReserve(dataLen int) uint64
	Allocate(addr types.Address, space int, owner, payer types.Address) error
	Data(addr types.Address) (types.Address, []byte, error)
	SetData(addr types.Address, data []byte) error
	Snapshot() int
	Revert(snap int) error
}

// LockParams 锁仓参数；Owner 由调用方完成认证
type LockParams struct {
	Owner           types.Address
	Recipient       types.Address
	Amount          uint64
	UnlockTimestamp int64
}

// LockResult 锁仓结果
type LockResult struct {
	Vault   types.Address
	Bump    uint8
	Record  Vault
	Reserve uint64
	Logs    []string
}

// WithdrawParams 提取参数；Caller 由调用方完成认证，Destination 不需要
type WithdrawParams struct {
	Vault       types.Address
	Caller      types.Address
	Destination types.Address
}

// WithdrawResult 提取结果；Amount 为 0 表示已提取过，本次什么都没动
type WithdrawResult struct {
	Vault       types.Address
	Destination types.Address
	Amount      uint64
	Logs        []string
}

// Controller 金库状态机；本身无状态，每次调用只读一次时钟
type Controller struct {
	programID types.Address
	clock     clock.Clock
	logger    logs.Logger
}

func NewController(programID types.Address, clk clock.Clock, logger logs.Logger) *Controller {
	if logger == nil {
		logger = logs.NewNopLogger()
	}
	return &Controller{programID: programID, clock: clk, logger: logger.Named("vault")}
}

// ProgramID 金库记录所属的程序
func (c *Controller) ProgramID() types.Address {
	return c.programID
}

// Derive 按 (owner, recipient, unlock) 计算金库地址
func (c *Controller) Derive(owner, recipient types.Address, unlockTimestamp int64) (types.Address, uint8, error) {
	return DeriveAddress(c.programID, owner, recipient, unlockTimestamp)
}

func (c *Controller) now() (int64, error) {
	if c.clock == nil {
		return 0, ErrClockUnavailable
	}
	now, err := c.clock.Now()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrClockUnavailable, err)
	}
	return now, nil
}

// InitializeLock 创建金库并把 Amount 从 owner 转入；失败时账本回到调用前
func (c *Controller) InitializeLock(l Ledger, p LockParams) (*LockResult, error) {
	if p.Amount == 0 {
		return nil, ErrInvalidAmount
	}
	now, err := c.now()
	if err != nil {
		return nil, err
	}
	if p.UnlockTimestamp <= now {
		return nil, fmt.Errorf("%w: unlock=%d now=%d", ErrInvalidUnlockTime, p.UnlockTimestamp, now)
	}

	addr, bump, err := c.Derive(p.Owner, p.Recipient, p.UnlockTimestamp)
	if err != nil {
		return nil, err
	}

	snap := l.Snapshot()
	abort := func(err error) (*LockResult, error) {
		if rerr := l.Revert(snap); rerr != nil {
			c.logger.Error("[InitializeLock] revert vault=%s: %v", addr, rerr)
		}
		return nil, err
	}

	if err := l.Allocate(addr, RecordSize, c.programID, p.Owner); err != nil {
		if errors.Is(err, ledger.ErrAccountInUse) {
			return abort(fmt.Errorf("%w: %s", ErrAlreadyInitialized, addr))
		}
		return abort(fmt.Errorf("%w: allocate %s: %v", ErrTransferFailure, addr, err))
	}
	if err := l.Transfer(p.Owner, addr, p.Amount); err != nil {
		return abort(fmt.Errorf("%w: %v", ErrTransferFailure, err))
	}

	rec := Vault{
		Owner:           p.Owner,
		Recipient:       p.Recipient,
		Amount:          p.Amount,
		UnlockTimestamp: p.UnlockTimestamp,
		IsInitialized:   true,
	}
	data, err := rec.Marshal()
	if err != nil {
		return abort(err)
	}
	if err := l.SetData(addr, data); err != nil {
		return abort(err)
	}

	msg := fmt.Sprintf("Lock created: %d lamports until %d", p.Amount, p.UnlockTimestamp)
	c.logger.Info("[InitializeLock] vault=%s owner=%s recipient=%s %s", addr, p.Owner, p.Recipient, msg)
	return &LockResult{
		Vault:   addr,
		Bump:    bump,
		Record:  rec,
		Reserve: l.MinimumReserve(RecordSize),
		Logs:    []string{msg},
	}, nil
}

// Load 读取并校验金库记录：存在、归属本程序、discriminator 正确且已初始化
func (c *Controller) Load(l Ledger, addr types.Address) (*Vault, error) {
	owner, data, err := l.Data(addr)
	if err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrVaultNotFound, addr)
		}
		return nil, err
	}
	if owner != c.programID {
		return nil, fmt.Errorf("%w: %s is not owned by the program", ErrVaultNotFound, addr)
	}
	v, err := Unmarshal(data)
	if err != nil {
		return nil, err
	}
	if !v.IsInitialized {
		return nil, fmt.Errorf("%w: %s not initialized", ErrVaultNotFound, addr)
	}
	return v, nil
}

// Withdraw 到期后由 owner 或 recipient 提走全部可提余额（保留免租金额）。
// 检查顺序：记录 -> seeds -> 时间 -> 身份。
func (c *Controller) Withdraw(l Ledger, p WithdrawParams) (*WithdrawResult, error) {
	v, err := c.Load(l, p.Vault)
	if err != nil {
		return nil, err
	}
	expected, _, err := c.Derive(v.Owner, v.Recipient, v.UnlockTimestamp)
	if err != nil {
		return nil, err
	}
	if expected != p.Vault {
		return nil, fmt.Errorf("%w: record derives %s, addressed %s", ErrSeedsMismatch, expected, p.Vault)
	}

	now, err := c.now()
	if err != nil {
		return nil, err
	}
	if now < v.UnlockTimestamp {
		return nil, fmt.Errorf("%w: %d seconds remaining", ErrTooEarly, v.UnlockTimestamp-now)
	}
	if !v.CanWithdraw(p.Caller) {
		return nil, fmt.Errorf("%w: %s", ErrUnauthorized, p.Caller)
	}

	if err := c.checkDestination(l, p.Vault, p.Destination); err != nil {
		return nil, err
	}

	res := &WithdrawResult{Vault: p.Vault, Destination: p.Destination}
	if v.Amount == 0 {
		// 已经提取过：不再动任何余额
		msg := "Withdrawn 0 lamports"
		c.logger.Debug("[Withdraw] vault=%s already released", p.Vault)
		res.Logs = []string{msg}
		return res, nil
	}

	held, err := l.BalanceOf(p.Vault)
	if err != nil {
		return nil, err
	}
	withdrawable := ledger.SaturatingSub(held, l.MinimumReserve(RecordSize))

	snap := l.Snapshot()
	abort := func(err error) (*WithdrawResult, error) {
		if rerr := l.Revert(snap); rerr != nil {
			c.logger.Error("[Withdraw] revert vault=%s: %v", p.Vault, rerr)
		}
		return nil, err
	}

	if err := l.Transfer(p.Vault, p.Destination, withdrawable); err != nil {
		return abort(fmt.Errorf("%w: %v", ErrTransferFailure, err))
	}
	v.Amount = 0
	data, err := v.Marshal()
	if err != nil {
		return abort(err)
	}
	if err := l.SetData(p.Vault, data); err != nil {
		return abort(err)
	}

	msg := fmt.Sprintf("Withdrawn %d lamports", withdrawable)
	c.logger.Info("[Withdraw] vault=%s caller=%s to=%s %s", p.Vault, p.Caller, p.Destination, msg)
	res.Amount = withdrawable
	res.Logs = []string{msg}
	return res, nil
}

// checkDestination 目标不能是金库本身，也不能是本程序名下的任何账户，否则余额进出同一处
func (c *Controller) checkDestination(l Ledger, vaultAddr, dest types.Address) error {
	if dest == vaultAddr {
		return fmt.Errorf("%w: destination is the vault itself", ErrTransferFailure)
	}
	owner, _, err := l.Data(dest)
	switch {
	case errors.Is(err, ledger.ErrAccountNotFound):
		return nil
	case err != nil:
		return err
	case owner == c.programID:
		return fmt.Errorf("%w: destination %s is a program account", ErrTransferFailure, dest)
	}
	return nil
}
