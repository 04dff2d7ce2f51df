package ledger

import (
	"errors"
	"fmt"

	gomath "github.com/ethereum/go-ethereum/common/math"

	"timelock/keys"
	"timelock/types"
)

var (
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrOverflow           = errors.New("lamport balance overflow")
	ErrAccountInUse       = errors.New("account already in use")
	ErrAccountNotFound    = errors.New("account not found")
	ErrNotSystemAccount   = errors.New("source account carries data or is owned by a program")
	ErrInvalidAccountData = errors.New("invalid account data")
	ErrDataSizeMismatch   = errors.New("account data size mismatch")
)

// Store Bank 读写的 KV 视图（vm.StateView 实现了它）
type Store interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, val []byte)
	Snapshot() int
	Revert(snap int) error
}

// Bank lamport 账本；所有修改只落在 Store 上，由调用方决定提交或回滚
type Bank struct {
	st          Store
	rent        Rent
	fundReserve bool
}

type Option func(*Bank)

// WithRent 覆盖默认免租参数
func WithRent(r Rent) Option {
	return func(b *Bank) { b.rent = r }
}

// WithReserveFunding Allocate 时是否由 payer 补足免租金额
func WithReserveFunding(enabled bool) Option {
	return func(b *Bank) { b.fundReserve = enabled }
}

func NewBank(st Store, opts ...Option) *Bank {
	b := &Bank{st: st, rent: DefaultRent(), fundReserve: true}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Get 读取账户；不存在时返回 (nil, false, nil)
func (b *Bank) Get(addr types.Address) (*Account, bool, error) {
	raw, ok, err := b.st.Get(keys.KeyAccount(addr.String()))
	if err != nil {
		return nil, false, err
	}
	if !ok || len(raw) == 0 {
		return nil, false, nil
	}
	acc, err := DecodeAccount(raw)
	if err != nil {
		return nil, false, fmt.Errorf("account %s: %w", addr, err)
	}
	return acc, true, nil
}

func (b *Bank) put(addr types.Address, acc *Account) error {
	raw, err := EncodeAccount(acc)
	if err != nil {
		return err
	}
	b.st.Set(keys.KeyAccount(addr.String()), raw)
	return nil
}

// BalanceOf 不存在的账户余额为 0
func (b *Bank) BalanceOf(addr types.Address) (uint64, error) {
	acc, ok, err := b.Get(addr)
	if err != nil || !ok {
		return 0, err
	}
	return acc.Lamports, nil
}

// MinimumReserve 数据区 dataLen 字节的账户需要保留的最低余额
func (b *Bank) MinimumReserve(dataLen int) uint64 {
	return b.rent.MinimumBalance(dataLen)
}

// Transfer 在任意两个账户之间移动 lamports；目标账户不存在时创建
func (b *Bank) Transfer(from, to types.Address, amount uint64) error {
	if amount == 0 {
		return nil
	}
	src, ok, err := b.Get(from)
	if err != nil {
		return err
	}
	if !ok || src.Lamports < amount {
		have := uint64(0)
		if ok {
			have = src.Lamports
		}
		return fmt.Errorf("%w: %s has %d, needs %d", ErrInsufficientFunds, from, have, amount)
	}
	if from == to {
		return nil
	}
	dst, ok, err := b.Get(to)
	if err != nil {
		return err
	}
	if !ok {
		dst = &Account{}
	}
	credited, overflow := gomath.SafeAdd(dst.Lamports, amount)
	if overflow {
		return fmt.Errorf("%w: crediting %s", ErrOverflow, to)
	}
	src.Lamports -= amount
	dst.Lamports = credited
	if err := b.put(from, src); err != nil {
		return err
	}
	return b.put(to, dst)
}

// SystemTransfer 用户签名的转账，源账户必须是普通账户
func (b *Bank) SystemTransfer(from, to types.Address, amount uint64) error {
	src, ok, err := b.Get(from)
	if err != nil {
		return err
	}
	if ok && !src.IsSystem() {
		return fmt.Errorf("%w: %s", ErrNotSystemAccount, from)
	}
	return b.Transfer(from, to, amount)
}

// Mint 凭空增发，只给水龙头用
func (b *Bank) Mint(to types.Address, amount uint64) error {
	dst, ok, err := b.Get(to)
	if err != nil {
		return err
	}
	if !ok {
		dst = &Account{}
	}
	credited, overflow := gomath.SafeAdd(dst.Lamports, amount)
	if overflow {
		return fmt.Errorf("%w: minting to %s", ErrOverflow, to)
	}
	dst.Lamports = credited
	return b.put(to, dst)
}

// Allocate 只创建不覆盖：给 addr 分配 space 字节数据区并交给 owner 程序。
// 已经有 lamports 但没有数据的普通账户可以被分配（预先打过款的地址）。
func (b *Bank) Allocate(addr types.Address, space int, owner, payer types.Address) error {
	acc, exists, err := b.Get(addr)
	if err != nil {
		return err
	}
	if exists && !acc.IsSystem() {
		return fmt.Errorf("%w: %s", ErrAccountInUse, addr)
	}
	if b.fundReserve {
		have := uint64(0)
		if exists {
			have = acc.Lamports
		}
		if need := b.MinimumReserve(space); have < need {
			if err := b.Transfer(payer, addr, need-have); err != nil {
				return fmt.Errorf("fund reserve for %s: %w", addr, err)
			}
		}
		// Transfer 可能刚写入了 addr，重新读一次
		if acc, exists, err = b.Get(addr); err != nil {
			return err
		}
	}
	if !exists {
		acc = &Account{}
	}
	acc.Owner = owner
	acc.Data = make([]byte, space)
	return b.put(addr, acc)
}

// Data 读取账户数据区及其所属程序
func (b *Bank) Data(addr types.Address) (types.Address, []byte, error) {
	acc, ok, err := b.Get(addr)
	if err != nil {
		return types.Address{}, nil, err
	}
	if !ok {
		return types.Address{}, nil, fmt.Errorf("%w: %s", ErrAccountNotFound, addr)
	}
	return acc.Owner, acc.Data, nil
}

// SetData 覆写数据区，长度必须和分配时一致
func (b *Bank) SetData(addr types.Address, data []byte) error {
	acc, ok, err := b.Get(addr)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, addr)
	}
	if len(data) != len(acc.Data) {
		return fmt.Errorf("%w: %s has %d bytes, got %d", ErrDataSizeMismatch, addr, len(acc.Data), len(data))
	}
	acc.Data = append(acc.Data[:0], data...)
	return b.put(addr, acc)
}

func (b *Bank) Snapshot() int {
	return b.st.Snapshot()
}

func (b *Bank) Revert(snap int) error {
	return b.st.Revert(snap)
}
