package vault

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	bin "github.com/gagliardetto/binary"

	"timelock/types"
)

const (
	// DiscriminatorSize 记录头部的类型标识长度
	DiscriminatorSize = 8
	// RecordSize 8 + 32 + 32 + 8 + 8 + 1
	RecordSize = DiscriminatorSize + 32 + 32 + 8 + 8 + 1
)

// Discriminator = sha256("account:Vault")[:8]
var Discriminator = func() [DiscriminatorSize]byte {
	var d [DiscriminatorSize]byte
	copy(d[:], chainhash.HashB([]byte("account:Vault")))
	return d
}()

// Vault 时间锁记录
type Vault struct {
	Owner           types.Address
	Recipient       types.Address
	Amount          uint64
	UnlockTimestamp int64
	IsInitialized   bool
}

// Status 查询用的派生状态，不落盘
type Status string

const (
	StatusLocked   Status = "LOCKED"
	StatusUnlocked Status = "UNLOCKED"
	StatusReleased Status = "RELEASED"
)

// StatusAt 在 now 时刻的状态
func (v *Vault) StatusAt(now int64) Status {
	switch {
	case v.Amount == 0:
		return StatusReleased
	case now < v.UnlockTimestamp:
		return StatusLocked
	default:
		return StatusUnlocked
	}
}

// Remaining 距解锁还有多少秒，已解锁返回 0
func (v *Vault) Remaining(now int64) int64 {
	if now >= v.UnlockTimestamp {
		return 0
	}
	return v.UnlockTimestamp - now
}

// CanWithdraw 地址是否是合法的提取方
func (v *Vault) CanWithdraw(caller types.Address) bool {
	return caller == v.Owner || caller == v.Recipient
}

// Marshal discriminator + borsh(Vault)，固定 RecordSize 字节
// bool 占最后一个字节
func (v *Vault) Marshal() ([]byte, error) {
	body, err := bin.MarshalBorsh(v)
	if err != nil {
		return nil, fmt.Errorf("encode vault: %w", err)
	}
	out := make([]byte, 0, RecordSize)
	out = append(out, Discriminator[:]...)
	out = append(out, body...)
	if len(out) != RecordSize {
		return nil, fmt.Errorf("encode vault: got %d bytes, want %d", len(out), RecordSize)
	}
	return out, nil
}

// Unmarshal 校验 discriminator 后解码
func Unmarshal(data []byte) (*Vault, error) {
	if len(data) < DiscriminatorSize || !bytes.Equal(data[:DiscriminatorSize], Discriminator[:]) {
		return nil, ErrAccountDiscriminatorMismatch
	}
	if len(data) != RecordSize {
		return nil, fmt.Errorf("%w: record is %d bytes", ErrAccountDiscriminatorMismatch, len(data))
	}
	var v Vault
	if err := bin.UnmarshalBorsh(&v, data[DiscriminatorSize:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAccountDiscriminatorMismatch, err)
	}
	return &v, nil
}

// IsRecord 粗判：数据区是否以 Vault discriminator 开头
func IsRecord(data []byte) bool {
	return len(data) == RecordSize && bytes.Equal(data[:DiscriminatorSize], Discriminator[:])
}
