package vault

import (
	"encoding/binary"
	"fmt"

	solana "github.com/gagliardetto/solana-go"

	"timelock/types"
)

// SeedPrefix 派生地址的第一个 seed
const SeedPrefix = "vault"

// Seeds ["vault", owner, recipient, unlock_ts 小端 8 字节]
func Seeds(owner, recipient types.Address, unlockTimestamp int64) [][]byte {
	ts := make([]byte, 8)
	binary.LittleEndian.PutUint64(ts, uint64(unlockTimestamp))
	return [][]byte{
		[]byte(SeedPrefix),
		owner.Bytes(),
		recipient.Bytes(),
		ts,
	}
}

// DeriveAddress 程序派生地址（不在曲线上），同样的输入总是得到同样的地址
func DeriveAddress(programID, owner, recipient types.Address, unlockTimestamp int64) (types.Address, uint8, error) {
	pda, bump, err := solana.FindProgramAddress(
		Seeds(owner, recipient, unlockTimestamp),
		solana.PublicKeyFromBytes(programID.Bytes()),
	)
	if err != nil {
		return types.Address{}, 0, fmt.Errorf("derive vault address: %w", err)
	}
	return types.Address(pda), bump, nil
}
