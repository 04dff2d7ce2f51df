package ledger

import (
	"fmt"

	"github.com/near/borsh-go"

	"timelock/types"
)

// Account 账本中的一个账户：余额 + 数据区 + 所属程序
// 普通账户 Owner 为零地址且没有数据
type Account struct {
	Lamports uint64
	Owner    types.Address
	Data     []byte
}

// IsSystem 是否是可以直接转出的普通账户
func (a *Account) IsSystem() bool {
	return a.Owner.IsZero() && len(a.Data) == 0
}

// EncodeAccount borsh 编码
func EncodeAccount(a *Account) ([]byte, error) {
	if a.Data == nil {
		a.Data = []byte{}
	}
	data, err := borsh.Serialize(*a)
	if err != nil {
		return nil, fmt.Errorf("encode account: %w", err)
	}
	return data, nil
}

// DecodeAccount borsh 解码
func DecodeAccount(data []byte) (*Account, error) {
	var a Account
	if err := borsh.Deserialize(&a, data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAccountData, err)
	}
	return &a, nil
}
