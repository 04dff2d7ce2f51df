package types

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil/base58"
)

// AddressLength 地址长度（BIP340 x-only 公钥或程序派生地址，均为 32 字节）
const AddressLength = 32

var (
	ErrInvalidAddress       = errors.New("invalid address")
	ErrInvalidAddressLength = errors.New("invalid address length")
)

// Address 账户地址，文本形式为 base58
type Address [AddressLength]byte

// ZeroAddress 系统账户的 owner；普通转账账户都归它所有
var ZeroAddress Address

// AddressFromBytes 从 32 字节构造地址
func AddressFromBytes(b []byte) (Address, error) {
	var a Address
	if len(b) != AddressLength {
		return a, fmt.Errorf("%w: got %d bytes", ErrInvalidAddressLength, len(b))
	}
	copy(a[:], b)
	return a, nil
}

// ParseAddress 解析 base58 地址
func ParseAddress(s string) (Address, error) {
	if s == "" {
		return Address{}, ErrInvalidAddress
	}
	raw := base58.Decode(s)
	if len(raw) == 0 {
		return Address{}, fmt.Errorf("%w: %q is not base58", ErrInvalidAddress, s)
	}
	return AddressFromBytes(raw)
}

// MustParseAddress 只用于常量和测试
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// AddressFromPubKey 签名者地址 = x-only 公钥
func AddressFromPubKey(pub *btcec.PublicKey) Address {
	var a Address
	copy(a[:], schnorr.SerializePubKey(pub))
	return a
}

func (a Address) String() string {
	return base58.Encode(a[:])
}

func (a Address) Bytes() []byte {
	b := make([]byte, AddressLength)
	copy(b, a[:])
	return b
}

func (a Address) IsZero() bool {
	return a == ZeroAddress
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
