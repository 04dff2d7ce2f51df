package ledger

import (
	"math"

	gomath "github.com/ethereum/go-ethereum/common/math"
)

// AccountStorageOverhead 每个账户在数据区之外固定计费的字节数
const AccountStorageOverhead = 128

// Rent 免租金门槛参数：账户余额不低于 MinimumBalance 时记录才能长期存活
type Rent struct {
	LamportsPerByteYear uint64
	ExemptionYears      uint64
}

// DefaultRent 3480 lamports/byte-year，两年免租
func DefaultRent() Rent {
	return Rent{LamportsPerByteYear: 3480, ExemptionYears: 2}
}

// MinimumBalance (128 + dataLen) * lamportsPerByteYear * exemptionYears，溢出时饱和
func (r Rent) MinimumBalance(dataLen int) uint64 {
	if dataLen < 0 {
		dataLen = 0
	}
	bytes := uint64(AccountStorageOverhead) + uint64(dataLen)
	perYear, overflow := gomath.SafeMul(bytes, r.LamportsPerByteYear)
	if overflow {
		return math.MaxUint64
	}
	total, overflow := gomath.SafeMul(perYear, r.ExemptionYears)
	if overflow {
		return math.MaxUint64
	}
	return total
}

// SaturatingSub a - b，不够减时返回 0
func SaturatingSub(a, b uint64) uint64 {
	r, underflow := gomath.SafeSub(a, b)
	if underflow {
		return 0
	}
	return r
}
