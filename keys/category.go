// keys/category.go
// Key 分类：区分可变状态和不可变流水，写集和日志里带上分类便于追踪
package keys

import "strings"

// KeyCategory 定义 Key 的存储归属
type KeyCategory int

const (
	CategoryKV    KeyCategory = iota // 不可变流水（回执等）
	CategoryState                    // 可变状态（账户、vault 记录）
)

// 可变状态数据前缀
var statePrefixes = []string{
	"v1_account_", // 账户状态（余额、数据区、所属程序）
}

// CategorizeKey 判断 key 属于状态还是流水
func CategorizeKey(key string) KeyCategory {
	for _, prefix := range statePrefixes {
		if strings.HasPrefix(key, prefix) {
			return CategoryState
		}
	}
	return CategoryKV
}

// IsStatefulKey 是否是可变状态
func IsStatefulKey(key string) bool {
	return CategorizeKey(key) == CategoryState
}

// Label WriteOp.Category 用的短名
func Label(key string) string {
	switch {
	case strings.HasPrefix(key, KeyAccountPrefix()):
		return "account"
	case strings.HasPrefix(key, KeyReceiptPrefix()):
		return "receipt"
	default:
		return "meta"
	}
}
