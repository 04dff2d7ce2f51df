package types

// WriteOp “要怎么改状态”的清单，VM 产出，DB 一次性落库
type WriteOp struct {
	Key      string // 完整的 key（包括命名空间前缀）
	Value    []byte // 序列化后的值
	Del      bool   // true表示删除操作
	Category string // 数据分类：account, receipt 等，便于追踪和调试
}
