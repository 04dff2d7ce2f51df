package vm

import (
	"sort"
	"sync"

	"timelock/keys"
)

// pending 一笔交易预执行期间对某个 key 的最新写入
// 账户 key 存 borsh(ledger.Account)，回执 key 只由执行器直接落库，不经过视图
type pending struct {
	val     []byte
	deleted bool
}

// undo 撤销日志的一条：写入前这个 key 在视图里的样子
// tracked=false 表示写入前视图里没有这个 key，回滚时直接删掉
type undo struct {
	key     string
	before  pending
	tracked bool
}

// txView 单笔交易的写缓冲。
// Bank 的 Transfer / Allocate / SetData 都写到这里，vault 控制器用 Snapshot/Revert
// 在多步操作中途失败时撤回已经写下的余额；成功时 Diff 交给执行器一次性 ApplyBatch。
type txView struct {
	mu      sync.RWMutex
	backing ReadThroughFn
	writes  map[string]pending
	journal []undo
}

// NewStateView read 为 nil 时视为空库
func NewStateView(read ReadThroughFn) StateView {
	if read == nil {
		read = func(string) ([]byte, error) { return nil, nil }
	}
	// 一笔锁仓最多碰 owner / vault 两个账户
	return &txView{
		backing: read,
		writes:  make(map[string]pending, 4),
		journal: make([]undo, 0, 8),
	}
}

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func (v *txView) Get(key string) ([]byte, bool, error) {
	v.mu.RLock()
	p, hit := v.writes[key]
	v.mu.RUnlock()

	switch {
	case hit && p.deleted:
		return nil, false, nil
	case hit:
		return cloneBytes(p.val), true, nil
	}

	// 本笔交易没写过：读已提交的状态
	val, err := v.backing(key)
	if err != nil || val == nil {
		return nil, false, err
	}
	return val, true, nil
}

func (v *txView) record(key string, next pending) {
	v.mu.Lock()
	defer v.mu.Unlock()
	before, tracked := v.writes[key]
	v.journal = append(v.journal, undo{key: key, before: before, tracked: tracked})
	v.writes[key] = next
}

func (v *txView) Set(key string, val []byte) {
	v.record(key, pending{val: cloneBytes(val)})
}

func (v *txView) Del(key string) {
	v.record(key, pending{deleted: true})
}

// Snapshot 当前撤销日志长度就是快照点
func (v *txView) Snapshot() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.journal)
}

func (v *txView) Revert(snap int) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if snap < 0 || snap > len(v.journal) {
		return ErrInvalidSnapshot
	}
	for i := len(v.journal) - 1; i >= snap; i-- {
		u := v.journal[i]
		if !u.tracked {
			delete(v.writes, u.key)
			continue
		}
		v.writes[u.key] = u.before
	}
	v.journal = v.journal[:snap]
	return nil
}

// Diff 按 key 排序，同样的执行得到同样的写集；Category 取自 key 前缀
func (v *txView) Diff() []WriteOp {
	v.mu.RLock()
	defer v.mu.RUnlock()

	ops := make([]WriteOp, 0, len(v.writes))
	for k, p := range v.writes {
		ops = append(ops, WriteOp{
			Key:      k,
			Value:    cloneBytes(p.val),
			Del:      p.deleted,
			Category: keys.Label(k),
		})
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i].Key < ops[j].Key })
	return ops
}
