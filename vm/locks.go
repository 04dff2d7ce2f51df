package vm

import (
	"sort"
	"sync"

	"github.com/dchest/siphash"

	"timelock/types"
)

// 固定的 siphash 密钥，条带分配在进程间保持一致
const (
	stripeKey0 = 0x12345678
	stripeKey1 = 0x87654321
)

// accountLocks 按账户地址分条的互斥锁。
// 同一账户的交易串行执行，不相交的交易并发执行。
type accountLocks struct {
	stripes []sync.Mutex
}

func newAccountLocks(n int) *accountLocks {
	if n <= 0 {
		n = 256
	}
	return &accountLocks{stripes: make([]sync.Mutex, n)}
}

func (l *accountLocks) stripe(addr types.Address) int {
	return int(siphash.Hash(stripeKey0, stripeKey1, addr[:]) % uint64(len(l.stripes)))
}

// lock 去重后按条带号升序加锁，避免死锁；返回解锁函数
func (l *accountLocks) lock(addrs []types.Address) func() {
	seen := make(map[int]struct{}, len(addrs))
	idx := make([]int, 0, len(addrs))
	for _, a := range addrs {
		s := l.stripe(a)
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		idx = append(idx, s)
	}
	sort.Ints(idx)
	for _, i := range idx {
		l.stripes[i].Lock()
	}
	return func() {
		for j := len(idx) - 1; j >= 0; j-- {
			l.stripes[idx[j]].Unlock()
		}
	}
}
