package vm

import (
	"sync"

	"github.com/RoaringBitmap/roaring"
	"github.com/spaolacci/murmur3"
)

// replayFilter 已执行交易的预过滤器：bitmap 里没有一定没执行过，
// 命中时再查回执确认（murmur3 32 位会有碰撞）
type replayFilter struct {
	mu     sync.RWMutex
	bitmap *roaring.Bitmap
}

func newReplayFilter() *replayFilter {
	return &replayFilter{bitmap: roaring.New()}
}

func txHash32(txID string) uint32 {
	return murmur3.Sum32([]byte(txID))
}

func (f *replayFilter) mayContain(txID string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.bitmap.Contains(txHash32(txID))
}

func (f *replayFilter) add(txID string) {
	f.mu.Lock()
	f.bitmap.Add(txHash32(txID))
	f.mu.Unlock()
}

// reset 用一批 txID 重建
func (f *replayFilter) reset(txIDs []string) {
	rebuilt := roaring.New()
	for _, id := range txIDs {
		rebuilt.Add(txHash32(id))
	}
	f.mu.Lock()
	f.bitmap = rebuilt
	f.mu.Unlock()
}

func (f *replayFilter) size() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.bitmap.GetCardinality()
}
