package ledger

import "errors"

var ErrInvalidSnapshot = errors.New("invalid snapshot id")

// MemStore 纯内存 Store，测试和离线模拟用
type MemStore struct {
	kv  map[string][]byte
	log []memChange
}

type memChange struct {
	key     string
	prev    []byte
	hasPrev bool
}

func NewMemStore() *MemStore {
	return &MemStore{kv: make(map[string][]byte)}
}

func (m *MemStore) Get(key string) ([]byte, bool, error) {
	v, ok := m.kv[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *MemStore) Set(key string, val []byte) {
	prev, has := m.kv[key]
	m.log = append(m.log, memChange{key: key, prev: prev, hasPrev: has})
	m.kv[key] = append([]byte(nil), val...)
}

func (m *MemStore) Snapshot() int {
	return len(m.log)
}

func (m *MemStore) Revert(snap int) error {
	if snap < 0 || snap > len(m.log) {
		return ErrInvalidSnapshot
	}
	for i := len(m.log) - 1; i >= snap; i-- {
		c := m.log[i]
		if c.hasPrev {
			m.kv[c.key] = c.prev
		} else {
			delete(m.kv, c.key)
		}
	}
	m.log = m.log[:snap]
	return nil
}

// Len 当前 key 数量
func (m *MemStore) Len() int {
	return len(m.kv)
}
