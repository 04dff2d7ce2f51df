// Package clock 提供可信时间源；所有时间门控都只读一次 Now()
package clock

import (
	"errors"
	"sync"
	"time"
)

// ErrUnavailable 取不到时间时返回，调用方必须中止当前操作
var ErrUnavailable = errors.New("clock unavailable")

// Clock 返回当前 unix 秒
type Clock interface {
	Now() (int64, error)
}

// System 墙上时钟
type System struct{}

func (System) Now() (int64, error) {
	return time.Now().Unix(), nil
}

// Func 把普通函数适配成 Clock
type Func func() (int64, error)

func (f Func) Now() (int64, error) {
	if f == nil {
		return 0, ErrUnavailable
	}
	return f()
}

// Manual 手动时钟，测试和模拟用
type Manual struct {
	mu   sync.Mutex
	now  int64
	fail error
}

// NewManual 从给定时间开始
func NewManual(now int64) *Manual {
	return &Manual{now: now}
}

func (m *Manual) Now() (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return 0, m.fail
	}
	return m.now, nil
}

// Set 设置当前时间
func (m *Manual) Set(now int64) {
	m.mu.Lock()
	m.now = now
	m.mu.Unlock()
}

// Advance 前进 d 秒
func (m *Manual) Advance(seconds int64) {
	m.mu.Lock()
	m.now += seconds
	m.mu.Unlock()
}

// Fail 之后的 Now() 都返回 err；传 nil 恢复
func (m *Manual) Fail(err error) {
	m.mu.Lock()
	m.fail = err
	m.mu.Unlock()
}
