package db

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timelock/config"
	"timelock/logs"
	"timelock/types"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	mgr, err := NewInMemory(logs.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(mgr.Close)
	return mgr
}

func TestGetMissingReturnsNil(t *testing.T) {
	mgr := newTestManager(t)
	v, err := mgr.Get("v1_account_nope")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestApplyBatchAndScan(t *testing.T) {
	mgr := newTestManager(t)

	require.NoError(t, mgr.ApplyBatch([]types.WriteOp{
		{Key: "v1_account_a", Value: []byte("1")},
		{Key: "v1_account_b", Value: []byte("2")},
		{Key: "v1_receipt_x", Value: []byte("r")},
	}))

	got, err := mgr.Scan("v1_account_")
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{
		"v1_account_a": []byte("1"),
		"v1_account_b": []byte("2"),
	}, got)

	ks, err := mgr.ScanKeys("v1_receipt_")
	require.NoError(t, err)
	assert.Equal(t, []string{"v1_receipt_x"}, ks)

	require.NoError(t, mgr.ApplyBatch([]types.WriteOp{
		{Key: "v1_account_a", Del: true},
		{Key: "v1_account_b", Value: []byte("3")},
	}))
	v, err := mgr.Get("v1_account_a")
	require.NoError(t, err)
	assert.Nil(t, v)
	v, err = mgr.Get("v1_account_b")
	require.NoError(t, err)
	assert.Equal(t, []byte("3"), v)
}

func TestApplyEmptyBatch(t *testing.T) {
	mgr := newTestManager(t)
	require.NoError(t, mgr.ApplyBatch(nil))
}

func TestApplyBatchTooLargeIsAtomic(t *testing.T) {
	mgr := newTestManager(t)

	// 单个事务放不下：必须整体失败，前面的 key 也不能落库
	big := make([]byte, 1<<20)
	ops := make([]types.WriteOp, 0, 200)
	for i := 0; i < 200; i++ {
		ops = append(ops, types.WriteOp{Key: fmt.Sprintf("v1_blob_%04d", i), Value: big})
	}
	err := mgr.ApplyBatch(ops)
	require.ErrorIs(t, err, ErrBatchTooLarge)

	v, err := mgr.Get("v1_blob_0000")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestClosedManager(t *testing.T) {
	mgr, err := NewInMemory(nil)
	require.NoError(t, err)
	mgr.Close()
	mgr.Close()

	_, err = mgr.Get("k")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, mgr.ApplyBatch([]types.WriteOp{{Key: "k", Value: []byte("v")}}), ErrClosed)
}

func TestOnDiskReopen(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Database.SyncWrites = false

	mgr, err := NewManagerWithConfig(dir, logs.NewNopLogger(), cfg)
	require.NoError(t, err)
	require.NoError(t, mgr.ApplyBatch([]types.WriteOp{{Key: "v1_account_a", Value: []byte("persisted")}}))
	mgr.Close()

	mgr, err = NewManagerWithConfig(dir, logs.NewNopLogger(), cfg)
	require.NoError(t, err)
	defer mgr.Close()
	v, err := mgr.Get("v1_account_a")
	require.NoError(t, err)
	assert.Equal(t, []byte("persisted"), v)
}
