package ledger

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timelock/types"
)

func addr(b byte) types.Address {
	var a types.Address
	a[0] = b
	a[31] = b
	return a
}

func TestRentMinimumBalance(t *testing.T) {
	r := DefaultRent()
	assert.Equal(t, uint64((128+89)*3480*2), r.MinimumBalance(89))
	assert.Equal(t, uint64(128*3480*2), r.MinimumBalance(0))
	assert.Equal(t, uint64(128*3480*2), r.MinimumBalance(-5))

	huge := Rent{LamportsPerByteYear: math.MaxUint64, ExemptionYears: 2}
	assert.Equal(t, uint64(math.MaxUint64), huge.MinimumBalance(1))
}

func TestSaturatingSub(t *testing.T) {
	assert.Equal(t, uint64(7), SaturatingSub(10, 3))
	assert.Equal(t, uint64(0), SaturatingSub(3, 10))
	assert.Equal(t, uint64(0), SaturatingSub(5, 5))
}

func TestTransfer(t *testing.T) {
	b := NewBank(NewMemStore())
	alice, bob := addr(1), addr(2)
	require.NoError(t, b.Mint(alice, 1000))

	require.NoError(t, b.Transfer(alice, bob, 400))
	bal, err := b.BalanceOf(alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(600), bal)
	bal, err = b.BalanceOf(bob)
	require.NoError(t, err)
	assert.Equal(t, uint64(400), bal)

	err = b.Transfer(alice, bob, 601)
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	err = b.Transfer(addr(9), bob, 1)
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	// 零金额和自转账不改变余额
	require.NoError(t, b.Transfer(addr(9), bob, 0))
	require.NoError(t, b.Transfer(alice, alice, 600))
	bal, _ = b.BalanceOf(alice)
	assert.Equal(t, uint64(600), bal)
}

func TestTransferOverflow(t *testing.T) {
	b := NewBank(NewMemStore())
	alice, bob := addr(1), addr(2)
	require.NoError(t, b.Mint(alice, 10))
	require.NoError(t, b.Mint(bob, math.MaxUint64))

	err := b.Transfer(alice, bob, 1)
	assert.ErrorIs(t, err, ErrOverflow)
	bal, _ := b.BalanceOf(alice)
	assert.Equal(t, uint64(10), bal)

	assert.ErrorIs(t, b.Mint(bob, 1), ErrOverflow)
}

func TestAllocateFundsReserve(t *testing.T) {
	b := NewBank(NewMemStore())
	owner, program, slot := addr(1), addr(7), addr(3)
	require.NoError(t, b.Mint(owner, 10_000_000))

	require.NoError(t, b.Allocate(slot, 89, program, owner))

	acc, ok, err := b.Get(slot)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, program, acc.Owner)
	assert.Len(t, acc.Data, 89)
	assert.Equal(t, b.MinimumReserve(89), acc.Lamports)

	bal, _ := b.BalanceOf(owner)
	assert.Equal(t, 10_000_000-b.MinimumReserve(89), bal)

	err = b.Allocate(slot, 89, program, owner)
	assert.ErrorIs(t, err, ErrAccountInUse)
}

func TestAllocatePrefundedSlot(t *testing.T) {
	b := NewBank(NewMemStore())
	owner, program, slot := addr(1), addr(7), addr(3)
	require.NoError(t, b.Mint(owner, 10_000_000))
	require.NoError(t, b.Mint(slot, 500))

	require.NoError(t, b.Allocate(slot, 89, program, owner))
	bal, _ := b.BalanceOf(slot)
	assert.Equal(t, b.MinimumReserve(89), bal)
	bal, _ = b.BalanceOf(owner)
	assert.Equal(t, 10_000_000-(b.MinimumReserve(89)-500), bal)
}

func TestAllocateInsufficientPayer(t *testing.T) {
	st := NewMemStore()
	b := NewBank(st)
	owner, program, slot := addr(1), addr(7), addr(3)
	require.NoError(t, b.Mint(owner, 10))

	err := b.Allocate(slot, 89, program, owner)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	_, ok, _ := b.Get(slot)
	assert.False(t, ok)
}

func TestAllocateWithoutReserveFunding(t *testing.T) {
	b := NewBank(NewMemStore(), WithReserveFunding(false))
	owner, program, slot := addr(1), addr(7), addr(3)

	require.NoError(t, b.Allocate(slot, 89, program, owner))
	acc, ok, err := b.Get(slot)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(0), acc.Lamports)
	assert.Equal(t, program, acc.Owner)
}

func TestSystemTransferRejectsProgramAccount(t *testing.T) {
	b := NewBank(NewMemStore())
	owner, program, slot := addr(1), addr(7), addr(3)
	require.NoError(t, b.Mint(owner, 10_000_000))
	require.NoError(t, b.Allocate(slot, 89, program, owner))

	err := b.SystemTransfer(slot, owner, 1)
	assert.ErrorIs(t, err, ErrNotSystemAccount)

	require.NoError(t, b.SystemTransfer(owner, addr(4), 1))
}

func TestSetData(t *testing.T) {
	b := NewBank(NewMemStore(), WithReserveFunding(false))
	slot, program := addr(3), addr(7)

	assert.ErrorIs(t, b.SetData(slot, []byte{1}), ErrAccountNotFound)
	require.NoError(t, b.Allocate(slot, 4, program, addr(1)))

	assert.ErrorIs(t, b.SetData(slot, []byte{1, 2}), ErrDataSizeMismatch)
	require.NoError(t, b.SetData(slot, []byte{1, 2, 3, 4}))

	owner, data, err := b.Data(slot)
	require.NoError(t, err)
	assert.Equal(t, program, owner)
	assert.Equal(t, []byte{1, 2, 3, 4}, data)
}

func TestSnapshotRevert(t *testing.T) {
	b := NewBank(NewMemStore())
	alice, bob := addr(1), addr(2)
	require.NoError(t, b.Mint(alice, 100))

	snap := b.Snapshot()
	require.NoError(t, b.Transfer(alice, bob, 60))
	require.NoError(t, b.Revert(snap))

	bal, _ := b.BalanceOf(alice)
	assert.Equal(t, uint64(100), bal)
	_, ok, _ := b.Get(bob)
	assert.False(t, ok)
}

func TestMemStoreRevertBounds(t *testing.T) {
	st := NewMemStore()
	st.Set("a", []byte{1})
	assert.ErrorIs(t, st.Revert(5), ErrInvalidSnapshot)
	assert.ErrorIs(t, st.Revert(-1), ErrInvalidSnapshot)
	require.NoError(t, st.Revert(0))
	assert.Equal(t, 0, st.Len())
}

func TestDecodeAccountGarbage(t *testing.T) {
	_, err := DecodeAccount([]byte{1, 2})
	assert.ErrorIs(t, err, ErrInvalidAccountData)
}
