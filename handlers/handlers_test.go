package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timelock/clock"
	"timelock/config"
	"timelock/db"
	"timelock/logs"
	"timelock/types"
	"timelock/vault"
	"timelock/vm"
)

const testNow = int64(1_700_000_000)

type testNode struct {
	srv  *httptest.Server
	clk  *clock.Manual
	prog *vm.Program
	hm   *HandlerManager
}

func newTestNode(t *testing.T) *testNode {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Faucet.Enabled = true
	programID, err := cfg.ProgramAddress()
	require.NoError(t, err)

	dbm, err := db.NewInMemory(logs.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(dbm.Close)

	clk := clock.NewManual(testNow)
	prog := &vm.Program{
		Vault:    vault.NewController(programID, clk, logs.NewNopLogger()),
		BankOpts: vm.BankOptionsFromConfig(cfg),
	}
	reg := vm.NewHandlerRegistry()
	require.NoError(t, vm.RegisterDefaultHandlers(reg, prog, cfg))
	x, err := vm.NewExecutor(dbm, reg, clk, nil, logs.NewNopLogger(), cfg)
	require.NoError(t, err)

	hm := NewHandlerManager(dbm, x, prog, clk, nil, logs.NewNopLogger(), cfg)
	mux := http.NewServeMux()
	hm.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return &testNode{srv: srv, clk: clk, prog: prog, hm: hm}
}

func (n *testNode) submit(t *testing.T, tx *types.AnyTx) (int, *TxResponse) {
	t.Helper()
	body, err := json.Marshal(tx)
	require.NoError(t, err)
	resp, err := http.Post(n.srv.URL+"/tx", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out TxResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, &out
}

func (n *testNode) get(t *testing.T, path string, q url.Values, out interface{}) int {
	t.Helper()
	resp, err := http.Get(n.srv.URL + path + "?" + q.Encode())
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

func newKey(t *testing.T) (*btcec.PrivateKey, types.Address) {
	t.Helper()
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	return priv, types.AddressFromPubKey(priv.PubKey())
}

func signedLock(t *testing.T, priv *btcec.PrivateKey, owner, recipient types.Address, amount uint64, unlock int64) *types.AnyTx {
	t.Helper()
	tx := &types.AnyTx{InitializeLock: &types.InitializeLockTx{
		Owner: owner, Recipient: recipient, Amount: amount, UnlockTimestamp: unlock, Nonce: 1,
	}}
	require.NoError(t, tx.Sign(priv))
	return tx
}

func signedWithdraw(t *testing.T, priv *btcec.PrivateKey, caller, to, vaultAddr types.Address, nonce uint64) *types.AnyTx {
	t.Helper()
	tx := &types.AnyTx{Withdraw: &types.WithdrawTx{Caller: caller, To: to, Vault: vaultAddr, Nonce: nonce}}
	require.NoError(t, tx.Sign(priv))
	return tx
}

func TestLockAndWithdrawOverHTTP(t *testing.T) {
	n := newTestNode(t)
	ownerKey, owner := newKey(t)
	recipientKey, recipient := newKey(t)
	_, stranger := newKey(t)

	code, resp := n.submit(t, &types.AnyTx{Airdrop: &types.AirdropTx{To: owner, Amount: 1_000_000_000, Nonce: 1}})
	require.Equal(t, http.StatusOK, code)
	require.True(t, resp.Receipt.Succeeded())

	unlock := testNow + 3600
	code, resp = n.submit(t, signedLock(t, ownerKey, owner, recipient, 1000, unlock))
	require.Equal(t, http.StatusOK, code)
	assert.Nil(t, resp.Error)
	assert.Equal(t, []string{"Lock created: 1000 lamports until 1700003600"}, resp.Receipt.Logs)

	var d DeriveResponse
	q := url.Values{"owner": {owner.String()}, "recipient": {recipient.String()}, "unlock": {fmt.Sprint(unlock)}}
	require.Equal(t, http.StatusOK, n.get(t, "/derive", q, &d))
	assert.Len(t, d.Seeds, 4)
	assert.Equal(t, []byte("vault"), []byte(d.Seeds[0]))
	vaultAddr := types.MustParseAddress(d.Address)

	var v VaultResponse
	require.Equal(t, http.StatusOK, n.get(t, "/vault", url.Values{"address": {d.Address}}, &v))
	assert.Equal(t, string(vault.StatusLocked), v.Status)
	assert.Equal(t, int64(3600), v.RemainingSeconds)
	assert.Equal(t, uint64(1000), v.Withdrawable)

	// 到期前：425
	code, resp = n.submit(t, signedWithdraw(t, recipientKey, recipient, recipient, vaultAddr, 1))
	assert.Equal(t, http.StatusTooEarly, code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "TooEarly", resp.Error.Name)
	assert.Equal(t, uint32(6001), resp.Error.Code)
	assert.True(t, resp.Error.Retryable)
	assert.Equal(t, vm.StatusFailed, resp.Receipt.Status)

	n.clk.Set(unlock)

	// 签名后篡改收款地址：签名校验失败
	forged := &types.AnyTx{Withdraw: &types.WithdrawTx{Caller: recipient, To: stranger, Vault: vaultAddr, Nonce: 2}}
	require.NoError(t, forged.Sign(recipientKey))
	forged.Withdraw.To = owner
	code, _ = n.submit(t, forged)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, resp = n.submit(t, signedWithdraw(t, recipientKey, recipient, recipient, vaultAddr, 3))
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []string{"Withdrawn 1000 lamports"}, resp.Receipt.Logs)

	var acc AccountResponse
	require.Equal(t, http.StatusOK, n.get(t, "/getaccount", url.Values{"address": {recipient.String()}}, &acc))
	assert.Equal(t, uint64(1000), acc.Lamports)
	assert.Equal(t, "0.000001", acc.SOL)

	require.Equal(t, http.StatusOK, n.get(t, "/vault", url.Values{"address": {d.Address}}, &v))
	assert.Equal(t, string(vault.StatusReleased), v.Status)
	assert.Equal(t, uint64(0), v.Withdrawable)

	var rc vm.Receipt
	require.Equal(t, http.StatusOK, n.get(t, "/gettxreceipt", url.Values{"txid": {resp.Receipt.TxID}}, &rc))
	assert.Equal(t, resp.Receipt.TxID, rc.TxID)
}

func TestStrangerWithdrawIsForbidden(t *testing.T) {
	n := newTestNode(t)
	ownerKey, owner := newKey(t)
	_, recipient := newKey(t)
	strangerKey, stranger := newKey(t)

	n.submit(t, &types.AnyTx{Airdrop: &types.AirdropTx{To: owner, Amount: 1_000_000_000, Nonce: 1}})
	code, _ := n.submit(t, signedLock(t, ownerKey, owner, recipient, 5000, testNow+10))
	require.Equal(t, http.StatusOK, code)
	vaultAddr, _, err := n.prog.Vault.Derive(owner, recipient, testNow+10)
	require.NoError(t, err)

	n.clk.Advance(10)
	code, resp := n.submit(t, signedWithdraw(t, strangerKey, stranger, stranger, vaultAddr, 1))
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "Unauthorized", resp.Error.Name)

	// 同一笔锁仓重复提交：409
	code, resp = n.submit(t, signedLock(t, ownerKey, owner, recipient, 5000, testNow+10))
	assert.Equal(t, http.StatusConflict, code)
	assert.NotNil(t, resp.Receipt)
}

func TestListVaultsFilters(t *testing.T) {
	n := newTestNode(t)
	aKey, a := newKey(t)
	bKey, b := newKey(t)
	_, r := newKey(t)

	n.submit(t, &types.AnyTx{Airdrop: &types.AirdropTx{To: a, Amount: 1_000_000_000, Nonce: 1}})
	n.submit(t, &types.AnyTx{Airdrop: &types.AirdropTx{To: b, Amount: 1_000_000_000, Nonce: 2}})
	n.submit(t, signedLock(t, aKey, a, r, 100, testNow+200))
	n.submit(t, signedLock(t, aKey, a, r, 100, testNow+100))
	n.submit(t, signedLock(t, bKey, b, r, 100, testNow+50))

	var all VaultsResponse
	require.Equal(t, http.StatusOK, n.get(t, "/vaults", url.Values{}, &all))
	require.Len(t, all.Vaults, 3)
	assert.Equal(t, testNow+50, all.Vaults[0].UnlockTimestamp)
	assert.Equal(t, testNow+200, all.Vaults[2].UnlockTimestamp)

	var mine VaultsResponse
	require.Equal(t, http.StatusOK, n.get(t, "/vaults", url.Values{"owner": {a.String()}}, &mine))
	assert.Len(t, mine.Vaults, 2)

	n.clk.Advance(100)
	var unlocked VaultsResponse
	require.Equal(t, http.StatusOK, n.get(t, "/vaults", url.Values{"recipient": {r.String()}, "status": {"UNLOCKED"}}, &unlocked))
	assert.Len(t, unlocked.Vaults, 2)
}

func TestQueryErrors(t *testing.T) {
	n := newTestNode(t)
	_, nobody := newKey(t)

	var e ErrorResponse
	assert.Equal(t, http.StatusBadRequest, n.get(t, "/getaccount", url.Values{}, &e))
	assert.Equal(t, http.StatusBadRequest, n.get(t, "/getaccount", url.Values{"address": {"0OIl"}}, &e))
	assert.Equal(t, http.StatusNotFound, n.get(t, "/getaccount", url.Values{"address": {nobody.String()}}, &e))
	assert.Equal(t, http.StatusNotFound, n.get(t, "/vault", url.Values{"address": {nobody.String()}}, &e))
	assert.Equal(t, "VaultNotFound", e.Error.Name)
	assert.Equal(t, http.StatusNotFound, n.get(t, "/gettxreceipt", url.Values{"txid": {"ab"}}, &e))
	assert.Equal(t, http.StatusBadRequest, n.get(t, "/derive", url.Values{"owner": {nobody.String()}, "recipient": {nobody.String()}, "unlock": {"soon"}}, &e))

	n.clk.Fail(errors.New("ntp down"))
	assert.Equal(t, http.StatusServiceUnavailable, n.get(t, "/vaults", url.Values{}, &e))
	assert.Equal(t, "ClockUnavailable", e.Error.Name)
	assert.True(t, e.Error.Retryable)
}

func TestHandleTxRejectsBadInput(t *testing.T) {
	n := newTestNode(t)

	resp, err := http.Get(n.srv.URL + "/tx")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, err = http.Post(n.srv.URL+"/tx", "application/json", bytes.NewReader([]byte("{")))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	code, out := n.submit(t, &types.AnyTx{})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Nil(t, out.Receipt)
}

func TestStatusAndMetrics(t *testing.T) {
	n := newTestNode(t)
	var st StatusResponse
	require.Equal(t, http.StatusOK, n.get(t, "/status", url.Values{}, &st))
	assert.Equal(t, "ok", st.Status)
	assert.Equal(t, config.DefaultProgramID, st.ProgramID)
	assert.Equal(t, testNow, st.Now)
	assert.Contains(t, st.TxKinds, types.KindWithdraw)
	assert.Equal(t, uint64(1), st.APICalls["HandleStatus"])

	resp, err := http.Get(n.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		nil:                           http.StatusOK,
		vault.ErrInvalidUnlockTime:    http.StatusBadRequest,
		types.ErrBadSignature:         http.StatusUnauthorized,
		vault.ErrUnauthorized:         http.StatusForbidden,
		vault.ErrVaultNotFound:        http.StatusNotFound,
		vault.ErrAlreadyInitialized:   http.StatusConflict,
		vm.ErrDuplicateTx:             http.StatusConflict,
		vault.ErrTransferFailure:      http.StatusUnprocessableEntity,
		vault.ErrTooEarly:             http.StatusTooEarly,
		vault.ErrClockUnavailable:     http.StatusServiceUnavailable,
		errors.New("badger exploded"): http.StatusInternalServerError,
	}
	cases[fmt.Errorf("wrapped: %w", vault.ErrTooEarly)] = http.StatusTooEarly
	for err, want := range cases {
		assert.Equal(t, want, statusFor(err), "%v", err)
	}
}
