package vm

import (
	"fmt"

	"timelock/types"
	"timelock/vault"
)

// InitializeLockTxHandler 锁仓交易
type InitializeLockTxHandler struct {
	Program *Program
}

func (h *InitializeLockTxHandler) Kind() string {
	return types.KindInitializeLock
}

func (h *InitializeLockTxHandler) Accounts(tx *types.AnyTx) ([]types.Address, error) {
	body := tx.InitializeLock
	if body == nil {
		return nil, fmt.Errorf("%w: not an initialize_lock transaction", ErrInvalidTx)
	}
	addr, _, err := h.Program.Vault.Derive(body.Owner, body.Recipient, body.UnlockTimestamp)
	if err != nil {
		return nil, err
	}
	return []types.Address{body.Owner, addr}, nil
}

func (h *InitializeLockTxHandler) DryRun(tx *types.AnyTx, sv StateView) ([]WriteOp, *Receipt, error) {
	body := tx.InitializeLock
	if body == nil {
		return nil, nil, fmt.Errorf("%w: not an initialize_lock transaction", ErrInvalidTx)
	}

	res, err := h.Program.Vault.InitializeLock(h.Program.bank(sv), vault.LockParams{
		Owner:           body.Owner,
		Recipient:       body.Recipient,
		Amount:          body.Amount,
		UnlockTimestamp: body.UnlockTimestamp,
	})
	if err != nil {
		return nil, programReceipt(tx, h.Kind(), err), err
	}

	ws := sv.Diff()
	return ws, succeedReceipt(tx, h.Kind(), ws, res.Record.Amount, res.Logs), nil
}
