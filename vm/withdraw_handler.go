package vm

import (
	"fmt"

	"timelock/types"
	"timelock/vault"
)

// WithdrawTxHandler 到期提取
type WithdrawTxHandler struct {
	Program *Program
}

func (h *WithdrawTxHandler) Kind() string {
	return types.KindWithdraw
}

func (h *WithdrawTxHandler) Accounts(tx *types.AnyTx) ([]types.Address, error) {
	body := tx.Withdraw
	if body == nil {
		return nil, fmt.Errorf("%w: not a withdraw transaction", ErrInvalidTx)
	}
	return []types.Address{body.Vault, body.Caller, body.To}, nil
}

func (h *WithdrawTxHandler) DryRun(tx *types.AnyTx, sv StateView) ([]WriteOp, *Receipt, error) {
	body := tx.Withdraw
	if body == nil {
		return nil, nil, fmt.Errorf("%w: not a withdraw transaction", ErrInvalidTx)
	}

	res, err := h.Program.Vault.Withdraw(h.Program.bank(sv), vault.WithdrawParams{
		Vault:       body.Vault,
		Caller:      body.Caller,
		Destination: body.To,
	})
	if err != nil {
		return nil, programReceipt(tx, h.Kind(), err), err
	}

	ws := sv.Diff()
	return ws, succeedReceipt(tx, h.Kind(), ws, res.Amount, res.Logs), nil
}
