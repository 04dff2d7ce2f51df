package vm

import (
	"errors"
	"fmt"

	"timelock/types"
)

var ErrInvalidAmount = errors.New("invalid transfer amount")

// TransferTxHandler 普通账户之间转账
type TransferTxHandler struct {
	Program *Program
}

func (h *TransferTxHandler) Kind() string {
	return types.KindTransfer
}

func (h *TransferTxHandler) Accounts(tx *types.AnyTx) ([]types.Address, error) {
	body := tx.Transfer
	if body == nil {
		return nil, fmt.Errorf("%w: not a transfer transaction", ErrInvalidTx)
	}
	return []types.Address{body.From, body.To}, nil
}

func (h *TransferTxHandler) DryRun(tx *types.AnyTx, sv StateView) ([]WriteOp, *Receipt, error) {
	body := tx.Transfer
	if body == nil {
		return nil, nil, fmt.Errorf("%w: not a transfer transaction", ErrInvalidTx)
	}
	if body.Amount == 0 {
		return nil, failedReceipt(txIDOf(tx), h.Kind(), ErrInvalidAmount), ErrInvalidAmount
	}

	if err := h.Program.bank(sv).SystemTransfer(body.From, body.To, body.Amount); err != nil {
		return nil, failedReceipt(txIDOf(tx), h.Kind(), err), err
	}

	ws := sv.Diff()
	msg := fmt.Sprintf("Transferred %d lamports", body.Amount)
	return ws, succeedReceipt(tx, h.Kind(), ws, body.Amount, []string{msg}), nil
}
