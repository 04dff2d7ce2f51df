package vm

import (
	"errors"
	"fmt"

	"timelock/types"
)

var ErrAirdropTooLarge = errors.New("airdrop exceeds faucet limit")

// AirdropTxHandler 测试网水龙头，只有 faucet.enabled 时才注册
type AirdropTxHandler struct {
	Program     *Program
	MaxLamports uint64
}

func (h *AirdropTxHandler) Kind() string {
	return types.KindAirdrop
}

func (h *AirdropTxHandler) Accounts(tx *types.AnyTx) ([]types.Address, error) {
	body := tx.Airdrop
	if body == nil {
		return nil, fmt.Errorf("%w: not an airdrop transaction", ErrInvalidTx)
	}
	return []types.Address{body.To}, nil
}

func (h *AirdropTxHandler) DryRun(tx *types.AnyTx, sv StateView) ([]WriteOp, *Receipt, error) {
	body := tx.Airdrop
	if body == nil {
		return nil, nil, fmt.Errorf("%w: not an airdrop transaction", ErrInvalidTx)
	}
	if body.Amount == 0 {
		return nil, failedReceipt(txIDOf(tx), h.Kind(), ErrInvalidAmount), ErrInvalidAmount
	}
	if h.MaxLamports > 0 && body.Amount > h.MaxLamports {
		err := fmt.Errorf("%w: %d > %d", ErrAirdropTooLarge, body.Amount, h.MaxLamports)
		return nil, failedReceipt(txIDOf(tx), h.Kind(), err), err
	}

	if err := h.Program.bank(sv).Mint(body.To, body.Amount); err != nil {
		return nil, failedReceipt(txIDOf(tx), h.Kind(), err), err
	}

	ws := sv.Diff()
	msg := fmt.Sprintf("Airdropped %d lamports", body.Amount)
	return ws, succeedReceipt(tx, h.Kind(), ws, body.Amount, []string{msg}), nil
}
