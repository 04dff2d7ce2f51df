package vm

import (
	"timelock/ledger"
	"timelock/types"
	"timelock/vault"
)

// Program 处理器共享的依赖：vault 控制器 + 账本参数
type Program struct {
	Vault    *vault.Controller
	BankOpts []ledger.Option
}

func (p *Program) bank(sv StateView) *ledger.Bank {
	return ledger.NewBank(sv, p.BankOpts...)
}

// txIDOf 只在已经确认交易体合法之后调用
func txIDOf(tx *types.AnyTx) string {
	id, _ := tx.TxID()
	return id
}

// programReceipt 业务失败的回执，带上程序错误码
func programReceipt(tx *types.AnyTx, kind string, err error) *Receipt {
	rc := failedReceipt(txIDOf(tx), kind, err)
	rc.Code = vault.Code(err)
	return rc
}

func succeedReceipt(tx *types.AnyTx, kind string, ws []WriteOp, amount uint64, logLines []string) *Receipt {
	return &Receipt{
		TxID:       txIDOf(tx),
		Kind:       kind,
		Status:     StatusSucceed,
		Logs:       logLines,
		Amount:     amount,
		WriteCount: len(ws),
	}
}
