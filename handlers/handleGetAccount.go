package handlers

import (
	"fmt"
	"net/http"

	"timelock/ledger"
	"timelock/types"
)

// HandleGetAccount 处理获取账户信息的请求
func (hm *HandlerManager) HandleGetAccount(w http.ResponseWriter, r *http.Request) {
	hm.Stats.RecordAPICall("HandleGetAccount")

	addr, err := queryAddress(r, "address")
	if err != nil {
		writeError(w, err)
		return
	}

	acc, ok, err := hm.readBank().Get(addr)
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok {
		writeError(w, fmt.Errorf("%w: %s", ledger.ErrAccountNotFound, addr))
		return
	}

	writeJSON(w, http.StatusOK, &AccountResponse{
		Address:  addr.String(),
		Lamports: acc.Lamports,
		SOL:      ledger.FormatSOL(acc.Lamports),
		Owner:    acc.Owner.String(),
		Data:     acc.Data,
	})
}

// queryAddress 必填的 base58 地址参数
func queryAddress(r *http.Request, name string) (types.Address, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return types.Address{}, fmt.Errorf("%w: %s is required", errBadRequest, name)
	}
	a, err := types.ParseAddress(raw)
	if err != nil {
		return types.Address{}, fmt.Errorf("%s: %w", name, err)
	}
	return a, nil
}

// optionalAddress 可选的地址过滤条件
func optionalAddress(r *http.Request, name string) (*types.Address, error) {
	if r.URL.Query().Get(name) == "" {
		return nil, nil
	}
	a, err := queryAddress(r, name)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
