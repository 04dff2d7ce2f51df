package handlers

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"

	"timelock/keys"
	"timelock/ledger"
	"timelock/types"
	"timelock/vault"
)

// HandleGetVault 查询单个金库
func (hm *HandlerManager) HandleGetVault(w http.ResponseWriter, r *http.Request) {
	hm.Stats.RecordAPICall("HandleGetVault")

	addr, err := queryAddress(r, "address")
	if err != nil {
		writeError(w, err)
		return
	}
	now, err := hm.now()
	if err != nil {
		writeError(w, err)
		return
	}

	bank := hm.readBank()
	v, err := hm.program.Vault.Load(bank, addr)
	if err != nil {
		writeError(w, err)
		return
	}
	held, err := bank.BalanceOf(addr)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vaultView(addr, v, held, bank.MinimumReserve(vault.RecordSize), now))
}

// HandleListVaults 扫描所有程序账户，按 owner / recipient / status 过滤
func (hm *HandlerManager) HandleListVaults(w http.ResponseWriter, r *http.Request) {
	hm.Stats.RecordAPICall("HandleListVaults")

	owner, err := optionalAddress(r, "owner")
	if err != nil {
		writeError(w, err)
		return
	}
	recipient, err := optionalAddress(r, "recipient")
	if err != nil {
		writeError(w, err)
		return
	}
	status := vault.Status(r.URL.Query().Get("status"))
	now, err := hm.now()
	if err != nil {
		writeError(w, err)
		return
	}

	rows, err := hm.dbManager.Scan(keys.KeyAccountPrefix())
	if err != nil {
		hm.Logger.Error("[Handler] scan accounts: %v", err)
		writeError(w, err)
		return
	}

	programID := hm.program.Vault.ProgramID()
	reserve := hm.readBank().MinimumReserve(vault.RecordSize)
	out := make([]VaultResponse, 0)
	for k, raw := range rows {
		acc, err := ledger.DecodeAccount(raw)
		if err != nil || acc.Owner != programID || !vault.IsRecord(acc.Data) {
			continue
		}
		v, err := vault.Unmarshal(acc.Data)
		if err != nil || !v.IsInitialized {
			continue
		}
		if owner != nil && v.Owner != *owner {
			continue
		}
		if recipient != nil && v.Recipient != *recipient {
			continue
		}
		if status != "" && v.StatusAt(now) != status {
			continue
		}
		s, ok := keys.AddressFromAccountKey(k)
		if !ok {
			continue
		}
		addr, err := types.ParseAddress(s)
		if err != nil {
			hm.Logger.Warn("[Handler] bad account key %q: %v", k, err)
			continue
		}
		out = append(out, *vaultView(addr, v, acc.Lamports, reserve, now))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UnlockTimestamp != out[j].UnlockTimestamp {
			return out[i].UnlockTimestamp < out[j].UnlockTimestamp
		}
		return out[i].Address < out[j].Address
	})
	writeJSON(w, http.StatusOK, &VaultsResponse{Now: now, Vaults: out})
}

// HandleDerive 计算 (owner, recipient, unlock) 对应的金库地址，不读库
func (hm *HandlerManager) HandleDerive(w http.ResponseWriter, r *http.Request) {
	hm.Stats.RecordAPICall("HandleDerive")

	owner, err := queryAddress(r, "owner")
	if err != nil {
		writeError(w, err)
		return
	}
	recipient, err := queryAddress(r, "recipient")
	if err != nil {
		writeError(w, err)
		return
	}
	unlock, err := strconv.ParseInt(r.URL.Query().Get("unlock"), 10, 64)
	if err != nil {
		writeError(w, fmt.Errorf("%w: unlock must be an integer timestamp", errBadRequest))
		return
	}

	addr, bump, err := hm.program.Vault.Derive(owner, recipient, unlock)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := &DeriveResponse{Address: addr.String(), Bump: bump}
	for _, s := range vault.Seeds(owner, recipient, unlock) {
		resp.Seeds = append(resp.Seeds, s)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (hm *HandlerManager) now() (int64, error) {
	now, err := hm.clock.Now()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", vault.ErrClockUnavailable, err)
	}
	return now, nil
}

func vaultView(addr types.Address, v *vault.Vault, held, reserve uint64, now int64) *VaultResponse {
	resp := &VaultResponse{
		Address:          addr.String(),
		Owner:            v.Owner.String(),
		Recipient:        v.Recipient.String(),
		Amount:           v.Amount,
		UnlockTimestamp:  v.UnlockTimestamp,
		IsInitialized:    v.IsInitialized,
		Status:           string(v.StatusAt(now)),
		RemainingSeconds: v.Remaining(now),
		Lamports:         held,
	}
	if v.Amount > 0 {
		resp.Withdrawable = ledger.SaturatingSub(held, reserve)
	}
	return resp
}
