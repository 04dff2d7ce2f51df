package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"timelock/middleware"
	"timelock/types"
)

// HandleTx 处理交易提交：同步执行，返回回执
func (hm *HandlerManager) HandleTx(w http.ResponseWriter, r *http.Request) {
	hm.Stats.RecordAPICall("HandleTx")
	if !hm.requireMethod(w, r, http.MethodPost) {
		return
	}

	var tx types.AnyTx
	body := http.MaxBytesReader(w, r.Body, hm.maxBody)
	if err := json.NewDecoder(body).Decode(&tx); err != nil {
		writeError(w, fmt.Errorf("%w: invalid AnyTx json: %v", errBadRequest, err))
		return
	}

	rc, err := hm.executor.Execute(r.Context(), &tx)
	if rc == nil {
		hm.Logger.Debug("[Handler] tx rejected req=%s from %s: %v", middleware.RequestIDFrom(r.Context()), r.RemoteAddr, err)
		writeError(w, err)
		return
	}
	writeJSON(w, statusFor(err), &TxResponse{Receipt: rc, Error: apiError(err)})
}

// HandleGetTxReceipt 按 txid 查回执
func (hm *HandlerManager) HandleGetTxReceipt(w http.ResponseWriter, r *http.Request) {
	hm.Stats.RecordAPICall("HandleGetTxReceipt")
	txID := r.URL.Query().Get("txid")
	if txID == "" {
		writeError(w, fmt.Errorf("%w: txid is required", errBadRequest))
		return
	}
	rc, err := hm.executor.GetReceipt(txID)
	if err != nil {
		hm.Logger.Error("[Handler] get receipt %s: %v", txID, err)
		writeError(w, err)
		return
	}
	if rc == nil {
		writeError(w, fmt.Errorf("%w: receipt %s", errNotFound, txID))
		return
	}
	writeJSON(w, http.StatusOK, rc)
}
