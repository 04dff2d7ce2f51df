package handlers

import (
	"net/http"
	"time"
)

// 处理状态查询
func (hm *HandlerManager) HandleStatus(w http.ResponseWriter, r *http.Request) {
	hm.Stats.RecordAPICall("HandleStatus")

	resp := &StatusResponse{
		Status:    "ok",
		ProgramID: hm.program.Vault.ProgramID().String(),
		Uptime:    time.Since(hm.startedAt).Truncate(time.Second).String(),
		TxKinds:   hm.executor.Reg.List(),
		APICalls:  hm.Stats.GetAPICallStats(),
	}
	if now, err := hm.clock.Now(); err == nil {
		resp.Now = now
	} else {
		resp.Status = "degraded"
		hm.Logger.Warn("[Handler] status: clock unavailable: %v", err)
	}
	writeJSON(w, http.StatusOK, resp)
}
