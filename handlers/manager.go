package handlers

import (
	"net/http"
	"time"

	"timelock/clock"
	"timelock/config"
	"timelock/db"
	"timelock/ledger"
	"timelock/logs"
	"timelock/stats"
	"timelock/vm"
)

// HandlerManager 管理所有HTTP处理器及其依赖
type HandlerManager struct {
	dbManager *db.Manager
	executor  *vm.Executor
	program   *vm.Program
	clock     clock.Clock
	maxBody   int64
	startedAt time.Time

	// 统计相关字段
	Stats  *stats.Stats
	Logger logs.Logger
}

// NewHandlerManager 创建新的处理器管理器；st 为 nil 时新建
func NewHandlerManager(
	dbMgr *db.Manager,
	executor *vm.Executor,
	program *vm.Program,
	clk clock.Clock,
	st *stats.Stats,
	logger logs.Logger,
	cfg *config.Config,
) *HandlerManager {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if st == nil {
		st = stats.NewStats()
	}
	if logger == nil {
		logger = logs.NewNopLogger()
	}
	if clk == nil {
		clk = clock.System{}
	}
	return &HandlerManager{
		dbManager: dbMgr,
		executor:  executor,
		program:   program,
		clock:     clk,
		maxBody:   cfg.Server.MaxRequestBodySize,
		startedAt: time.Now(),
		Stats:     st,
		Logger:    logger.Named("api"),
	}
}

// RegisterRoutes 注册所有路由
func (hm *HandlerManager) RegisterRoutes(mux *http.ServeMux) {
	// 交易
	mux.HandleFunc("/tx", hm.HandleTx)
	mux.HandleFunc("/gettxreceipt", hm.HandleGetTxReceipt)
	// 账户与金库查询
	mux.HandleFunc("/getaccount", hm.HandleGetAccount)
	mux.HandleFunc("/vault", hm.HandleGetVault)
	mux.HandleFunc("/vaults", hm.HandleListVaults)
	mux.HandleFunc("/derive", hm.HandleDerive)
	// 基本功能
	mux.HandleFunc("/status", hm.HandleStatus)
	mux.Handle("/metrics", hm.Stats.Handler())
}

// readBank 只读账本：写入只落在丢弃的 overlay 上
func (hm *HandlerManager) readBank() *ledger.Bank {
	sv := vm.NewStateView(hm.dbManager.Get)
	return ledger.NewBank(sv, hm.program.BankOpts...)
}

func (hm *HandlerManager) requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	writeJSON(w, http.StatusMethodNotAllowed, &ErrorResponse{Error: &APIError{Message: "method not allowed"}})
	return false
}
