package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quic-go/quic-go"
	"github.com/quic-go/quic-go/http3"
	"github.com/spf13/cobra"

	"timelock/clock"
	"timelock/config"
	"timelock/db"
	"timelock/handlers"
	"timelock/logs"
	"timelock/middleware"
	"timelock/stats"
	"timelock/vault"
	"timelock/vm"
)

// NodeInstance 一个运行中的节点
type NodeInstance struct {
	Cfg            *config.Config
	Server         *http.Server  // TCP HTTP server
	HTTP3Server    *http3.Server // QUIC HTTP/3 server，可选
	DBManager      *db.Manager
	Executor       *vm.Executor
	HandlerManager *handlers.HandlerManager
	Limiter        *middleware.RateLimiter
	Stats          *stats.Stats
	Logger         logs.Logger

	tcpListener net.Listener
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the vault node",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, err := newLogger(cfg)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		logs.SetGlobal(logger)
		defer logger.Sync()

		node, err := initializeNode(cfg, logger, clock.System{})
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return node.Run(ctx)
	},
}

// 初始化节点：数据库 -> 程序 -> 执行器 -> 路由
func initializeNode(cfg *config.Config, logger logs.Logger, clk clock.Clock) (*NodeInstance, error) {
	node := &NodeInstance{Cfg: cfg, Logger: logger, Stats: stats.NewStats()}

	// 1. 初始化数据库
	dbManager, err := db.NewManagerWithConfig(cfg.Database.DataDir, logger, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to init db: %w", err)
	}
	node.DBManager = dbManager

	// 2. 程序与执行器
	programID, err := cfg.ProgramAddress()
	if err != nil {
		dbManager.Close()
		return nil, err
	}
	prog := &vm.Program{
		Vault:    vault.NewController(programID, clk, logger),
		BankOpts: vm.BankOptionsFromConfig(cfg),
	}
	reg := vm.NewHandlerRegistry()
	if err := vm.RegisterDefaultHandlers(reg, prog, cfg); err != nil {
		dbManager.Close()
		return nil, err
	}
	executor, err := vm.NewExecutor(dbManager, reg, clk, node.Stats, logger, cfg)
	if err != nil {
		dbManager.Close()
		return nil, err
	}
	if _, err := executor.LoadSeen(); err != nil {
		dbManager.Close()
		return nil, err
	}
	if _, err := executor.LoadOpenVaults(prog.Vault.ProgramID()); err != nil {
		dbManager.Close()
		return nil, err
	}
	node.Executor = executor

	// 3. 路由 + 中间件
	node.HandlerManager = handlers.NewHandlerManager(dbManager, executor, prog, clk, node.Stats, logger, cfg)
	mux := http.NewServeMux()
	node.HandlerManager.RegisterRoutes(mux)
	node.Limiter = middleware.NewRateLimiter(cfg.Server.RateLimitPerSecond, cfg.Server.RateLimitBurst)
	handler := middleware.RequestID(node.Limiter.Middleware(mux))

	node.Server = &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.Server.HTTPTimeout,
		WriteTimeout:      cfg.Server.HTTPTimeout,
	}

	if cfg.Server.HTTP3Enabled {
		tlsConfig, err := loadTLSConfig(cfg)
		if err != nil {
			dbManager.Close()
			return nil, err
		}
		node.HTTP3Server = &http3.Server{
			Addr:      cfg.Server.HTTP3ListenAddr,
			Handler:   handler,
			TLSConfig: tlsConfig,
			QUICConfig: &quic.Config{
				KeepAlivePeriod: cfg.Server.QUICKeepAlivePeriod,
				MaxIdleTimeout:  cfg.Server.QUICMaxIdleTimeout,
			},
		}
	}

	logger.Info("[Node] program=%s fund_reserve=%v faucet=%v kinds=%v",
		programID, cfg.Rent.FundReserveOnAllocate, cfg.Faucet.Enabled, reg.List())
	return node, nil
}

// Run 启动服务器，ctx 结束后优雅退出
func (node *NodeInstance) Run(ctx context.Context) error {
	node.Limiter.StartIPCleanup(ctx)

	ln, err := net.Listen("tcp", node.Cfg.Server.ListenAddr)
	if err != nil {
		node.shutdown()
		return fmt.Errorf("listen %s: %w", node.Cfg.Server.ListenAddr, err)
	}
	node.tcpListener = ln

	errCh := make(chan error, 2)
	go func() {
		node.Logger.Info("[Node] Starting HTTP server on %s", ln.Addr())
		if err := node.Server.Serve(ln); err != nil && !isServerClosedErr(err) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	if node.HTTP3Server != nil {
		listener, err := quic.ListenAddr(node.HTTP3Server.Addr, node.HTTP3Server.TLSConfig, node.HTTP3Server.QUICConfig)
		if err != nil {
			node.shutdown()
			return fmt.Errorf("failed to create QUIC listener: %w", err)
		}
		go func() {
			node.Logger.Info("[Node] Starting HTTP/3 server on %s", node.HTTP3Server.Addr)
			if err := node.HTTP3Server.ServeListener(listener); err != nil && !isServerClosedErr(err) {
				errCh <- fmt.Errorf("http3 server: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		node.Logger.Info("[Node] shutting down")
	case runErr = <-errCh:
		node.Logger.Error("[Node] %v", runErr)
	}
	node.shutdown()
	return runErr
}

// 关闭顺序：HTTP/3 -> TCP -> 数据库
func (node *NodeInstance) shutdown() {
	if node.HTTP3Server != nil {
		if err := node.HTTP3Server.Close(); err != nil && !isServerClosedErr(err) {
			node.Logger.Warn("[Node] failed to close HTTP/3 server: %v", err)
		}
	}
	if node.Server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := node.Server.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			node.Logger.Warn("[Node] failed to shutdown TCP server: %v", err)
		}
		cancel()
	}
	if node.DBManager != nil {
		node.DBManager.Close()
	}
	node.Logger.Info("[Node] stopped")
}
