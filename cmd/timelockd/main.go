package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"timelock/client"
	"timelock/config"
	"timelock/logs"
)

var (
	configPath string
	nodeURL    string
	useHTTP3   bool
	logLevel   string
)

// rootCmd 不带子命令时只打印帮助
var rootCmd = &cobra.Command{
	Use:   "timelockd",
	Short: "Time-locked vault node and client",
	Long: `timelockd runs a time-locked vault node (serve) and talks to one ` +
		`(lock, withdraw, vault, ...). Vaults hold lamports until their unlock ` +
		`timestamp, then release them to the owner or recipient.`,
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Path to config file (yaml/json/toml); TIMELOCK_* env vars override")
	pf.StringVar(&nodeURL, "node", "http://127.0.0.1:8899", "Node API base URL for client commands")
	pf.BoolVar(&useHTTP3, "http3", false, "Talk to the node over HTTP/3 (use an https:// --node URL)")
	pf.StringVar(&logLevel, "log-level", "", "Override log.level (trace, debug, verbose, info, warn, error)")

	rootCmd.AddCommand(serveCmd, keygenCmd, deriveCmd, lockCmd, withdrawCmd,
		transferCmd, airdropCmd, vaultCmd, vaultsCmd, accountCmd, receiptCmd, statusCmd)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (logs.Logger, error) {
	return logs.New(logs.Options{
		Name:     "timelockd",
		Level:    logs.ParseLevel(cfg.Log.Level),
		Encoding: cfg.Log.Encoding,
	})
}

func newClient() (*client.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return client.New(nodeURL, useHTTP3, cfg), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
