package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/spf13/cobra"

	"timelock/ledger"
	"timelock/types"
	"timelock/utils"
	"timelock/vault"
)

var (
	flagKey       string
	flagRecipient string
	flagOwner     string
	flagTo        string
	flagVault     string
	flagSOL       string
	flagLamports  uint64
	flagUnlock    int64
	flagIn        time.Duration
	flagStatus    string
	flagNonce     uint64
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a signing key and print its address",
	RunE: func(cmd *cobra.Command, args []string) error {
		priv, err := utils.GeneratePrivateKey()
		if err != nil {
			return err
		}
		wif, err := utils.PrivateKeyWIF(priv)
		if err != nil {
			return err
		}
		return printJSON(map[string]string{
			"address": utils.AddressOf(priv).String(),
			"hex":     utils.PrivateKeyHex(priv),
			"wif":     wif,
		})
	},
}

var deriveCmd = &cobra.Command{
	Use:   "derive",
	Short: "Compute a vault address locally from owner, recipient and unlock time",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		programID, err := cfg.ProgramAddress()
		if err != nil {
			return err
		}
		owner, recipient, err := ownerRecipient()
		if err != nil {
			return err
		}
		addr, bump, err := vault.DeriveAddress(programID, owner, recipient, flagUnlock)
		if err != nil {
			return err
		}
		return printJSON(map[string]interface{}{"address": addr.String(), "bump": bump})
	},
}

var lockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Lock lamports in a vault for a recipient until an unlock time",
	RunE: func(cmd *cobra.Command, args []string) error {
		priv, err := signingKey()
		if err != nil {
			return err
		}
		recipient, err := types.ParseAddress(flagRecipient)
		if err != nil {
			return fmt.Errorf("--recipient: %w", err)
		}
		amount, err := amountFromFlags()
		if err != nil {
			return err
		}
		unlock, err := unlockFromFlags(time.Now())
		if err != nil {
			return err
		}
		tx := &types.AnyTx{InitializeLock: &types.InitializeLockTx{
			Owner:           utils.AddressOf(priv),
			Recipient:       recipient,
			Amount:          amount,
			UnlockTimestamp: unlock,
			Nonce:           nonce(),
		}}
		return submit(cmd.Context(), tx, priv)
	},
}

var withdrawCmd = &cobra.Command{
	Use:   "withdraw",
	Short: "Withdraw an unlocked vault (owner or recipient)",
	RunE: func(cmd *cobra.Command, args []string) error {
		priv, err := signingKey()
		if err != nil {
			return err
		}
		caller := utils.AddressOf(priv)
		to := caller
		if flagTo != "" {
			if to, err = types.ParseAddress(flagTo); err != nil {
				return fmt.Errorf("--to: %w", err)
			}
		}
		vaultAddr, err := vaultFromFlags(cmd.Context())
		if err != nil {
			return err
		}
		tx := &types.AnyTx{Withdraw: &types.WithdrawTx{Caller: caller, To: to, Vault: vaultAddr, Nonce: nonce()}}
		return submit(cmd.Context(), tx, priv)
	},
}

var transferCmd = &cobra.Command{
	Use:   "transfer",
	Short: "Transfer lamports between system accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		priv, err := signingKey()
		if err != nil {
			return err
		}
		to, err := types.ParseAddress(flagTo)
		if err != nil {
			return fmt.Errorf("--to: %w", err)
		}
		amount, err := amountFromFlags()
		if err != nil {
			return err
		}
		tx := &types.AnyTx{Transfer: &types.TransferTx{From: utils.AddressOf(priv), To: to, Amount: amount, Nonce: nonce()}}
		return submit(cmd.Context(), tx, priv)
	},
}

var airdropCmd = &cobra.Command{
	Use:   "airdrop",
	Short: "Request lamports from the node faucet (devnet only)",
	RunE: func(cmd *cobra.Command, args []string) error {
		to, err := types.ParseAddress(flagTo)
		if err != nil {
			return fmt.Errorf("--to: %w", err)
		}
		amount, err := amountFromFlags()
		if err != nil {
			return err
		}
		return submit(cmd.Context(), &types.AnyTx{Airdrop: &types.AirdropTx{To: to, Amount: amount, Nonce: nonce()}}, nil)
	},
}

var vaultCmd = &cobra.Command{
	Use:   "vault",
	Short: "Show a vault by address, or by --owner/--recipient/--unlock",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		addr, err := vaultFromFlags(cmd.Context())
		if err != nil {
			return err
		}
		v, err := c.GetVault(cmd.Context(), addr)
		if err != nil {
			return err
		}
		return printJSON(v)
	},
}

var vaultsCmd = &cobra.Command{
	Use:   "vaults",
	Short: "List vaults, optionally filtered by owner, recipient and status",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		owner, err := optionalAddr(flagOwner, "--owner")
		if err != nil {
			return err
		}
		recipient, err := optionalAddr(flagRecipient, "--recipient")
		if err != nil {
			return err
		}
		list, err := c.ListVaults(cmd.Context(), owner, recipient, flagStatus)
		if err != nil {
			return err
		}
		return printJSON(list)
	},
}

var accountCmd = &cobra.Command{
	Use:   "account [address]",
	Short: "Show an account balance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		addr, err := types.ParseAddress(args[0])
		if err != nil {
			return err
		}
		acc, err := c.GetAccount(cmd.Context(), addr)
		if err != nil {
			return err
		}
		return printJSON(acc)
	},
}

var receiptCmd = &cobra.Command{
	Use:   "receipt [txid]",
	Short: "Show a transaction receipt",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		rc, err := c.GetReceipt(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(rc)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show node status",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		st, err := c.Status(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(st)
	},
}

func init() {
	for _, c := range []*cobra.Command{lockCmd, withdrawCmd, transferCmd} {
		c.Flags().StringVar(&flagKey, "key", os.Getenv("TIMELOCK_KEY"), "Signing key (hex or WIF); defaults to $TIMELOCK_KEY")
		c.Flags().Uint64Var(&flagNonce, "nonce", 0, "Tx nonce (default: current time in ns)")
	}
	airdropCmd.Flags().Uint64Var(&flagNonce, "nonce", 0, "Tx nonce (default: current time in ns)")

	for _, c := range []*cobra.Command{lockCmd, transferCmd, airdropCmd} {
		c.Flags().StringVar(&flagSOL, "sol", "", "Amount in SOL, e.g. 1.5")
		c.Flags().Uint64Var(&flagLamports, "lamports", 0, "Amount in lamports")
	}
	for _, c := range []*cobra.Command{lockCmd, deriveCmd, withdrawCmd, vaultCmd} {
		c.Flags().Int64Var(&flagUnlock, "unlock", 0, "Unlock unix timestamp (seconds)")
	}
	lockCmd.Flags().DurationVar(&flagIn, "in", 0, "Unlock after this duration instead of --unlock, e.g. 24h")

	for _, c := range []*cobra.Command{lockCmd, deriveCmd, withdrawCmd, vaultCmd, vaultsCmd} {
		c.Flags().StringVar(&flagRecipient, "recipient", "", "Recipient address")
	}
	for _, c := range []*cobra.Command{deriveCmd, withdrawCmd, vaultCmd, vaultsCmd} {
		c.Flags().StringVar(&flagOwner, "owner", "", "Owner address")
	}
	for _, c := range []*cobra.Command{withdrawCmd, vaultCmd} {
		c.Flags().StringVar(&flagVault, "vault", "", "Vault address (otherwise derived from --owner/--recipient/--unlock)")
	}
	for _, c := range []*cobra.Command{withdrawCmd, transferCmd, airdropCmd} {
		c.Flags().StringVar(&flagTo, "to", "", "Destination address")
	}
	vaultsCmd.Flags().StringVar(&flagStatus, "status", "", "Filter by status: LOCKED, UNLOCKED or RELEASED")
}

func signingKey() (*btcec.PrivateKey, error) {
	if flagKey == "" {
		return nil, errors.New("--key or $TIMELOCK_KEY is required")
	}
	return utils.ParseSecp256k1PrivateKey(flagKey)
}

func amountFromFlags() (uint64, error) {
	switch {
	case flagSOL != "" && flagLamports != 0:
		return 0, errors.New("use either --sol or --lamports")
	case flagSOL != "":
		return ledger.ParseSOL(flagSOL)
	case flagLamports != 0:
		return flagLamports, nil
	default:
		return 0, errors.New("--sol or --lamports is required")
	}
}

func unlockFromFlags(now time.Time) (int64, error) {
	switch {
	case flagIn != 0 && flagUnlock != 0:
		return 0, errors.New("use either --unlock or --in")
	case flagIn != 0:
		return now.Add(flagIn).Unix(), nil
	case flagUnlock != 0:
		return flagUnlock, nil
	default:
		return 0, errors.New("--unlock or --in is required")
	}
}

func ownerRecipient() (types.Address, types.Address, error) {
	owner, err := types.ParseAddress(flagOwner)
	if err != nil {
		return types.Address{}, types.Address{}, fmt.Errorf("--owner: %w", err)
	}
	recipient, err := types.ParseAddress(flagRecipient)
	if err != nil {
		return types.Address{}, types.Address{}, fmt.Errorf("--recipient: %w", err)
	}
	return owner, recipient, nil
}

// vaultFromFlags --vault 优先，否则让节点按 seeds 计算
func vaultFromFlags(ctx context.Context) (types.Address, error) {
	if flagVault != "" {
		return types.ParseAddress(flagVault)
	}
	owner, recipient, err := ownerRecipient()
	if err != nil {
		return types.Address{}, fmt.Errorf("need --vault or --owner/--recipient/--unlock: %w", err)
	}
	c, err := newClient()
	if err != nil {
		return types.Address{}, err
	}
	d, err := c.Derive(ctx, owner, recipient, flagUnlock)
	if err != nil {
		return types.Address{}, err
	}
	return types.ParseAddress(d.Address)
}

func optionalAddr(s, flag string) (*types.Address, error) {
	if s == "" {
		return nil, nil
	}
	a, err := types.ParseAddress(s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", flag, err)
	}
	return &a, nil
}

func nonce() uint64 {
	if flagNonce != 0 {
		return flagNonce
	}
	return uint64(time.Now().UnixNano())
}

// submit 签名后提交；业务失败时先打印回执再返回错误
func submit(ctx context.Context, tx *types.AnyTx, priv *btcec.PrivateKey) error {
	if priv != nil {
		if err := tx.Sign(priv); err != nil {
			return err
		}
	}
	c, err := newClient()
	if err != nil {
		return err
	}
	rc, err := c.SubmitTx(ctx, tx)
	if rc != nil {
		if perr := printJSON(rc); perr != nil {
			return perr
		}
	}
	return err
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
