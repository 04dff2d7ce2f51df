package types

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/near/borsh-go"
)

// 交易类型
const (
	KindInitializeLock = "initialize_lock"
	KindWithdraw       = "withdraw"
	KindTransfer       = "transfer"
	KindAirdrop        = "airdrop"
)

// txDigestTag 交易签名摘要的 BIP340 tag
var txDigestTag = []byte("timelock/tx")

var (
	ErrNilTx            = errors.New("nil transaction")
	ErrEmptyTx          = errors.New("transaction has no body")
	ErrMultipleBodies   = errors.New("transaction has more than one body")
	ErrMissingSignature = errors.New("missing signature")
	ErrBadSignature     = errors.New("signature verification failed")
	ErrSignerMismatch   = errors.New("private key does not match tx signer")
)

// InitializeLockTx 锁仓：owner 签名，recipient 只是被指定
type InitializeLockTx struct {
	Owner           Address `json:"owner"`
	Recipient       Address `json:"recipient"`
	Amount          uint64  `json:"amount"`
	UnlockTimestamp int64   `json:"unlock_timestamp"`
	Nonce           uint64  `json:"nonce"`
}

// WithdrawTx 提取：caller 签名，To 不需要签名
type WithdrawTx struct {
	Caller Address `json:"caller"`
	To     Address `json:"to"`
	Vault  Address `json:"vault"`
	Nonce  uint64  `json:"nonce"`
}

// TransferTx 普通转账
type TransferTx struct {
	From   Address `json:"from"`
	To     Address `json:"to"`
	Amount uint64  `json:"amount"`
	Nonce  uint64  `json:"nonce"`
}

// AirdropTx 测试网水龙头，无签名
type AirdropTx struct {
	To     Address `json:"to"`
	Amount uint64  `json:"amount"`
	Nonce  uint64  `json:"nonce"`
}

// AnyTx 交易信封，恰好携带一种交易体
type AnyTx struct {
	InitializeLock *InitializeLockTx `json:"initialize_lock,omitempty"`
	Withdraw       *WithdrawTx       `json:"withdraw,omitempty"`
	Transfer       *TransferTx       `json:"transfer,omitempty"`
	Airdrop        *AirdropTx        `json:"airdrop,omitempty"`
	Signature      hexutil.Bytes     `json:"signature,omitempty"`
}

// Kind 交易类型，没有或多于一个交易体都报错
func (tx *AnyTx) Kind() (string, error) {
	kind, _, err := tx.body()
	return kind, err
}

// body 返回交易类型和交易体的值（非指针，borsh 会把指针编码成 Option）
func (tx *AnyTx) body() (string, interface{}, error) {
	if tx == nil {
		return "", nil, ErrNilTx
	}
	var (
		kind string
		body interface{}
		n    int
	)
	if tx.InitializeLock != nil {
		kind, body, n = KindInitializeLock, *tx.InitializeLock, n+1
	}
	if tx.Withdraw != nil {
		kind, body, n = KindWithdraw, *tx.Withdraw, n+1
	}
	if tx.Transfer != nil {
		kind, body, n = KindTransfer, *tx.Transfer, n+1
	}
	if tx.Airdrop != nil {
		kind, body, n = KindAirdrop, *tx.Airdrop, n+1
	}
	switch n {
	case 0:
		return "", nil, ErrEmptyTx
	case 1:
		return kind, body, nil
	default:
		return "", nil, ErrMultipleBodies
	}
}

// Signer 需要签名的身份；airdrop 没有签名者
func (tx *AnyTx) Signer() (Address, bool) {
	switch {
	case tx == nil:
		return Address{}, false
	case tx.InitializeLock != nil:
		return tx.InitializeLock.Owner, true
	case tx.Withdraw != nil:
		return tx.Withdraw.Caller, true
	case tx.Transfer != nil:
		return tx.Transfer.From, true
	default:
		return Address{}, false
	}
}

// SigningHash = TaggedHash("timelock/tx", kind, borsh(body))
func (tx *AnyTx) SigningHash() ([]byte, error) {
	kind, body, err := tx.body()
	if err != nil {
		return nil, err
	}
	payload, err := borsh.Serialize(body)
	if err != nil {
		return nil, fmt.Errorf("serialize %s body: %w", kind, err)
	}
	h := chainhash.TaggedHash(txDigestTag, []byte(kind), payload)
	return h[:], nil
}

// TxID 摘要的 hex；不含签名，重签同一笔交易得到同一个 ID
func (tx *AnyTx) TxID() (string, error) {
	h, err := tx.SigningHash()
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(h), nil
}

// Sign 用签名者私钥做 BIP340 签名
func (tx *AnyTx) Sign(priv *btcec.PrivateKey) error {
	signer, needsSig := tx.Signer()
	if !needsSig {
		return nil
	}
	if AddressFromPubKey(priv.PubKey()) != signer {
		return ErrSignerMismatch
	}
	h, err := tx.SigningHash()
	if err != nil {
		return err
	}
	sig, err := schnorr.Sign(priv, h)
	if err != nil {
		return fmt.Errorf("schnorr sign: %w", err)
	}
	tx.Signature = sig.Serialize()
	return nil
}

// VerifySignature 校验签名者身份；无签名者的交易直接通过
func (tx *AnyTx) VerifySignature() error {
	signer, needsSig := tx.Signer()
	if !needsSig {
		if _, _, err := tx.body(); err != nil {
			return err
		}
		return nil
	}
	if len(tx.Signature) == 0 {
		return ErrMissingSignature
	}
	h, err := tx.SigningHash()
	if err != nil {
		return err
	}
	pub, err := schnorr.ParsePubKey(signer[:])
	if err != nil {
		return fmt.Errorf("%w: signer is not a valid x-only key: %v", ErrBadSignature, err)
	}
	sig, err := schnorr.ParseSignature(tx.Signature)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	if !sig.Verify(h, pub) {
		return ErrBadSignature
	}
	return nil
}
