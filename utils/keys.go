package utils

import (
	"encoding/hex"
	"errors"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"timelock/types"
)

// ParseSecp256k1PrivateKey 同时支持 WIF 或 16 进制的32字节私钥字符串
func ParseSecp256k1PrivateKey(keyStr string) (*secp256k1.PrivateKey, error) {
	keyStr = strings.TrimSpace(keyStr)

	// 1) 尝试当作WIF解析
	if wif, err := btcutil.DecodeWIF(keyStr); err == nil {
		return wif.PrivKey, nil
	}

	// 2) 如果不是WIF，则尝试按Hex进行解析
	normalized, err := normalizeSecpPrivKey(keyStr)
	if err != nil {
		return nil, errors.New("invalid key (neither valid WIF nor valid hex): " + err.Error())
	}
	raw, err := hex.DecodeString(normalized)
	if err != nil {
		return nil, errors.New("invalid key (neither valid WIF nor valid hex): " + err.Error())
	}
	if len(raw) != 32 {
		return nil, errors.New("invalid private key length in hex (must be 32 bytes)")
	}

	return secp256k1.PrivKeyFromBytes(raw), nil
}

// GeneratePrivateKey 生成新的 secp256k1 私钥
func GeneratePrivateKey() (*secp256k1.PrivateKey, error) {
	return secp256k1.GeneratePrivateKey()
}

// PrivateKeyHex 32 字节私钥的 hex
func PrivateKeyHex(priv *secp256k1.PrivateKey) string {
	return hex.EncodeToString(priv.Serialize())
}

// PrivateKeyWIF 压缩格式的主网 WIF
func PrivateKeyWIF(priv *secp256k1.PrivateKey) (string, error) {
	wif, err := btcutil.NewWIF(priv, &chaincfg.MainNetParams, true)
	if err != nil {
		return "", err
	}
	return wif.String(), nil
}

// AddressOf 私钥对应的签名者地址
func AddressOf(priv *secp256k1.PrivateKey) types.Address {
	return types.AddressFromPubKey(priv.PubKey())
}

func normalizeSecpPrivKey(key string) (string, error) {
	key = strings.TrimPrefix(key, "0x")
	if !isHexString(key) {
		return "", errors.New("invalid hex string")
	}
	if len(key) < 64 {
		key = strings.Repeat("0", 64-len(key)) + key
	}
	return key, nil
}

func isHexString(value string) bool {
	_, err := hex.DecodeString(value)
	return err == nil
}
