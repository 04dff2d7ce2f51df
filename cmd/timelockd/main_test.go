package main

import (
	"context"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timelock/clock"
	"timelock/config"
	"timelock/logs"
)

func TestGenerateSelfSignedCert(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := filepath.Join(dir, "a.crt"), filepath.Join(dir, "a.key")
	require.NoError(t, generateSelfSignedCert(certFile, keyFile, 30))

	raw, err := os.ReadFile(certFile)
	require.NoError(t, err)
	block, _ := pem.Decode(raw)
	require.NotNil(t, block)
	cert, err := x509.ParseCertificate(block.Bytes)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(30*24*time.Hour), cert.NotAfter, time.Minute)
	assert.Equal(t, "127.0.0.1", cert.IPAddresses[0].String())

	info, err := os.Stat(keyFile)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	// 已存在时复用
	require.NoError(t, generateSelfSignedCert(certFile, keyFile, 30))
	again, err := os.ReadFile(certFile)
	require.NoError(t, err)
	assert.Equal(t, raw, again)
}

func TestLoadTLSConfigGeneratesIntoDataDir(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Database.DataDir = t.TempDir()
	tlsCfg, err := loadTLSConfig(cfg)
	require.NoError(t, err)
	assert.Len(t, tlsCfg.Certificates, 1)
	assert.Contains(t, tlsCfg.NextProtos, "h3")
	assert.FileExists(t, filepath.Join(cfg.Database.DataDir, "server.crt"))
}

func TestAmountFromFlags(t *testing.T) {
	defer func() { flagSOL, flagLamports = "", 0 }()

	flagSOL = "1.5"
	v, err := amountFromFlags()
	require.NoError(t, err)
	assert.Equal(t, uint64(1_500_000_000), v)

	flagLamports = 10
	_, err = amountFromFlags()
	assert.Error(t, err)

	flagSOL = ""
	v, err = amountFromFlags()
	require.NoError(t, err)
	assert.Equal(t, uint64(10), v)

	flagLamports = 0
	_, err = amountFromFlags()
	assert.Error(t, err)
}

func TestUnlockFromFlags(t *testing.T) {
	defer func() { flagIn, flagUnlock = 0, 0 }()
	now := time.Unix(1_700_000_000, 0)

	flagIn = time.Hour
	v, err := unlockFromFlags(now)
	require.NoError(t, err)
	assert.Equal(t, int64(1_700_003_600), v)

	flagUnlock = 5
	_, err = unlockFromFlags(now)
	assert.Error(t, err)

	flagIn = 0
	v, err = unlockFromFlags(now)
	require.NoError(t, err)
	assert.Equal(t, int64(5), v)
}

func TestNodeStartsAndStops(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Database.InMemory = true
	cfg.Server.ListenAddr = "127.0.0.1:0"

	node, err := initializeNode(cfg, logs.NewNopLogger(), clock.NewManual(1_700_000_000))
	require.NoError(t, err)
	require.Nil(t, node.HTTP3Server)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- node.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("node did not stop")
	}
}

func TestHTTP3ServerRejectsEarlyData(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Database.InMemory = true
	cfg.Server.HTTP3Enabled = true
	cfg.Server.CertFile = filepath.Join(dir, "node.crt")
	cfg.Server.KeyFile = filepath.Join(dir, "node.key")
	require.NoError(t, generateSelfSignedCert(cfg.Server.CertFile, cfg.Server.KeyFile, 30))

	node, err := initializeNode(cfg, logs.NewNopLogger(), clock.NewManual(1_700_000_000))
	require.NoError(t, err)
	defer node.DBManager.Close()

	require.NotNil(t, node.HTTP3Server)
	require.NotNil(t, node.HTTP3Server.QUICConfig)
	// POST /tx 会改状态，不接受 0-RTT
	assert.False(t, node.HTTP3Server.QUICConfig.Allow0RTT)
	assert.Equal(t, cfg.Server.QUICMaxIdleTimeout, node.HTTP3Server.QUICConfig.MaxIdleTimeout)
}
