package client

import (
	"crypto/tls"
	"net/http"
	"time"

	"github.com/quic-go/quic-go"
	"github.com/quic-go/quic-go/http3"

	"timelock/config"
)

// newHTTP3Client 节点用自签名证书，客户端不校验
func newHTTP3Client(cfg *config.Config) *http.Client {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	tlsCfg := &tls.Config{
		InsecureSkipVerify: true,
		MinVersion:         tls.VersionTLS13,
		MaxVersion:         tls.VersionTLS13,
		ClientSessionCache: tls.NewLRUClientSessionCache(128),
		NextProtos:         []string{"h3"},
	}

	tr := &http3.Transport{
		TLSClientConfig: tlsCfg,
		QUICConfig: &quic.Config{
			KeepAlivePeriod: cfg.Server.QUICKeepAlivePeriod,
			MaxIdleTimeout:  cfg.Server.QUICMaxIdleTimeout,
			Allow0RTT:       true,
		},
	}

	return &http.Client{
		Transport: tr,
		Timeout:   cfg.Server.HTTPTimeout,
	}
}

func newTCPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}
