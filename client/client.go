// Package client 节点 HTTP API 的客户端，CLI 用
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"timelock/config"
	"timelock/handlers"
	"timelock/types"
	"timelock/vm"
)

// RemoteError 节点返回的非 2xx 响应
type RemoteError struct {
	Status int
	API    *handlers.APIError
}

func (e *RemoteError) Error() string {
	if e.API == nil {
		return fmt.Sprintf("node returned %d", e.Status)
	}
	if e.API.Name != "" {
		return fmt.Sprintf("node returned %d: %s (%d): %s", e.Status, e.API.Name, e.API.Code, e.API.Message)
	}
	return fmt.Sprintf("node returned %d: %s", e.Status, e.API.Message)
}

// ErrorName 程序错误名，例如 "TooEarly"
func ErrorName(err error) string {
	var re *RemoteError
	if errors.As(err, &re) && re.API != nil {
		return re.API.Name
	}
	return ""
}

// Client 节点客户端
type Client struct {
	base string
	http *http.Client
}

// New baseURL 形如 http://127.0.0.1:8899；useHTTP3 时走 QUIC（https）
func New(baseURL string, useHTTP3 bool, cfg *config.Config) *Client {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	c := &Client{base: strings.TrimRight(baseURL, "/")}
	if useHTTP3 {
		c.http = newHTTP3Client(cfg)
	} else {
		c.http = newTCPClient(cfg.Server.HTTPTimeout)
	}
	return c
}

// WithHTTPClient 测试时替换底层 http.Client
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.http = hc
	return c
}

// SubmitTx 提交交易；业务失败时同时返回回执和 *RemoteError
func (c *Client) SubmitTx(ctx context.Context, tx *types.AnyTx) (*vm.Receipt, error) {
	body, err := json.Marshal(tx)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/tx", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out handlers.TxResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode tx response (%d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		return out.Receipt, &RemoteError{Status: resp.StatusCode, API: out.Error}
	}
	return out.Receipt, nil
}

func (c *Client) GetReceipt(ctx context.Context, txID string) (*vm.Receipt, error) {
	var rc vm.Receipt
	if err := c.get(ctx, "/gettxreceipt", url.Values{"txid": {txID}}, &rc); err != nil {
		return nil, err
	}
	return &rc, nil
}

func (c *Client) GetAccount(ctx context.Context, addr types.Address) (*handlers.AccountResponse, error) {
	var out handlers.AccountResponse
	if err := c.get(ctx, "/getaccount", url.Values{"address": {addr.String()}}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetVault(ctx context.Context, addr types.Address) (*handlers.VaultResponse, error) {
	var out handlers.VaultResponse
	if err := c.get(ctx, "/vault", url.Values{"address": {addr.String()}}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListVaults owner / recipient 为 nil 表示不过滤；status 为空表示全部
func (c *Client) ListVaults(ctx context.Context, owner, recipient *types.Address, status string) (*handlers.VaultsResponse, error) {
	q := url.Values{}
	if owner != nil {
		q.Set("owner", owner.String())
	}
	if recipient != nil {
		q.Set("recipient", recipient.String())
	}
	if status != "" {
		q.Set("status", status)
	}
	var out handlers.VaultsResponse
	if err := c.get(ctx, "/vaults", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Derive(ctx context.Context, owner, recipient types.Address, unlock int64) (*handlers.DeriveResponse, error) {
	q := url.Values{
		"owner":     {owner.String()},
		"recipient": {recipient.String()},
		"unlock":    {strconv.FormatInt(unlock, 10)},
	}
	var out handlers.DeriveResponse
	if err := c.get(ctx, "/derive", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Status(ctx context.Context) (*handlers.StatusResponse, error) {
	var out handlers.StatusResponse
	if err := c.get(ctx, "/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out interface{}) error {
	u := c.base + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		var er handlers.ErrorResponse
		_ = json.Unmarshal(raw, &er)
		return &RemoteError{Status: resp.StatusCode, API: er.Error}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
