// Package transport 账本节点客户端
//
// RESTClient 通过 HTTP 访问远端账本节点并实现 ledger.NodeClient；
// EventStream 通过 WebSocket 接收节点推送的事件。
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	apitypes "github.com/weisyn/zkcontract/internal/api/http/types"
	"github.com/weisyn/zkcontract/pkg/interfaces/ledger"
	"github.com/weisyn/zkcontract/pkg/types"
)

// RESTClient REST API 客户端
type RESTClient struct {
	host       string
	baseURL    string
	httpClient *http.Client
}

var _ ledger.NodeClient = (*RESTClient)(nil)

// NewRESTClient 创建REST客户端，baseURL 形如 http://localhost:4321
func NewRESTClient(baseURL string, timeout time.Duration) *RESTClient {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	host := strings.TrimRight(baseURL, "/")
	return &RESTClient{
		host:    host,
		baseURL: host + "/v1",
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// BaseURL 节点地址，不含 /v1
func (c *RESTClient) BaseURL() string {
	return c.host
}

// do 发送请求并解析响应
//
// 节点返回的错误按 kind 还原为本地错误分类，其余失败都包装 types.ErrTransport。
func (c *RESTClient) do(ctx context.Context, method, path string, body, result interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: marshal body: %v", types.ErrCodec, err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("%w: create request: %v", types.ErrTransport, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", types.ErrTransport, method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return remoteError(resp)
	}
	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("%w: decode response: %v", types.ErrTransport, err)
		}
	}
	return nil
}

func remoteError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	var body apitypes.ErrorResponse
	if err := json.Unmarshal(raw, &body); err != nil || body.Error == "" {
		return fmt.Errorf("%w: http %d: %s", types.ErrTransport, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if kindErr := types.KindError(body.Kind); kindErr != nil {
		return fmt.Errorf("%w: %s", kindErr, body.Error)
	}
	return fmt.Errorf("%w: http %d: %s", types.ErrTransport, resp.StatusCode, body.Error)
}

// ===== ledger.NodeClient =====

// RegisterContract POST /v1/contract/register
func (c *RESTClient) RegisterContract(ctx context.Context, req *types.RegisterContractRequest) (types.TxHash, error) {
	var result apitypes.TxHashResponse
	err := c.do(ctx, http.MethodPost, "/contract/register", req, &result)
	return result.TxHash, err
}

// SendBlobTransaction POST /v1/tx/send/blob
func (c *RESTClient) SendBlobTransaction(ctx context.Context, tx *types.BlobTransaction) (types.TxHash, error) {
	var result apitypes.TxHashResponse
	err := c.do(ctx, http.MethodPost, "/tx/send/blob", tx, &result)
	return result.TxHash, err
}

// SendProofTransaction POST /v1/tx/send/proof
func (c *RESTClient) SendProofTransaction(ctx context.Context, tx *types.ProofTransaction) (types.TxHash, error) {
	var result apitypes.TxHashResponse
	err := c.do(ctx, http.MethodPost, "/tx/send/proof", tx, &result)
	return result.TxHash, err
}

// GetContract GET /v1/contract/:name
func (c *RESTClient) GetContract(ctx context.Context, name types.ContractName) (*types.ContractRecord, error) {
	var record types.ContractRecord
	if err := c.do(ctx, http.MethodGet, "/contract/"+url.PathEscape(string(name)), nil, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// ===== 扩展查询 =====

// Contracts GET /v1/contracts
func (c *RESTClient) Contracts(ctx context.Context) ([]*types.ContractRecord, error) {
	var records []*types.ContractRecord
	err := c.do(ctx, http.MethodGet, "/contracts", nil, &records)
	return records, err
}

// GetBlobTransaction GET /v1/tx/blob/:hash
func (c *RESTClient) GetBlobTransaction(ctx context.Context, hash types.TxHash) (*types.BlobTransaction, error) {
	var tx types.BlobTransaction
	if err := c.do(ctx, http.MethodGet, "/tx/blob/"+hash.Hex(), nil, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}
