// Package handlers 账本节点的 HTTP 处理器
package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	apitypes "github.com/weisyn/zkcontract/internal/api/http/types"
	"github.com/weisyn/zkcontract/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/zkcontract/pkg/interfaces/ledger"
	"github.com/weisyn/zkcontract/pkg/types"
)

// LedgerService 处理器需要的账本能力
type LedgerService interface {
	ledger.NodeClient
	Contracts(ctx context.Context) ([]*types.ContractRecord, error)
	GetBlobTransaction(ctx context.Context, hash types.TxHash) (*types.BlobTransaction, error)
}

// LedgerHandlers 合约注册、交易提交与状态查询
type LedgerHandlers struct {
	service LedgerService
	logger  log.Logger
}

// NewLedgerHandlers 创建账本处理器
func NewLedgerHandlers(service LedgerService, logger log.Logger) *LedgerHandlers {
	return &LedgerHandlers{service: service, logger: logger}
}

// RegisterRoutes 注册路由
//
//	POST /v1/contract/register
//	GET  /v1/contract/:name
//	GET  /v1/contracts
//	POST /v1/tx/send/blob
//	POST /v1/tx/send/proof
//	GET  /v1/tx/blob/:hash
func (h *LedgerHandlers) RegisterRoutes(v1 *gin.RouterGroup) {
	v1.POST("/contract/register", h.RegisterContract)
	v1.GET("/contract/:name", h.GetContract)
	v1.GET("/contracts", h.ListContracts)
	v1.POST("/tx/send/blob", h.SendBlobTransaction)
	v1.POST("/tx/send/proof", h.SendProofTransaction)
	v1.GET("/tx/blob/:hash", h.GetBlobTransaction)
}

// RegisterContract 注册合约
func (h *LedgerHandlers) RegisterContract(c *gin.Context) {
	var req types.RegisterContractRequest
	if !bindJSON(c, &req) {
		return
	}
	hash, err := h.service.RegisterContract(c.Request.Context(), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, apitypes.TxHashResponse{TxHash: hash})
}

// GetContract 查询合约记录
func (h *LedgerHandlers) GetContract(c *gin.Context) {
	record, err := h.service.GetContract(c.Request.Context(), types.ContractName(c.Param("name")))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// ListContracts 列出全部合约记录
func (h *LedgerHandlers) ListContracts(c *gin.Context) {
	records, err := h.service.Contracts(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, records)
}

// SendBlobTransaction 提交 blob 交易
func (h *LedgerHandlers) SendBlobTransaction(c *gin.Context) {
	var tx types.BlobTransaction
	if !bindJSON(c, &tx) {
		return
	}
	hash, err := h.service.SendBlobTransaction(c.Request.Context(), &tx)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, apitypes.TxHashResponse{TxHash: hash})
}

// SendProofTransaction 提交证明交易
func (h *LedgerHandlers) SendProofTransaction(c *gin.Context) {
	var tx types.ProofTransaction
	if !bindJSON(c, &tx) {
		return
	}
	hash, err := h.service.SendProofTransaction(c.Request.Context(), &tx)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, apitypes.TxHashResponse{TxHash: hash})
}

// GetBlobTransaction 查询 blob 交易
func (h *LedgerHandlers) GetBlobTransaction(c *gin.Context) {
	var hash types.TxHash
	if err := hash.UnmarshalText([]byte(c.Param("hash"))); err != nil {
		_ = c.Error(fmt.Errorf("%w: tx hash: %v", types.ErrInvalidTransaction, err))
		return
	}
	tx, err := h.service.GetBlobTransaction(c.Request.Context(), hash)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, tx)
}

func bindJSON(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		_ = c.Error(fmt.Errorf("%w: %v", types.ErrInvalidTransaction, err))
		return false
	}
	return true
}
