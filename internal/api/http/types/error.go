// Package types provides HTTP request and response definitions.
package types

import (
	"net/http"

	"github.com/weisyn/zkcontract/pkg/types"
)

// ErrorResponse 统一错误响应格式
//
// Kind 是错误分类名，客户端据此把远端错误还原为本地错误分类。
type ErrorResponse struct {
	Error     string `json:"error"`
	Kind      string `json:"kind,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// TxHashResponse 提交类接口的响应
type TxHashResponse struct {
	TxHash types.TxHash `json:"tx_hash"`
}

// StatusForKind 错误分类对应的 HTTP 状态码
func StatusForKind(kind string) int {
	switch kind {
	case "not_found", "tx_not_found":
		return http.StatusNotFound
	case "exists":
		return http.StatusConflict
	case "invalid", "codec":
		return http.StatusBadRequest
	case "consistency", "execution":
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
