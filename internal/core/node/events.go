package node

import (
	"time"

	"github.com/weisyn/zkcontract/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/zkcontract/pkg/types"
)

// 账本事件类型
const (
	EventContractRegistered event.EventType = "contract:registered"
	EventProofSettled       event.EventType = "proof:settled"
	EventProofRejected      event.EventType = "proof:rejected"
)

// EventTypes 节点会发布的全部事件类型
var EventTypes = []event.EventType{
	EventContractRegistered,
	EventProofSettled,
	EventProofRejected,
}

// LedgerEvent 事件载荷，处理函数签名为 func(*LedgerEvent)
type LedgerEvent struct {
	Type        event.EventType    `json:"type"`
	Contract    types.ContractName `json:"contract"`
	TxHash      types.TxHash       `json:"tx_hash"`
	StateDigest types.StateDigest  `json:"state_digest"`
	Output      string             `json:"output,omitempty"`
	Kind        string             `json:"kind,omitempty"`
	Error       string             `json:"error,omitempty"`
	Timestamp   time.Time          `json:"timestamp"`
}
