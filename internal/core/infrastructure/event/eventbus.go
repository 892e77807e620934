// 基于asaskevich/EventBus的事件总线实现

package event

import (
	"sync/atomic"

	evbus "github.com/asaskevich/EventBus"
	"github.com/weisyn/zkcontract/pkg/interfaces/infrastructure/event"
)

// EventBus 是对 asaskevich/EventBus 的薄封装
//
// 关闭后 Publish 静默丢弃，Subscribe 返回 nil，
// 便于在禁用事件推送时保持调用方代码不变。
type EventBus struct {
	bus     evbus.Bus
	enabled bool

	published atomic.Uint64
}

// New 创建事件总线实例
func New(enabled bool) *EventBus {
	return &EventBus{
		bus:     evbus.New(),
		enabled: enabled,
	}
}

var _ event.EventBus = (*EventBus)(nil)

// Subscribe 实现订阅
func (eb *EventBus) Subscribe(eventType event.EventType, handler interface{}) error {
	if !eb.enabled {
		return nil // 如果事件系统未启用，静默成功
	}
	return eb.bus.Subscribe(string(eventType), handler)
}

// SubscribeAsync 实现异步订阅
func (eb *EventBus) SubscribeAsync(eventType event.EventType, handler interface{}, transactional bool) error {
	if !eb.enabled {
		return nil
	}
	return eb.bus.SubscribeAsync(string(eventType), handler, transactional)
}

// Unsubscribe 取消订阅
func (eb *EventBus) Unsubscribe(eventType event.EventType, handler interface{}) error {
	if !eb.enabled {
		return nil
	}
	return eb.bus.Unsubscribe(string(eventType), handler)
}

// Publish 实现发布
func (eb *EventBus) Publish(eventType event.EventType, args ...interface{}) {
	if !eb.enabled {
		return
	}
	eb.published.Add(1)
	eb.bus.Publish(string(eventType), args...)
}

// WaitAsync 等待异步处理完成
func (eb *EventBus) WaitAsync() {
	eb.bus.WaitAsync()
}

// HasCallback 检查是否有回调函数
func (eb *EventBus) HasCallback(eventType event.EventType) bool {
	if !eb.enabled {
		return false
	}
	return eb.bus.HasCallback(string(eventType))
}

// Published 已发布事件计数
func (eb *EventBus) Published() uint64 {
	return eb.published.Load()
}
