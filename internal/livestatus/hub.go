package livestatus

import (
	"context"

	"github.com/langchou/tripbook/internal/models"
	"github.com/langchou/tripbook/pkg/ws"
)

// Broadcaster WebSocket 广播
type Broadcaster interface {
	BroadcastMessage(msgType string, data interface{}) error
}

// HubSink 通过 WebSocket 推送状态给浏览器
type HubSink struct {
	hub Broadcaster
}

// NewHubSink 创建 WebSocket 状态发布器
func NewHubSink(hub Broadcaster) *HubSink {
	return &HubSink{hub: hub}
}

func (s *HubSink) Publish(_ context.Context, status models.LiveStatus) error {
	return s.hub.BroadcastMessage(ws.MsgTypeLiveStatus, status)
}
