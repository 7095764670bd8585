// Package messaging 抽象聊天平台: 核心逻辑只依赖这里的接口,
// 具体平台 (bot 包) 负责实现.
package messaging

import (
	"context"

	"github.com/sx120609/Nishikigi/model"
)

// Message 一条出站消息, 文本和图片可以同时存在
type Message struct {
	Text      string
	ImagePath string
}

// Text returns a text-only outbound message.
func Text(s string) Message { return Message{Text: s} }

// Messenger 发送消息的最小接口
type Messenger interface {
	// SendPrivate 私聊用户. 返回发出的消息 id.
	SendPrivate(ctx context.Context, userID int64, msg Message) (string, error)
	// SendGroup 发到审核群. 返回发出的消息 id.
	SendGroup(ctx context.Context, msg Message) (string, error)
	// React 给审核群中的某条消息贴表情
	React(ctx context.Context, messageID string, marker string) error
}

// PrivateMessage 用户私聊消息, 已拆分为内容段
type PrivateMessage struct {
	UserID    int64
	Nickname  string
	MessageID string
	Raw       string
	Items     []model.ContentItem
}

// GroupMessage 审核群消息
type GroupMessage struct {
	UserID    int64
	MessageID string
	Raw       string
	Roles     []string
}

// Recall 消息撤回通知
type Recall struct {
	UserID    int64
	MessageID string
}

// FriendAdd 新好友通知
type FriendAdd struct {
	UserID int64
}

// Events 入站事件的接收方, 由 handler 包实现
type Events interface {
	OnPrivateMessage(ctx context.Context, msg PrivateMessage)
	OnGroupMessage(ctx context.Context, msg GroupMessage)
	OnRecall(ctx context.Context, r Recall)
	OnFriendAdd(ctx context.Context, f FriendAdd)
}
