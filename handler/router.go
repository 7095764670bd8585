// Package handler 把入站消息分发到各个命令处理函数.
package handler

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/sx120609/Nishikigi/agent"
	"github.com/sx120609/Nishikigi/db"
	"github.com/sx120609/Nishikigi/messaging"
	"github.com/sx120609/Nishikigi/ratelimit"
	"github.com/sx120609/Nishikigi/review"
	"github.com/sx120609/Nishikigi/session"
)

// Router implements messaging.Events and owns command dispatch.
type Router struct {
	manager   *session.Manager
	coord     *review.Coordinator
	store     *db.Store
	limiter   *ratelimit.Limiter
	msgr      messaging.Messenger
	suggester *agent.Suggester // nil 表示没配置 AI

	wallName  string
	startTime time.Time
}

// NewRouter wires the dispatcher.
func NewRouter(manager *session.Manager, coord *review.Coordinator, store *db.Store, limiter *ratelimit.Limiter, msgr messaging.Messenger, suggester *agent.Suggester, wallName string) *Router {
	return &Router{
		manager:   manager,
		coord:     coord,
		store:     store,
		limiter:   limiter,
		msgr:      msgr,
		suggester: suggester,
		wallName:  wallName,
		startTime: time.Now(),
	}
}

// OnPrivateMessage dispatches a user's private message.
func (r *Router) OnPrivateMessage(ctx context.Context, msg messaging.PrivateMessage) {
	defer r.recoverHandler(ctx, msg.UserID)

	raw := strings.TrimSpace(strings.Replace(msg.Raw, "＃", "#", 1))
	fields := strings.Fields(raw)

	var cmd string
	if len(fields) > 0 && strings.HasPrefix(fields[0], "#") {
		cmd = fields[0]
	}

	var err error
	switch cmd {
	case "#投稿":
		err = r.handleStart(ctx, msg, fields[1:])
	case "#结束":
		err = r.handleEnd(ctx, msg)
	case "#确认":
		err = r.handleConfirm(ctx, msg)
	case "#取消":
		err = r.handleCancel(ctx, msg)
	case "#反馈":
		err = r.handleFeedback(ctx, msg, raw)
	case "#帮助":
		err = r.handleHelp(ctx, msg)
	default:
		// 不认识的指令和普通消息走同一条路:
		// 有会话就收进缓冲, 没有就自动回复
		err = r.handleContent(ctx, msg)
	}

	if err != nil {
		r.reportError(ctx, msg.UserID, err)
	}
}

// OnGroupMessage dispatches a moderation-group message.
func (r *Router) OnGroupMessage(ctx context.Context, msg messaging.GroupMessage) {
	defer r.recoverHandler(ctx, 0)

	raw := strings.TrimSpace(strings.Replace(msg.Raw, "＃", "#", 1))
	fields := strings.Fields(raw)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "#") {
		return
	}

	var err error
	switch fields[0] {
	case "#通过":
		err = r.handleApprove(ctx, msg, fields[1:])
	case "#驳回":
		err = r.handleReject(ctx, msg, fields[1:])
	case "#推送":
		err = r.handlePush(ctx, msg, fields[1:])
	case "#查看":
		err = r.handleView(ctx, msg, fields[1:])
	case "#状态":
		err = r.handleStatus(ctx, msg)
	case "#删除":
		err = r.handleDelete(ctx, msg, fields[1:])
	case "#回复":
		err = r.handleReply(ctx, msg, fields[1:])
	case "#重置":
		err = r.handleReset(ctx, msg, fields[1:])
	}

	if err != nil {
		r.reportError(ctx, 0, err)
	}
}

// OnRecall 用户撤回消息时同步投稿缓冲.
func (r *Router) OnRecall(ctx context.Context, rc messaging.Recall) {
	r.manager.HandleRecall(rc.UserID, rc.MessageID)
}

// OnFriendAdd 新好友通知转发到审核群.
func (r *Router) OnFriendAdd(ctx context.Context, f messaging.FriendAdd) {
	r.groupf(ctx, "%d 添加了好友", f.UserID)
}

// recoverHandler 兜住处理函数里的 panic: 用户只看到一句笼统的
// 道歉, 完整现场发到审核群.
func (r *Router) recoverHandler(ctx context.Context, userID int64) {
	rec := recover()
	if rec == nil {
		return
	}
	log.Errorf("处理消息时 panic: %v\n%s", rec, debug.Stack())
	if userID != 0 {
		r.replyf(ctx, userID, "出了一点小问题😵‍💫\n请稍后再试")
		r.groupf(ctx, "和用户 %d 对话时出错:\n%v\n%s", userID, rec, debug.Stack())
	} else {
		r.groupf(ctx, "出错了:\n%v\n%s", rec, debug.Stack())
	}
}

// reportError 同样的不对称策略: 用户侧笼统, 群里带原因.
func (r *Router) reportError(ctx context.Context, userID int64, err error) {
	log.Errorf("处理消息出错: %v", err)
	if userID != 0 {
		r.replyf(ctx, userID, "出了一点小问题😵‍💫:\n\n%v", err)
		r.groupf(ctx, "和用户 %d 对话时出错:\n%v", userID, err)
	} else {
		r.groupf(ctx, "出错了:\n%v", err)
	}
}

func (r *Router) replyf(ctx context.Context, userID int64, format string, args ...interface{}) {
	if _, err := r.msgr.SendPrivate(ctx, userID, messaging.Text(fmt.Sprintf(format, args...))); err != nil {
		log.Warnf("私聊用户 %d 失败: %v", userID, err)
	}
}

func (r *Router) groupf(ctx context.Context, format string, args ...interface{}) {
	if _, err := r.msgr.SendGroup(ctx, messaging.Text(fmt.Sprintf(format, args...))); err != nil {
		log.Warnf("发送群消息失败: %v", err)
	}
}
