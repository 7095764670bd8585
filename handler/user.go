package handler

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/sx120609/Nishikigi/agent"
	"github.com/sx120609/Nishikigi/messaging"
	"github.com/sx120609/Nishikigi/model"
	"github.com/sx120609/Nishikigi/ratelimit"
	"github.com/sx120609/Nishikigi/session"
)

func (r *Router) handleStart(ctx context.Context, msg messaging.PrivateMessage, args []string) error {
	anonymous := slices.Contains(args, "匿名")
	single := slices.Contains(args, "单发")

	id, err := r.manager.Start(ctx, msg.UserID, msg.Nickname, anonymous, single)
	if err != nil {
		var denied *ratelimit.DeniedError
		switch {
		case errors.Is(err, session.ErrAlreadyActive):
			r.replyf(ctx, msg.UserID, "你还有投稿未结束呢🤔\n请先使用 #结束 来结束当前投稿")
			return nil
		case errors.As(err, &denied):
			r.replyf(ctx, msg.UserID, "%s\n明天再来吧🫢", denied.Error())
			return nil
		}
		return err
	}

	r.replyf(ctx, msg.UserID,
		"开始投稿😉 #%d\n接下来你说的内容除了指令外都将被计入投稿当中\n发送 #结束 来结束投稿, 发送 #取消 取消本次投稿\n匿名: %v\n单发: %v",
		id, anonymous, single)
	return nil
}

func (r *Router) handleContent(ctx context.Context, msg messaging.PrivateMessage) error {
	group := model.ContentGroup{OriginID: msg.MessageID, Items: msg.Items}

	dropped, err := r.manager.Collect(msg.UserID, group)
	if errors.Is(err, session.ErrNoActiveSession) {
		return r.handleFallback(ctx, msg)
	}
	if err != nil {
		return err
	}

	for range dropped {
		r.replyf(ctx, msg.UserID, "当前版本仅支持发送文字、图片、表情哦～\n如果你觉得你一定要发送该类消息, 请使用 #反馈 来告诉我们哦")
	}
	for _, kind := range dropped {
		r.groupf(ctx, "用户 %s(%d) 发送了不支持的消息: %s", msg.Nickname, msg.UserID, kind)
	}
	return nil
}

// handleFallback 没有会话时的自动回复, 配置了 AI 就尝试给出
// 指令建议.
func (r *Router) handleFallback(ctx context.Context, msg messaging.PrivateMessage) error {
	if r.suggester != nil && !agent.IsKnownCommand(msg.Raw) && strings.TrimSpace(msg.Raw) != "" {
		candidates := r.suggester.Suggest(ctx, msg.Raw)
		if len(candidates) > 0 {
			r.replyf(ctx, msg.UserID, "%s", agent.FormatReply(candidates))
			r.groupf(ctx, "用户 %s(%d) 触发了自动回复", msg.Nickname, msg.UserID)
			return nil
		}
	}

	r.replyf(ctx, msg.UserID, "✨欢迎使用 %s\n本墙使用 Bot 实现自动化投稿😎\n请发送 #帮助 查看使用教程", r.wallName)
	r.groupf(ctx, "用户 %s(%d) 触发了自动回复", msg.Nickname, msg.UserID)
	return nil
}

func (r *Router) handleEnd(ctx context.Context, msg messaging.PrivateMessage) error {
	// 先校验再发进度提示, 不然没会话的用户会先收到一句
	// "正在生成"再收到报错
	switch err := r.manager.CanEnd(msg.UserID); {
	case errors.Is(err, session.ErrNoActiveSession):
		r.replyf(ctx, msg.UserID, "你还没有投稿哦~")
		return nil
	case errors.Is(err, session.ErrEmptyContent):
		r.replyf(ctx, msg.UserID, "你好像啥都没有说呢😵‍💫\n如果不想投稿了就发个 #取消 \n或者说点什么再发 #结束")
		return nil
	}

	r.replyf(ctx, msg.UserID, "正在生成预览图🚀\n请稍等片刻")

	path, err := r.manager.End(ctx, msg.UserID)
	switch {
	case errors.Is(err, session.ErrNoActiveSession):
		// 预检到这里之间会话被回收了
		r.replyf(ctx, msg.UserID, "你还没有投稿哦~")
		return nil
	case errors.Is(err, session.ErrEmptyContent):
		r.replyf(ctx, msg.UserID, "你好像啥都没有说呢😵‍💫\n如果不想投稿了就发个 #取消 \n或者说点什么再发 #结束")
		return nil
	case err != nil:
		// 渲染失败不终结会话, 用户可以重试 #结束
		r.replyf(ctx, msg.UserID, "预览图生成失败了😵‍💫\n请稍后重新发送 #结束 试试")
		r.groupf(ctx, "用户 %d 的预览图生成失败:\n%v", msg.UserID, err)
		return nil
	}

	if _, err := r.msgr.SendPrivate(ctx, msg.UserID, messaging.Message{
		Text:      "这样投稿可以吗😘\n可以的话请发送 #确认, 要是算了的话就发个 #取消",
		ImagePath: path,
	}); err != nil {
		return fmt.Errorf("发送预览图失败: %w", err)
	}
	return nil
}

func (r *Router) handleConfirm(ctx context.Context, msg messaging.PrivateMessage) error {
	_, err := r.manager.Confirm(ctx, msg.UserID)
	switch {
	case errors.Is(err, session.ErrNoActiveSession):
		r.replyf(ctx, msg.UserID, "你都还没投稿确认啥🤨")
		return nil
	case errors.Is(err, session.ErrPreviewNotReady):
		r.replyf(ctx, msg.UserID, "请先发送 #结束 查看效果图🤔")
		return nil
	case err != nil:
		return err
	}

	r.replyf(ctx, msg.UserID, "已成功投稿, 请耐心等待管理员审核😘")
	return nil
}

func (r *Router) handleCancel(ctx context.Context, msg messaging.PrivateMessage) error {
	_, err := r.manager.Cancel(msg.UserID)
	if errors.Is(err, session.ErrNoActiveSession) {
		r.replyf(ctx, msg.UserID, "你都还没投稿取消啥🤨")
		return nil
	}
	if err != nil {
		return err
	}

	r.replyf(ctx, msg.UserID, "已取消本次投稿🫢")
	r.groupf(ctx, "%s(%d) 取消了投稿", msg.Nickname, msg.UserID)
	return nil
}

func (r *Router) handleFeedback(ctx context.Context, msg messaging.PrivateMessage, raw string) error {
	r.groupf(ctx, "用户 %s(%d) 反馈:\n%s", msg.Nickname, msg.UserID, raw)
	r.replyf(ctx, msg.UserID, "感谢你的反馈😘")
	return nil
}

func (r *Router) handleHelp(ctx context.Context, msg messaging.PrivateMessage) error {
	r.replyf(ctx, msg.UserID,
		"✨%s 使用说明\n"+
			"#投稿 开始投稿, 之后发送的内容都会被收录\n"+
			"#投稿 匿名 可以匿名, #投稿 单发 可以要求单发, 两者可以组合\n"+
			"#结束 结束投稿并查看预览图\n"+
			"#确认 确认发送当前投稿\n"+
			"#取消 取消当前投稿\n"+
			"#反馈 向管理员反馈你的问题\n"+
			"撤回消息可以把它从投稿里去掉哦",
		r.wallName)
	return nil
}
