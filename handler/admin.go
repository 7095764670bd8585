package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sx120609/Nishikigi/messaging"
	"github.com/sx120609/Nishikigi/review"
	"github.com/sx120609/Nishikigi/utils"
)

// checkModerator 校验权限, 没权限时回一句并返回 false.
func (r *Router) checkModerator(ctx context.Context, msg messaging.GroupMessage) bool {
	if utils.IsModerator(msg.UserID, msg.Roles) {
		return true
	}
	r.groupf(ctx, "你没有权限执行这个操作")
	return false
}

func (r *Router) handleApprove(ctx context.Context, msg messaging.GroupMessage, args []string) error {
	if !r.checkModerator(ctx, msg) {
		return nil
	}
	if len(args) == 0 {
		r.groupf(ctx, "请带上要通过的投稿编号")
		return nil
	}
	ids, err := utils.ParseIDs(args)
	if err != nil {
		r.groupf(ctx, "%v", err)
		return nil
	}

	var lastFlush *review.FlushResult
	for _, id := range ids {
		res, err := r.coord.Approve(ctx, id, msg.UserID)
		if errors.Is(err, review.ErrNotFound) {
			r.groupf(ctx, "投稿 #%d 不存在或已通过审核", id)
			continue
		}
		if err != nil {
			return err
		}

		switch {
		case res.AlreadyDecided:
			r.groupf(ctx, "投稿 #%d 不存在或已通过审核", id)
		case res.Duplicate:
			r.groupf(ctx, "你已经给投稿 #%d 投过票了", id)
		case res.PublishedSingle:
			r.groupf(ctx, "投稿 #%d 已经单发\ntid: %s", id, res.Flush.ExternalRef)
		case res.PublishErr != nil:
			r.groupf(ctx, "投稿 #%d 单发失败, 稍后可由其他管理员投票重试:\n%v", id, res.PublishErr)
		case res.Queued:
			lastFlush = res.Flush
		default:
			r.groupf(ctx, "已记票, 投稿 #%d 当前 %d 票", id, res.Votes)
		}
	}

	if lastFlush != nil {
		r.reportFlush(ctx, lastFlush)
	}
	return nil
}

func (r *Router) reportFlush(ctx context.Context, flush *review.FlushResult) {
	switch {
	case flush.Err != nil:
		r.groupf(ctx, "推送失败, 稿件仍在队列中:\n%v", flush.Err)
	case len(flush.Published) > 0:
		r.groupf(ctx, "已推送%v\ntid: %s", flush.Published, flush.ExternalRef)
	default:
		r.groupf(ctx, "当前队列中有%d个稿件, 暂不推送", flush.Backlog)
	}
}

func (r *Router) handleReject(ctx context.Context, msg messaging.GroupMessage, args []string) error {
	if !r.checkModerator(ctx, msg) {
		return nil
	}
	if len(args) < 2 {
		r.groupf(ctx, "请带上要驳回的投稿和理由")
		return nil
	}
	ids, err := utils.ParseIDs(args[:1])
	if err != nil {
		r.groupf(ctx, "%v", err)
		return nil
	}
	reason := strings.Join(args[1:], " ")

	err = r.coord.Reject(ctx, ids[0], msg.UserID, reason)
	switch {
	case errors.Is(err, review.ErrNotFound), errors.Is(err, review.ErrAlreadyDecided):
		r.groupf(ctx, "投稿 #%d 不存在或已有审核结果", ids[0])
		return nil
	case err != nil:
		return err
	}

	r.groupf(ctx, "已驳回投稿 #%d", ids[0])
	return nil
}

func (r *Router) handlePush(ctx context.Context, msg messaging.GroupMessage, args []string) error {
	if !r.checkModerator(ctx, msg) {
		return nil
	}
	if len(args) == 0 {
		r.groupf(ctx, "请带上要推送的投稿编号")
		return nil
	}
	ids, err := utils.ParseIDs(args)
	if err != nil {
		r.groupf(ctx, "%v", err)
		return nil
	}

	r.groupf(ctx, "开始推送 %v", ids)
	ref, err := r.coord.PublishNow(ctx, ids)
	if errors.Is(err, review.ErrNotFound) {
		r.groupf(ctx, "%v", err)
		return nil
	}
	if err != nil {
		r.groupf(ctx, "推送失败, 稿件仍在队列中:\n%v", err)
		return nil
	}

	r.groupf(ctx, "已推送 %v\ntid: %s", ids, ref)
	return nil
}

func (r *Router) handleView(ctx context.Context, msg messaging.GroupMessage, args []string) error {
	if len(args) == 0 {
		r.groupf(ctx, "请带上要查看的投稿编号")
		return nil
	}
	ids, err := utils.ParseIDs(args)
	if err != nil {
		r.groupf(ctx, "%v", err)
		return nil
	}

	for _, id := range ids {
		article, err := r.store.GetArticle(id)
		if err != nil {
			return err
		}
		if article == nil {
			r.groupf(ctx, "投稿 #%d 不存在", id)
			continue
		}

		who := article.SenderName
		tag := ""
		if article.Anonymous {
			who = "匿名"
			tag = "匿名"
		}
		text := fmt.Sprintf("#%d 用户 %s(%d) %s投稿", id, who, article.SenderID, tag)
		if article.Single {
			text += ", 要求单发"
		}
		text += "\n状态: " + article.Status.Display()

		if _, err := r.msgr.SendGroup(ctx, messaging.Message{
			Text:      text,
			ImagePath: utils.PreviewPath(r.manager.DataDir(), id),
		}); err != nil {
			return err
		}
	}
	return nil
}

func (r *Router) handleStatus(ctx context.Context, msg messaging.GroupMessage) error {
	waiting, queued, err := r.coord.Status()
	if err != nil {
		return err
	}

	r.groupf(ctx, "%s 已运行 %ds\n待审核: %v\n待推送: %v",
		r.wallName, int(time.Since(r.startTime).Seconds()), waiting, queued)
	return nil
}

func (r *Router) handleDelete(ctx context.Context, msg messaging.GroupMessage, args []string) error {
	if !r.checkModerator(ctx, msg) {
		return nil
	}
	if len(args) == 0 {
		r.groupf(ctx, "请带上要删除的投稿编号")
		return nil
	}
	ids, err := utils.ParseIDs(args)
	if err != nil {
		r.groupf(ctx, "%v", err)
		return nil
	}

	if err := r.coord.Delete(ids); err != nil {
		if errors.Is(err, review.ErrNotFound) {
			r.groupf(ctx, "%v", err)
			return nil
		}
		return err
	}
	r.groupf(ctx, "已删除 %v", ids)
	return nil
}

func (r *Router) handleReply(ctx context.Context, msg messaging.GroupMessage, args []string) error {
	if !r.checkModerator(ctx, msg) {
		return nil
	}
	if len(args) < 2 {
		r.groupf(ctx, "请带上你想回复的人和内容")
		return nil
	}
	ids, err := utils.ParseIDs(args[:1])
	if err != nil {
		r.groupf(ctx, "\"%s\" 不是一个有效的账号", args[0])
		return nil
	}

	if _, err := r.msgr.SendPrivate(ctx, ids[0], messaging.Text(
		fmt.Sprintf("😘管理员回复:\n%s", strings.Join(args[1:], " ")),
	)); err != nil {
		r.groupf(ctx, "无法回复用户 %d\n请检查账号是否正确", ids[0])
		return nil
	}
	r.groupf(ctx, "已回复用户 %d", ids[0])
	return nil
}

func (r *Router) handleReset(ctx context.Context, msg messaging.GroupMessage, args []string) error {
	if !r.checkModerator(ctx, msg) {
		return nil
	}
	if len(args) == 0 {
		r.groupf(ctx, "请带上要重置的账号")
		return nil
	}
	ids, err := utils.ParseIDs(args)
	if err != nil {
		r.groupf(ctx, "%v", err)
		return nil
	}

	for _, userID := range ids {
		if err := r.limiter.Reset(userID, time.Now()); err != nil {
			return err
		}
	}
	r.groupf(ctx, "已重置 %v 的今日投稿计数", ids)
	return nil
}
