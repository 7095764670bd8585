// Package reclaim 定时清理迟迟没有确认的投稿会话.
package reclaim

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/sx120609/Nishikigi/messaging"
	"github.com/sx120609/Nishikigi/session"
)

// Reclaimer 每隔 interval 扫一遍会话表, 超过 horizon 的删掉
// 并通知双方.
type Reclaimer struct {
	manager  *session.Manager
	msgr     messaging.Messenger
	horizon  time.Duration
	interval time.Duration
}

// NewReclaimer creates the periodic sweep.
func NewReclaimer(manager *session.Manager, msgr messaging.Messenger, horizon, interval time.Duration) *Reclaimer {
	return &Reclaimer{manager: manager, msgr: msgr, horizon: horizon, interval: interval}
}

// Run blocks until ctx is cancelled, sweeping on a fixed ticker.
func (r *Reclaimer) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(ctx, time.Now())
		}
	}
}

// Sweep 执行一轮回收并发出通知.
func (r *Reclaimer) Sweep(ctx context.Context, now time.Time) {
	for _, rec := range r.manager.SweepStale(r.horizon, now) {
		if _, err := r.msgr.SendPrivate(ctx, rec.UserID, messaging.Text(
			fmt.Sprintf("您的投稿 #%d 因为超时而被自动取消.", rec.ArticleID),
		)); err != nil {
			log.Warnf("通知用户 %d 失败: %v", rec.UserID, err)
		}
		if _, err := r.msgr.SendGroup(ctx, messaging.Text(
			fmt.Sprintf("用户 %d 的投稿 #%d 因超时而被自动取消.", rec.UserID, rec.ArticleID),
		)); err != nil {
			log.Warnf("通知审核群失败: %v", err)
		}
	}
}
