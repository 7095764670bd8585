// Package ratelimit 按天限制每个用户的投稿次数, 普通和匿名分桶.
package ratelimit

import (
	"fmt"
	"time"

	"github.com/sx120609/Nishikigi/db"
)

// DeniedError 说明为什么拒绝开始投稿
type DeniedError struct {
	Anonymous bool
	Limit     int
}

func (e *DeniedError) Error() string {
	if e.Anonymous {
		return fmt.Sprintf("今日匿名投稿已达 %d 次上限", e.Limit)
	}
	return fmt.Sprintf("今日投稿已达 %d 次上限", e.Limit)
}

// Limiter 读写 submission_counts 表
type Limiter struct {
	store          *db.Store
	normalLimit    int
	anonymousLimit int
}

// NewLimiter creates a limiter with the configured daily thresholds.
func NewLimiter(store *db.Store, normalLimit, anonymousLimit int) *Limiter {
	return &Limiter{store: store, normalLimit: normalLimit, anonymousLimit: anonymousLimit}
}

// DateKey 生成计数行的日期键
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// Check returns a *DeniedError when the user has exhausted today's
// quota for the requested bucket. 普通和匿名互不影响.
func (l *Limiter) Check(userID int64, anonymous bool, today time.Time) error {
	count, err := l.store.GetCount(userID, DateKey(today))
	if err != nil {
		return err
	}
	if anonymous && count.Anonymous >= l.anonymousLimit {
		return &DeniedError{Anonymous: true, Limit: l.anonymousLimit}
	}
	if !anonymous && count.Normal >= l.normalLimit {
		return &DeniedError{Anonymous: false, Limit: l.normalLimit}
	}
	return nil
}

// Record increments the matching counter, creating the row if absent.
// 没有回滚: 后续失败时计数不退还.
func (l *Limiter) Record(userID int64, anonymous bool, today time.Time) error {
	if anonymous {
		return l.store.IncrementAnonymousCount(userID, DateKey(today))
	}
	return l.store.IncrementNormalCount(userID, DateKey(today))
}

// Reset clears today's counters for a user (管理员操作).
func (l *Limiter) Reset(userID int64, today time.Time) error {
	return l.store.ResetCount(userID, DateKey(today))
}
