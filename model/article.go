package model

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Status 表示投稿在审核流水线中的状态
type Status string

const (
	// StatusCreated 投稿会话进行中, 还未确认
	StatusCreated Status = "created"
	// StatusSubmitted 用户已确认, 等待管理员审核
	StatusSubmitted Status = "submitted"
	// StatusRejected 被管理员驳回, 终态
	StatusRejected Status = "rejected"
	// StatusQueued 已通过审核, 在队列中等待批量推送
	StatusQueued Status = "queued"
	// StatusPublished 已推送到空间, 终态
	StatusPublished Status = "published"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusCreated, StatusSubmitted, StatusRejected, StatusQueued, StatusPublished:
		return true
	}
	return false
}

// CanTransition reports whether moving from s to next is a legal
// lifecycle step. 状态只能单向前进, 驳回是唯一的分叉.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusCreated:
		return next == StatusSubmitted
	case StatusSubmitted:
		return next == StatusQueued || next == StatusPublished || next == StatusRejected
	case StatusQueued:
		return next == StatusPublished
	}
	return false
}

// Display 返回状态的中文名称, 用于群内展示
func (s Status) Display() string {
	switch s {
	case StatusCreated:
		return "投稿中"
	case StatusSubmitted:
		return "待审核"
	case StatusQueued:
		return "待发送"
	case StatusRejected:
		return "已驳回"
	case StatusPublished:
		return "已发送"
	}
	return string(s)
}

// ApproverSet holds the distinct moderators that voted to approve an
// article. It is persisted as a comma-joined string; the codec lives
// here so nothing outside the db layer sees the string form.
type ApproverSet map[int64]struct{}

// Add records a vote. Returns false if the moderator already voted.
func (a ApproverSet) Add(moderatorID int64) bool {
	if _, ok := a[moderatorID]; ok {
		return false
	}
	a[moderatorID] = struct{}{}
	return true
}

// Contains reports whether the moderator has already voted.
func (a ApproverSet) Contains(moderatorID int64) bool {
	_, ok := a[moderatorID]
	return ok
}

// Len returns the number of distinct approvers.
func (a ApproverSet) Len() int { return len(a) }

// Encode serializes the set for storage.
func (a ApproverSet) Encode() string {
	ids := make([]string, 0, len(a))
	for id := range a {
		ids = append(ids, fmt.Sprintf("%d", id))
	}
	sort.Strings(ids)
	return strings.Join(ids, ",")
}

// DecodeApproverSet parses the stored comma-joined form. Unparseable
// fragments are skipped rather than failing the whole read.
func DecodeApproverSet(raw string) ApproverSet {
	set := make(ApproverSet)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		var id int64
		if _, err := fmt.Sscanf(part, "%d", &id); err == nil {
			set[id] = struct{}{}
		}
	}
	return set
}

// Article 一条投稿记录
type Article struct {
	ID         int64
	SenderID   int64
	SenderName string // 匿名投稿时为空
	Anonymous  bool
	Single     bool // 要求单发
	CreatedAt  time.Time
	Status     Status

	// ExternalRef 推送后保存空间动态的 tid; 审核期间临时保存
	// 审核群公告消息的 id
	ExternalRef string

	Approvers ApproverSet

	// ReviewerID 最终决定这条投稿的管理员, 驳回时记录
	ReviewerID int64
}

// String implements fmt.Stringer the way users see article references.
func (a *Article) String() string {
	return fmt.Sprintf("#%d", a.ID)
}
