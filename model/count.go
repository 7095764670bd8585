package model

// SubmissionCount 某用户某天的投稿计数, 普通和匿名分开统计
type SubmissionCount struct {
	UserID    int64
	Date      string // YYYY-MM-DD
	Normal    int
	Anonymous int
}
