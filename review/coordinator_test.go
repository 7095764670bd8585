package review

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sx120609/Nishikigi/db"
	"github.com/sx120609/Nishikigi/messaging"
	"github.com/sx120609/Nishikigi/model"
)

type fakeFeed struct {
	ref   string
	err   error
	calls [][]string
}

func (f *fakeFeed) Publish(ctx context.Context, imagePaths []string) (string, error) {
	f.calls = append(f.calls, imagePaths)
	if f.err != nil {
		return "", f.err
	}
	return f.ref, nil
}

type recordingMessenger struct {
	private map[int64][]string
}

func (r *recordingMessenger) SendPrivate(ctx context.Context, userID int64, msg messaging.Message) (string, error) {
	if r.private == nil {
		r.private = map[int64][]string{}
	}
	r.private[userID] = append(r.private[userID], msg.Text)
	return "msg", nil
}

func (r *recordingMessenger) SendGroup(ctx context.Context, msg messaging.Message) (string, error) {
	return "msg", nil
}

func (r *recordingMessenger) React(ctx context.Context, messageID, marker string) error {
	return nil
}

type reviewFixture struct {
	coord *Coordinator
	store *db.Store
	feed  *fakeFeed
	msgr  *recordingMessenger
}

func newReviewFixture(t *testing.T) *reviewFixture {
	t.Helper()
	store, err := db.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	feed := &fakeFeed{ref: "tid-100"}
	msgr := &recordingMessenger{}
	coord := NewCoordinator(store, msgr, feed, 2, 4, 9, t.TempDir())
	return &reviewFixture{coord: coord, store: store, feed: feed, msgr: msgr}
}

// submitted 造一条已确认、等待审核的投稿
func (f *reviewFixture) submitted(t *testing.T, senderID int64, single bool) int64 {
	t.Helper()
	id, err := f.store.CreateArticle(senderID, "用户", false, single, time.Now())
	require.NoError(t, err)
	require.NoError(t, f.store.UpdateStatus(id, model.StatusSubmitted))
	return id
}

func (f *reviewFixture) status(t *testing.T, id int64) model.Status {
	t.Helper()
	article, err := f.store.GetArticle(id)
	require.NoError(t, err)
	require.NotNil(t, article)
	return article.Status
}

func TestApproveReachesQuorum(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()
	id := f.submitted(t, 10001, false)

	res, err := f.coord.Approve(ctx, id, 501)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Votes)
	assert.False(t, res.Queued)
	assert.Equal(t, model.StatusSubmitted, f.status(t, id))

	res, err = f.coord.Approve(ctx, id, 502)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Votes)
	assert.True(t, res.Queued)
	assert.Equal(t, model.StatusQueued, f.status(t, id))
	// 入队时告知投稿人
	assert.Len(t, f.msgr.private[10001], 1)
	// 队列还没到批量阈值
	require.NotNil(t, res.Flush)
	assert.Equal(t, 1, res.Flush.Backlog)
	assert.Empty(t, res.Flush.Published)
}

func TestApproveDuplicateModerator(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()
	id := f.submitted(t, 10001, false)

	_, err := f.coord.Approve(ctx, id, 501)
	require.NoError(t, err)

	// 同一管理员重复投票不计数
	res, err := f.coord.Approve(ctx, id, 501)
	require.NoError(t, err)
	assert.True(t, res.Duplicate)
	assert.Equal(t, 1, res.Votes)
	assert.Equal(t, model.StatusSubmitted, f.status(t, id))
}

func TestApproveAfterDecision(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()
	id := f.submitted(t, 10001, false)
	require.NoError(t, f.coord.Reject(ctx, id, 501, "不合适"))

	res, err := f.coord.Approve(ctx, id, 502)
	require.NoError(t, err)
	assert.True(t, res.AlreadyDecided)
}

func TestApproveMissingArticle(t *testing.T) {
	f := newReviewFixture(t)

	_, err := f.coord.Approve(context.Background(), 999, 501)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestApproveSinglePublishesImmediately(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()
	id := f.submitted(t, 10001, true)

	_, err := f.coord.Approve(ctx, id, 501)
	require.NoError(t, err)
	res, err := f.coord.Approve(ctx, id, 502)
	require.NoError(t, err)

	assert.True(t, res.PublishedSingle)
	require.NotNil(t, res.Flush)
	assert.Equal(t, []int64{id}, res.Flush.Published)
	assert.Equal(t, "tid-100", res.Flush.ExternalRef)
	assert.Equal(t, model.StatusPublished, f.status(t, id))

	article, err := f.store.GetArticle(id)
	require.NoError(t, err)
	assert.Equal(t, "tid-100", article.ExternalRef)
}

func TestApproveSingleFeedFailureRetries(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()
	id := f.submitted(t, 10001, true)
	f.feed.err = errors.New("空间接口超时")

	_, err := f.coord.Approve(ctx, id, 501)
	require.NoError(t, err)
	res, err := f.coord.Approve(ctx, id, 502)
	require.NoError(t, err)

	// 发布失败, 投稿留在待审核
	assert.Error(t, res.PublishErr)
	assert.False(t, res.PublishedSingle)
	assert.Equal(t, model.StatusSubmitted, f.status(t, id))

	// 又一个管理员投票时再次到达法定票数, 推送重试成功
	f.feed.err = nil
	res, err = f.coord.Approve(ctx, id, 503)
	require.NoError(t, err)
	assert.True(t, res.PublishedSingle)
	assert.Equal(t, model.StatusPublished, f.status(t, id))
}

func TestQueueFlushAtBatchSize(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()

	ids := make([]int64, 0, 4)
	for i := 0; i < 4; i++ {
		ids = append(ids, f.submitted(t, int64(10001+i), false))
	}

	for _, id := range ids[:3] {
		_, err := f.coord.Approve(ctx, id, 501)
		require.NoError(t, err)
		res, err := f.coord.Approve(ctx, id, 502)
		require.NoError(t, err)
		assert.Empty(t, res.Flush.Published)
	}

	// 第 4 条入队触发批量推送, 整批按入队顺序发出
	_, err := f.coord.Approve(ctx, ids[3], 501)
	require.NoError(t, err)
	res, err := f.coord.Approve(ctx, ids[3], 502)
	require.NoError(t, err)

	require.NotNil(t, res.Flush)
	assert.Equal(t, 4, res.Flush.Backlog)
	assert.Equal(t, ids, res.Flush.Published)
	assert.Equal(t, "tid-100", res.Flush.ExternalRef)
	require.Len(t, f.feed.calls, 1)
	assert.Len(t, f.feed.calls[0], 4)

	for _, id := range ids {
		assert.Equal(t, model.StatusPublished, f.status(t, id))
	}
}

func TestQueueFlushFeedFailureKeepsQueue(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()
	f.feed.err = errors.New("空间接口超时")

	ids := make([]int64, 0, 4)
	for i := 0; i < 4; i++ {
		id := f.submitted(t, int64(10001+i), false)
		ids = append(ids, id)
		_, err := f.coord.Approve(ctx, id, 501)
		require.NoError(t, err)
		_, err = f.coord.Approve(ctx, id, 502)
		require.NoError(t, err)
	}

	// 整批失败, 没有一条投稿掉出队列
	for _, id := range ids {
		assert.Equal(t, model.StatusQueued, f.status(t, id))
	}

	// 恢复后由管理员手动推送
	f.feed.err = nil
	ref, err := f.coord.PublishNow(ctx, ids)
	require.NoError(t, err)
	assert.Equal(t, "tid-100", ref)
	for _, id := range ids {
		assert.Equal(t, model.StatusPublished, f.status(t, id))
	}
}

func TestRejectNotifiesSender(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()
	id := f.submitted(t, 10001, false)

	require.NoError(t, f.coord.Reject(ctx, id, 501, "含广告"))
	assert.Equal(t, model.StatusRejected, f.status(t, id))

	article, err := f.store.GetArticle(id)
	require.NoError(t, err)
	assert.Equal(t, int64(501), article.ReviewerID)

	require.Len(t, f.msgr.private[10001], 1)
	assert.Contains(t, f.msgr.private[10001][0], "含广告")

	assert.ErrorIs(t, f.coord.Reject(ctx, id, 502, "再驳一次"), ErrAlreadyDecided)
}

func TestPublishNowRejectsNonQueued(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()
	queued := f.submitted(t, 10001, false)
	_, err := f.coord.Approve(ctx, queued, 501)
	require.NoError(t, err)
	_, err = f.coord.Approve(ctx, queued, 502)
	require.NoError(t, err)

	pending := f.submitted(t, 10002, false)

	_, err = f.coord.PublishNow(ctx, []int64{queued, pending})
	assert.ErrorIs(t, err, ErrNotFound)
	// 整组校验失败, 连已入队的那条也不动
	assert.Equal(t, model.StatusQueued, f.status(t, queued))
	assert.Empty(t, f.feed.calls)
}

func TestStatusCapsPreview(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()
	// 每类最多列出 2 条
	f.coord.queuePreview = 2

	var submitted []int64
	for i := 0; i < 3; i++ {
		submitted = append(submitted, f.submitted(t, int64(10001+i), false))
	}
	queuedID := f.submitted(t, 20001, false)
	_, err := f.coord.Approve(ctx, queuedID, 501)
	require.NoError(t, err)
	_, err = f.coord.Approve(ctx, queuedID, 502)
	require.NoError(t, err)

	waiting, queued, err := f.coord.Status()
	require.NoError(t, err)
	assert.Equal(t, submitted[:2], waiting)
	assert.Equal(t, []int64{queuedID}, queued)
}

func TestDelete(t *testing.T) {
	f := newReviewFixture(t)
	id := f.submitted(t, 10001, false)

	require.NoError(t, f.coord.Delete([]int64{id}))
	article, err := f.store.GetArticle(id)
	require.NoError(t, err)
	assert.Nil(t, article)

	assert.ErrorIs(t, f.coord.Delete([]int64{id}), ErrNotFound)
}
