package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sx120609/Nishikigi/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCreateArticleSequentialIDs(t *testing.T) {
	store := newTestStore(t)

	first, err := store.CreateArticle(10001, "张三", false, false, time.Now())
	require.NoError(t, err)
	second, err := store.CreateArticle(10002, "", true, true, time.Now())
	require.NoError(t, err)

	assert.Equal(t, int64(1), first)
	assert.Equal(t, int64(2), second)
}

func TestArticleRoundtrip(t *testing.T) {
	store := newTestStore(t)

	created := time.Unix(1700000000, 0)
	id, err := store.CreateArticle(10001, "张三", false, true, created)
	require.NoError(t, err)

	article, err := store.GetArticle(id)
	require.NoError(t, err)
	require.NotNil(t, article)

	assert.Equal(t, int64(10001), article.SenderID)
	assert.Equal(t, "张三", article.SenderName)
	assert.False(t, article.Anonymous)
	assert.True(t, article.Single)
	assert.Equal(t, model.StatusCreated, article.Status)
	assert.True(t, article.CreatedAt.Equal(created))
	assert.Equal(t, 0, article.Approvers.Len())
}

func TestGetArticleMissing(t *testing.T) {
	store := newTestStore(t)

	article, err := store.GetArticle(42)
	require.NoError(t, err)
	assert.Nil(t, article)
}

func TestUpdateApproversRoundtrip(t *testing.T) {
	store := newTestStore(t)

	id, err := store.CreateArticle(10001, "张三", false, false, time.Now())
	require.NoError(t, err)

	approvers := make(model.ApproverSet)
	approvers.Add(900)
	approvers.Add(901)
	require.NoError(t, store.UpdateApprovers(id, approvers))

	article, err := store.GetArticle(id)
	require.NoError(t, err)
	assert.Equal(t, 2, article.Approvers.Len())
	assert.True(t, article.Approvers.Contains(900))
}

func TestUpdateStatusEnforcesLifecycle(t *testing.T) {
	store := newTestStore(t)

	id, err := store.CreateArticle(10001, "张三", false, false, time.Now())
	require.NoError(t, err)

	// 不能跳过审核直接入队
	require.Error(t, store.UpdateStatus(id, model.StatusQueued))

	require.NoError(t, store.UpdateStatus(id, model.StatusSubmitted))
	require.NoError(t, store.UpdateStatus(id, model.StatusQueued))

	// 入队后不能回到待审核, 也不能再驳回
	require.Error(t, store.UpdateStatus(id, model.StatusSubmitted))
	require.Error(t, store.UpdateStatus(id, model.StatusRejected))

	require.NoError(t, store.UpdateStatus(id, model.StatusPublished))
	// 终态不再变化
	require.Error(t, store.UpdateStatus(id, model.StatusQueued))

	article, err := store.GetArticle(id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPublished, article.Status)
}

func TestListByStatusFIFO(t *testing.T) {
	store := newTestStore(t)

	for i := 0; i < 5; i++ {
		id, err := store.CreateArticle(int64(10000+i), "u", false, false, time.Now())
		require.NoError(t, err)
		require.NoError(t, store.UpdateStatus(id, model.StatusSubmitted))
		require.NoError(t, store.UpdateStatus(id, model.StatusQueued))
	}

	queued, err := store.ListByStatus(model.StatusQueued, 3)
	require.NoError(t, err)
	require.Len(t, queued, 3)
	assert.Equal(t, int64(1), queued[0].ID)
	assert.Equal(t, int64(2), queued[1].ID)
	assert.Equal(t, int64(3), queued[2].ID)

	n, err := store.CountByStatus(model.StatusQueued)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestDeleteArticle(t *testing.T) {
	store := newTestStore(t)

	id, err := store.CreateArticle(10001, "张三", false, false, time.Now())
	require.NoError(t, err)
	require.NoError(t, store.DeleteArticle(id))

	article, err := store.GetArticle(id)
	require.NoError(t, err)
	assert.Nil(t, article)
}

func TestCountUpsert(t *testing.T) {
	store := newTestStore(t)

	count, err := store.GetCount(10001, "2024-05-01")
	require.NoError(t, err)
	assert.Equal(t, 0, count.Normal)
	assert.Equal(t, 0, count.Anonymous)

	require.NoError(t, store.IncrementNormalCount(10001, "2024-05-01"))
	require.NoError(t, store.IncrementNormalCount(10001, "2024-05-01"))
	require.NoError(t, store.IncrementAnonymousCount(10001, "2024-05-01"))

	count, err = store.GetCount(10001, "2024-05-01")
	require.NoError(t, err)
	assert.Equal(t, 2, count.Normal)
	assert.Equal(t, 1, count.Anonymous)

	// 不同日期互不影响
	count, err = store.GetCount(10001, "2024-05-02")
	require.NoError(t, err)
	assert.Equal(t, 0, count.Normal)

	require.NoError(t, store.ResetCount(10001, "2024-05-01"))
	count, err = store.GetCount(10001, "2024-05-01")
	require.NoError(t, err)
	assert.Equal(t, 0, count.Normal)
	assert.Equal(t, 0, count.Anonymous)
}
