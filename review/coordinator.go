// Package review 实现审核与推送: 管理员投票达到法定票数后,
// 投稿进入队列或直接单发, 队列满了批量推送到外部空间.
package review

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/sx120609/Nishikigi/db"
	"github.com/sx120609/Nishikigi/messaging"
	"github.com/sx120609/Nishikigi/model"
	"github.com/sx120609/Nishikigi/utils"
)

var (
	// ErrNotFound 投稿不存在
	ErrNotFound = errors.New("投稿不存在")
	// ErrAlreadyDecided 投稿已经有了审核结果
	ErrAlreadyDecided = errors.New("投稿已有审核结果")
)

// Feed 外部空间的发布接口. 一次调用发布一批图片,
// 返回平台侧的引用 id.
type Feed interface {
	Publish(ctx context.Context, imagePaths []string) (string, error)
}

// Coordinator 串行化所有读-判-写的审核操作.
// 两个管理员同时审同一条投稿时靠 mu 防止重复通过/重复推送.
type Coordinator struct {
	mu    sync.Mutex
	store *db.Store
	msgr  messaging.Messenger
	feed  Feed

	quorum       int
	batchSize    int
	queuePreview int
	dataDir      string
}

// NewCoordinator wires the moderation coordinator.
func NewCoordinator(store *db.Store, msgr messaging.Messenger, feed Feed, quorum, batchSize, queuePreview int, dataDir string) *Coordinator {
	return &Coordinator{
		store:        store,
		msgr:         msgr,
		feed:         feed,
		quorum:       quorum,
		batchSize:    batchSize,
		queuePreview: queuePreview,
		dataDir:      dataDir,
	}
}

// ApproveResult 一次投票的结果, 供 handler 回复管理员
type ApproveResult struct {
	// AlreadyDecided 投稿不在待审核状态
	AlreadyDecided bool
	// Duplicate 该管理员已经投过票
	Duplicate bool
	// Votes 当前票数
	Votes int
	// Queued 达到法定票数, 已进入队列
	Queued bool
	// PublishedSingle 达到法定票数且要求单发, 已直接推送
	PublishedSingle bool
	// Flush 入队后本次批量推送的情况, 只在 Queued 时有效
	Flush *FlushResult
	// PublishErr 单发推送失败时的错误
	PublishErr error
}

// FlushResult 一次批量推送检查的结果
type FlushResult struct {
	// Backlog 检查时队列中的投稿数
	Backlog int
	// Published 本次成功推送的投稿编号, 为空表示没到批量阈值
	Published []int64
	// ExternalRef 推送成功后平台返回的引用
	ExternalRef string
	// Err 外部发布失败, 所有投稿保持在队列中
	Err error
}

// Approve 给投稿记一票. 重复投票幂等, 票数到达法定值时
// 入队或单发, 入队后顺带检查是否该批量推送.
func (c *Coordinator) Approve(ctx context.Context, articleID, moderatorID int64) (*ApproveResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	article, err := c.store.GetArticle(articleID)
	if err != nil {
		return nil, err
	}
	if article == nil {
		return nil, ErrNotFound
	}
	if article.Status != model.StatusSubmitted {
		return &ApproveResult{AlreadyDecided: true}, nil
	}
	if article.Approvers.Contains(moderatorID) {
		return &ApproveResult{Duplicate: true, Votes: article.Approvers.Len()}, nil
	}

	article.Approvers.Add(moderatorID)
	if err := c.store.UpdateApprovers(articleID, article.Approvers); err != nil {
		return nil, err
	}

	res := &ApproveResult{Votes: article.Approvers.Len()}
	if article.Approvers.Len() < c.quorum {
		return res, nil
	}

	if article.Single {
		ref, err := c.publishBatch(ctx, []*model.Article{article})
		if err != nil {
			// 投稿保持待审核, 下一个管理员投票时会重试
			res.PublishErr = err
			return res, nil
		}
		res.PublishedSingle = true
		res.Flush = &FlushResult{Published: []int64{articleID}, ExternalRef: ref}
		c.mark(ctx, article, "✅")
		return res, nil
	}

	if err := c.store.UpdateStatus(articleID, model.StatusQueued); err != nil {
		return nil, err
	}
	res.Queued = true
	c.mark(ctx, article, "✅")
	c.notify(ctx, article.SenderID, fmt.Sprintf("您的投稿 #%d 已通过审核, 正在队列中等待发送", articleID))

	res.Flush = c.maybeFlushQueue(ctx)
	return res, nil
}

// Reject 驳回一条待审核的投稿并通知投稿人理由.
func (c *Coordinator) Reject(ctx context.Context, articleID, moderatorID int64, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	article, err := c.store.GetArticle(articleID)
	if err != nil {
		return err
	}
	if article == nil {
		return ErrNotFound
	}
	if article.Status != model.StatusSubmitted {
		return ErrAlreadyDecided
	}

	if err := c.store.UpdateStatus(articleID, model.StatusRejected); err != nil {
		return err
	}
	if err := c.store.UpdateReviewer(articleID, moderatorID); err != nil {
		log.Errorf("记录审核人失败: %v", err)
	}

	c.notify(ctx, article.SenderID, fmt.Sprintf("抱歉, 你的投稿 #%d 已被管理员驳回😵‍💫 理由: %s", articleID, reason))
	c.mark(ctx, article, "❌")
	return nil
}

// mark 在审核群的公告消息上贴审核结果.
// 入队和发布前 external_ref 里存的还是公告消息 id.
func (c *Coordinator) mark(ctx context.Context, article *model.Article, marker string) {
	if article.ExternalRef == "" {
		return
	}
	if err := c.msgr.React(ctx, article.ExternalRef, marker); err != nil {
		log.Debugf("给公告消息贴表情失败: %v", err)
	}
}

// maybeFlushQueue 队列达到批量阈值时推送最早的一批,
// 不够就只报告积压数量. 调用方必须持有 mu.
func (c *Coordinator) maybeFlushQueue(ctx context.Context) *FlushResult {
	backlog, err := c.store.CountByStatus(model.StatusQueued)
	if err != nil {
		return &FlushResult{Err: err}
	}
	res := &FlushResult{Backlog: backlog}
	if backlog < c.batchSize {
		return res
	}

	batch, err := c.store.ListByStatus(model.StatusQueued, c.batchSize)
	if err != nil {
		res.Err = err
		return res
	}

	ref, err := c.publishBatch(ctx, batch)
	if err != nil {
		// 整批失败, 投稿全部留在队列里等下次机会
		res.Err = err
		return res
	}
	for _, a := range batch {
		res.Published = append(res.Published, a.ID)
	}
	res.ExternalRef = ref
	return res
}

// PublishNow 管理员强制推送指定的一组已入队投稿,
// 不看批量阈值. 同样整批成功或整批失败.
func (c *Coordinator) PublishNow(ctx context.Context, articleIDs []int64) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var batch []*model.Article
	for _, id := range articleIDs {
		article, err := c.store.GetArticle(id)
		if err != nil {
			return "", err
		}
		if article == nil || article.Status != model.StatusQueued {
			return "", fmt.Errorf("投稿 #%d 不存在或已被推送或未通过审核: %w", id, ErrNotFound)
		}
		batch = append(batch, article)
	}

	return c.publishBatch(ctx, batch)
}

// publishBatch 调外部空间一次性发布一批预览图, 成功后逐条落
// PUBLISHED 状态并通知投稿人. 失败时不改任何投稿的状态.
// 调用方必须持有 mu.
func (c *Coordinator) publishBatch(ctx context.Context, batch []*model.Article) (string, error) {
	paths := make([]string, 0, len(batch))
	for _, a := range batch {
		paths = append(paths, utils.PreviewPath(c.dataDir, a.ID))
	}

	ref, err := c.feed.Publish(ctx, paths)
	if err != nil {
		return "", fmt.Errorf("外部发布失败: %w", err)
	}

	for _, a := range batch {
		if err := c.store.UpdateStatus(a.ID, model.StatusPublished); err != nil {
			log.Errorf("更新投稿 #%d 状态失败: %v", a.ID, err)
			continue
		}
		if err := c.store.UpdateExternalRef(a.ID, ref); err != nil {
			log.Errorf("保存投稿 #%d 的外部引用失败: %v", a.ID, err)
		}
		c.notify(ctx, a.SenderID, fmt.Sprintf("您的投稿 #%d 已被推送😋", a.ID))
	}
	return ref, nil
}

// Status 返回待审核和待推送的投稿编号, 每类最多 queuePreview 条.
func (c *Coordinator) Status() (waiting, queued []int64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	submitted, err := c.store.ListByStatus(model.StatusSubmitted, c.queuePreview)
	if err != nil {
		return nil, nil, err
	}
	inQueue, err := c.store.ListByStatus(model.StatusQueued, c.queuePreview)
	if err != nil {
		return nil, nil, err
	}
	for _, a := range submitted {
		waiting = append(waiting, a.ID)
	}
	for _, a := range inQueue {
		queued = append(queued, a.ID)
	}
	return waiting, queued, nil
}

// Delete 管理员删除一组投稿, 连同素材一起清掉.
func (c *Coordinator) Delete(articleIDs []int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, id := range articleIDs {
		article, err := c.store.GetArticle(id)
		if err != nil {
			return err
		}
		if article == nil {
			return fmt.Errorf("投稿 #%d: %w", id, ErrNotFound)
		}
		if err := c.store.DeleteArticle(id); err != nil {
			return err
		}
		if err := os.RemoveAll(utils.ArticleDir(c.dataDir, id)); err != nil {
			log.Warnf("删除投稿 #%d 素材失败: %v", id, err)
		}
	}
	return nil
}

func (c *Coordinator) notify(ctx context.Context, userID int64, text string) {
	if _, err := c.msgr.SendPrivate(ctx, userID, messaging.Text(text)); err != nil {
		log.Warnf("私聊用户 %d 失败: %v", userID, err)
	}
}
