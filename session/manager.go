package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/sx120609/Nishikigi/db"
	"github.com/sx120609/Nishikigi/messaging"
	"github.com/sx120609/Nishikigi/model"
	"github.com/sx120609/Nishikigi/ratelimit"
	"github.com/sx120609/Nishikigi/utils"
)

var (
	// ErrAlreadyActive 用户已有进行中的投稿
	ErrAlreadyActive = errors.New("已有进行中的投稿")
	// ErrNoActiveSession 用户没有进行中的投稿
	ErrNoActiveSession = errors.New("没有进行中的投稿")
	// ErrEmptyContent 投稿内容为空
	ErrEmptyContent = errors.New("投稿内容为空")
	// ErrPreviewNotReady 还没有生成预览图
	ErrPreviewNotReady = errors.New("预览图还没有生成")
)

// Renderer 把投稿内容渲染成预览图. identity 为 nil 表示匿名.
type Renderer interface {
	Render(ctx context.Context, articleID int64, groups []model.ContentGroup, identity *model.Identity) (string, error)
}

// MediaFetcher 把内容里的临时图片地址落到本地文件, 幂等
type MediaFetcher interface {
	Materialize(ctx context.Context, articleID int64, groups []model.ContentGroup) ([]model.ContentGroup, error)
}

// Manager 持有会话表, 驱动投稿状态机.
// 同一用户的操作在 mu 下串行, 不同用户天然不冲突.
type Manager struct {
	mu       sync.Mutex
	sessions Store

	store   *db.Store
	limiter *ratelimit.Limiter
	render  Renderer
	fetcher MediaFetcher
	msgr    messaging.Messenger

	dataDir string
}

// NewManager wires the session manager with its collaborators.
func NewManager(sessions Store, store *db.Store, limiter *ratelimit.Limiter, render Renderer, fetcher MediaFetcher, msgr messaging.Messenger, dataDir string) *Manager {
	return &Manager{
		sessions: sessions,
		store:    store,
		limiter:  limiter,
		render:   render,
		fetcher:  fetcher,
		msgr:     msgr,
		dataDir:  dataDir,
	}
}

// DataDir 素材根目录
func (m *Manager) DataDir() string { return m.dataDir }

// Start 开始一次投稿: 创建 Article 和会话, 通知审核群.
// 返回新投稿的编号.
func (m *Manager) Start(ctx context.Context, userID int64, nickname string, anonymous, single bool) (int64, error) {
	m.mu.Lock()
	if _, ok := m.sessions.Get(userID); ok {
		m.mu.Unlock()
		return 0, ErrAlreadyActive
	}

	if err := m.limiter.Check(userID, anonymous, time.Now()); err != nil {
		m.mu.Unlock()
		return 0, err
	}

	senderName := nickname
	if anonymous {
		senderName = ""
	}
	id, err := m.store.CreateArticle(userID, senderName, anonymous, single, time.Now())
	if err != nil {
		m.mu.Unlock()
		return 0, fmt.Errorf("创建投稿失败: %w", err)
	}

	if err := os.MkdirAll(utils.ArticleDir(m.dataDir, id), 0755); err != nil {
		// 不回收的话这条 CREATED 会成为没有会话的孤儿
		if derr := m.store.DeleteArticle(id); derr != nil {
			log.Errorf("回收投稿 #%d 失败: %v", id, derr)
		}
		m.mu.Unlock()
		return 0, fmt.Errorf("创建素材目录失败: %w", err)
	}

	m.sessions.Put(userID, &Session{
		ArticleID: id,
		Anonymous: anonymous,
		Nickname:  nickname,
		state:     stateCollecting,
	})
	m.mu.Unlock()

	if _, err := m.msgr.SendGroup(ctx, messaging.Text(fmt.Sprintf("%s(%d) 开始投稿 #%d", nickname, userID, id))); err != nil {
		log.Warnf("通知审核群失败: %v", err)
	}
	return id, nil
}

// Collect 把一条消息的内容追加进会话缓冲. 不支持的消息段被
// 逐个丢弃并返回其类型, 不影响整条消息的其余部分.
func (m *Manager) Collect(userID int64, group model.ContentGroup) ([]model.ContentKind, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ses, ok := m.sessions.Get(userID)
	if !ok {
		return nil, ErrNoActiveSession
	}

	var dropped []model.ContentKind
	kept := group.Items[:0]
	for _, item := range group.Items {
		if !item.Kind.Supported() {
			dropped = append(dropped, item.Kind)
			continue
		}
		kept = append(kept, item)
	}
	group.Items = kept

	if len(group.Items) > 0 {
		ses.buffer.Append(group)
		// 回到收集状态: 新内容让已有预览失效
		ses.state = stateCollecting
	}
	return dropped, nil
}

// CanEnd 预检会话能否生成预览图, 不改变任何状态.
func (m *Manager) CanEnd(userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ses, ok := m.sessions.Get(userID)
	if !ok {
		return ErrNoActiveSession
	}
	if ses.buffer.IsEmpty() {
		return ErrEmptyContent
	}
	return nil
}

// End 结束内容收集: 下载素材、渲染预览图, 进入待确认状态.
// 渲染失败不改变状态, 用户可以重试.
func (m *Manager) End(ctx context.Context, userID int64) (string, error) {
	m.mu.Lock()
	ses, ok := m.sessions.Get(userID)
	if !ok {
		m.mu.Unlock()
		return "", ErrNoActiveSession
	}
	if ses.buffer.IsEmpty() {
		m.mu.Unlock()
		return "", ErrEmptyContent
	}
	articleID := ses.ArticleID
	groups := ses.buffer.Groups()
	var identity *model.Identity
	if !ses.Anonymous {
		identity = &model.Identity{UserID: userID, Nickname: ses.Nickname}
	}
	m.mu.Unlock()

	// 渲染是慢操作, 不能占着锁
	groups, err := m.fetcher.Materialize(ctx, articleID, groups)
	if err != nil {
		return "", fmt.Errorf("下载素材失败: %w", err)
	}
	path, err := m.render.Render(ctx, articleID, groups, identity)
	if err != nil {
		return "", fmt.Errorf("生成预览图失败: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.sessions.Get(userID)
	if !ok || cur.ArticleID != articleID {
		// 渲染期间会话被取消或超时回收, 丢弃渲染结果
		log.Infof("投稿 #%d 的渲染结果已作废", articleID)
		return "", ErrNoActiveSession
	}
	cur.preview = path
	cur.state = statePreviewReady
	return path, nil
}

// Confirm 确认投稿: Article 进入待审核, 记一次当日投稿计数,
// 通知审核群并销毁会话. 返回投稿编号.
func (m *Manager) Confirm(ctx context.Context, userID int64) (int64, error) {
	m.mu.Lock()
	ses, ok := m.sessions.Get(userID)
	if !ok {
		m.mu.Unlock()
		return 0, ErrNoActiveSession
	}
	if ses.state != statePreviewReady || ses.preview == "" {
		m.mu.Unlock()
		return 0, ErrPreviewNotReady
	}
	if _, err := os.Stat(ses.preview); err != nil {
		m.mu.Unlock()
		return 0, ErrPreviewNotReady
	}

	articleID := ses.ArticleID
	preview := ses.preview
	anonymous := ses.Anonymous
	nickname := ses.Nickname

	if err := m.store.UpdateStatus(articleID, model.StatusSubmitted); err != nil {
		m.mu.Unlock()
		return 0, fmt.Errorf("更新投稿状态失败: %w", err)
	}
	if err := m.limiter.Record(userID, anonymous, time.Now()); err != nil {
		log.Errorf("记录投稿计数失败: %v", err)
	}
	m.sessions.Delete(userID)
	m.mu.Unlock()

	m.announce(ctx, articleID, userID, nickname, anonymous, preview)
	return articleID, nil
}

// announce 在审核群里发布审核公告, 公告消息 id 暂存在
// external_ref 里, 供后续审核操作引用.
func (m *Manager) announce(ctx context.Context, articleID, userID int64, nickname string, anonymous bool, preview string) {
	article, err := m.store.GetArticle(articleID)
	if err != nil || article == nil {
		log.Errorf("读取投稿 #%d 失败: %v", articleID, err)
		return
	}

	text := fmt.Sprintf("#%d 用户 %s(%d) ", articleID, nickname, userID)
	if anonymous {
		text += "匿名"
	}
	text += "投稿"
	if article.Single {
		text += ", 要求单发"
	}
	text += "\n使用 #通过 #驳回 处理"

	msgID, err := m.msgr.SendGroup(ctx, messaging.Message{Text: text, ImagePath: preview})
	if err != nil {
		log.Errorf("发送审核公告失败: %v", err)
		return
	}
	if err := m.store.UpdateExternalRef(articleID, msgID); err != nil {
		log.Errorf("保存公告消息 id 失败: %v", err)
	}
}

// Cancel 取消投稿: 删除 Article 和素材, 销毁会话.
// 返回被取消的投稿编号.
func (m *Manager) Cancel(userID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ses, ok := m.sessions.Get(userID)
	if !ok {
		return 0, ErrNoActiveSession
	}

	id := ses.ArticleID
	if err := m.store.DeleteArticle(id); err != nil {
		return 0, fmt.Errorf("删除投稿失败: %w", err)
	}
	if err := os.RemoveAll(utils.ArticleDir(m.dataDir, id)); err != nil {
		log.Warnf("删除素材目录失败: %v", err)
	}
	m.sessions.Delete(userID)
	return id, nil
}

// HandleRecall 撤回消息时同步移除缓冲里对应的内容组.
// 用户没有会话或消息不在缓冲里时什么都不做.
func (m *Manager) HandleRecall(userID int64, messageID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ses, ok := m.sessions.Get(userID)
	if !ok {
		return
	}
	if ses.buffer.Reconcile(messageID) {
		log.Debugf("投稿 #%d 移除了撤回的消息 %s", ses.ArticleID, messageID)
	}
}

// Reclaimed 一条被超时回收的会话
type Reclaimed struct {
	UserID    int64
	ArticleID int64
}

// SweepStale 回收超过 horizon 还没确认的会话, 删除对应的
// Article 和素材. 只动 CREATED 状态的投稿.
func (m *Manager) SweepStale(horizon time.Duration, now time.Time) []Reclaimed {
	m.mu.Lock()
	defer m.mu.Unlock()

	var reclaimed []Reclaimed
	for userID, ses := range m.sessions.Snapshot() {
		article, err := m.store.GetArticle(ses.ArticleID)
		if err != nil {
			log.Errorf("读取投稿 #%d 失败: %v", ses.ArticleID, err)
			continue
		}
		if article == nil || article.Status != model.StatusCreated {
			// 会话指向的投稿已不在收集状态, 只清掉会话
			m.sessions.Delete(userID)
			continue
		}
		if now.Sub(article.CreatedAt) <= horizon {
			continue
		}

		if err := m.store.DeleteArticle(article.ID); err != nil {
			log.Errorf("删除超时投稿 #%d 失败: %v", article.ID, err)
			continue
		}
		if err := os.RemoveAll(utils.ArticleDir(m.dataDir, article.ID)); err != nil {
			log.Warnf("删除素材目录失败: %v", err)
		}
		m.sessions.Delete(userID)
		reclaimed = append(reclaimed, Reclaimed{UserID: userID, ArticleID: article.ID})
		log.Warnf("用户 %d 的投稿 #%d 因超时被取消", userID, article.ID)
	}
	return reclaimed
}
