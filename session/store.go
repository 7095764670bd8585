package session

import "sync"

// state 会话在状态机中的位置
type state int

const (
	stateCollecting state = iota
	statePreviewReady
)

// Session 一个用户正在进行的投稿. 由 Manager 独占持有,
// 进程重启后不保留.
type Session struct {
	ArticleID int64
	Anonymous bool
	Nickname  string

	state   state
	buffer  Buffer
	preview string // 渲染好的预览图路径, 空表示还没渲染
}

// Store 会话表的抽象, 便于在测试里替换
type Store interface {
	Get(userID int64) (*Session, bool)
	Put(userID int64, s *Session)
	Delete(userID int64)
	// Snapshot returns the current table; 供超时清理遍历.
	Snapshot() map[int64]*Session
}

type memoryStore struct {
	mu sync.RWMutex
	m  map[int64]*Session
}

// NewMemoryStore returns the in-memory session table used in production.
func NewMemoryStore() Store {
	return &memoryStore{m: make(map[int64]*Session)}
}

func (s *memoryStore) Get(userID int64) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ses, ok := s.m[userID]
	return ses, ok
}

func (s *memoryStore) Put(userID int64, ses *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[userID] = ses
}

func (s *memoryStore) Delete(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, userID)
}

func (s *memoryStore) Snapshot() map[int64]*Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int64]*Session, len(s.m))
	for k, v := range s.m {
		out[k] = v
	}
	return out
}
