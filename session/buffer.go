package session

import "github.com/sx120609/Nishikigi/model"

// Buffer 投稿会话的内容缓冲: 只追加, 撤回时按消息 id 整组移除,
// 顺序即渲染顺序.
type Buffer struct {
	groups []model.ContentGroup
}

// Append adds a content group at the end of the buffer.
func (b *Buffer) Append(g model.ContentGroup) {
	b.groups = append(b.groups, g)
}

// Reconcile removes the group whose OriginID matches the recalled
// message id. Removing an absent id is a no-op. Returns whether
// anything was removed.
func (b *Buffer) Reconcile(originID string) bool {
	kept := b.groups[:0]
	removed := false
	for _, g := range b.groups {
		if g.OriginID == originID {
			removed = true
			continue
		}
		kept = append(kept, g)
	}
	b.groups = kept
	return removed
}

// IsEmpty reports whether the buffer holds no content.
func (b *Buffer) IsEmpty() bool { return len(b.groups) == 0 }

// Len returns the number of buffered groups.
func (b *Buffer) Len() int { return len(b.groups) }

// Groups returns a copy of the buffered groups in arrival order.
func (b *Buffer) Groups() []model.ContentGroup {
	out := make([]model.ContentGroup, len(b.groups))
	copy(out, b.groups)
	return out
}
