package model

// ContentKind 消息段的类型
type ContentKind string

const (
	KindText  ContentKind = "text"
	KindImage ContentKind = "image"
	KindFace  ContentKind = "face"
)

// Supported 只有这些类型的消息段会被收录进投稿
func (k ContentKind) Supported() bool {
	return k == KindText || k == KindImage || k == KindFace
}

// ContentItem 一条消息里的一个段: 文字、图片或表情
type ContentItem struct {
	Kind ContentKind
	Text string // KindText
	File string // KindImage: 本地文件名
	URL  string // KindImage: 临时下载地址
	Face string // KindFace: 表情 id
}

// ContentGroup 一条消息的全部内容, 按发送顺序排列.
// OriginID 是消息平台的消息 id, 撤回时按它整组移除.
type ContentGroup struct {
	OriginID string
	Items    []ContentItem
}

// Identity 渲染署名投稿时用到的投稿人信息
type Identity struct {
	UserID   int64
	Nickname string
}
