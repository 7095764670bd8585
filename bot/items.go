package bot

import (
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/sx120609/Nishikigi/model"
)

// itemsFromMessage 把一条 Discord 消息拆成内容段:
// 正文是文字, 图片附件是图片, 贴纸算表情, 其余类型保留原样
// 交给上层判定是否支持.
func itemsFromMessage(m *discordgo.Message) []model.ContentItem {
	var items []model.ContentItem

	if strings.TrimSpace(m.Content) != "" {
		items = append(items, model.ContentItem{
			Kind: model.KindText,
			Text: m.Content,
		})
	}

	for _, att := range m.Attachments {
		if strings.HasPrefix(att.ContentType, "image/") {
			items = append(items, model.ContentItem{
				Kind: model.KindImage,
				File: att.ID + "_" + att.Filename,
				URL:  att.URL,
			})
			continue
		}
		// 非图片附件交给会话层拒绝
		items = append(items, model.ContentItem{
			Kind: model.ContentKind(att.ContentType),
		})
	}

	for _, sticker := range m.StickerItems {
		items = append(items, model.ContentItem{
			Kind: model.KindFace,
			Face: sticker.ID,
		})
	}

	return items
}
