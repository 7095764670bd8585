package render

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sx120609/Nishikigi/model"
	"github.com/sx120609/Nishikigi/utils"
)

type stubURLs struct{}

func (stubURLs) FileURL(path string) string {
	return "http://127.0.0.1:8413/image?p=" + path + "&t=test-token"
}

func TestBuildPageServesImagesOverLocalServer(t *testing.T) {
	dataDir := t.TempDir()
	require.NoError(t, os.MkdirAll(utils.ArticleDir(dataDir, 1), 0755))
	r := NewRenderer(dataDir, 720, 3.0, time.Second, stubURLs{})

	groups := []model.ContentGroup{{
		OriginID: "m1",
		Items: []model.ContentItem{
			{Kind: model.KindText, Text: "第一行\n<b>第二行</b>"},
			{Kind: model.KindImage, File: "a.png"},
		},
	}}

	data, err := r.buildPage(1, groups, &model.Identity{UserID: 10001, Nickname: "张三"})
	require.NoError(t, err)
	require.Len(t, data.Groups, 1)
	require.Len(t, data.Groups[0].Items, 2)

	text := string(data.Groups[0].Items[0].Text)
	assert.Contains(t, text, "<br>")
	assert.Contains(t, text, "&lt;b&gt;")

	// file:// 页面引用不了本地文件, 图片必须走本地图片服务
	img := data.Groups[0].Items[1]
	assert.True(t, img.IsImage)
	assert.True(t, strings.HasPrefix(img.Src, "http://127.0.0.1:8413/image?p="))
	assert.Contains(t, img.Src, "a.png")

	// 署名投稿落地二维码并同样经由图片服务引用
	assert.Equal(t, "张三", data.Nickname)
	assert.Equal(t, int64(10001), data.UserID)
	assert.True(t, strings.HasPrefix(data.QRCode, "http://127.0.0.1:8413/image?p="))
	assert.FileExists(t, filepath.Join(utils.ArticleDir(dataDir, 1), "qrcode.png"))
}

func TestBuildPageAnonymous(t *testing.T) {
	dataDir := t.TempDir()
	r := NewRenderer(dataDir, 720, 3.0, time.Second, stubURLs{})

	groups := []model.ContentGroup{{
		OriginID: "m1",
		Items:    []model.ContentItem{{Kind: model.KindText, Text: "hello"}},
	}}

	data, err := r.buildPage(2, groups, nil)
	require.NoError(t, err)
	assert.Empty(t, data.Nickname)
	assert.Empty(t, data.QRCode)
	assert.NoFileExists(t, filepath.Join(utils.ArticleDir(dataDir, 2), "qrcode.png"))
}
