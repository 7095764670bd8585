// Package render 把投稿内容渲染成一张预览图: 先用模板拼出
// 静态页面, 再用无头浏览器整页截图.
package render

import (
	"context"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/sx120609/Nishikigi/model"
	"github.com/sx120609/Nishikigi/utils"
)

const faceDir = "./face"

// URLProvider 把本地文件变成页面里可引用的地址.
// 无头浏览器默认禁止 file:// 页面加载其它本地文件,
// 图片和二维码都经由本地图片服务引用.
type URLProvider interface {
	FileURL(path string) string
}

// Renderer 生成投稿预览图
type Renderer struct {
	dataDir string
	width   int
	scale   float64
	timeout time.Duration
	files   URLProvider
}

// NewRenderer creates a renderer with the configured viewport.
func NewRenderer(dataDir string, width int, scale float64, timeout time.Duration, files URLProvider) *Renderer {
	return &Renderer{dataDir: dataDir, width: width, scale: scale, timeout: timeout, files: files}
}

type pageItem struct {
	IsImage bool
	IsFace  bool
	Src     string
	Text    template.HTML
}

type pageGroup struct {
	Items []pageItem
}

type pageData struct {
	Groups   []pageGroup
	Date     string
	Nickname string
	UserID   int64
	QRCode   string
}

// Render 渲染预览图并返回绝对路径. identity 为 nil 时使用
// 匿名版式, 否则附上昵称和资料二维码.
func (r *Renderer) Render(ctx context.Context, articleID int64, groups []model.ContentGroup, identity *model.Identity) (string, error) {
	data, err := r.buildPage(articleID, groups, identity)
	if err != nil {
		return "", err
	}

	pagePath := utils.PagePath(r.dataDir, articleID)
	if err := r.writePage(pagePath, data); err != nil {
		return "", err
	}

	previewPath := utils.PreviewPath(r.dataDir, articleID)
	if err := r.screenshot(ctx, pagePath, previewPath); err != nil {
		return "", err
	}
	return filepath.Abs(previewPath)
}

func (r *Renderer) buildPage(articleID int64, groups []model.ContentGroup, identity *model.Identity) (pageData, error) {
	dir := utils.ArticleDir(r.dataDir, articleID)

	data := pageData{Date: time.Now().Format("2006-01-02 15:04:05")}
	for _, g := range groups {
		var pg pageGroup
		for _, item := range g.Items {
			switch item.Kind {
			case model.KindText:
				escaped := template.HTMLEscapeString(item.Text)
				escaped = strings.ReplaceAll(escaped, "\r\n", "\n")
				escaped = strings.ReplaceAll(escaped, "\n", "<br>")
				pg.Items = append(pg.Items, pageItem{Text: template.HTML(escaped)})
			case model.KindImage:
				abs, err := filepath.Abs(filepath.Join(dir, item.File))
				if err != nil {
					return pageData{}, err
				}
				pg.Items = append(pg.Items, pageItem{IsImage: true, Src: r.files.FileURL(abs)})
			case model.KindFace:
				abs, err := filepath.Abs(filepath.Join(faceDir, item.Face+".png"))
				if err != nil {
					return pageData{}, err
				}
				pg.Items = append(pg.Items, pageItem{IsFace: true, Src: r.files.FileURL(abs)})
			}
		}
		data.Groups = append(data.Groups, pg)
	}

	if identity != nil {
		data.Nickname = identity.Nickname
		data.UserID = identity.UserID
		qrPath := filepath.Join(dir, "qrcode.png")
		url := fmt.Sprintf("https://3lu.cn/qq.php?qq=%d", identity.UserID)
		if err := qrcode.WriteColorFile(url, qrcode.Medium, 256, colorBackground, colorForeground, qrPath); err != nil {
			return pageData{}, fmt.Errorf("生成二维码失败: %w", err)
		}
		abs, err := filepath.Abs(qrPath)
		if err != nil {
			return pageData{}, err
		}
		data.QRCode = r.files.FileURL(abs)
	}

	return data, nil
}

func (r *Renderer) writePage(path string, data pageData) error {
	name := "anonymous"
	if data.Nickname != "" {
		name = "normal"
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("写入页面失败: %w", err)
	}
	defer f.Close()
	return pageTemplates.ExecuteTemplate(f, name, data)
}

// screenshot 用无头浏览器打开页面整页截图
func (r *Renderer) screenshot(ctx context.Context, pagePath, outputPath string) error {
	abs, err := filepath.Abs(pagePath)
	if err != nil {
		return err
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-javascript", true),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	runCtx, cancelRun := context.WithTimeout(browserCtx, r.timeout)
	defer cancelRun()

	var buf []byte
	err = chromedp.Run(runCtx,
		chromedp.EmulateViewport(int64(r.width), 200, chromedp.EmulateScale(r.scale)),
		chromedp.Navigate("file://"+abs),
		chromedp.FullScreenshot(&buf, 100),
	)
	if err != nil {
		return fmt.Errorf("截图失败: %w", err)
	}

	return os.WriteFile(outputPath, buf, 0644)
}
