package utils

import (
	"fmt"
	"path/filepath"
)

// ArticleDir 投稿素材的存放目录
func ArticleDir(dataDir string, articleID int64) string {
	return filepath.Join(dataDir, fmt.Sprintf("%d", articleID))
}

// PreviewPath 渲染出的预览图路径
func PreviewPath(dataDir string, articleID int64) string {
	return filepath.Join(ArticleDir(dataDir, articleID), "image.png")
}

// PagePath 渲染用的中间页面路径
func PagePath(dataDir string, articleID int64) string {
	return filepath.Join(ArticleDir(dataDir, articleID), "page.html")
}
