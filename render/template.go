package render

import (
	"html/template"
	"image/color"
)

var (
	colorBackground = color.RGBA{R: 0xf0, G: 0xf0, B: 0xf0, A: 0xff}
	colorForeground = color.RGBA{A: 0xff}
)

// 预览图版式. normal 带昵称和二维码, anonymous 只有内容.
var pageTemplates = template.Must(template.New("page").Parse(`
{{define "body"}}
<div class="card">
  {{range .Groups}}
  <div class="group">
    {{range .Items}}
      {{if .IsImage}}<img class="pic" src="{{.Src}}">
      {{else if .IsFace}}<img class="face" src="{{.Src}}">
      {{else}}<span class="text">{{.Text}}</span>{{end}}
    {{end}}
  </div>
  {{end}}
  <div class="footer">{{.Date}}</div>
</div>
{{end}}

{{define "normal"}}
<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><style>{{template "style"}}</style></head>
<body>
  <div class="header">
    <div class="who">
      <div class="nickname">{{.Nickname}}</div>
      <div class="uid">{{.UserID}}</div>
    </div>
    <img class="qrcode" src="{{.QRCode}}">
  </div>
  {{template "body" .}}
</body>
</html>
{{end}}

{{define "anonymous"}}
<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><style>{{template "style"}}</style></head>
<body>
  <div class="header"><div class="nickname">匿名</div></div>
  {{template "body" .}}
</body>
</html>
{{end}}

{{define "style"}}
body { margin: 0; background: #f0f0f0; font-family: "PingFang SC", "Microsoft YaHei", sans-serif; }
.header { display: flex; justify-content: space-between; align-items: center; padding: 16px 24px; }
.nickname { font-size: 22px; font-weight: bold; }
.uid { font-size: 14px; color: #888; }
.qrcode { width: 56px; height: 56px; }
.card { background: #fff; border-radius: 12px; margin: 0 16px 16px; padding: 16px; }
.group { margin-bottom: 8px; word-break: break-all; }
.pic { max-width: 100%; border-radius: 8px; display: block; margin: 4px 0; }
.face { width: 24px; height: 24px; vertical-align: text-bottom; }
.text { font-size: 18px; line-height: 1.6; }
.footer { margin-top: 12px; font-size: 12px; color: #aaa; text-align: right; }
{{end}}
`))
