// Package agent 把用户的自由文本映射成墙的指令建议.
// 只作为未识别输入的兜底, 不参与投稿状态机.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// knownCommands 仅识别以下完全匹配的命令
var knownCommands = map[string]struct{}{
	"#投稿":       {},
	"#投稿 匿名":    {},
	"#投稿 单发":    {},
	"#投稿 单发 匿名": {},
	"#结束":       {},
	"#确认":       {},
	"#取消":       {},
	"#帮助":       {},
}

// IsKnownCommand reports whether raw exactly matches a wall command.
// 全角井号一并识别.
func IsKnownCommand(raw string) bool {
	s := strings.TrimSpace(raw)
	if s == "" {
		return false
	}
	s = strings.Replace(s, "＃", "#", 1)
	if strings.HasPrefix(s, "#反馈") {
		return true
	}
	_, ok := knownCommands[s]
	return ok
}

// Candidate 一条 AI 生成的指令建议
type Candidate struct {
	Label      string `json:"label"`
	Suggestion string `json:"suggestion"`
	Confidence string `json:"confidence"`
	Reason     string `json:"reason"`
}

type suggestion struct {
	IntentCandidates []Candidate `json:"intent_candidates"`
}

const systemPrompt = "你是把用户短文本转换成墙命令或友好建议的助手。输出 JSON。"

const promptTemplate = `你是"%s"的智能助手, 任务是把用户短文本映射为墙的命令或友好回复。` +
	`最终请返回 JSON: {"intent_candidates":[{"label":"","suggestion":"","confidence":"","reason":""}]}` + "\n\n" +
	`墙的指令和说明:
#帮助: 查看使用说明。
#投稿: 开启投稿模式。
投稿方式:
#投稿 : 普通投稿(显示昵称, 由墙统一发布)
#投稿 单发 : 单独发一条空间动态
#投稿 匿名 : 匿名投稿(不显示昵称/头像)
#投稿 单发 匿名 : 匿名并单发
#结束: 结束当前投稿
#确认: 确认发送当前投稿
#取消: 取消投稿
#反馈: 向管理员反馈(示例: #反馈 机器人发不出去)

原始消息: %s
注意: 如果能直接给出建议命令(如 #投稿 匿名)请放在 suggestion 字段；` +
	`如果只能给自然语言建议, 放在 reason 字段。请不要输出非 JSON 的内容。` +
	`投稿方法是先发送命令, 然后按照提示操作, 不能直接投稿命令后面添加内容, 例如 #投稿 哈哈哈 是错误的! ` +
	`反馈就直接指令空格跟着反馈的内容就行, 例如 #反馈 哈哈哈 是正确的。` +
	`当用户发送没有什么意义的话, 直接返回帮助。` +
	`如果用户发送了不正确的命令, 请告知用户如何修改为正确的指令, 必须要精确匹配才行。` +
	`用户发送的正确的命令不会由你处理, 所以你需要指正用户发的一切命令而不是回复完成`

// Suggester 调 OpenAI 兼容接口生成指令建议
type Suggester struct {
	client   *openai.Client
	model    string
	wallName string
}

// NewSuggester creates a suggester against an OpenAI-compatible router.
func NewSuggester(base, key, model, wallName string) *Suggester {
	opts := []option.RequestOption{option.WithAPIKey(key)}
	if base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}
	client := openai.NewClient(opts...)
	return &Suggester{client: &client, model: model, wallName: wallName}
}

// Suggest 返回针对 raw 的指令建议, AI 不可用时返回空列表而不是错误.
func (s *Suggester) Suggest(ctx context.Context, raw string) []Candidate {
	prompt := fmt.Sprintf(promptTemplate, s.wallName, raw)

	resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(s.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
		MaxTokens:   openai.Int(300),
		Temperature: openai.Float(0),
	})
	if err != nil || len(resp.Choices) == 0 {
		return nil
	}

	return parseCandidates(resp.Choices[0].Message.Content)
}

// parseCandidates 解析模型输出, 容忍 JSON 外面裹着别的文本.
func parseCandidates(text string) []Candidate {
	var out suggestion
	if err := json.Unmarshal([]byte(text), &out); err == nil {
		return out.IntentCandidates
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return nil
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &out); err != nil {
		return nil
	}
	return out.IntentCandidates
}

// FormatReply 把建议拼成给用户的回复
func FormatReply(candidates []Candidate) string {
	if len(candidates) == 0 {
		return "抱歉, 我没理解你想做什么😵‍💫\n请尝试简短说明你的目标, 例如: “我要匿名投稿”\n或者发送: \n\n#帮助\n\n来查看操作指引\n\n若一直返回此提示可能是AI功能繁忙, 请稍等后重新发送"
	}

	for _, c := range candidates {
		if c.Suggestion == "" {
			continue
		}
		text := fmt.Sprintf("您可尝试发送:\n\n %s", strings.TrimSpace(c.Suggestion))
		if reason := strings.TrimSpace(c.Reason); reason != "" {
			if len([]rune(reason)) > 200 {
				reason = string([]rune(reason)[:200])
			}
			text += fmt.Sprintf("\n\n说明: %s", reason)
		}
		text += "\n\n直接发送命令即可执行, 或简要描述你的问题! (例如 我要投稿)"
		return text
	}

	var reasons []string
	for _, c := range candidates {
		if c.Reason != "" {
			reasons = append(reasons, c.Reason)
		}
	}
	if len(reasons) == 0 {
		return "抱歉, 我无法生成命令😵‍💫\n请尝试简短描述你的需求或发送: \n\n#帮助\n\n查看操作指引\n\n若一直返回此提示可能是AI功能繁忙, 请稍等后重新发送"
	}
	return "🤖 建议:\n\n" + strings.Join(reasons, "\n\n") + "\n\n或简单描述您的需求, 我将为您提供建议! (例如 我要投稿)"
}
