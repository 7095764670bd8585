package model

import "time"

// Config 对应于 config.yaml 的顶级结构
type Config struct {
	Token   string `mapstructure:"TOKEN"`
	Name    string `mapstructure:"name"`
	DataDir string `mapstructure:"data_dir"`

	Wall   Wall   `mapstructure:"wall"`
	Bot    Bot    `mapstructure:"bot"`
	Render Render `mapstructure:"render"`
	Feed   Feed   `mapstructure:"feed"`
	Agent  Agent  `mapstructure:"agent"`
	Server Server `mapstructure:"server"`
}

// Wall 审核流水线的参数
type Wall struct {
	Quorum         int           `mapstructure:"quorum"`
	BatchSize      int           `mapstructure:"batch_size"`
	QueuePreview   int           `mapstructure:"queue_preview"`
	NormalLimit    int           `mapstructure:"normal_limit"`
	AnonymousLimit int           `mapstructure:"anonymous_limit"`
	SessionTimeout time.Duration `mapstructure:"session_timeout"`
	SweepInterval  time.Duration `mapstructure:"sweep_interval"`
}

// Bot 对应 "bot" 部分: 聊天平台接入
type Bot struct {
	GuildID         string   `mapstructure:"guild_id"`
	ReviewChannelID string   `mapstructure:"review_channel_id"`
	Moderators      []string `mapstructure:"moderators"`
	ModeratorRoles  []string `mapstructure:"moderator_roles"`
	// SendInterval 私聊发送间隔, 防止被平台限流
	SendInterval time.Duration `mapstructure:"send_interval"`
}

// Render 预览图生成参数
type Render struct {
	Width   int           `mapstructure:"width"`
	Scale   float64       `mapstructure:"scale"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Feed 对应外部空间的发布接口
type Feed struct {
	Endpoint string        `mapstructure:"endpoint"`
	Token    string        `mapstructure:"token"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Agent 对应 "agent" 部分: 未识别消息的 AI 指令建议
type Agent struct {
	Base  string `mapstructure:"base"`
	Key   string `mapstructure:"key"`
	Model string `mapstructure:"model"`
}

// Server 对应 "server" 部分: 本地图片服务
type Server struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}
