// Package bot 用 Discord 实现 messaging 抽象: 私信对应私聊,
// 审核频道对应审核群, 消息删除对应撤回.
package bot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/sx120609/Nishikigi/messaging"
)

// Adapter implements messaging.Messenger over a Discord session.
type Adapter struct {
	dg              *discordgo.Session
	reviewChannelID string

	// 出站限速, 防止被平台限流
	limiter *rate.Limiter

	events messaging.Events

	mu         sync.Mutex
	dmChannels map[int64]string // 用户 -> 私信频道
	dmUsers    map[string]int64 // 私信频道 -> 用户, 撤回事件里反查
}

// New creates the adapter. Start must be called before use.
func New(token, reviewChannelID string, sendInterval time.Duration) (*Adapter, error) {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("创建 Discord 会话失败: %w", err)
	}

	return &Adapter{
		dg:              dg,
		reviewChannelID: reviewChannelID,
		limiter:         rate.NewLimiter(rate.Every(sendInterval), 1),
		dmChannels:      make(map[int64]string),
		dmUsers:         make(map[string]int64),
	}, nil
}

// Start registers event handlers and opens the gateway connection.
func (a *Adapter) Start(events messaging.Events) error {
	a.events = events
	a.dg.AddHandler(a.onMessageCreate)
	a.dg.AddHandler(a.onMessageDelete)
	a.dg.AddHandler(a.onGuildMemberAdd)

	// 设置必要的intents
	a.dg.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages | discordgo.IntentsGuildMembers | discordgo.IntentsMessageContent

	if err := a.dg.Open(); err != nil {
		return fmt.Errorf("连接 Discord 失败: %w", err)
	}
	return nil
}

// Close closes the gateway connection.
func (a *Adapter) Close() error {
	return a.dg.Close()
}

// SendPrivate implements messaging.Messenger.
func (a *Adapter) SendPrivate(ctx context.Context, userID int64, msg messaging.Message) (string, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return "", err
	}

	channelID, err := a.dmChannel(userID)
	if err != nil {
		return "", err
	}
	return a.send(channelID, msg)
}

// SendGroup implements messaging.Messenger.
func (a *Adapter) SendGroup(ctx context.Context, msg messaging.Message) (string, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return a.send(a.reviewChannelID, msg)
}

// React implements messaging.Messenger. 只对审核群里的消息用.
func (a *Adapter) React(ctx context.Context, messageID string, marker string) error {
	if err := a.limiter.Wait(ctx); err != nil {
		return err
	}
	return a.dg.MessageReactionAdd(a.reviewChannelID, messageID, marker)
}

func (a *Adapter) send(channelID string, msg messaging.Message) (string, error) {
	out := &discordgo.MessageSend{Content: msg.Text}
	if msg.ImagePath != "" {
		file, err := os.Open(msg.ImagePath)
		if err != nil {
			return "", fmt.Errorf("打开图片失败: %w", err)
		}
		defer file.Close()
		out.Files = []*discordgo.File{{
			Name:   filepath.Base(msg.ImagePath),
			Reader: file,
		}}
	}

	sent, err := a.dg.ChannelMessageSendComplex(channelID, out)
	if err != nil {
		return "", err
	}
	return sent.ID, nil
}

// dmChannel 拿到和用户的私信频道, 带缓存.
func (a *Adapter) dmChannel(userID int64) (string, error) {
	a.mu.Lock()
	if id, ok := a.dmChannels[userID]; ok {
		a.mu.Unlock()
		return id, nil
	}
	a.mu.Unlock()

	channel, err := a.dg.UserChannelCreate(strconv.FormatInt(userID, 10))
	if err != nil {
		return "", fmt.Errorf("创建私信频道失败: %w", err)
	}

	a.mu.Lock()
	a.dmChannels[userID] = channel.ID
	a.dmUsers[channel.ID] = userID
	a.mu.Unlock()
	return channel.ID, nil
}

func (a *Adapter) rememberDM(userID int64, channelID string) {
	a.mu.Lock()
	a.dmChannels[userID] = channelID
	a.dmUsers[channelID] = userID
	a.mu.Unlock()
}

func (a *Adapter) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}

	if m.GuildID == "" {
		userID, err := strconv.ParseInt(m.Author.ID, 10, 64)
		if err != nil {
			log.Warnf("无法解析用户 id %s: %v", m.Author.ID, err)
			return
		}
		a.rememberDM(userID, m.ChannelID)

		a.events.OnPrivateMessage(context.Background(), messaging.PrivateMessage{
			UserID:    userID,
			Nickname:  m.Author.GlobalName,
			MessageID: m.ID,
			Raw:       m.Content,
			Items:     itemsFromMessage(m.Message),
		})
		return
	}

	if m.ChannelID == a.reviewChannelID {
		userID, err := strconv.ParseInt(m.Author.ID, 10, 64)
		if err != nil {
			return
		}
		var roles []string
		if m.Member != nil {
			roles = m.Member.Roles
		}
		a.events.OnGroupMessage(context.Background(), messaging.GroupMessage{
			UserID:    userID,
			MessageID: m.ID,
			Raw:       m.Content,
			Roles:     roles,
		})
	}
}

func (a *Adapter) onMessageDelete(s *discordgo.Session, m *discordgo.MessageDelete) {
	a.mu.Lock()
	userID, ok := a.dmUsers[m.ChannelID]
	a.mu.Unlock()
	if !ok {
		return
	}
	a.events.OnRecall(context.Background(), messaging.Recall{
		UserID:    userID,
		MessageID: m.ID,
	})
}

func (a *Adapter) onGuildMemberAdd(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
	if m.User == nil {
		return
	}
	userID, err := strconv.ParseInt(m.User.ID, 10, 64)
	if err != nil {
		return
	}
	a.events.OnFriendAdd(context.Background(), messaging.FriendAdd{UserID: userID})
}
