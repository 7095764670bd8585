package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/sx120609/Nishikigi/agent"
	"github.com/sx120609/Nishikigi/bot"
	"github.com/sx120609/Nishikigi/config"
	"github.com/sx120609/Nishikigi/db"
	"github.com/sx120609/Nishikigi/fileserver"
	"github.com/sx120609/Nishikigi/handler"
	"github.com/sx120609/Nishikigi/publish"
	"github.com/sx120609/Nishikigi/ratelimit"
	"github.com/sx120609/Nishikigi/reclaim"
	"github.com/sx120609/Nishikigi/render"
	"github.com/sx120609/Nishikigi/review"
	"github.com/sx120609/Nishikigi/session"
)

func main() {
	if err := config.LoadConfig(); err != nil {
		log.Fatalf("加载配置文件时出错: %v", err)
	}
	cfg := config.Cfg

	if cfg.Token == "" {
		log.Warn("Token 为空!")
	}

	store, err := db.Open("./data.db")
	if err != nil {
		log.Fatalf("初始化数据库失败: %v", err)
	}
	defer store.Close()

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		log.Fatalf("创建数据目录失败: %v", err)
	}

	adapter, err := bot.New(cfg.Token, cfg.Bot.ReviewChannelID, cfg.Bot.SendInterval)
	if err != nil {
		log.Fatalf("创建机器人失败: %v", err)
	}

	// 图片服务先于渲染器: 预览页里的图片都经由它引用
	files := fileserver.NewServer(cfg.Server.Host, cfg.Server.Port)

	limiter := ratelimit.NewLimiter(store, cfg.Wall.NormalLimit, cfg.Wall.AnonymousLimit)
	renderer := render.NewRenderer(cfg.DataDir, cfg.Render.Width, cfg.Render.Scale, cfg.Render.Timeout, files)
	fetcher := render.NewFetcher(cfg.DataDir, cfg.Render.Timeout)
	feed := publish.NewClient(cfg.Feed.Endpoint, cfg.Feed.Token, cfg.Feed.Timeout)

	manager := session.NewManager(session.NewMemoryStore(), store, limiter, renderer, fetcher, adapter, cfg.DataDir)
	coordinator := review.NewCoordinator(store, adapter, feed, cfg.Wall.Quorum, cfg.Wall.BatchSize, cfg.Wall.QueuePreview, cfg.DataDir)

	var suggester *agent.Suggester
	if cfg.Agent.Key != "" {
		suggester = agent.NewSuggester(cfg.Agent.Base, cfg.Agent.Key, cfg.Agent.Model, cfg.Name)
	}

	router := handler.NewRouter(manager, coordinator, store, limiter, adapter, suggester, cfg.Name)

	if err := adapter.Start(router); err != nil {
		log.Fatalf("启动机器人失败: %v", err)
	}
	defer adapter.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reclaimer := reclaim.NewReclaimer(manager, adapter, cfg.Wall.SessionTimeout, cfg.Wall.SweepInterval)
	go reclaimer.Run(ctx)

	go func() {
		if err := files.Start(); err != nil {
			log.Errorf("图片服务退出: %v", err)
		}
	}()
	defer files.Close()

	log.Infof("%s 运行中. Press CTRL-C to exit.", cfg.Name)
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc
}
