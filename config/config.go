package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/sx120609/Nishikigi/model"
)

var Cfg model.Config

// LoadConfig 读取 config.yaml 并填充 Cfg
func LoadConfig() (err error) {
	viper.AddConfigPath(".")
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&Cfg)
	return
}

func setDefaults() {
	viper.SetDefault("name", "校园墙")
	viper.SetDefault("data_dir", "./data")

	viper.SetDefault("wall.quorum", 2)
	viper.SetDefault("wall.batch_size", 4)
	viper.SetDefault("wall.queue_preview", 9)
	viper.SetDefault("wall.normal_limit", 3)
	viper.SetDefault("wall.anonymous_limit", 1)
	viper.SetDefault("wall.session_timeout", 2*time.Hour)
	viper.SetDefault("wall.sweep_interval", time.Hour)

	viper.SetDefault("bot.send_interval", 500*time.Millisecond)

	viper.SetDefault("render.width", 720)
	viper.SetDefault("render.scale", 3.0)
	viper.SetDefault("render.timeout", 45*time.Second)

	viper.SetDefault("feed.timeout", 60*time.Second)

	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 8413)
}
