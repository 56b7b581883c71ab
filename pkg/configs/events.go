package configs

import "github.com/spf13/viper"

// EventsConfig 控制事件发布的开关（全局与分主题）。
type EventsConfig struct {
	Enabled   bool                  `mapstructure:"enabled"` // 总开关
	Producer  string                `mapstructure:"producer"`
	Registry  RegistryEventsConfig  `mapstructure:"registry"`
	Favorites FavoritesEventsConfig `mapstructure:"favorites"`
	Scan      bool                  `mapstructure:"scan"`
}

// RegistryEventsConfig 文件列表相关事件开关。
type RegistryEventsConfig struct {
	Added   bool `mapstructure:"added"`
	Removed bool `mapstructure:"removed"`
	Missing bool `mapstructure:"missing"`
}

// FavoritesEventsConfig 收藏相关事件开关。
type FavoritesEventsConfig struct {
	Added   bool `mapstructure:"added"`
	Removed bool `mapstructure:"removed"`
}

func (c *EventsConfig) setDefaults(v *viper.Viper) {
	// 总开关：默认启用事件系统，gochannel 下没有订阅者时消息直接丢弃
	v.SetDefault("events.enabled", true)
	v.SetDefault("events.producer", "docshelf")

	v.SetDefault("events.registry.added", true)
	v.SetDefault("events.registry.removed", true)
	v.SetDefault("events.registry.missing", true)

	v.SetDefault("events.favorites.added", true)
	v.SetDefault("events.favorites.removed", true)

	v.SetDefault("events.scan", true)
}
