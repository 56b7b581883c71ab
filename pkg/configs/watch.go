package configs

import "github.com/spf13/viper"

const (
	DefaultWatchRescanCron       = "*/30 * * * *"
	DefaultWatchRescansPerMinute = 4.0
	DefaultWatchBurst            = 1
)

// WatchConfig 常驻监听模式配置.
type WatchConfig struct {
	RescanCron string `mapstructure:"rescan_cron" rule:"required"`
	// FSNotify 监听本地扫描目录的变化并触发重新扫描
	FSNotify         bool    `mapstructure:"fsnotify"`
	RescansPerMinute float64 `mapstructure:"rescans_per_minute" rule:"gt=0"`
	Burst            int     `mapstructure:"burst"              rule:"min=1"`
}

func (c *WatchConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("watch.rescan_cron", DefaultWatchRescanCron)
	v.SetDefault("watch.fsnotify", true)
	v.SetDefault("watch.rescans_per_minute", DefaultWatchRescansPerMinute)
	v.SetDefault("watch.burst", DefaultWatchBurst)
}
