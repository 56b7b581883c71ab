package configs

import "github.com/spf13/viper"

// PickerConfig 手动导入配置.
type PickerConfig struct {
	// CopyToCache 导入时把文件复制到 app.cache_dir
	CopyToCache bool     `mapstructure:"copy_to_cache"`
	Accept      []string `mapstructure:"accept"        rule:"dive,startswith=."`
}

func (c *PickerConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("picker.copy_to_cache", true)
	v.SetDefault("picker.accept", []string{".pdf", ".xlsx"})
}
