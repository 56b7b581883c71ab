package configs

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultReloadConfig = false // 是否启用配置热重载
	DefaultDebug        = false // 是否启用调试模式
	DefaultTimeout      = 60    // 单次命令超时时间，单位秒
	defaultAppDirName   = "docshelf"
)

type (
	// AppSettings 通用设置.
	AppSettings struct {
		Debug        bool   `mapstructure:"debug"`
		ReloadConfig bool   `mapstructure:"reload_config"`
		DataDir      string `mapstructure:"data_dir"      rule:"required"` // 应用数据目录，documents 子目录参与扫描
		CacheDir     string `mapstructure:"cache_dir"     rule:"required"` // 缓存目录，导入的文件会复制到这里
		Timeout      int    `mapstructure:"timeout"       rule:"min=1,max=3600"`
	}
)

// GetTimeoutDuration 返回超时时间作为time.Duration.
func (a *AppSettings) GetTimeoutDuration() time.Duration {
	return time.Duration(a.Timeout) * time.Second
}

// DocumentsDir 返回应用文档目录.
func (a *AppSettings) DocumentsDir() string {
	return filepath.Join(a.DataDir, "documents")
}

// setDefaults 设置通用配置的默认值.
func (a *AppSettings) setDefaults(v *viper.Viper) {
	v.SetDefault("app.debug", DefaultDebug)
	v.SetDefault("app.reload_config", DefaultReloadConfig)
	v.SetDefault("app.data_dir", defaultDataDir())
	v.SetDefault("app.cache_dir", defaultCacheDir())
	v.SetDefault("app.timeout", DefaultTimeout)
}

func defaultDataDir() string {
	if dir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(dir, "."+defaultAppDirName)
	}

	return filepath.Join(".", "."+defaultAppDirName)
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, defaultAppDirName)
	}

	return filepath.Join(defaultDataDir(), "cache")
}
