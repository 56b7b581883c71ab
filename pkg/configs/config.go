// Package configs 管理应用程序配置，包括 KV 存储、扫描目录、查看器和权限等配置信息.
// configs 包支持多种配置格式（YAML、JSON、TOML、dotenv）并启用热重载.
//
// Example:
//
//	import "path/to/configs"
//
//	err := configs.InitConfig("./")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	config := configs.GetConfig()
//	fmt.Println(config.App.DataDir)
//
// Example accessing KV config:
//
//	config := configs.GetConfig()
//	kvConfig := config.KV
//	fmt.Println("KV Type:", kvConfig.GetKVType())
//
// Example accessing scan sources:
//
//	config := configs.GetConfig()
//	for _, src := range config.Scan.GetSources(config.App) {
//		fmt.Println(src.Label, src.Path)
//	}
package configs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/yeisme/docshelf/pkg/rule"
)

// AppVersion 当前版本号.
const AppVersion = "0.3.0"

// EnvPrefix 环境变量前缀，例如 DOCSHELF_KV_TYPE.
const EnvPrefix = "DOCSHELF"

type (
	// AppConfig 全局应用程序配置.
	AppConfig struct {
		App            AppSettings          `mapstructure:"app"`             // 通用设置，数据目录、调试开关等
		Log            LogConfig            `mapstructure:"log"`             // LogConfig 日志相关配置
		KV             KVConfig             `mapstructure:"kv"`              // KVConfig 键值存储配置
		DB             DBConfig             `mapstructure:"db"`              // DBConfig sql KV 使用的数据库
		S3             S3Config             `mapstructure:"s3"`              // S3Config s3:// 文件访问
		MQ             MQConfig             `mapstructure:"mq"`              // MQConfig 事件总线
		Events         EventsConfig         `mapstructure:"events"`          // EventsConfig 事件开关
		Scan           ScanConfig           `mapstructure:"scan"`            // ScanConfig 目录扫描
		Picker         PickerConfig         `mapstructure:"picker"`          // PickerConfig 手动导入
		Viewer         ViewerConfig         `mapstructure:"viewer"`          // ViewerConfig 外部查看器
		Permission     PermissionConfig     `mapstructure:"permission"`      // PermissionConfig 文件访问授权
		Watch          WatchConfig          `mapstructure:"watch"`           // WatchConfig 常驻监听模式
		Metrics        MetricsConfig        `mapstructure:"metrics"`         // MetricsConfig 监控
		Tracing        TracingConfig        `mapstructure:"tracing"`         // TracingConfig 追踪
		CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"` // 远程 KV 熔断
	}
)

var (
	// globalConfig 全局配置实例.
	globalConfig AppConfig
	// appViper 全局 Viper 实例.
	appViper *viper.Viper
)

// InitConfig 加载应用程序配置，支持多种格式(yaml、json、toml、dotenv)并启用热重载.
// 找不到配置文件时使用默认值与环境变量.
func InitConfig(path string) error {
	appViper = viper.New()
	// 设置默认值
	setAllDefaults(appViper)

	// 检查path是否是文件
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		// 是文件，使用SetConfigFile，Viper会自动检测类型
		appViper.SetConfigFile(path)
	} else {
		// 是目录，设置配置名和路径
		appViper.SetConfigName("config")
		appViper.AddConfigPath(path)
		appViper.AddConfigPath(filepath.Join(path, "configs"))

		exts := []string{"yaml", "yml", "json", "toml", "env", "dotenv"}

		for _, ext := range exts {
			cfg := filepath.Join(path, "config."+ext)
			if _, err := os.Stat(cfg); err == nil {
				appViper.SetConfigFile(cfg)

				break
			}
		}
	}

	appViper.SetEnvPrefix(EnvPrefix)
	appViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	appViper.AutomaticEnv()

	// 读取配置
	if err := appViper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	// 解析到全局配置
	if err := appViper.Unmarshal(&globalConfig); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := rule.ValidateStruct(&globalConfig); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	reloadConfigs(appViper, globalConfig.App.ReloadConfig)

	return nil
}

// setAllDefaults 设置所有配置的默认值.
func setAllDefaults(v *viper.Viper) {
	var (
		appSettings   AppSettings
		logConfig     LogConfig
		kvConfig      KVConfig
		dbConfig      DBConfig
		s3Config      S3Config
		mqConfig      MQConfig
		eventsConfig  EventsConfig
		scanConfig    ScanConfig
		pickerConfig  PickerConfig
		viewerConfig  ViewerConfig
		permConfig    PermissionConfig
		watchConfig   WatchConfig
		metricsConfig MetricsConfig
		tracingConfig TracingConfig
		breakerConfig CircuitBreakerConfig
	)

	appSettings.setDefaults(v)
	logConfig.setDefaults(v)
	kvConfig.setDefaults(v)
	dbConfig.setDefaults(v)
	s3Config.setDefaults(v)
	mqConfig.setDefaults(v)
	eventsConfig.setDefaults(v)
	scanConfig.setDefaults(v)
	pickerConfig.setDefaults(v)
	viewerConfig.setDefaults(v)
	permConfig.setDefaults(v)
	watchConfig.setDefaults(v)
	metricsConfig.setDefaults(v)
	tracingConfig.setDefaults(v)
	breakerConfig.setDefaults(v)
}

func reloadConfigs(v *viper.Viper, isHotReload bool) {
	if !isHotReload || v.ConfigFileUsed() == "" {
		return
	}
	// 启用配置热重载
	v.OnConfigChange(func(e fsnotify.Event) {
		fmt.Fprintln(os.Stderr, "Config file changed:", e.Name)

		if err := v.Unmarshal(&globalConfig); err != nil {
			fmt.Fprintf(os.Stderr, "Error reloading config: %v\n", err)
		}
	})
	v.WatchConfig()
}

// GetConfig 返回全局配置实例.
func GetConfig() *AppConfig {
	return &globalConfig
}

func GetViper() *viper.Viper {
	return appViper
}
