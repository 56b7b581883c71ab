package configs

import (
	"github.com/spf13/viper"
)

const (
	// IDSchemeTimestamp 标识由来源、文件名和扫描时间组成，重复扫描会得到新的标识.
	IDSchemeTimestamp = "timestamp"
	// IDSchemePath 标识由来源和路径哈希组成，重复扫描得到相同标识.
	IDSchemePath = "path"

	DefaultScanWorkers = 2
)

// ScanSource 一个参与扫描的目录.
type ScanSource struct {
	Path  string `mapstructure:"path"  rule:"required"`
	Label string `mapstructure:"label" rule:"required"`
}

// ScanConfig 目录扫描配置.
type ScanConfig struct {
	Sources    []ScanSource `mapstructure:"sources"    rule:"dive"`
	Extensions []string     `mapstructure:"extensions" rule:"min=1,dive,startswith=."`
	IDScheme   string       `mapstructure:"id_scheme"  rule:"oneof=timestamp path"`
	Workers    int          `mapstructure:"workers"    rule:"min=1,max=32"`
}

// GetSources 返回扫描目录，未配置时使用应用文档目录与缓存目录.
func (c *ScanConfig) GetSources(app AppSettings) []ScanSource {
	if len(c.Sources) > 0 {
		return c.Sources
	}

	return []ScanSource{
		{Path: app.DocumentsDir(), Label: "Documents"},
		{Path: app.CacheDir, Label: "Cache"},
	}
}

func (c *ScanConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("scan.sources", []ScanSource{})
	v.SetDefault("scan.extensions", []string{".pdf", ".xlsx"})
	v.SetDefault("scan.id_scheme", IDSchemeTimestamp)
	v.SetDefault("scan.workers", DefaultScanWorkers)
}
