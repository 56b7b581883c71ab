package configs

import (
	"runtime"

	"github.com/spf13/viper"
)

// ViewerConfig 外部查看器命令，参数中的 {uri} 与 {name} 会被替换.
type ViewerConfig struct {
	PDF         []string `mapstructure:"pdf"         rule:"min=1"`
	Spreadsheet []string `mapstructure:"spreadsheet" rule:"min=1"`
	// Wait 是否等待查看器进程退出
	Wait bool `mapstructure:"wait"`
}

// defaultOpenCommand 返回当前平台的默认打开命令.
func defaultOpenCommand() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{"open", "{uri}"}
	case "windows":
		return []string{"rundll32", "url.dll,FileProtocolHandler", "{uri}"}
	default:
		return []string{"xdg-open", "{uri}"}
	}
}

func (c *ViewerConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("viewer.pdf", defaultOpenCommand())
	v.SetDefault("viewer.spreadsheet", defaultOpenCommand())
	v.SetDefault("viewer.wait", false)
}
