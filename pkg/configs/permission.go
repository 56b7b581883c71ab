package configs

import "github.com/spf13/viper"

const (
	DefaultPermissionEnforce    = true
	DefaultPermissionMaxPrompts = 2
)

// PermissionConfig 文件访问授权配置.
type PermissionConfig struct {
	// Enforce 为 true 时所有访问文件系统的操作都先检查授权
	Enforce bool `mapstructure:"enforce"`
	// MaxPrompts 连续拒绝多少次后不再询问，只能通过 perm grant 恢复
	MaxPrompts int `mapstructure:"max_prompts" rule:"min=1,max=10"`
}

func (c *PermissionConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("permission.enforce", DefaultPermissionEnforce)
	v.SetDefault("permission.max_prompts", DefaultPermissionMaxPrompts)
}
