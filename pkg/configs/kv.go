package configs

import (
	"github.com/spf13/viper"
)

const (
	DefaultKVType        = "sql"
	DefaultRegistryKey   = "@docshelf_files"
	DefaultFavoritesKey  = "@docshelf_favorites"
	DefaultPermissionKey = "@docshelf_permission"
)

// KVConfig 键值存储配置.
type KVConfig struct {
	Type          string             `mapstructure:"type"           rule:"oneof=memory sql redis nats groupcache"`
	RegistryKey   string             `mapstructure:"registry_key"   rule:"required"`
	FavoritesKey  string             `mapstructure:"favorites_key"  rule:"required,nefield=RegistryKey"`
	PermissionKey string             `mapstructure:"permission_key" rule:"required"`
	Redis         RedisKVConfig      `mapstructure:"redis"`
	NATS          NATSKVConfig       `mapstructure:"nats"`
	Groupcache    GroupcacheKVConfig `mapstructure:"groupcache"`
}

// RedisKVConfig Redis KV 配置.
type RedisKVConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"       rule:"min=0,max=15"`
}

// NATSKVConfig NATS KV 配置.
type NATSKVConfig struct {
	URL      string `mapstructure:"url"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Bucket   string `mapstructure:"bucket"`
}

// GroupcacheKVConfig Groupcache KV 配置.
type GroupcacheKVConfig struct {
	Name       string   `mapstructure:"name"`
	CacheBytes int64    `mapstructure:"cache_bytes" rule:"min=0"`
	Peers      []string `mapstructure:"peers"`
	Self       string   `mapstructure:"self"`
}

// GetKVType 返回当前配置的 KV 类型.
func (c *KVConfig) GetKVType() string {
	return c.Type
}

// IsRemote 远程 KV 需要熔断保护.
func (c *KVConfig) IsRemote() bool {
	return c.Type == "redis" || c.Type == "nats"
}

// setDefaults 设置 KV 配置的默认值.
func (c *KVConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("kv.type", DefaultKVType)
	v.SetDefault("kv.registry_key", DefaultRegistryKey)
	v.SetDefault("kv.favorites_key", DefaultFavoritesKey)
	v.SetDefault("kv.permission_key", DefaultPermissionKey)

	// Redis 默认值
	v.SetDefault("kv.redis.addr", "localhost:6379")
	v.SetDefault("kv.redis.password", "")
	v.SetDefault("kv.redis.db", 0)

	// NATS 默认值
	v.SetDefault("kv.nats.url", "nats://localhost:4222")
	v.SetDefault("kv.nats.user", "")
	v.SetDefault("kv.nats.password", "")
	v.SetDefault("kv.nats.bucket", "docshelf-kv")

	const defaultGroupcacheCacheBytes = 16 * 1024 * 1024 // 16MB
	// Groupcache 默认值
	v.SetDefault("kv.groupcache.name", "docshelf-cache")
	v.SetDefault("kv.groupcache.cache_bytes", defaultGroupcacheCacheBytes)
	v.SetDefault("kv.groupcache.peers", []string{})
	v.SetDefault("kv.groupcache.self", "http://localhost:8081")
}
