// Package queue 定义消息主题常量，供发布/订阅使用.
package queue

// 主题命名：<域>.<动作>. NATS 下会再加上 mq.nats.subject_prefix.
const (
	// 文件清单.
	TopicRegistryAdded   = "registry.added"   // 扫描或导入新增记录
	TopicRegistryRemoved = "registry.removed" // 用户删除记录
	TopicRegistryMissing = "registry.missing" // 打开时发现文件已不存在并被移除

	// 收藏.
	TopicFavoriteAdded   = "favorites.added"
	TopicFavoriteRemoved = "favorites.removed"

	// 扫描.
	TopicScanCompleted = "scan.completed"
)

// AllTopics watch 模式订阅的全部主题.
var AllTopics = []string{
	TopicRegistryAdded, TopicRegistryRemoved, TopicRegistryMissing,
	TopicFavoriteAdded, TopicFavoriteRemoved,
	TopicScanCompleted,
}
