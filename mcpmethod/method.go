// Package mcpmethod names the well-known MCP method strings the engine
// treats specially (spec §6). The engine itself is method-agnostic; these
// constants exist so handler registration and debounce-set configuration
// are typo-proof, restoring what the teacher's hand-written method strings
// left implicit.
package mcpmethod

const (
	Initialize           = "initialize"
	NotificationsInit    = "notifications/initialized"
	NotificationsCancel  = "notifications/cancelled"
	NotificationsProgress = "notifications/progress"

	ToolsListChanged      = "notifications/tools/list_changed"
	ResourcesListChanged  = "notifications/resources/list_changed"
	PromptsListChanged    = "notifications/prompts/list_changed"
	ResourcesUpdated      = "notifications/resources/updated"
	LoggingMessage        = "notifications/message"
	TaskStatus            = "notifications/task/status"
	ElicitationComplete   = "notifications/elicitation/complete"
	RootsListChanged      = "notifications/roots/list_changed"

	Ping = "ping"
)

// ListChangedMethods is the conventional set of debounced methods a server
// handler context typically emits; callers are free to configure a
// different debounced_methods set (spec §6).
var ListChangedMethods = []string{ToolsListChanged, ResourcesListChanged, PromptsListChanged}
