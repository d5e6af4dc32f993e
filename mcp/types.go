// Package mcp carries the lifecycle-relevant domain types: implementation
// identity, capability negotiation shapes, and logging levels. Tool/resource/
// prompt body payloads are intentionally absent — the engine (and this repo)
// treats them as opaque, per spec §1.
package mcp

// LoggingLevel is the severity of a notifications/message log entry,
// ordered least to most severe for the min-level gate in Context.SendLog.
type LoggingLevel string

const (
	LogDebug     LoggingLevel = "debug"
	LogInfo      LoggingLevel = "info"
	LogNotice    LoggingLevel = "notice"
	LogWarning   LoggingLevel = "warning"
	LogError     LoggingLevel = "error"
	LogCritical  LoggingLevel = "critical"
	LogAlert     LoggingLevel = "alert"
	LogEmergency LoggingLevel = "emergency"
)

var levelRank = map[LoggingLevel]int{
	LogDebug: 0, LogInfo: 1, LogNotice: 2, LogWarning: 3,
	LogError: 4, LogCritical: 5, LogAlert: 6, LogEmergency: 7,
}

// Allows reports whether a message at level msg clears the minimum severity
// min (msg is at least as severe as min).
func (min LoggingLevel) Allows(msg LoggingLevel) bool {
	return levelRank[msg] >= levelRank[min]
}

// Implementation describes the name and version of an MCP peer.
type Implementation struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// RootsCapability advertises whether the client will send
// notifications/roots/list_changed when its root set changes.
type RootsCapability struct {
	ListChanged bool `json:"listChanged"`
}

// ClientCapabilities is the capability set a client declares at initialize.
type ClientCapabilities struct {
	Experimental map[string]map[string]any `json:"experimental,omitempty"`
	Roots        *RootsCapability          `json:"roots,omitempty"`
	Sampling     map[string]any            `json:"sampling,omitempty"`
	Elicitation  map[string]any            `json:"elicitation,omitempty"`
}

// ListChangedCapability is the shared shape of the tools/prompts capability
// entries: just whether list-changed notifications will be sent.
type ListChangedCapability struct {
	ListChanged bool `json:"listChanged"`
}

// ResourcesCapability additionally advertises subscribe support.
type ResourcesCapability struct {
	Subscribe   bool `json:"subscribe"`
	ListChanged bool `json:"listChanged"`
}

// ServerCapabilities is the capability set a server declares at initialize.
// A handler's Context refuses to emit a notification whose capability is
// not declared here (spec §4.6, §8 property 6).
type ServerCapabilities struct {
	Experimental map[string]map[string]any `json:"experimental,omitempty"`
	Logging      map[string]any            `json:"logging,omitempty"`
	Prompts      *ListChangedCapability    `json:"prompts,omitempty"`
	Resources    *ResourcesCapability      `json:"resources,omitempty"`
	Tools        *ListChangedCapability    `json:"tools,omitempty"`
}

// Root is a root directory or file the server may operate on.
type Root struct {
	URI  string `json:"uri"`
	Name string `json:"name,omitempty"`
}

// ModelHint is a suggested model name or family for sampling.
type ModelHint struct {
	Name string `json:"name,omitempty"`
}

// ModelPreferences expresses a client's sampling model preferences.
type ModelPreferences struct {
	CostPriority         float64     `json:"costPriority,omitempty"`
	IntelligencePriority float64     `json:"intelligencePriority,omitempty"`
	SpeedPriority        float64     `json:"speedPriority,omitempty"`
	Hints                []ModelHint `json:"hints,omitempty"`
}

// SupportedProtocolVersions is the fixed set of recognized ISO-date protocol
// version strings, newest first. The oldest entry is the default negotiated
// value when a transport's version header is absent (spec §6).
var SupportedProtocolVersions = []string{
	"2025-06-18",
	"2025-03-26",
	"2024-11-05",
}

// DefaultProtocolVersion is the oldest stable release, reported by a
// transport that carries a version header before any version has been
// negotiated (spec §6). NegotiateVersion does not fall back to it; an
// unrecognized request negotiates LatestProtocolVersion.
const DefaultProtocolVersion = "2024-11-05"

// LatestProtocolVersion is the newest version this engine offers when a
// client's requested version is unrecognized (spec §4.5).
const LatestProtocolVersion = "2025-06-18"

// NegotiateVersion implements the spec §4.5/§6 rule: return the client's
// requested version if this engine supports it, else this engine's latest.
func NegotiateVersion(requested string) string {
	for _, v := range SupportedProtocolVersions {
		if v == requested {
			return requested
		}
	}
	return LatestProtocolVersion
}

// InitializeParams is the request body of the initialize method.
type InitializeParams struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ClientCapabilities `json:"capabilities"`
	ClientInfo      Implementation     `json:"clientInfo"`
}

// InitializeResult is the response body of the initialize method.
type InitializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ServerCapabilities `json:"capabilities"`
	ServerInfo      Implementation     `json:"serverInfo"`
	Instructions    string             `json:"instructions,omitempty"`
}
