package protocol

// Version is the single protocol revision this implementation speaks.
// Initialize requests must carry exactly this version string.
const Version = "1.0.0"

// RPC method names.
const (
	MethodInitialize    = "initialize"
	MethodInitialized   = "initialized" // notification: completes the handshake
	MethodIntrospect    = "server/introspect"
	MethodToolsList     = "tools/list"
	MethodToolsCall     = "tools/call"
	MethodResourcesList = "resources/list"
	MethodResourcesRead = "resources/read"
	MethodPromptsList   = "prompts/list"
	MethodPromptsGet    = "prompts/get"
)
