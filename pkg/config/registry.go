package config

// Persistent state keys (Registry)
const (
	KeyAutoReconnect = "auto_reconnect"
	KeyPollInterval  = "poll_interval"
)
