package common

import "github.com/spf13/viper"

// ===============================================================================
// NATS Related Config

// NATSReconnectConfig defines reconnect parameters
type NATSReconnectConfig struct {
	// MaxAttempts sets the max number of reconnect attempts (-1 is unlimited)
	MaxAttempts int `mapstructure:"max_attempts" json:"max_attempts" validate:"gte=-1"`
	// WaitInterval is the duration between reconnect attempts in seconds
	WaitInterval int `mapstructure:"wait_interval_sec" json:"wait_interval_sec" validate:"gte=1"`
}

// NATSConfig defines parameters for connecting to NATS server
type NATSConfig struct {
	// ServerURI is the NATS connection URI
	ServerURI string `mapstructure:"server_uri" json:"server_uri" validate:"required,uri"`
	// ConnectTimeout is the max duration for connecting to NATS server in seconds
	ConnectTimeout int `mapstructure:"connect_timeout_sec" json:"connect_timeout_sec" validate:"gte=1"`
	// Reconnect defines reconnect parameters
	Reconnect NATSReconnectConfig `mapstructure:"reconnect" json:"reconnect" validate:"required,dive"`
}

// ===============================================================================
// Document Store Related Config

// StoreConfig defines the document store parameters
type StoreConfig struct {
	// Backend selects the document store implementation
	Backend string `mapstructure:"backend" json:"backend" validate:"required,oneof=jetstream memory"`
	// Bucket is the JetStream KeyValue bucket holding all the collections
	Bucket string `mapstructure:"bucket" json:"bucket" validate:"required,alphanum"`
	// History is the number of historical values kept per document by the bucket
	History uint8 `mapstructure:"history" json:"history" validate:"gte=1,lte=64"`
	// OperationTimeout is the max duration of a single store call in seconds
	OperationTimeout int `mapstructure:"operation_timeout_sec" json:"operation_timeout_sec" validate:"gte=1"`
	// WatchBuffer is the number of pending change notifications buffered per watch
	WatchBuffer int `mapstructure:"watch_buffer" json:"watch_buffer" validate:"gte=1"`
}

// ===============================================================================
// HTTP Related Config

// HTTPServerConfig defines the HTTP server parameters
type HTTPServerConfig struct {
	// ListenOn is the interface the HTTP server will listen on
	ListenOn string `mapstructure:"listen_on" json:"listen_on" validate:"required,ip"`
	// Port is the port the HTTP server will listen on
	Port uint16 `mapstructure:"listen_port" json:"listen_port" validate:"required,gt=0,lt=65536"`
	// ReadTimeout is the maximum duration for reading the entire
	// request, including the body in seconds. A zero or negative
	// value means there will be no timeout.
	ReadTimeout int `mapstructure:"read_timeout_sec" json:"read_timeout_sec" validate:"gte=0"`
	// WriteTimeout is the maximum duration before timing out
	// writes of the response in seconds. A zero or negative value
	// means there will be no timeout.
	//
	// Websocket connections are hijacked, so this does not apply to them.
	WriteTimeout int `mapstructure:"write_timeout_sec" json:"write_timeout_sec" validate:"gte=0"`
	// IdleTimeout is the maximum amount of time to wait for the
	// next request when keep-alives are enabled in seconds. If
	// IdleTimeout is zero, the value of ReadTimeout is used. If
	// both are zero, there is no timeout.
	IdleTimeout int `mapstructure:"idle_timeout_sec" json:"idle_timeout_sec" validate:"gte=0"`
}

// HTTPRequestLogging defines HTTP request logging parameters
type HTTPRequestLogging struct {
	// RequestIDHeader is the HTTP header containing the API request ID
	RequestIDHeader string `mapstructure:"request_id_header" json:"request_id_header"`
	// DoNotLogHeaders is the list of headers to not include in logging metadata
	DoNotLogHeaders []string `mapstructure:"do_not_log_headers" json:"do_not_log_headers"`
}

// HTTPConfig defines HTTP API / server parameters
type HTTPConfig struct {
	// Server defines HTTP server parameters
	Server HTTPServerConfig `mapstructure:"server_config" json:"server_config" validate:"required,dive"`
	// Logging defines operation logging parameters
	Logging HTTPRequestLogging `mapstructure:"logging_config" json:"logging_config" validate:"required,dive"`
}

// EndpointConfig defines API endpoint config
type EndpointConfig struct {
	// PathPrefix is the end-point path prefix for the APIs
	PathPrefix string `mapstructure:"path_prefix" json:"path_prefix" validate:"required"`
}

// ===============================================================================
// Realtime Related Config

// RealtimeConfig defines the websocket session parameters
type RealtimeConfig struct {
	// WriteTimeout is the max duration for writing one frame to a client in seconds
	WriteTimeout int `mapstructure:"write_timeout_sec" json:"write_timeout_sec" validate:"gte=1"`
	// PingInterval is the interval between keep-alive pings in seconds
	PingInterval int `mapstructure:"ping_interval_sec" json:"ping_interval_sec" validate:"gte=1"`
	// PongWait is how long to wait for any client frame before dropping the session in seconds.
	// Must be larger than PingInterval.
	PongWait int `mapstructure:"pong_wait_sec" json:"pong_wait_sec" validate:"gtfield=PingInterval"`
	// OutboundQueueLength is the number of messages queued per client before delivery blocks
	OutboundQueueLength int `mapstructure:"outbound_queue_length" json:"outbound_queue_length" validate:"gte=1"`
	// ReadLimit is the max size of one inbound frame in bytes
	ReadLimit int64 `mapstructure:"read_limit" json:"read_limit" validate:"gte=64"`
	// RegistryTimeout is the max duration of one registry call made for a client in seconds
	RegistryTimeout int `mapstructure:"registry_timeout_sec" json:"registry_timeout_sec" validate:"gte=1"`
	// RegistryQueueLength is the number of pending requests the subscription registry buffers
	RegistryQueueLength int `mapstructure:"registry_queue_length" json:"registry_queue_length" validate:"gte=1"`
}

// ===============================================================================
// Metrics Related Config

// MetricsConfig defines the prometheus metrics endpoint parameters
type MetricsConfig struct {
	// Enabled whether to serve the metrics endpoint
	Enabled bool `mapstructure:"enabled" json:"enabled"`
	// ListenOn is the interface the metrics server will listen on
	ListenOn string `mapstructure:"listen_on" json:"listen_on" validate:"omitempty,ip"`
	// Port is the port the metrics server will listen on
	Port uint16 `mapstructure:"listen_port" json:"listen_port" validate:"lt=65536"`
	// Path is the end-point path of the metrics
	Path string `mapstructure:"path" json:"path"`
}

// ===============================================================================
// API Server Related Config

// APIServerConfig defines configuration for the API server
type APIServerConfig struct {
	// HTTPSetting is the HTTP API / server parameters for the API server
	HTTPSetting HTTPConfig `mapstructure:"api_server" json:"api_server" validate:"required,dive"`
	// Endpoints is the API endpoint config parameters for the API server
	Endpoints EndpointConfig `mapstructure:"endpoint_config" json:"endpoint_config" validate:"required,dive"`
}

// ===============================================================================
// Complete Config

// SystemConfig defines the complete system config
type SystemConfig struct {
	// NATS are the NATS related config parameters
	NATS NATSConfig `mapstructure:"nats" json:"nats" validate:"required,dive"`
	// Store are the document store config parameters
	Store StoreConfig `mapstructure:"store" json:"store" validate:"required,dive"`
	// API are the API server configs
	API APIServerConfig `mapstructure:"api" json:"api" validate:"required,dive"`
	// Realtime are the websocket session configs
	Realtime RealtimeConfig `mapstructure:"realtime" json:"realtime" validate:"required,dive"`
	// Metrics are the metrics endpoint configs
	Metrics MetricsConfig `mapstructure:"metrics" json:"metrics" validate:"required,dive"`
}

// ===============================================================================

// InstallDefaultConfigValues installs default config parameters in viper
func InstallDefaultConfigValues() {
	// Default NATS settings
	viper.SetDefault("nats.server_uri", "nats://127.0.0.1:4222")
	viper.SetDefault("nats.connect_timeout_sec", 30)
	viper.SetDefault("nats.reconnect.max_attempts", -1)
	viper.SetDefault("nats.reconnect.wait_interval_sec", 15)

	// Default document store settings
	viper.SetDefault("store.backend", "jetstream")
	viper.SetDefault("store.bucket", "docwatch")
	viper.SetDefault("store.history", 1)
	viper.SetDefault("store.operation_timeout_sec", 15)
	viper.SetDefault("store.watch_buffer", 256)

	// Default API server settings
	viper.SetDefault("api.endpoint_config.path_prefix", "/")
	viper.SetDefault("api.api_server.server_config.listen_on", "0.0.0.0")
	viper.SetDefault("api.api_server.server_config.listen_port", 3000)
	viper.SetDefault("api.api_server.server_config.read_timeout_sec", 60)
	viper.SetDefault("api.api_server.server_config.write_timeout_sec", 60)
	viper.SetDefault("api.api_server.server_config.idle_timeout_sec", 600)
	viper.SetDefault(
		"api.api_server.logging_config.request_id_header", "Docwatch-Request-ID",
	)
	viper.SetDefault(
		"api.api_server.logging_config.do_not_log_headers", []string{
			"WWW-Authenticate", "Authorization", "Proxy-Authenticate", "Proxy-Authorization",
		},
	)

	// Default realtime settings
	viper.SetDefault("realtime.write_timeout_sec", 10)
	viper.SetDefault("realtime.ping_interval_sec", 30)
	viper.SetDefault("realtime.pong_wait_sec", 60)
	viper.SetDefault("realtime.outbound_queue_length", 64)
	viper.SetDefault("realtime.read_limit", 4096)
	viper.SetDefault("realtime.registry_timeout_sec", 10)
	viper.SetDefault("realtime.registry_queue_length", 128)

	// Default metrics settings
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.listen_on", "0.0.0.0")
	viper.SetDefault("metrics.listen_port", 3001)
	viper.SetDefault("metrics.path", "/metrics")
}
