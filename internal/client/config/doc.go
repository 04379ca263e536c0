// Package config loads runtime configuration for the pmvault agent and shell.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional config file selected with -c or -config. Files ending in
//     .yaml/.yml are read as YAML, anything else as JSON.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string   address:port of the credential store
//	-s string   agent socket path
//	-d string   path of the local SQLite database
//	-k int      PBKDF2 iterations for new records
//	-t int      default session TTL in minutes (1..1440)
//	-r int      remote call timeout in seconds
//	-l string   log level (debug, info, warn, error)
//
// # File schema
//
// Durations use timex.Duration, so "10s" and integer nanoseconds both work:
//
//	server_endpoint_addr: 127.0.0.1:50051
//	socket_path: /run/user/1000/pmvault.sock
//	database_path: /home/me/.config/pmvault/agent.db
//	kdf_iterations: 300000
//	default_ttl_minutes: 10
//	request_timeout: 10s
//	log_backend: zerolog
//	log_format: json
//	log_level: debug
//
// The API address saved by the user at runtime (SAVE_CONFIG) lives in the
// local database and takes precedence over server_endpoint_addr.
package config
