// Package config provides configuration loading and validation for zipstream.
//
// The package handles YAML configuration files, a .env file, environment variables
// and CLI flags with automatic merging and validation using go-playground/validator.
//
// # Configuration Precedence
//
// Values are loaded in this order (later sources override earlier ones):
//
//  1. Default values
//  2. .env file in the working directory (never overrides the real environment)
//  3. Configuration file(s) - multiple files merged left-to-right
//  4. Environment variables (ZIPSTREAM_ prefix, plus a few unprefixed names)
//  5. CLI flags
//
// # Usage
//
//	cfg, err := config.Load([]string{"config.yaml"}, cmd.Flags())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ctx = config.WithContext(ctx, cfg)
//
// # Environment Variables
//
// All config keys map to environment variables with ZIPSTREAM_ prefix:
//   - server.port → ZIPSTREAM_SERVER_PORT
//   - archive.chunk_size → ZIPSTREAM_ARCHIVE_CHUNK_SIZE
//   - compressor.command → ZIPSTREAM_COMPRESSOR_COMMAND (split on whitespace)
//   - cors.allowed_origins → ZIPSTREAM_CORS_ALLOWED_ORIGINS (comma separated)
//
// The following unprefixed names are also read:
//   - NETWORK_DELAY → archive.network_delay
//   - ARCHIVE_NAME → archive.name
//   - PHOTOS_DIR → archive.root
//   - ENABLE_LOGGING → log.enabled
//
// # Durations
//
// Duration values accept Go duration strings ("250ms", "2s"). A bare number is
// read as seconds, so NETWORK_DELAY=1 delays each chunk by one second.
package config
