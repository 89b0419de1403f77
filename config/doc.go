// Package config loads service configuration from YAML files, .env files,
// and environment variables using viper. Services define explicit config
// structs with ApplyDefaults and Validate methods; nothing is stored in
// process-global mutable state.
package config
