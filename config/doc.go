// Package config loads and validates gateway configuration from the
// environment. Secret-bearing values support strict ${VAR} expansion so
// deployments can reference shared secrets without inlining them.
package config
