// Package env reads individual environment variables for tests and small
// tooling. The server itself loads its configuration through pkg/config.
package env

import "os"

// Get returns the value of key, or fallback when it is unset or empty.
func Get(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
