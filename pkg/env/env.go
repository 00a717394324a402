// Package env reads process settings that must be known before the typed
// config is loaded, such as the log format.
package env

import (
	"os"
	"strings"
)

// Prefix namespaces every variable the services read.
const Prefix = "BAZAAR_"

// Get returns the first non-blank value among BAZAAR_<key> and <key>, or the
// fallback when neither is set.
func Get(key, fallback string) string {
	for _, name := range []string{Prefix + key, key} {
		if val := strings.TrimSpace(os.Getenv(name)); val != "" {
			return val
		}
	}
	return fallback
}
