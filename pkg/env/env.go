package env

import (
	"os"
	"strings"
)

// Prefix namespaces every fulfillment environment variable.
const Prefix = "FULFILLMENT_"

// Get returns FULFILLMENT_<key>, then the bare key, then fallback.
func Get(key, fallback string) string {
	for _, name := range []string{Prefix + key, key} {
		if val := strings.TrimSpace(os.Getenv(name)); val != "" {
			return val
		}
	}
	return fallback
}
