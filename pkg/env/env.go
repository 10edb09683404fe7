package env

import (
	"os"
	"strings"
)

// Get returns the value of the environment variable, or the fallback when
// the variable is unset or blank.
func Get(key, fallback string) string {
	val, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(val) == "" {
		return fallback
	}
	return val
}
