package env

import "os"

// Get reads an environment variable, falling back to the given default when
// the variable is unset or empty.
func Get(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}
