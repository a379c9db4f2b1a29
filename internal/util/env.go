package util

import "os"

// EnvOrDefault returns the value of the environment variable, or fallback
// when it is unset or empty. Used to seed flag defaults in main.
func EnvOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
