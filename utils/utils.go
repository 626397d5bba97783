package utils

import "fmt"

// GenerateRateLimitKey creates a unique key for rate limiting.
func GenerateRateLimitKey(scope, id, path string) string {
	return fmt.Sprintf("rl:%s:%s:%s", scope, id, path)
}
