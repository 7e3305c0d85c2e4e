package cache

import "fmt"

const (
	rateLimitKeyPrefix = "inkwell:rl:%s:%s"

	// ActivityChannel is the pub/sub channel carrying post activity events.
	ActivityChannel = "inkwell:activity"
)

// RateLimitKey returns the counter key for resource and caller id.
func RateLimitKey(resource, id string) string {
	return fmt.Sprintf(rateLimitKeyPrefix, resource, id)
}
