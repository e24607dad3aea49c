package opensearch

import "time"

func fixedTime() time.Time {
	return time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
}
