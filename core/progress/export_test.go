package progress

import (
	"context"
	"time"
)

// SetSleep replaces the backoff wait of `svc`.
func SetSleep(svc *Service, sleep func(ctx context.Context, d time.Duration) error) {
	svc.sleep = sleep
}

func Summarize(userID, courseID string, records []Progress) Summary {
	return summarize(userID, courseID, records)
}
