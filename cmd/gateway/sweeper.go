package main

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mind-engage/college-erp/internal/quiz"
)

// runSweeper times out abandoned attempts of closed quizzes every interval
// until ctx is done.
func runSweeper(ctx context.Context, tr *quiz.Tracker, interval time.Duration, log logrus.FieldLogger) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := tr.SweepExpired(ctx)
			if err != nil {
				log.WithError(err).Warn("expired-attempt sweep failed")
				continue
			}
			if n > 0 {
				log.WithField("timed_out", n).Info("expired attempts swept")
			}
		}
	}
}
