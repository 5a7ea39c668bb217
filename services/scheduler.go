// services/scheduler.go
package services

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartWeeklyReportScheduler fires the weekly report every Monday morning
// (UTC). The underlying aggregation reads only the ledger, so a job that
// happens to run twice produces the same document rather than double
// counts.
func StartWeeklyReportScheduler(exporter *ReportExporter) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.WeeklyJob(1,
			gocron.NewWeekdays(time.Monday),
			gocron.NewAtTimes(gocron.NewAtTime(7, 0, 0)),
		),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()
			if err := exporter.SendWeeklyReport(ctx); err != nil {
				log.Printf("[Scheduler] weekly report failed: %v", err)
			}
		}),
	)
	if err != nil {
		return nil, err
	}

	sched.Start()
	log.Println("[Scheduler] weekly report job registered (Mondays 07:00 UTC)")
	return sched, nil
}
