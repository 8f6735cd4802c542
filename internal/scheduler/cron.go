package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/oychao1988/content-hub-sub001/internal/domain"
)

// cronParser — парсер cron-выражений из 5 полей.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// NextRun вычисляет следующее время запуска после from.
//
// Cron считается в часовом поясе задачи (UTC, если пояс невалидный),
// интервал прибавляется к from. Для ручной задачи возвращает nil.
func NextRun(st *domain.ScheduledTask, from time.Time) (*time.Time, error) {
	switch {
	case st.IsCron():
		loc, err := time.LoadLocation(st.Timezone)
		if err != nil || st.Timezone == "" {
			loc = time.UTC
		}
		next, err := calculateNextCron(st.CronExpression, from.In(loc))
		if err != nil {
			return nil, err
		}
		return &next, nil

	case st.IsInterval():
		d := st.IntervalUnit.Duration(st.Interval)
		if d <= 0 {
			return nil, fmt.Errorf("unknown interval unit %q", st.IntervalUnit)
		}
		next := from.Add(d).UTC()
		return &next, nil

	default:
		return nil, nil
	}
}

// calculateNextCron вычисляет следующее время по cron-выражению.
func calculateNextCron(cronExpr string, from time.Time) (time.Time, error) {
	schedule, err := cronParser.Parse(cronExpr)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse cron expression %q: %w", cronExpr, err)
	}
	return schedule.Next(from).UTC(), nil
}
