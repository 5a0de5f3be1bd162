package report

import (
	"github.com/dori/workscope/internal/deadline"
	"github.com/dori/workscope/internal/model"
)

// LoggedTime summarises how much time went into the working set
type LoggedTime struct {
	Kind                 Kind    `json:"kind"`
	TotalTime            int64   `json:"totalTime"`
	AvgTime              float64 `json:"avgTime"`
	CompletedTasks       int     `json:"completedTasks"`
	OverdueTasks         int     `json:"overdueTasks"`
	BlockedTasks         int     `json:"blockedTasks"`
	IncompleteTime       int64   `json:"incompleteTime"`
	OverdueTime          int64   `json:"overdueTime"`
	TotalDelayHours      float64 `json:"totalDelayHours"`
	OnTimeCompletionRate float64 `json:"onTimeCompletionRate"`
	TimeByTask           Record  `json:"timeByTask"`
}

// ReportKind implements Payload
func (r *LoggedTime) ReportKind() Kind { return KindLoggedTime }

// LoggedTimeReport aggregates logged seconds. Completed tasks feed the
// total and average; everything else counts as incomplete time.
func LoggedTimeReport(tasks []model.Task, clock Clock) *LoggedTime {
	r := &LoggedTime{Kind: KindLoggedTime}
	byTask := newOrdered[int64, int64]()
	onTime := 0

	for i := range tasks {
		t := &tasks[i]
		logged := t.LoggedTime
		if logged < 0 {
			logged = 0
		}
		if logged > 0 {
			byTask.update(t.ID, func(v int64) int64 { return v + logged })
		}

		if t.Status == model.StatusBlocked {
			r.BlockedTasks++
		}

		if t.IsCompleted() {
			r.CompletedTasks++
			r.TotalTime += logged
			if t.CompletedLate() {
				r.TotalDelayHours += t.Delay().Hours()
			} else {
				onTime++
			}
			continue
		}

		r.IncompleteTime += logged
		if deadline.ClassifyTask(t, clock.Now, clock.loc()) == deadline.Overdue {
			r.OverdueTasks++
			r.OverdueTime += logged
		}
	}

	r.AvgTime = mean(float64(r.TotalTime), r.CompletedTasks)
	r.OnTimeCompletionRate = ratio(onTime, r.CompletedTasks)

	byTask.sortKeys(func(a, b int64) bool { return a < b })
	r.TimeByTask = record(byTask, idKey, func(_ int64, secs int64) any { return secs })
	return r
}
