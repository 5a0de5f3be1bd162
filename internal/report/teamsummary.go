package report

import (
	"fmt"
	"time"

	"github.com/dori/workscope/internal/deadline"
	"github.com/dori/workscope/internal/model"
)

// WeeklyRow is one (week, assignee) bucket
type WeeklyRow struct {
	Week      string `json:"week"`
	WeekStart string `json:"weekStart"`
	UserID    int64  `json:"userId"`
	UserName  string `json:"userName"`
	StatusCounts
}

// UserTotal is an assignee's tally across all weeks
type UserTotal struct {
	UserName string `json:"userName"`
	StatusCounts
}

// WeekTotal is a week's tally across all assignees
type WeekTotal struct {
	WeekStart string `json:"weekStart"`
	StatusCounts
}

// TeamSummary shows how work is spread over people and weeks
type TeamSummary struct {
	Kind            Kind        `json:"kind"`
	TotalTasks      int         `json:"totalTasks"`
	TotalUsers      int         `json:"totalUsers"`
	WeeklyBreakdown []WeeklyRow `json:"weeklyBreakdown"`
	UserTotals      Record      `json:"userTotals"`
	WeekTotals      Record      `json:"weekTotals"`
}

// ReportKind implements Payload
func (r *TeamSummary) ReportKind() Kind { return KindTeamSummary }

type week struct {
	label string
	start time.Time
}

// isoWeek returns the ISO week containing t in loc
func isoWeek(t time.Time, loc *time.Location) week {
	day := deadline.Midnight(t, loc)
	year, w := day.ISOWeek()
	offset := (int(day.Weekday()) + 6) % 7 // days since Monday
	return week{
		label: fmt.Sprintf("%04d-W%02d", year, w),
		start: day.AddDate(0, 0, -offset),
	}
}

type weekUser struct {
	week string
	user int64
}

// TeamSummaryReport buckets tasks by the ISO week of their deadline and by
// assignee. A task with several assignees counts once for each of them, and
// week totals are the sum of that week's rows. Tasks without a deadline only
// show up in the headline totals.
func TeamSummaryReport(tasks []model.Task, clock Clock) *TeamSummary {
	loc := clock.loc()
	r := &TeamSummary{
		Kind:            KindTeamSummary,
		TotalTasks:      len(tasks),
		WeeklyBreakdown: []WeeklyRow{},
	}

	names := make(map[int64]string)
	weeks := make(map[string]week)
	rows := newOrdered[weekUser, StatusCounts]()
	users := newOrdered[int64, StatusCounts]()
	weekTotals := newOrdered[string, StatusCounts]()

	for i := range tasks {
		t := &tasks[i]
		assignees := t.UniqueAssignees()
		for _, a := range assignees {
			if _, ok := names[a.UserID]; !ok {
				names[a.UserID] = a.Name()
			}
			users.update(a.UserID, func(c StatusCounts) StatusCounts { return c })
		}
		if t.Deadline == nil {
			continue
		}

		w := isoWeek(*t.Deadline, loc)
		weeks[w.label] = w
		for _, a := range assignees {
			add := func(c StatusCounts) StatusCounts { return c.Add(t.Status) }
			rows.update(weekUser{w.label, a.UserID}, add)
			users.update(a.UserID, add)
		}
	}
	r.TotalUsers = users.len()

	rows.sortKeys(func(a, b weekUser) bool {
		if a.week != b.week {
			return a.week < b.week
		}
		if names[a.user] != names[b.user] {
			return names[a.user] < names[b.user]
		}
		return a.user < b.user
	})
	for _, k := range rows.keys {
		c, _ := rows.get(k)
		weekTotals.update(k.week, func(sum StatusCounts) StatusCounts { return sum.Plus(c) })
		r.WeeklyBreakdown = append(r.WeeklyBreakdown, WeeklyRow{
			Week:         k.week,
			WeekStart:    weeks[k.week].start.Format("2006-01-02"),
			UserID:       k.user,
			UserName:     names[k.user],
			StatusCounts: c,
		})
	}

	users.sortKeys(func(a, b int64) bool { return a < b })
	r.UserTotals = record(users, idKey, func(id int64, c StatusCounts) any {
		return UserTotal{UserName: names[id], StatusCounts: c}
	})

	weekTotals.sortKeys(func(a, b string) bool { return a < b })
	r.WeekTotals = record(weekTotals, func(label string) string { return label }, func(label string, c StatusCounts) any {
		return WeekTotal{WeekStart: weeks[label].start.Format("2006-01-02"), StatusCounts: c}
	})
	return r
}
