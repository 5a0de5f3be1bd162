package report

import (
	"sort"

	"github.com/dori/workscope/internal/model"
)

// UserStat is one assignee's completion record
type UserStat struct {
	UserID               int64   `json:"userId"`
	UserName             string  `json:"userName"`
	TotalTasks           int     `json:"totalTasks"`
	CompletedTasks       int     `json:"completedTasks"`
	InProgressTasks      int     `json:"inProgressTasks"`
	TodoTasks            int     `json:"todoTasks"`
	BlockedTasks         int     `json:"blockedTasks"`
	CompletionRate       float64 `json:"completionRate"`
	OnTimeCompletions    int     `json:"onTimeCompletions"`
	LateCompletions      int     `json:"lateCompletions"`
	OnTimeRate           float64 `json:"onTimeRate"`
	AvgCompletionTime    float64 `json:"avgCompletionTime"` // Hours from creation to completion
	TotalLoggedTime      int64   `json:"totalLoggedTime"`
	AvgLoggedTimePerTask float64 `json:"avgLoggedTimePerTask"`
}

// TaskCompletions reports how much of the working set got done, and how
// punctually, overall and per assignee
type TaskCompletions struct {
	Kind                  Kind       `json:"kind"`
	TotalTasks            int        `json:"totalTasks"`
	TotalCompleted        int        `json:"totalCompleted"`
	TotalInProgress       int        `json:"totalInProgress"`
	TotalTodo             int        `json:"totalTodo"`
	TotalBlocked          int        `json:"totalBlocked"`
	OverallCompletionRate float64    `json:"overallCompletionRate"`
	CompletedByProject    Record     `json:"completedByProject"`
	UserStats             []UserStat `json:"userStats"`
}

// ReportKind implements Payload
func (r *TaskCompletions) ReportKind() Kind { return KindTaskCompletions }

type userAcc struct {
	name        string
	counts      StatusCounts
	onTime      int
	late        int
	hoursSum    float64
	hoursN      int
	loggedTotal int64
}

// TaskCompletionReport counts tasks by status. The four status totals always
// add up to TotalTasks, and the same holds for every row of UserStats.
func TaskCompletionReport(tasks []model.Task) *TaskCompletions {
	r := &TaskCompletions{
		Kind:       KindTaskCompletions,
		TotalTasks: len(tasks),
		UserStats:  []UserStat{},
	}

	var overall StatusCounts
	byProject := newOrdered[int64, int]()
	users := newOrdered[int64, *userAcc]()

	for i := range tasks {
		t := &tasks[i]
		overall = overall.Add(t.Status)

		byProject.update(t.ProjectID, func(n int) int {
			if t.IsCompleted() {
				n++
			}
			return n
		})

		logged := t.LoggedTime
		if logged < 0 {
			logged = 0
		}
		for _, a := range t.UniqueAssignees() {
			users.update(a.UserID, func(acc *userAcc) *userAcc {
				if acc == nil {
					acc = &userAcc{name: a.Name()}
				}
				acc.counts = acc.counts.Add(t.Status)
				acc.loggedTotal += logged
				if !t.IsCompleted() {
					return acc
				}
				if t.CompletedLate() {
					acc.late++
				} else {
					acc.onTime++
				}
				if done, ok := t.CompletionTime(); ok && !t.CreatedAt.IsZero() {
					if h := done.Sub(t.CreatedAt).Hours(); h > 0 {
						acc.hoursSum += h
					}
					acc.hoursN++
				}
				return acc
			})
		}
	}

	r.TotalCompleted = overall.Completed
	r.TotalInProgress = overall.InProgress
	r.TotalTodo = overall.Todo
	r.TotalBlocked = overall.Blocked
	r.OverallCompletionRate = ratio(overall.Completed, overall.Total)

	byProject.sortKeys(func(a, b int64) bool { return a < b })
	r.CompletedByProject = record(byProject, idKey, func(_ int64, n int) any { return n })

	for _, id := range users.keys {
		acc, _ := users.get(id)
		c := acc.counts
		r.UserStats = append(r.UserStats, UserStat{
			UserID:               id,
			UserName:             acc.name,
			TotalTasks:           c.Total,
			CompletedTasks:       c.Completed,
			InProgressTasks:      c.InProgress,
			TodoTasks:            c.Todo,
			BlockedTasks:         c.Blocked,
			CompletionRate:       ratio(c.Completed, c.Total),
			OnTimeCompletions:    acc.onTime,
			LateCompletions:      acc.late,
			OnTimeRate:           ratio(acc.onTime, c.Completed),
			AvgCompletionTime:    mean(acc.hoursSum, acc.hoursN),
			TotalLoggedTime:      acc.loggedTotal,
			AvgLoggedTimePerTask: mean(float64(acc.loggedTotal), c.Total),
		})
	}
	sort.SliceStable(r.UserStats, func(i, j int) bool {
		a, b := r.UserStats[i], r.UserStats[j]
		if a.UserName != b.UserName {
			return a.UserName < b.UserName
		}
		return a.UserID < b.UserID
	})
	return r
}
