package service

import (
	"sort"

	"event-planner/internal/model"
)

// VisibleEvents returns a new slice without deleted events. Canceled events
// go after all others; each group is ordered by start time. The input is
// left untouched.
func VisibleEvents(events []model.Event) []model.Event {
	visible := make([]model.Event, 0, len(events))
	for _, ev := range events {
		if ev.Status != model.StatusDeleted {
			visible = append(visible, ev)
		}
	}

	sort.SliceStable(visible, func(i, j int) bool {
		ci := visible[i].Status == model.StatusCanceled
		cj := visible[j].Status == model.StatusCanceled
		if ci != cj {
			return cj
		}
		return visible[i].StartDate.Before(visible[j].StartDate)
	})
	return visible
}
