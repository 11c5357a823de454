package service

import (
	"time"

	"event-planner/internal/model"
	"event-planner/internal/notify"
)

// Reminder kinds carried in alert payloads.
const (
	KindTenBefore  = "10-before"
	KindFiveBefore = "5-before"
	KindStart      = "start"
	KindEnd        = "end"
)

type reminderCandidate struct {
	at    time.Time
	kind  string
	title string
}

// reminderCandidates lists every alert moment for an event, past or not.
func reminderCandidates(ev model.Event) []reminderCandidate {
	return []reminderCandidate{
		{at: ev.StartDate.Add(-10 * time.Minute), kind: KindTenBefore, title: "Event in 10 minutes"},
		{at: ev.StartDate.Add(-5 * time.Minute), kind: KindFiveBefore, title: "Event in 5 minutes"},
		{at: ev.StartDate, kind: KindStart, title: "Event started"},
		{at: ev.EndDate, kind: KindEnd, title: "Event ended"},
	}
}

func (c reminderCandidate) payload(ev model.Event) notify.Payload {
	return notify.Payload{
		EventID: ev.ID,
		Kind:    c.kind,
		Title:   c.title,
		Body:    ev.Title,
	}
}
