// Package calendar renders events as an iCalendar document.
package calendar

import (
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"

	"event-planner/internal/model"
	"event-planner/internal/service"
)

const productID = "-//event-planner//events export//EN"

// alarm offsets relative to the event start, matching the reminders the
// planner arms for active events.
var alarmOffsets = []struct {
	offset      time.Duration
	description string
}{
	{-10 * time.Minute, "Event in 10 minutes"},
	{-5 * time.Minute, "Event in 5 minutes"},
	{0, "Event started"},
}

// Export serializes the visible events (deleted ones are left out) as a
// PUBLISH calendar. Active events carry display alarms.
func Export(events []model.Event, now time.Time) []byte {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(productID)

	for _, ev := range service.VisibleEvents(events) {
		vev := cal.AddEvent(ev.ID)
		vev.SetDtStampTime(now)
		vev.SetCreatedTime(ev.CreatedDate)
		vev.SetModifiedAt(ev.UpdatedDate)
		vev.SetStartAt(ev.StartDate)
		vev.SetEndAt(ev.EndDate)
		vev.SetSummary(ev.Title)
		if ev.Description != "" {
			vev.SetDescription(ev.Description)
		}
		vev.SetStatus(statusOf(ev.Status))

		if ev.Status != model.StatusActive {
			continue
		}
		for _, a := range alarmOffsets {
			addAlarm(vev, a.offset, a.description)
		}
		addAlarm(vev, ev.EndDate.Sub(ev.StartDate), "Event ended")
	}

	return []byte(cal.Serialize())
}

func addAlarm(vev *ics.VEvent, offset time.Duration, description string) {
	alarm := vev.AddAlarm()
	alarm.SetAction(ics.ActionDisplay)
	alarm.SetTrigger(formatTrigger(offset))
	alarm.SetProperty(ics.ComponentPropertyDescription, description)
}

func statusOf(s model.EventStatus) ics.ObjectStatus {
	switch s {
	case model.StatusCanceled:
		return ics.ObjectStatusCancelled
	case model.StatusInactive:
		return ics.ObjectStatusTentative
	default:
		return ics.ObjectStatusConfirmed
	}
}

// formatTrigger renders d as an RFC 5545 duration such as -PT10M or PT1H30M.
func formatTrigger(d time.Duration) string {
	sign := ""
	if d < 0 {
		sign = "-"
		d = -d
	}
	d = d.Round(time.Second)
	if d == 0 {
		return "PT0S"
	}

	h := int64(d / time.Hour)
	m := int64(d % time.Hour / time.Minute)
	s := int64(d % time.Minute / time.Second)

	out := sign + "PT"
	if h > 0 {
		out += fmt.Sprintf("%dH", h)
	}
	if m > 0 {
		out += fmt.Sprintf("%dM", m)
	}
	if s > 0 {
		out += fmt.Sprintf("%dS", s)
	}
	return out
}
