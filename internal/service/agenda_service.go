package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"event-planner/internal/model"
)

type eventLister interface {
	ListUserEvents(ctx context.Context, userID string) ([]model.Event, error)
}

// AgendaService builds human-readable summaries of upcoming events.
type AgendaService struct {
	events eventLister
}

func NewAgendaService(events eventLister) *AgendaService {
	return &AgendaService{events: events}
}

// Summary renders the events that have not ended yet as Telegram HTML, split
// into today, later and canceled.
func (s *AgendaService) Summary(ctx context.Context, userID string, now time.Time) (string, error) {
	events, err := s.events.ListUserEvents(ctx, userID)
	if err != nil {
		return "", err
	}

	y, m, d := now.Date()
	endOfDay := time.Date(y, m, d, 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)

	var today, later, canceled []model.Event
	for _, ev := range VisibleEvents(events) {
		if !ev.EndDate.After(now) {
			continue
		}
		switch {
		case ev.Status == model.StatusCanceled:
			canceled = append(canceled, ev)
		case ev.StartDate.Before(endOfDay):
			today = append(today, ev)
		default:
			later = append(later, ev)
		}
	}

	var builder strings.Builder
	builder.WriteString("📋 <b>Agenda</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n\n", now.Format("Mon, 02 Jan 2006 15:04")))

	builder.WriteString("🔥 <b>Today</b>\n")
	if len(today) == 0 {
		builder.WriteString("— nothing left for today\n")
	} else {
		for _, ev := range today {
			builder.WriteString(formatAgendaEvent(ev, now, "15:04"))
		}
	}

	builder.WriteString("\n📆 <b>Later</b>\n")
	if len(later) == 0 {
		builder.WriteString("— no upcoming events\n")
	} else {
		for _, ev := range later {
			builder.WriteString(formatAgendaEvent(ev, now, "2006-01-02 15:04"))
		}
	}

	if len(canceled) > 0 {
		builder.WriteString("\n🚫 <b>Canceled</b>\n")
		for _, ev := range canceled {
			builder.WriteString(formatAgendaEvent(ev, now, "2006-01-02 15:04"))
		}
	}

	return strings.TrimSpace(builder.String()), nil
}

func formatAgendaEvent(ev model.Event, now time.Time, layout string) string {
	var sb strings.Builder

	start := ev.StartDate.In(now.Location())
	end := ev.EndDate.In(now.Location())

	icon := "🟢"
	switch {
	case ev.Status == model.StatusCanceled:
		icon = "🚫"
	case ev.Status == model.StatusInactive:
		icon = "⏸"
	case !now.Before(start):
		icon = "⏳"
	}

	sb.WriteString(fmt.Sprintf("%s %s <code>%s</code>", icon, html.EscapeString(ev.Title), ev.ShortID()))
	sb.WriteString(fmt.Sprintf("\n   ⏰ %s – %s", start.Format(layout), end.Format("15:04")))

	if ev.Status != model.StatusCanceled {
		if now.Before(start) {
			sb.WriteString(" · starts in " + humanDuration(start.Sub(now)))
		} else {
			sb.WriteString(" · ends in " + humanDuration(end.Sub(now)))
		}
	}

	if ev.Description != "" {
		sb.WriteString(fmt.Sprintf("\n   📝 %s", html.EscapeString(ev.Description)))
	}

	sb.WriteByte('\n')
	return sb.String()
}

// humanDuration renders d rounded to minutes, e.g. "2d 3h", "1h 05m", "7 min".
func humanDuration(d time.Duration) string {
	d = d.Round(time.Minute)
	if d < time.Minute {
		return "less than a minute"
	}
	days := int(d / (24 * time.Hour))
	hours := int(d % (24 * time.Hour) / time.Hour)
	minutes := int(d % time.Hour / time.Minute)

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %02dm", hours, minutes)
	default:
		return fmt.Sprintf("%d min", minutes)
	}
}
