package dispatch

import (
	"fmt"
	"strings"

	"github.com/hirewire/notifykit/pkg/channel"
	"github.com/hirewire/notifykit/pkg/event"
)

// renderMessage turns an event into the transport-neutral payload adapters
// send. Rendering is intentionally plain: the engine routes, it does not
// template.
func renderMessage(evt event.NotificationEvent, priority event.Priority) channel.Message {
	subject, body := renderText(evt)
	return channel.Message{
		NotificationID: evt.ID,
		UserID:         evt.SubjectIDs.UserID,
		Subject:        subject,
		Body:           body,
		Priority:       priority,
	}
}

func renderText(evt event.NotificationEvent) (subject, body string) {
	name, _ := evt.Attr("candidateName")
	title, _ := evt.Attr("jobTitle")

	switch evt.Type {
	case event.TypeMatchCreated:
		subject = "New candidate match"
		if score, ok := evt.Score(); ok {
			subject = fmt.Sprintf("New candidate match (%.0f%% fit)", score)
		}
		body = fmt.Sprintf("%v matched %v.", orUnknown(name, "A candidate"), orUnknown(title, "your job"))
	case event.TypeInterviewReminder:
		subject = "Interview reminder"
		body = fmt.Sprintf("Upcoming interview with %v for %v.", orUnknown(name, "a candidate"), orUnknown(title, "your job"))
	case event.TypeCampaignResult:
		subject = "Campaign results are in"
		body = "Your outreach campaign finished. Open the dashboard for the full breakdown."
	case event.TypeComplianceAlert:
		subject = "Compliance alert"
		body = "A compliance issue needs your attention."
	case event.TypeApplicationReceived:
		subject = "New application received"
		body = fmt.Sprintf("%v applied to %v.", orUnknown(name, "A candidate"), orUnknown(title, "your job"))
	case event.TypeCampaignLaunched:
		subject = "Campaign launched"
		body = "Your outreach campaign is live."
	default:
		subject = "Notification"
		body = fmt.Sprintf("Event %s occurred.", evt.Type)
	}
	return subject, body
}

// renderDigest consolidates queued entries into a single summary message.
func renderDigest(userID string, notificationID string, entries []DigestEntry, maxPriority event.Priority) channel.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "You have %d notifications waiting:\n", len(entries))
	for _, entry := range entries {
		subject, _ := renderText(entry.Event)
		fmt.Fprintf(&b, "- [%s] %s\n", entry.Priority, subject)
	}

	return channel.Message{
		NotificationID: notificationID,
		UserID:         userID,
		Subject:        fmt.Sprintf("Your notification digest (%d updates)", len(entries)),
		Body:           b.String(),
		Priority:       maxPriority,
		Digest:         true,
	}
}

func orUnknown(v any, fallback string) any {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	if v == nil {
		return fallback
	}
	return v
}
