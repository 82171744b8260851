package notifier

import (
	"fmt"
	"strings"

	"github.com/vexeradubbing/applybot/internal/model"
)

const timeLayout = "02.01.2006 15:04"

// RenderApplication produces the notification content for an
// application in its current lifecycle state. Pending applications get
// the action keyboard; decided ones render read-only with the decision
// trail appended.
func RenderApplication(app model.Application) Content {
	var b strings.Builder

	switch app.Status {
	case model.StatusApproved:
		fmt.Fprintf(&b, "APPROVED %s\n", app.ID)
	case model.StatusRejected:
		fmt.Fprintf(&b, "REJECTED %s\n", app.ID)
	default:
		fmt.Fprintf(&b, "New application %s\n", app.ID)
	}
	fmt.Fprintf(&b, "Submitted: %s\n\n", app.CreatedAt.Format(timeLayout))

	if app.RawText != "" {
		b.WriteString(app.RawText)
		b.WriteString("\n")
	} else {
		fmt.Fprintf(&b, "Name: %s\n", app.Name)
		fmt.Fprintf(&b, "Contact: %s\n", app.Contact)
		fmt.Fprintf(&b, "Role: %s\n", app.Role)
		if app.Experience != "" {
			fmt.Fprintf(&b, "\nExperience:\n%s\n", app.Experience)
		}
		if app.Samples != "" {
			fmt.Fprintf(&b, "\nWork samples:\n%s\n", app.Samples)
		}
		fmt.Fprintf(&b, "\nMotivation:\n%s\n", app.Motivation)
	}

	if app.ContactHandle != "" && app.ContactHandle != model.ContactUnknown {
		fmt.Fprintf(&b, "\nTelegram: %s\n", app.ContactHandle)
	}

	if app.ProcessedBy != "" {
		fmt.Fprintf(&b, "\nProcessed by: %s", app.ProcessedBy)
		if app.ProcessedAt != nil {
			fmt.Fprintf(&b, " at %s", app.ProcessedAt.Format(timeLayout))
		}
		b.WriteString("\n")
	}

	return Content{
		Text:        b.String(),
		AppID:       app.ID,
		WithActions: !app.Decided(),
	}
}
