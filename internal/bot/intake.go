package bot

import (
	"strings"

	"github.com/vexeradubbing/applybot/internal/model"
	"github.com/vexeradubbing/applybot/internal/service"
)

// contactLabel marks the line an applicant's messenger handle is
// extracted from, e.g. "Telegram: @someone".
const contactLabel = "Telegram"

// ParseIntake recognizes a free-text chat message as an application
// submission. The message qualifies when it contains the configured
// marker string; the contact handle extraction is best effort.
func ParseIntake(text, marker string) (service.Submission, bool) {
	if !strings.Contains(text, marker) {
		return service.Submission{}, false
	}
	return service.Submission{
		RawText:       text,
		ContactHandle: extractHandle(text),
	}, true
}

func extractHandle(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if !strings.Contains(line, contactLabel) {
			continue
		}
		if _, value, ok := strings.Cut(line, ": "); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return model.ContactUnknown
}
