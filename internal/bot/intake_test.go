package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vexeradubbing/applybot/internal/model"
)

const testMarker = "NEW DUBBING TEAM APPLICATION"

func TestParseIntake(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		wantMatch  bool
		wantHandle string
	}{
		{
			name:       "full application with handle",
			text:       "NEW DUBBING TEAM APPLICATION\nName: Ann\nTelegram: @ann\nRole: voice",
			wantMatch:  true,
			wantHandle: "@ann",
		},
		{
			name:       "marker embedded mid-message",
			text:       "forwarding this\nNEW DUBBING TEAM APPLICATION\nTelegram: @bob",
			wantMatch:  true,
			wantHandle: "@bob",
		},
		{
			name:       "no handle line",
			text:       "NEW DUBBING TEAM APPLICATION\nName: Ann\nRole: voice",
			wantMatch:  true,
			wantHandle: model.ContactUnknown,
		},
		{
			name:       "handle line without value",
			text:       "NEW DUBBING TEAM APPLICATION\nTelegram: ",
			wantMatch:  true,
			wantHandle: model.ContactUnknown,
		},
		{
			name:      "ordinary chatter ignored",
			text:      "hi, when does the next episode drop?",
			wantMatch: false,
		},
		{
			name:      "empty message ignored",
			text:      "",
			wantMatch: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub, ok := ParseIntake(tt.text, testMarker)
			if !tt.wantMatch {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.text, sub.RawText, "original text is preserved verbatim")
			assert.Equal(t, tt.wantHandle, sub.ContactHandle)
		})
	}
}

func TestParseIntake_CustomMarker(t *testing.T) {
	text := "ЗАЯВКА В КОМАНДУ ОЗВУЧКИ\nTelegram: @vera"
	sub, ok := ParseIntake(text, "ЗАЯВКА В КОМАНДУ ОЗВУЧКИ")
	require.True(t, ok)
	assert.Equal(t, "@vera", sub.ContactHandle)

	_, ok = ParseIntake(text, testMarker)
	assert.False(t, ok)
}
