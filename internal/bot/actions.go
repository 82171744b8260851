package bot

import (
	"strings"

	appErr "github.com/vexeradubbing/applybot/internal/errors"
)

// ActionKind tags the inline button actions.
type ActionKind string

const (
	ActionApprove ActionKind = "approve"
	ActionReject  ActionKind = "reject"
	ActionView    ActionKind = "view"
	ActionDelete  ActionKind = "delete"
)

// Action is a callback token parsed once at the boundary.
type Action struct {
	Kind  ActionKind
	AppID string
}

// ParseAction decodes an "action_applicationId" callback token. An
// unrecognized action kind is an explicit error, never a silent drop.
func ParseAction(data string) (Action, error) {
	data = strings.TrimSpace(strings.TrimPrefix(data, "\f"))
	kind, id, ok := strings.Cut(data, "_")
	if !ok || kind == "" || id == "" {
		return Action{}, appErr.NewValidation("malformed action token %q", data)
	}

	switch kind {
	case "approve":
		return Action{Kind: ActionApprove, AppID: id}, nil
	case "reject":
		return Action{Kind: ActionReject, AppID: id}, nil
	case "view", "details":
		return Action{Kind: ActionView, AppID: id}, nil
	case "delete":
		return Action{Kind: ActionDelete, AppID: id}, nil
	default:
		return Action{}, appErr.NewUnknownAction("%s", kind)
	}
}

// token renders the callback data for an action button.
func token(kind ActionKind, appID string) string {
	return string(kind) + "_" + appID
}
