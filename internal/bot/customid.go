package bot

import "strings"

// Component and modal custom IDs carry the activity name so the handler can
// find the right session without any per-message state. Activities may
// contain any character except the separator position is fixed, so the
// activity is always the final, greedy segment.
const (
	ciPrefix = "archivio"

	ciActionType   = "type"
	ciActionSubmit = "submit"
	ciActionCancel = "cancel"
	ciActionModal  = "doc"
)

func componentID(action, activity string) string {
	return ciPrefix + ":" + action + ":" + activity
}

func modalID(docType, activity string) string {
	return ciPrefix + ":" + ciActionModal + ":" + docType + ":" + activity
}

// parseComponentID returns the action and activity from a component custom
// ID, or ok=false when the ID is not one of ours.
func parseComponentID(id string) (action, activity string, ok bool) {
	parts := strings.SplitN(id, ":", 3)
	if len(parts) != 3 || parts[0] != ciPrefix {
		return "", "", false
	}
	return parts[1], parts[2], true
}

// parseModalID returns the document type and activity from a modal custom ID.
func parseModalID(id string) (docType, activity string, ok bool) {
	parts := strings.SplitN(id, ":", 4)
	if len(parts) != 4 || parts[0] != ciPrefix || parts[1] != ciActionModal {
		return "", "", false
	}
	return parts[2], parts[3], true
}
