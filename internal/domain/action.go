package domain

// Action kinds understood by the command interpreter.
const (
	ActionUpdateCategory = "update_category"
	ActionUnknown        = "unknown"
)

// Action is the structured form of a natural-language command.
// Vendor and NewCategory are only set for update_category.
type Action struct {
	Action      string `json:"action"`
	Vendor      string `json:"vendor,omitempty"`
	NewCategory string `json:"new_category,omitempty"`
}

// UnknownAction is returned for every command the interpreter does not support.
func UnknownAction() Action {
	return Action{Action: ActionUnknown}
}

// IsUnknown reports whether the action is the unknown action.
func (a Action) IsUnknown() bool {
	return a.Action != ActionUpdateCategory
}
