package contract

import (
	"encoding/json"
	"strings"

	"github.com/dvloznov/fintrack-ai/internal/domain"
)

const taskAction = "action"

// ParseAction validates an interpreter response. update_category must carry a
// non-empty vendor and new_category; every other action value collapses to
// exactly {"action":"unknown"}.
func ParseAction(raw string) (domain.Action, error) {
	clean := CleanModelJSON(raw, '{')
	if clean == "" {
		return domain.Action{}, &ValidationError{Task: taskAction, Index: -1, Reason: "expected a JSON object", Err: ErrNoJSON}
	}

	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(clean), &obj); err != nil {
		return domain.Action{}, &ValidationError{Task: taskAction, Index: -1, Reason: "invalid JSON: " + err.Error(), Err: ErrNoJSON}
	}
	if obj == nil {
		return domain.Action{}, schemaErr(taskAction, -1, "", "top-level value is null, want object")
	}

	name, err := getString(obj, "action", true)
	if err != nil {
		return domain.Action{}, schemaErr(taskAction, -1, "action", err.Error())
	}
	if strings.ToLower(name) != domain.ActionUpdateCategory {
		return domain.UnknownAction(), nil
	}

	vendor, err := getString(obj, "vendor", true)
	if err != nil {
		return domain.Action{}, schemaErr(taskAction, -1, "vendor", err.Error())
	}
	category, err := getString(obj, "new_category", true)
	if err != nil {
		return domain.Action{}, schemaErr(taskAction, -1, "new_category", err.Error())
	}

	return domain.Action{
		Action:      domain.ActionUpdateCategory,
		Vendor:      vendor,
		NewCategory: category,
	}, nil
}
