package models

import "fmt"

// Action is one of the moderation operations an operator can stage
// against a user. The enumeration is closed; absence of an action is
// represented by not having a staged record at all.
type Action string

const (
	ActionResetAvatar   Action = "reset_avatar"
	ActionResetUsername Action = "reset_username"
	ActionResetBio      Action = "reset_bio"
	ActionChangeRole    Action = "change_role"
	ActionRestrict      Action = "restrict"
	ActionDelete        Action = "delete"
)

// Actions lists every supported action in canonical order. Snapshot and
// bulk payload ordering follow this order so commits are reproducible.
var Actions = []Action{
	ActionResetAvatar,
	ActionResetUsername,
	ActionResetBio,
	ActionChangeRole,
	ActionRestrict,
	ActionDelete,
}

// Valid reports whether a is a member of the closed enumeration.
func (a Action) Valid() bool {
	switch a {
	case ActionResetAvatar, ActionResetUsername, ActionResetBio,
		ActionChangeRole, ActionRestrict, ActionDelete:
		return true
	}
	return false
}

// ParseAction converts a wire string into an Action.
func ParseAction(s string) (Action, error) {
	a := Action(s)
	if !a.Valid() {
		return "", fmt.Errorf("unknown moderation action %q", s)
	}
	return a, nil
}

// StagedUserAction is the central mutable record of the staging engine,
// keyed by the target user ID. A record exists only while at least one
// action is staged; the owning store deletes it the moment the action
// set becomes empty.
type StagedUserAction struct {
	UserID uint `json:"user_id"`

	// Actions holds the staged actions in the order they were toggled on.
	Actions []Action `json:"actions"`

	// ActionReasons maps each staged action to its own independent reason
	// list. Editing one action's reasons never touches another's.
	ActionReasons map[Action][]string `json:"action_reasons"`

	// Reasons mirrors the most recently edited action's reasons. Legacy
	// consumers of the staged-state payload still read this flattened
	// field; ActionReasons is the authoritative source.
	Reasons []string `json:"reasons"`

	// Role is the target role, meaningful only while change_role is staged.
	Role string `json:"role,omitempty"`

	// Duration is the restriction length as a day-count token ("7"),
	// meaningful only while restrict is staged.
	Duration string `json:"duration,omitempty"`
}

// HasAction reports whether the given action is currently staged.
func (r *StagedUserAction) HasAction(action Action) bool {
	for _, a := range r.Actions {
		if a == action {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the record. Store reads hand out clones so
// callers can never alias the store's internal state.
func (r *StagedUserAction) Clone() *StagedUserAction {
	if r == nil {
		return nil
	}
	cp := &StagedUserAction{
		UserID:   r.UserID,
		Actions:  append([]Action(nil), r.Actions...),
		Reasons:  append([]string(nil), r.Reasons...),
		Role:     r.Role,
		Duration: r.Duration,
	}
	cp.ActionReasons = make(map[Action][]string, len(r.ActionReasons))
	for action, reasons := range r.ActionReasons {
		cp.ActionReasons[action] = append([]string(nil), reasons...)
	}
	return cp
}

// ActionRequest is one atomic entry of a bulk commit: a single action
// against a single user with its justification.
type ActionRequest struct {
	UserID   uint     `json:"user_id"`
	Action   Action   `json:"action"`
	Duration string   `json:"duration,omitempty"`
	Role     string   `json:"role,omitempty"`
	Reasons  []string `json:"reasons"`
}

// BulkActionRequest is the payload of the bulk-action endpoint.
type BulkActionRequest struct {
	Actions []ActionRequest `json:"actions"`
}
