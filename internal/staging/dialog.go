package staging

import (
	"strings"
	"sync"

	"tribunal/internal/models"
)

// Part is the UI-facing name of the row affordance that opened the
// dialog. Each part maps to exactly one moderation action.
type Part string

const (
	PartAvatar   Part = "avatar"
	PartUsername Part = "username"
	PartBio      Part = "bio"
	PartRole     Part = "role"
	PartRestrict Part = "restrict"
	PartDelete   Part = "delete"
)

var partActions = map[Part]models.Action{
	PartAvatar:   models.ActionResetAvatar,
	PartUsername: models.ActionResetUsername,
	PartBio:      models.ActionResetBio,
	PartRole:     models.ActionChangeRole,
	PartRestrict: models.ActionRestrict,
	PartDelete:   models.ActionDelete,
}

// Action returns the moderation action this part edits.
func (p Part) Action() (models.Action, bool) {
	a, ok := partActions[p]
	return a, ok
}

// Reasons returns the predefined reason catalog for the part.
func (p Part) Reasons() []string {
	if p == PartRole {
		return PromotionReasons
	}
	return ViolationReasons
}

// DialogState is the transient state of the single reason dialog.
type DialogState struct {
	IsOpen           bool     `json:"is_open"`
	UserID           uint     `json:"user_id"`
	Part             Part     `json:"part"`
	SelectedReasons  []string `json:"selected_reasons"`
	CustomReason     string   `json:"custom_reason"`
	SelectedRole     string   `json:"selected_role,omitempty"`
	SelectedDuration string   `json:"selected_duration,omitempty"`
}

// ShowCustom reports whether the free-text input should be visible:
// true iff Other is among the selected reasons.
func (st DialogState) ShowCustom() bool {
	for _, r := range st.SelectedReasons {
		if r == ReasonOther {
			return true
		}
	}
	return false
}

// CanConfirm reports whether confirm is enabled: at least one reason is
// selected, and if Other is among them the custom text is non-blank.
func (st DialogState) CanConfirm() bool {
	if !st.IsOpen || len(st.SelectedReasons) == 0 {
		return false
	}
	if st.ShowCustom() && strings.TrimSpace(st.CustomReason) == "" {
		return false
	}
	return true
}

// Dialog is the single-slot reason dialog controller. Only one
// (user, part) pair is ever under edit; opening a new dialog replaces the
// current slot, discarding any unsaved selections.
type Dialog struct {
	mu    sync.Mutex
	store *Store
	state *DialogState
}

// NewDialog returns a closed dialog bound to the given store.
func NewDialog(store *Store) *Dialog {
	return &Dialog{store: store}
}

// Open moves the dialog to the open state for the given (user, part)
// pair, pre-populated with whatever is currently staged for that exact
// action. An already-open dialog is replaced, not merged.
func (d *Dialog) Open(userID uint, part Part) (DialogState, error) {
	action, ok := part.Action()
	if !ok {
		return DialogState{}, models.NewValidationError("unknown dialog part")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	st := &DialogState{
		IsOpen: true,
		UserID: userID,
		Part:   part,
	}
	if rec, exists := d.store.Get(userID); exists {
		st.SelectedReasons = append([]string(nil), rec.ActionReasons[action]...)
		st.SelectedRole = rec.Role
		st.SelectedDuration = rec.Duration
	}
	d.state = st
	return *st, nil
}

// State returns a copy of the current dialog state and whether the
// dialog is open.
func (d *Dialog) State() (DialogState, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == nil {
		return DialogState{}, false
	}
	st := *d.state
	st.SelectedReasons = append([]string(nil), d.state.SelectedReasons...)
	return st, true
}

// ToggleReason checks or unchecks one predefined reason.
func (d *Dialog) ToggleReason(reason string) (DialogState, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == nil {
		return DialogState{}, models.NewInvalidStateError("reason dialog is not open")
	}

	kept := d.state.SelectedReasons[:0]
	found := false
	for _, r := range d.state.SelectedReasons {
		if r == reason {
			found = true
			continue
		}
		kept = append(kept, r)
	}
	d.state.SelectedReasons = kept
	if !found {
		d.state.SelectedReasons = append(d.state.SelectedReasons, reason)
	}
	return *d.state, nil
}

// SetCustomReason updates the free-text reason used when Other is selected.
func (d *Dialog) SetCustomReason(text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == nil {
		return models.NewInvalidStateError("reason dialog is not open")
	}
	d.state.CustomReason = text
	return nil
}

// SetRole records the target role while the role part is under edit.
func (d *Dialog) SetRole(role string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == nil {
		return models.NewInvalidStateError("reason dialog is not open")
	}
	if !models.ValidRole(role) {
		return models.NewValidationError("unknown role")
	}
	d.state.SelectedRole = role
	return nil
}

// SetDuration records the restriction day-count token while the restrict
// part is under edit.
func (d *Dialog) SetDuration(duration string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == nil {
		return models.NewInvalidStateError("reason dialog is not open")
	}
	if strings.TrimSpace(duration) == "" {
		return models.NewValidationError("duration must not be blank")
	}
	d.state.SelectedDuration = duration
	return nil
}

// Confirm finalizes the selected reasons and writes them into the store
// for the dialog's exact (user, action) pair, then closes the dialog.
//
// Finalization: when Other is selected and the custom text is non-blank,
// Other is removed and the trimmed custom text appended; otherwise the
// selection is persisted verbatim.
func (d *Dialog) Confirm() (*models.StagedUserAction, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == nil {
		return nil, models.NewInvalidStateError("reason dialog is not open")
	}
	if !d.state.CanConfirm() {
		return nil, models.NewValidationError("select at least one reason; Other requires a custom reason")
	}

	action, _ := d.state.Part.Action()
	final := finalizeReasons(d.state.SelectedReasons, d.state.CustomReason)

	rec, err := d.store.SetReasons(d.state.UserID, action, final)
	if err != nil {
		return nil, err
	}
	if d.state.SelectedRole != "" || d.state.SelectedDuration != "" {
		rec, err = d.store.UpdateExtras(d.state.UserID, StageExtras{
			Role:     d.state.SelectedRole,
			Duration: d.state.SelectedDuration,
		})
		if err != nil {
			return nil, err
		}
	}

	d.state = nil
	return rec, nil
}

// Cancel closes the dialog without touching the store.
func (d *Dialog) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = nil
}

func finalizeReasons(selected []string, custom string) []string {
	custom = strings.TrimSpace(custom)
	hasOther := false
	for _, r := range selected {
		if r == ReasonOther {
			hasOther = true
			break
		}
	}
	if !hasOther || custom == "" {
		return append([]string(nil), selected...)
	}

	final := make([]string, 0, len(selected))
	for _, r := range selected {
		if r != ReasonOther {
			final = append(final, r)
		}
	}
	return append(final, custom)
}
