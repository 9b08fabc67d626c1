// Package staging implements the moderation action staging engine: the
// per-user staged-action store, the reason dialog state machine, the
// severity-based outcome resolver and the bulk commit protocol.
package staging

import (
	"sort"
	"strings"
	"sync"

	"tribunal/internal/models"
)

// RowState describes where a user's staged record sits in the
// select -> justify -> commit workflow.
type RowState string

const (
	// RowIdle means nothing is staged for the user.
	RowIdle RowState = "idle"
	// RowStaged means at least one action is staged but some staged action
	// still has no reasons.
	RowStaged RowState = "staged"
	// RowJustified means every staged action carries at least one reason;
	// the row-level confirm affordance may be enabled.
	RowJustified RowState = "justified"
)

// StageExtras carries the optional action-specific inputs captured at
// staging time. Role is merged only when change_role is the action being
// toggled on, Duration only for restrict.
type StageExtras struct {
	Role     string
	Duration string
}

// Store owns the map of staged user actions. All mutations happen in
// response to discrete operator events; the mutex only guards against the
// HTTP layer delivering two events at once for the same operator.
//
// Invariants: every record present has a non-empty action set, every
// staged action has an entry (possibly empty) in the per-action reason
// map, and delete is never staged together with any other action.
type Store struct {
	mu      sync.Mutex
	records map[uint]*models.StagedUserAction
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{records: make(map[uint]*models.StagedUserAction)}
}

// Stage toggles the given action for the user. Staging the same action
// twice in a row cancels out exactly; if the toggle empties the action
// set the whole record is removed. The returned record is a copy, nil if
// the record was removed.
//
// Delete is mutually exclusive with every other action: toggling delete
// on while other actions are staged, or any other action while delete is
// staged, is rejected with an INVALID_STATE error.
func (s *Store) Stage(userID uint, action models.Action, extras *StageExtras) (*models.StagedUserAction, error) {
	if !action.Valid() {
		return nil, models.NewValidationError("unknown moderation action")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[userID]
	if !ok {
		rec = &models.StagedUserAction{
			UserID:        userID,
			Actions:       []models.Action{action},
			ActionReasons: map[models.Action][]string{action: nil},
		}
		mergeExtras(rec, action, extras)
		s.records[userID] = rec
		return rec.Clone(), nil
	}

	if rec.HasAction(action) {
		// Toggle off.
		removeAction(rec, action)
		if len(rec.Actions) == 0 {
			delete(s.records, userID)
			return nil, nil
		}
		return rec.Clone(), nil
	}

	// Toggle on: enforce delete exclusivity at the store boundary.
	if action == models.ActionDelete {
		return nil, models.NewInvalidStateError("cannot stage delete while other actions are staged")
	}
	if rec.HasAction(models.ActionDelete) {
		return nil, models.NewInvalidStateError("cannot stage additional actions while delete is staged")
	}

	rec.Actions = append(rec.Actions, action)
	if _, exists := rec.ActionReasons[action]; !exists {
		rec.ActionReasons[action] = nil
	}
	mergeExtras(rec, action, extras)
	return rec.Clone(), nil
}

// SetReasons writes the reason list for one specific staged action. It
// fails with an INVALID_STATE error when the action is not currently
// staged for the user. The flattened legacy Reasons field is updated to
// mirror this, the most recently edited, list.
func (s *Store) SetReasons(userID uint, action models.Action, reasons []string) (*models.StagedUserAction, error) {
	if !action.Valid() {
		return nil, models.NewValidationError("unknown moderation action")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[userID]
	if !ok || !rec.HasAction(action) {
		return nil, models.NewInvalidStateError("cannot set reasons for an action that is not staged")
	}

	rec.ActionReasons[action] = append([]string(nil), reasons...)
	rec.Reasons = append([]string(nil), reasons...)
	return rec.Clone(), nil
}

// UpdateExtras overwrites the role/duration captured for the user's
// record. Empty values leave the existing ones in place. Used by the
// dialog controller when the operator picks a role or duration while
// justifying.
func (s *Store) UpdateExtras(userID uint, extras StageExtras) (*models.StagedUserAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[userID]
	if !ok {
		return nil, models.NewInvalidStateError("no staged actions for user")
	}
	if extras.Role != "" {
		rec.Role = extras.Role
	}
	if extras.Duration != "" {
		rec.Duration = extras.Duration
	}
	return rec.Clone(), nil
}

// Clear removes the record for the user. Clearing an absent user is a no-op.
func (s *Store) Clear(userID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, userID)
}

// ClearAll empties the whole store.
func (s *Store) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[uint]*models.StagedUserAction)
}

// Has reports whether the user currently has a staged record.
func (s *Store) Has(userID uint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.records[userID]
	return ok
}

// Get returns a copy of the user's staged record.
func (s *Store) Get(userID uint) (*models.StagedUserAction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[userID]
	if !ok {
		return nil, false
	}
	return rec.Clone(), true
}

// All returns copies of every staged record ordered by user ID.
func (s *Store) All() []models.StagedUserAction {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.StagedUserAction, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, *rec.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// StateFor reports the workflow state of the user's row.
func (s *Store) StateFor(userID uint) RowState {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[userID]
	if !ok {
		return RowIdle
	}
	for _, action := range rec.Actions {
		if len(rec.ActionReasons[action]) == 0 && len(rec.Reasons) == 0 {
			return RowStaged
		}
	}
	return RowJustified
}

// SnapshotForCommit flattens the staged state into one atomic request per
// (user, action) pair without mutating the store. Users are ordered by ID
// and actions by canonical enumeration order. Reasons come from the
// per-action map; pairs lacking an action-specific entry fall back to the
// flattened legacy list.
func (s *Store) SnapshotForCommit() []models.ActionRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	userIDs := make([]uint, 0, len(s.records))
	for id := range s.records {
		userIDs = append(userIDs, id)
	}
	sort.Slice(userIDs, func(i, j int) bool { return userIDs[i] < userIDs[j] })

	var reqs []models.ActionRequest
	for _, id := range userIDs {
		rec := s.records[id]
		for _, action := range models.Actions {
			if !rec.HasAction(action) {
				continue
			}
			reasons := rec.ActionReasons[action]
			if len(reasons) == 0 {
				reasons = rec.Reasons
			}
			req := models.ActionRequest{
				UserID:  id,
				Action:  action,
				Reasons: append([]string(nil), reasons...),
			}
			if action == models.ActionRestrict {
				req.Duration = strings.TrimSpace(rec.Duration)
			}
			if action == models.ActionChangeRole {
				req.Role = rec.Role
			}
			reqs = append(reqs, req)
		}
	}
	return reqs
}

func removeAction(rec *models.StagedUserAction, action models.Action) {
	kept := rec.Actions[:0]
	for _, a := range rec.Actions {
		if a != action {
			kept = append(kept, a)
		}
	}
	rec.Actions = kept
	delete(rec.ActionReasons, action)
	switch action {
	case models.ActionChangeRole:
		rec.Role = ""
	case models.ActionRestrict:
		rec.Duration = ""
	}
}

func mergeExtras(rec *models.StagedUserAction, action models.Action, extras *StageExtras) {
	if extras == nil {
		return
	}
	if action == models.ActionChangeRole && extras.Role != "" {
		rec.Role = extras.Role
	}
	if action == models.ActionRestrict && extras.Duration != "" {
		rec.Duration = extras.Duration
	}
}
