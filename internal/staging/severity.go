package staging

import "tribunal/internal/models"

// ReasonOther is the placeholder checkbox the operator picks before
// typing a free-text reason. It is never persisted: the dialog replaces
// it with the trimmed custom text on confirm.
const ReasonOther = "Other"

// ViolationReasons are the predefined justifications offered for
// punitive actions (restrict, delete, resets).
var ViolationReasons = []string{
	"Violence or threats",
	"Hate speech or discrimination",
	"Harassment or bullying",
	"Sexual or explicit content",
	"Spam or unwanted content",
	"False information",
	"Inappropriate content",
	ReasonOther,
}

// PromotionReasons are the predefined justifications offered for role
// changes.
var PromotionReasons = []string{
	"Trusted community member",
	"Consistent quality contributions",
	"Active moderation help",
	"Staff decision",
	ReasonOther,
}

// reasonSeverity ranks reasons when several are selected for one action.
// It is used only to pick the displayed outcome, never persisted.
// Custom free-text reasons are absent from the table and rank below
// everything, including Other.
var reasonSeverity = map[string]int{
	"Violence or threats":              10,
	"Hate speech or discrimination":    9,
	"Harassment or bullying":           8,
	"Sexual or explicit content":       7,
	"Spam or unwanted content":         6,
	"False information":                5,
	"Inappropriate content":            4,
	"Trusted community member":         8,
	"Consistent quality contributions": 6,
	"Active moderation help":           4,
	"Staff decision":                   2,
	ReasonOther:                        1,
}

// defaultOutcomes is the per-action fallback label shown when no specific
// (action, reason) mapping exists.
var defaultOutcomes = map[models.Action]string{
	models.ActionResetAvatar:   "Avatar Removed",
	models.ActionResetUsername: "Username Reset",
	models.ActionResetBio:      "Bio Cleared",
	models.ActionChangeRole:    "Role Changed",
	models.ActionRestrict:      "Account Restricted",
	models.ActionDelete:        "Account Deleted",
}

// specificOutcomes overrides the default label for particular
// (action, reason) pairs.
var specificOutcomes = map[models.Action]map[string]string{
	models.ActionDelete: {
		"Violence or threats": "Account Permanently Banned",
	},
	models.ActionChangeRole: {
		"Trusted community member":         "Role Upgraded",
		"Consistent quality contributions": "Role Upgraded",
	},
}

// Severity returns the rank of a reason; unknown (custom) reasons rank 0.
func Severity(reason string) int {
	return reasonSeverity[reason]
}

// ResultFor resolves the outcome label for a single (action, reason)
// pair, falling back to the action's default label when the reason has no
// specific mapping.
func ResultFor(action models.Action, reason string) string {
	if byReason, ok := specificOutcomes[action]; ok {
		if outcome, ok := byReason[reason]; ok {
			return outcome
		}
	}
	return defaultOutcomes[action]
}

// MostSevereResult picks the single most significant reason from the list
// and returns its outcome label. The reduction walks left to right and
// replaces the current best only when a later candidate is strictly more
// severe, so ties keep the first-encountered reason. Returns "" for an
// empty action or an empty reason list.
func MostSevereResult(action models.Action, reasons []string) string {
	if action == "" || len(reasons) == 0 {
		return ""
	}
	best := reasons[0]
	for _, candidate := range reasons[1:] {
		if Severity(candidate) > Severity(best) {
			best = candidate
		}
	}
	return ResultFor(action, best)
}
