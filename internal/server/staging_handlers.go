package server

import (
	"tribunal/internal/middleware"
	"tribunal/internal/models"
	"tribunal/internal/staging"

	"github.com/gofiber/fiber/v2"
)

// StageAction handles POST /api/admin/staging/:id/actions. The same action
// posted twice toggles it back off.
func (s *Server) StageAction(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Action   string `json:"action"`
		Role     string `json:"role"`
		Duration string `json:"duration"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	action, err := models.ParseAction(req.Action)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}

	sess := s.staging.Session(operatorID(c))
	rec, err := sess.Store.Stage(userID, action, &staging.StageExtras{
		Role:     req.Role,
		Duration: req.Duration,
	})
	if err != nil {
		return models.RespondWithError(c, statusForError(err), err)
	}

	// Only count toggles that turned the action on.
	if rec != nil && rec.HasAction(action) {
		middleware.StagedActions.WithLabelValues(string(action)).Inc()
	}

	return c.JSON(fiber.Map{
		"record": rec,
		"state":  sess.Store.StateFor(userID),
	})
}

// GetStagedActions handles GET /api/admin/staging
func (s *Server) GetStagedActions(c *fiber.Ctx) error {
	sess := s.staging.Session(operatorID(c))
	records := sess.Store.All()
	return c.JSON(fiber.Map{
		"records": records,
		"count":   len(records),
	})
}

// GetStagedUser handles GET /api/admin/staging/:id
func (s *Server) GetStagedUser(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	sess := s.staging.Session(operatorID(c))
	rec, ok := sess.Store.Get(userID)
	if !ok {
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("Staged actions for user", userID))
	}
	return c.JSON(fiber.Map{
		"record": rec,
		"state":  sess.Store.StateFor(userID),
	})
}

// ClearStagedUser handles DELETE /api/admin/staging/:id
func (s *Server) ClearStagedUser(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	s.staging.Session(operatorID(c)).Store.Clear(userID)
	return c.SendStatus(fiber.StatusNoContent)
}

// ClearStagedActions handles DELETE /api/admin/staging
func (s *Server) ClearStagedActions(c *fiber.Ctx) error {
	s.staging.Session(operatorID(c)).Store.ClearAll()
	return c.SendStatus(fiber.StatusNoContent)
}

// OpenDialog handles POST /api/admin/staging/:id/dialog. Opening while
// another dialog is up replaces it; unsaved selections are discarded.
func (s *Server) OpenDialog(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Part string `json:"part"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	sess := s.staging.Session(operatorID(c))
	state, err := sess.Dialog.Open(userID, staging.Part(req.Part))
	if err != nil {
		return models.RespondWithError(c, statusForError(err), err)
	}
	return c.JSON(dialogResponse(state))
}

// GetDialog handles GET /api/admin/dialog
func (s *Server) GetDialog(c *fiber.Ctx) error {
	sess := s.staging.Session(operatorID(c))
	state, open := sess.Dialog.State()
	if !open {
		return c.JSON(fiber.Map{"is_open": false})
	}
	return c.JSON(dialogResponse(state))
}

// ToggleDialogReason handles POST /api/admin/dialog/reasons, checking or
// unchecking one predefined reason.
func (s *Server) ToggleDialogReason(c *fiber.Ctx) error {
	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.BodyParser(&req); err != nil || req.Reason == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("reason is required"))
	}

	sess := s.staging.Session(operatorID(c))
	state, err := sess.Dialog.ToggleReason(req.Reason)
	if err != nil {
		return models.RespondWithError(c, statusForError(err), err)
	}
	return c.JSON(dialogResponse(state))
}

// UpdateDialog handles PATCH /api/admin/dialog. Any combination of the
// custom reason, role and duration can be updated in one call.
func (s *Server) UpdateDialog(c *fiber.Ctx) error {
	var req struct {
		CustomReason *string `json:"custom_reason"`
		Role         *string `json:"role"`
		Duration     *string `json:"duration"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	sess := s.staging.Session(operatorID(c))
	if req.CustomReason != nil {
		if err := sess.Dialog.SetCustomReason(*req.CustomReason); err != nil {
			return models.RespondWithError(c, statusForError(err), err)
		}
	}
	if req.Role != nil {
		if err := sess.Dialog.SetRole(*req.Role); err != nil {
			return models.RespondWithError(c, statusForError(err), err)
		}
	}
	if req.Duration != nil {
		if err := sess.Dialog.SetDuration(*req.Duration); err != nil {
			return models.RespondWithError(c, statusForError(err), err)
		}
	}

	state, open := sess.Dialog.State()
	if !open {
		return c.JSON(fiber.Map{"is_open": false})
	}
	return c.JSON(dialogResponse(state))
}

// ConfirmDialog handles POST /api/admin/dialog/confirm
func (s *Server) ConfirmDialog(c *fiber.Ctx) error {
	sess := s.staging.Session(operatorID(c))
	rec, err := sess.Dialog.Confirm()
	if err != nil {
		return models.RespondWithError(c, statusForError(err), err)
	}
	return c.JSON(fiber.Map{
		"record": rec,
		"state":  sess.Store.StateFor(rec.UserID),
	})
}

// CancelDialog handles POST /api/admin/dialog/cancel
func (s *Server) CancelDialog(c *fiber.Ctx) error {
	s.staging.Session(operatorID(c)).Dialog.Cancel()
	return c.SendStatus(fiber.StatusNoContent)
}

// PreviewOutcome handles POST /api/admin/outcome. It resolves the outcome
// label the console shows before anything is committed.
func (s *Server) PreviewOutcome(c *fiber.Ctx) error {
	var req struct {
		Action  string   `json:"action"`
		Reasons []string `json:"reasons"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	action, err := models.ParseAction(req.Action)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}

	return c.JSON(fiber.Map{
		"outcome": staging.MostSevereResult(action, req.Reasons),
	})
}

func dialogResponse(state staging.DialogState) fiber.Map {
	return fiber.Map{
		"dialog":      state,
		"reasons":     state.Part.Reasons(),
		"show_custom": state.ShowCustom(),
		"can_confirm": state.CanConfirm(),
	}
}
