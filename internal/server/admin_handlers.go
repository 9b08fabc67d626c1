package server

import (
	"tribunal/internal/models"
	"tribunal/internal/staging"

	"github.com/gofiber/fiber/v2"
)

// adminUserRow is one row of the admin user list, annotated with the
// operator's current staging state for that user.
type adminUserRow struct {
	models.User
	StagedState staging.RowState `json:"staged_state"`
}

// GetAdminUsers handles GET /api/admin/users with optional ?q= search.
func (s *Server) GetAdminUsers(c *fiber.Ctx) error {
	pagination := parsePagination(c, 25)
	query := c.Query("q")

	users, total, err := s.userRepo.List(c.Context(), query, pagination.Limit, pagination.Offset)
	if err != nil {
		return models.RespondWithError(c, statusForError(err), err)
	}

	store := s.staging.Session(operatorID(c)).Store
	rows := make([]adminUserRow, 0, len(users))
	for _, user := range users {
		rows = append(rows, adminUserRow{
			User:        user,
			StagedState: store.StateFor(user.ID),
		})
	}

	return c.JSON(fiber.Map{
		"users":  rows,
		"total":  total,
		"limit":  pagination.Limit,
		"offset": pagination.Offset,
	})
}

// GetAdminUserDetail handles GET /api/admin/users/:id
func (s *Server) GetAdminUserDetail(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	detail, err := s.moderationService.GetAdminUserDetail(c.Context(), userID)
	if err != nil {
		return models.RespondWithError(c, statusForError(err), err)
	}

	sess := s.staging.Session(operatorID(c))
	staged, _ := sess.Store.Get(userID)

	return c.JSON(fiber.Map{
		"user":         detail.User,
		"recent_logs":  detail.RecentLogs,
		"warnings":     detail.Warnings,
		"staged":       staged,
		"staged_state": sess.Store.StateFor(userID),
	})
}

// UpdateAdminUser handles PATCH /api/admin/users/:id, correcting profile
// fields directly. Role changes and restrictions go through the staged
// moderation actions instead.
func (s *Server) UpdateAdminUser(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Username *string `json:"username"`
		Email    *string `json:"email"`
		Bio      *string `json:"bio"`
		Avatar   *string `json:"avatar"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userRepo.GetByID(c.Context(), userID)
	if err != nil {
		return models.RespondWithError(c, statusForError(err), err)
	}

	if req.Username != nil {
		if *req.Username == "" {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("username cannot be empty"))
		}
		user.Username = *req.Username
	}
	if req.Email != nil {
		if *req.Email == "" {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("email cannot be empty"))
		}
		user.Email = *req.Email
	}
	if req.Bio != nil {
		user.Bio = *req.Bio
	}
	if req.Avatar != nil {
		user.Avatar = *req.Avatar
	}

	if err := s.userRepo.Update(c.Context(), user); err != nil {
		return models.RespondWithError(c, statusForError(err), err)
	}

	return c.JSON(fiber.Map{"user": user})
}

// GetAdminStats handles GET /api/admin/stats
func (s *Server) GetAdminStats(c *fiber.Ctx) error {
	stats, err := s.moderationService.Stats(c.Context())
	if err != nil {
		return models.RespondWithError(c, statusForError(err), err)
	}
	return c.JSON(stats)
}
