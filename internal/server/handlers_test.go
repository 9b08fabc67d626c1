package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"tribunal/internal/config"
	"tribunal/internal/middleware"
	"tribunal/internal/models"
	"tribunal/internal/repository"
	"tribunal/internal/service"
	"tribunal/internal/staging"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testOperatorID uint = 1

func setupHandlerTest(t *testing.T) (*Server, *fiber.App, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.ModerationLog{}))

	s := &Server{
		config:            &config.Config{JWTSecret: "test-secret"},
		db:                db,
		userRepo:          repository.NewUserRepository(db),
		moderationService: service.NewModerationService(db),
	}
	s.staging = staging.NewRegistry(s.moderationService)

	app := fiber.New()
	// Stand-in for AuthRequired/AdminRequired: a fixed admin operator.
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("userID", testOperatorID)
		return c.Next()
	})
	s.SetupRoutes(app)

	admin := &models.User{Username: "op", Email: "op@example.com", Password: "pw", Role: models.RoleAdmin}
	require.NoError(t, db.Create(admin).Error)

	return s, app, db
}

func createUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "pw",
		Bio:      "bio",
		Avatar:   "a.png",
		Role:     models.RoleUser,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

func TestStageAction_ToggleAndReject(t *testing.T) {
	t.Parallel()
	_, app, db := setupHandlerTest(t)
	target := createUser(t, db, "target")
	path := fmt.Sprintf("/api/admin/staging/%d/actions", target.ID)

	t.Run("toggle on", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, path, fiber.Map{"action": "reset_bio"})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body struct {
			Record *models.StagedUserAction `json:"record"`
			State  string                   `json:"state"`
		}
		decode(t, resp, &body)
		require.NotNil(t, body.Record)
		assert.Equal(t, []models.Action{models.ActionResetBio}, body.Record.Actions)
		assert.Equal(t, "staged", body.State)
	})

	t.Run("toggle off removes the record", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, path, fiber.Map{"action": "reset_bio"})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body struct {
			Record *models.StagedUserAction `json:"record"`
			State  string                   `json:"state"`
		}
		decode(t, resp, &body)
		assert.Nil(t, body.Record)
		assert.Equal(t, "idle", body.State)
	})

	t.Run("unknown action", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, path, fiber.Map{"action": "obliterate"})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("delete is exclusive", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, path, fiber.Map{"action": "reset_avatar"})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp = doJSON(t, app, http.MethodPost, path, fiber.Map{"action": "delete"})
		assert.Equal(t, http.StatusConflict, resp.StatusCode)

		var errBody models.ErrorResponse
		decode(t, resp, &errBody)
		assert.Equal(t, models.CodeInvalidState, errBody.Code)
	})
}

func TestDialogFlow(t *testing.T) {
	t.Parallel()
	_, app, db := setupHandlerTest(t)
	target := createUser(t, db, "dialoguser")

	resp := doJSON(t, app, http.MethodPost,
		fmt.Sprintf("/api/admin/staging/%d/actions", target.ID),
		fiber.Map{"action": "restrict", "duration": "7"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, app, http.MethodPost,
		fmt.Sprintf("/api/admin/staging/%d/dialog", target.ID),
		fiber.Map{"part": "restrict"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var opened struct {
		Dialog     staging.DialogState `json:"dialog"`
		Reasons    []string            `json:"reasons"`
		CanConfirm bool                `json:"can_confirm"`
	}
	decode(t, resp, &opened)
	assert.True(t, opened.Dialog.IsOpen)
	assert.Contains(t, opened.Reasons, "Harassment or bullying")
	assert.False(t, opened.CanConfirm, "no reasons selected yet")

	resp = doJSON(t, app, http.MethodPost, "/api/admin/dialog/reasons",
		fiber.Map{"reason": "Harassment or bullying"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var toggled struct {
		CanConfirm bool `json:"can_confirm"`
	}
	decode(t, resp, &toggled)
	assert.True(t, toggled.CanConfirm)

	resp = doJSON(t, app, http.MethodPost, "/api/admin/dialog/confirm", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var confirmed struct {
		Record *models.StagedUserAction `json:"record"`
		State  string                   `json:"state"`
	}
	decode(t, resp, &confirmed)
	require.NotNil(t, confirmed.Record)
	assert.Equal(t, []string{"Harassment or bullying"}, confirmed.Record.ActionReasons[models.ActionRestrict])
	assert.Equal(t, "justified", confirmed.State)

	// Dialog is closed after confirm.
	resp = doJSON(t, app, http.MethodGet, "/api/admin/dialog/", nil)
	var dialogState struct {
		IsOpen bool `json:"is_open"`
	}
	decode(t, resp, &dialogState)
	assert.False(t, dialogState.IsOpen)
}

func TestCommitAll_MissingJustification(t *testing.T) {
	t.Parallel()
	_, app, db := setupHandlerTest(t)
	target := createUser(t, db, "unjustified")

	resp := doJSON(t, app, http.MethodPost,
		fmt.Sprintf("/api/admin/staging/%d/actions", target.ID),
		fiber.Map{"action": "reset_bio"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, app, http.MethodPost, "/api/admin/staging/commit", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var errBody models.ErrorResponse
	decode(t, resp, &errBody)
	assert.Equal(t, models.CodeMissingJustification, errBody.Code)

	var got models.User
	require.NoError(t, db.First(&got, target.ID).Error)
	assert.Equal(t, "bio", got.Bio, "nothing is applied on a rejected commit")
}

func TestCommitAll_Success(t *testing.T) {
	t.Parallel()
	s, app, db := setupHandlerTest(t)
	target := createUser(t, db, "committed")

	resp := doJSON(t, app, http.MethodPost,
		fmt.Sprintf("/api/admin/staging/%d/actions", target.ID),
		fiber.Map{"action": "reset_bio"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, app, http.MethodPost,
		fmt.Sprintf("/api/admin/staging/%d/dialog", target.ID),
		fiber.Map{"part": "bio"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = doJSON(t, app, http.MethodPost, "/api/admin/dialog/reasons",
		fiber.Map{"reason": "Spam or unwanted content"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = doJSON(t, app, http.MethodPost, "/api/admin/dialog/confirm", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, app, http.MethodPost, "/api/admin/staging/commit", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Committed int                    `json:"committed"`
		BatchID   string                 `json:"batch_id"`
		Actions   []models.ActionRequest `json:"actions"`
	}
	decode(t, resp, &body)
	assert.Equal(t, 1, body.Committed)
	require.NotEmpty(t, body.BatchID)

	var got models.User
	require.NoError(t, db.First(&got, target.ID).Error)
	assert.Empty(t, got.Bio)

	var logs []models.ModerationLog
	require.NoError(t, db.Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, "Bio Cleared", logs[0].Outcome)
	assert.Equal(t, body.BatchID, logs[0].BatchID, "response batch id points at the audit rows")

	assert.Empty(t, s.staging.Session(testOperatorID).Store.All(), "store is cleared after commit")
}

func TestStageAction_MetricsCountTogglesOnOnly(t *testing.T) {
	_, app, db := setupHandlerTest(t)
	target := createUser(t, db, "metricuser")
	path := fmt.Sprintf("/api/admin/staging/%d/actions", target.ID)

	counter := middleware.StagedActions.WithLabelValues(string(models.ActionResetUsername))
	before := testutil.ToFloat64(counter)

	// On, then off while reset_bio keeps the record alive, then on again.
	resp := doJSON(t, app, http.MethodPost, path, fiber.Map{"action": "reset_bio"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = doJSON(t, app, http.MethodPost, path, fiber.Map{"action": "reset_username"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = doJSON(t, app, http.MethodPost, path, fiber.Map{"action": "reset_username"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = doJSON(t, app, http.MethodPost, path, fiber.Map{"action": "reset_username"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, before+2, testutil.ToFloat64(counter),
		"toggling an action off must not count as staging it")
}

func TestLogin(t *testing.T) {
	t.Parallel()
	_, app, db := setupHandlerTest(t)

	hash, err := bcrypt.GenerateFromPassword([]byte("sw0rdfish"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.User{
		Username: "signin",
		Email:    "signin@example.com",
		Password: string(hash),
		Role:     models.RoleAdmin,
	}).Error)

	t.Run("by email", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, "/api/auth/login",
			fiber.Map{"email": "signin@example.com", "password": "sw0rdfish"})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body struct {
			Token string `json:"token"`
		}
		decode(t, resp, &body)
		assert.NotEmpty(t, body.Token)
	})

	t.Run("by username", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, "/api/auth/login",
			fiber.Map{"username": "signin", "password": "sw0rdfish"})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body struct {
			Token string `json:"token"`
		}
		decode(t, resp, &body)
		assert.NotEmpty(t, body.Token)
	})

	t.Run("wrong password", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, "/api/auth/login",
			fiber.Map{"username": "signin", "password": "nope"})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("no identifier", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, "/api/auth/login",
			fiber.Map{"password": "sw0rdfish"})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestUpdateAdminUser(t *testing.T) {
	t.Parallel()
	_, app, db := setupHandlerTest(t)
	target := createUser(t, db, "editme")
	createUser(t, db, "occupied")

	t.Run("updates profile fields", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPatch,
			fmt.Sprintf("/api/admin/users/%d", target.ID),
			fiber.Map{"username": "renamed", "bio": "corrected"})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var got models.User
		require.NoError(t, db.First(&got, target.ID).Error)
		assert.Equal(t, "renamed", got.Username)
		assert.Equal(t, "corrected", got.Bio)
	})

	t.Run("empty username rejected", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPatch,
			fmt.Sprintf("/api/admin/users/%d", target.ID),
			fiber.Map{"username": ""})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("duplicate username rejected", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPatch,
			fmt.Sprintf("/api/admin/users/%d", target.ID),
			fiber.Map{"username": "occupied"})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		var errBody models.ErrorResponse
		decode(t, resp, &errBody)
		assert.Equal(t, models.CodeValidation, errBody.Code)
	})

	t.Run("unknown user", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPatch, "/api/admin/users/99999",
			fiber.Map{"bio": "x"})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestGetAdminUsers_AnnotatesStagedState(t *testing.T) {
	t.Parallel()
	s, app, db := setupHandlerTest(t)
	staged := createUser(t, db, "stageduser")
	createUser(t, db, "plainuser")

	_, err := s.staging.Session(testOperatorID).Store.Stage(staged.ID, models.ActionResetAvatar, nil)
	require.NoError(t, err)

	resp := doJSON(t, app, http.MethodGet, "/api/admin/users?q=user", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Users []struct {
			ID          uint   `json:"id"`
			StagedState string `json:"staged_state"`
		} `json:"users"`
		Total int64 `json:"total"`
	}
	decode(t, resp, &body)
	assert.EqualValues(t, 2, body.Total)

	states := map[uint]string{}
	for _, row := range body.Users {
		states[row.ID] = row.StagedState
	}
	assert.Equal(t, "staged", states[staged.ID])
}

func TestPreviewOutcome(t *testing.T) {
	t.Parallel()
	_, app, _ := setupHandlerTest(t)

	resp := doJSON(t, app, http.MethodPost, "/api/admin/outcome", fiber.Map{
		"action":  "delete",
		"reasons": []string{"Spam or unwanted content", "Violence or threats"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Outcome string `json:"outcome"`
	}
	decode(t, resp, &body)
	assert.Equal(t, "Account Permanently Banned", body.Outcome)
}

func TestGetAdminStats(t *testing.T) {
	t.Parallel()
	_, app, db := setupHandlerTest(t)
	createUser(t, db, "extra")

	resp := doJSON(t, app, http.MethodGet, "/api/admin/stats", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stats service.ModerationStats
	decode(t, resp, &stats)
	assert.EqualValues(t, 2, stats.TotalUsers)
	assert.EqualValues(t, 1, stats.Admins)
}
