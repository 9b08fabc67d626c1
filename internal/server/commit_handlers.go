package server

import (
	"tribunal/internal/middleware"
	"tribunal/internal/models"
	"tribunal/internal/observability"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel/attribute"
)

// CommitAll handles POST /api/admin/staging/commit. The whole staged set
// goes out as one all-or-nothing batch; on failure nothing is cleared so
// the operator can retry.
func (s *Server) CommitAll(c *fiber.Ctx) error {
	sess := s.staging.Session(operatorID(c))

	span, ctx := observability.NewSpan(c.UserContext(), "staging.commit_all")
	defer span.End()

	batchID, reqs, err := sess.Committer.CommitAll(ctx, sess.Store)
	if err != nil {
		span.SetError(err)
		middleware.BulkCommits.WithLabelValues(commitOutcome(err)).Inc()
		return models.RespondWithError(c, statusForError(err), err)
	}

	span.AddAttributes(
		attribute.String("commit.batch_id", batchID),
		attribute.Int("commit.actions", len(reqs)))
	middleware.BulkCommits.WithLabelValues("success").Inc()

	return c.JSON(fiber.Map{
		"committed": len(reqs),
		"batch_id":  batchID,
		"actions":   reqs,
	})
}

// CommitUser handles POST /api/admin/staging/:id/commit, committing only
// one user's staged actions and leaving the rest staged.
func (s *Server) CommitUser(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	sess := s.staging.Session(operatorID(c))

	span, ctx := observability.NewSpan(c.UserContext(), "staging.commit_user")
	span.AddAttributes(attribute.Int("commit.user_id", int(userID)))
	defer span.End()

	batchID, reqs, err := sess.Committer.CommitUser(ctx, sess.Store, userID)
	if err != nil {
		span.SetError(err)
		middleware.BulkCommits.WithLabelValues(commitOutcome(err)).Inc()
		return models.RespondWithError(c, statusForError(err), err)
	}

	span.AddAttributes(attribute.String("commit.batch_id", batchID))
	middleware.BulkCommits.WithLabelValues("success").Inc()

	return c.JSON(fiber.Map{
		"committed": len(reqs),
		"batch_id":  batchID,
		"actions":   reqs,
	})
}

// commitOutcome buckets commit errors for the metrics label: precondition
// rejections versus downstream failures.
func commitOutcome(err error) string {
	switch {
	case models.HasCode(err, models.CodeCommitFailed):
		return "failed"
	default:
		return "rejected"
	}
}
