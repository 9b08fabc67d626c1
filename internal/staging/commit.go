package staging

import (
	"context"
	"strings"
	"sync"

	"tribunal/internal/models"
)

// Dispatcher is the bulk-action transport the committer hands the
// flattened request list to. The endpoint is expected to apply the batch
// all-or-nothing and returns the batch ID it assigned; there is no
// partial-success handling on this side.
type Dispatcher interface {
	ExecuteBulk(ctx context.Context, reqs []models.ActionRequest) (string, error)
}

// CommitHook runs after a successful commit with the batch ID and the
// requests that were applied. Used to refresh the user list and
// statistics collaborators.
type CommitHook func(ctx context.Context, batchID string, reqs []models.ActionRequest)

// Committer flattens staged state into atomic requests, validates the
// commit preconditions and dispatches the batch. A busy flag rejects a
// second commit while one is in flight so partially-overlapping user
// sets can never be double-submitted.
type Committer struct {
	mu         sync.Mutex
	busy       bool
	dispatcher Dispatcher
	hooks      []CommitHook
}

// NewCommitter returns a Committer dispatching through d.
func NewCommitter(d Dispatcher) *Committer {
	return &Committer{dispatcher: d}
}

// OnSuccess registers a hook invoked after every successful commit.
func (c *Committer) OnSuccess(hook CommitHook) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks = append(c.hooks, hook)
}

// CommitAll submits every staged entry as one bulk request and clears
// the whole store on success, returning the batch ID the endpoint
// assigned. On any failure the store is left untouched.
func (c *Committer) CommitAll(ctx context.Context, store *Store) (string, []models.ActionRequest, error) {
	return c.commit(ctx, store, store.SnapshotForCommit(), func() { store.ClearAll() })
}

// CommitUser submits only the given user's staged entry and removes it
// from the store on success.
func (c *Committer) CommitUser(ctx context.Context, store *Store, userID uint) (string, []models.ActionRequest, error) {
	var reqs []models.ActionRequest
	for _, req := range store.SnapshotForCommit() {
		if req.UserID == userID {
			reqs = append(reqs, req)
		}
	}
	return c.commit(ctx, store, reqs, func() { store.Clear(userID) })
}

func (c *Committer) commit(ctx context.Context, store *Store, reqs []models.ActionRequest, clear func()) (string, []models.ActionRequest, error) {
	if len(reqs) == 0 {
		return "", nil, models.NewValidationError("nothing staged to commit")
	}
	// Local preconditions fail fast, before the busy flag and before any
	// network work.
	if err := Validate(reqs); err != nil {
		return "", nil, err
	}

	if err := c.acquire(); err != nil {
		return "", nil, err
	}
	defer c.release()

	batchID, err := c.dispatcher.ExecuteBulk(ctx, reqs)
	if err != nil {
		return "", nil, models.NewCommitFailedError(err)
	}

	clear()
	for _, hook := range c.snapshotHooks() {
		hook(ctx, batchID, reqs)
	}
	return batchID, reqs, nil
}

// Validate checks the commit preconditions over a flattened request
// list: every request needs a non-empty reason list and every restrict
// request a non-blank duration.
func Validate(reqs []models.ActionRequest) error {
	for _, req := range reqs {
		if len(req.Reasons) == 0 {
			return models.NewMissingJustificationError(req.UserID, req.Action)
		}
		if req.Action == models.ActionRestrict && strings.TrimSpace(req.Duration) == "" {
			return models.NewMissingDurationError(req.UserID)
		}
	}
	return nil
}

func (c *Committer) acquire() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return models.NewInvalidStateError("a bulk commit is already in flight")
	}
	c.busy = true
	return nil
}

func (c *Committer) release() {
	c.mu.Lock()
	c.busy = false
	c.mu.Unlock()
}

func (c *Committer) snapshotHooks() []CommitHook {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]CommitHook(nil), c.hooks...)
}
