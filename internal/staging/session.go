package staging

import (
	"context"
	"sync"

	"tribunal/internal/models"
)

// Session bundles the staging state owned by one operator: their store,
// their single-slot dialog and their committer. Different operators
// never share staged state.
type Session struct {
	Store     *Store
	Dialog    *Dialog
	Committer *Committer
}

// Registry hands out per-operator sessions, creating them on first use.
type Registry struct {
	mu         sync.Mutex
	dispatcher Dispatcher
	sessions   map[uint]*Session

	// OnCommit, when set, is attached to every new session's committer
	// and receives the operator ID and batch ID along with the applied
	// requests.
	OnCommit func(ctx context.Context, operatorID uint, batchID string, reqs []models.ActionRequest)
}

// NewRegistry returns a Registry whose sessions dispatch through d.
func NewRegistry(d Dispatcher) *Registry {
	return &Registry{
		dispatcher: d,
		sessions:   make(map[uint]*Session),
	}
}

// Session returns the operator's session, creating it if absent.
func (r *Registry) Session(operatorID uint) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sess, ok := r.sessions[operatorID]; ok {
		return sess
	}

	store := NewStore()
	sess := &Session{
		Store:     store,
		Dialog:    NewDialog(store),
		Committer: NewCommitter(r.dispatcher),
	}
	if r.OnCommit != nil {
		onCommit := r.OnCommit
		sess.Committer.OnSuccess(func(ctx context.Context, batchID string, reqs []models.ActionRequest) {
			onCommit(ctx, operatorID, batchID, reqs)
		})
	}
	r.sessions[operatorID] = sess
	return sess
}

// Drop discards the operator's session and any staged state in it.
func (r *Registry) Drop(operatorID uint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, operatorID)
}
