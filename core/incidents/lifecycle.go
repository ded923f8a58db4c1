package incidents

import (
	"context"
	"errors"
	"strings"

	"watchpost/core/auth"
	"watchpost/core/rbac"
	"watchpost/core/store"
	"watchpost/core/utils"
)

type State string

const (
	StateUnassigned State = "unassigned"
	StateAssigned   State = "assigned"
	StateResolved   State = "resolved"
)

// StateOf derives the lifecycle state from stored fields only.
func StateOf(inc *store.Incident) State {
	switch {
	case inc.Resolved:
		return StateResolved
	case inc.AssignedTo != nil:
		return StateAssigned
	default:
		return StateUnassigned
	}
}

const defaultMaxAttempts = 3

// Engine is the only writer of assignment and resolution state. Each
// transition checks its authorization row, re-reads the record, and commits
// with a version compare-and-set, retrying when another writer got there first.
type Engine struct {
	store       store.IncidentsStore
	users       store.UsersStore
	policy      *rbac.Policy
	clock       utils.Clock
	logger      *utils.Logger
	maxAttempts int
}

func NewEngine(is store.IncidentsStore, users store.UsersStore, policy *rbac.Policy, clock utils.Clock, logger *utils.Logger) *Engine {
	if clock == nil {
		clock = utils.SystemClock{}
	}
	return &Engine{store: is, users: users, policy: policy, clock: clock, logger: logger, maxAttempts: defaultMaxAttempts}
}

// Assign sets assignedTo. A nil username is an unassign.
func (e *Engine) Assign(ctx context.Context, actor auth.Identity, id int64, username *string) (*store.Incident, error) {
	if username == nil {
		return e.Unassign(ctx, actor, id)
	}
	const op = "incidents.assign"
	if err := e.requireAdmin(actor, op); err != nil {
		return nil, err
	}
	target := strings.TrimSpace(*username)
	if target == "" {
		return nil, wrapValidation(op, invalid("username", "required"))
	}
	// The incident is checked before the target so a resolved or missing
	// incident reports IllegalTransition or NotFound regardless of the username.
	cur, err := e.load(ctx, op, id)
	if err != nil {
		return nil, err
	}
	if StateOf(cur) == StateResolved {
		return nil, wrap(op, ErrIllegalTransition)
	}
	user, err := e.users.FindByUsername(ctx, target)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, wrap(op, ErrNotFound)
	}
	if user.Role != rbac.RoleResolver {
		return nil, wrapValidation(op, invalid("username", "not_resolver"))
	}
	inc, err := e.mutate(ctx, op, id, func(next *store.Incident) error {
		name := user.Username
		next.AssignedTo = &name
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.log("assigned incident=%d to=%s by=%s", id, user.Username, actor.Username)
	return inc, nil
}

func (e *Engine) Unassign(ctx context.Context, actor auth.Identity, id int64) (*store.Incident, error) {
	const op = "incidents.unassign"
	if err := e.requireAdmin(actor, op); err != nil {
		return nil, err
	}
	inc, err := e.mutate(ctx, op, id, func(next *store.Incident) error {
		next.AssignedTo = nil
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.log("unassigned incident=%d by=%s", id, actor.Username)
	return inc, nil
}

// Resolve is allowed for admins and for the resolver the incident is assigned to.
func (e *Engine) Resolve(ctx context.Context, actor auth.Identity, id int64) (*store.Incident, error) {
	const op = "incidents.resolve"
	if !actor.Authenticated() {
		return nil, wrap(op, ErrUnauthenticated)
	}
	roles := actor.Roles()
	canAny := e.policy.Allowed(roles, rbac.PermIncidentsResolveAny)
	canOwn := e.policy.Allowed(roles, rbac.PermIncidentsResolveOwn)
	if !canAny && !canOwn {
		return nil, wrap(op, ErrForbidden)
	}
	for attempt := 0; attempt < e.attempts(); attempt++ {
		cur, err := e.load(ctx, op, id)
		if err != nil {
			return nil, err
		}
		if StateOf(cur) == StateResolved {
			return nil, wrap(op, ErrIllegalTransition)
		}
		if !canAny && cur.Assignee() != actor.Username {
			return nil, wrap(op, ErrForbidden)
		}
		next := *cur
		now := e.clock.Now()
		next.ResolvedAt = &now
		err = e.store.ResolveIncident(ctx, &next, cur.Version)
		if errors.Is(err, store.ErrConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		e.log("resolved incident=%d by=%s", id, actor.Username)
		return &next, nil
	}
	return nil, wrap(op, ErrConflict)
}

func (e *Engine) mutate(ctx context.Context, op string, id int64, apply func(next *store.Incident) error) (*store.Incident, error) {
	for attempt := 0; attempt < e.attempts(); attempt++ {
		cur, err := e.load(ctx, op, id)
		if err != nil {
			return nil, err
		}
		if StateOf(cur) == StateResolved {
			return nil, wrap(op, ErrIllegalTransition)
		}
		next := *cur
		if err := apply(&next); err != nil {
			return nil, err
		}
		err = e.store.UpdateIncident(ctx, &next, cur.Version)
		if errors.Is(err, store.ErrConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return &next, nil
	}
	return nil, wrap(op, ErrConflict)
}

func (e *Engine) load(ctx context.Context, op string, id int64) (*store.Incident, error) {
	inc, err := e.store.GetIncident(ctx, id)
	if err != nil {
		return nil, err
	}
	if inc == nil {
		return nil, wrap(op, ErrNotFound)
	}
	return inc, nil
}

func (e *Engine) requireAdmin(actor auth.Identity, op string) error {
	if !actor.Authenticated() {
		return wrap(op, ErrUnauthenticated)
	}
	if !e.policy.Allowed(actor.Roles(), rbac.PermIncidentsAssign) {
		return wrap(op, ErrForbidden)
	}
	return nil
}

func (e *Engine) attempts() int {
	if e.maxAttempts <= 0 {
		return 1
	}
	return e.maxAttempts
}

func (e *Engine) log(format string, args ...any) {
	if e.logger != nil {
		e.logger.Printf(format, args...)
	}
}

func wrapValidation(op string, verr *ValidationError) error {
	return &opError{op: op, err: verr}
}

type opError struct {
	op  string
	err error
}

func (e *opError) Error() string { return e.op + ": " + e.err.Error() }
func (e *opError) Unwrap() error { return e.err }
