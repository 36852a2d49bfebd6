// Package write runs resource schemas as single transactional writes on behalf of the org in the request
// context. A write either commits all of its changes or none; follow-up work registered with Env.AfterCommit
// runs only once the transaction has committed.
package write

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"tenant-messaging-api/backend/internal/audit"
	orgdomain "tenant-messaging-api/backend/internal/organization/domain"
	"tenant-messaging-api/backend/internal/pipeline"
	"tenant-messaging-api/backend/internal/policy/engine"
	"tenant-messaging-api/backend/internal/resolver"
	"tenant-messaging-api/backend/internal/server/middleware"
	"tenant-messaging-api/backend/internal/store"
)

var (
	// ErrNoOrg is returned when the request context carries no org.
	ErrNoOrg = errors.New("write: no org in request context")
	// ErrOrgInactive is returned when the org in the request context is unknown or suspended.
	ErrOrgInactive = errors.New("write: org is unknown or not active")
)

// Writer runs schemas against a transactional store.
type Writer struct {
	store  store.Transactor
	policy engine.Evaluator
	audit  audit.AuditLogger
	log    *zap.Logger
	now    func() time.Time
}

// Option configures a Writer.
type Option func(*Writer)

// WithPolicy sets the write policy evaluator. The default is the built-in OPA policy without org policies.
func WithPolicy(p engine.Evaluator) Option {
	return func(w *Writer) {
		if p != nil {
			w.policy = p
		}
	}
}

// WithAudit records every successful write through a.
func WithAudit(a audit.AuditLogger) Option {
	return func(w *Writer) { w.audit = a }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(w *Writer) {
		if log != nil {
			w.log = log
		}
	}
}

// WithClock sets the time source stamped on created and modified rows.
func WithClock(now func() time.Time) Option {
	return func(w *Writer) { w.now = now }
}

// NewWriter returns a Writer over st.
func NewWriter(st store.Transactor, opts ...Option) *Writer {
	w := &Writer{store: st, log: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(w)
	}
	if w.policy == nil {
		w.policy = engine.NewOPAEvaluator(nil, w.log)
	}
	return w
}

// Logger returns the writer's logger for the services built on it.
func (w *Writer) Logger() *zap.Logger { return w.log }

// Env is the explicit per-request environment handed to every validator, rule and mutator of a schema.
type Env struct {
	Org     *orgdomain.Org
	UserID  string
	Now     time.Time
	Store   store.Store
	Resolve *resolver.Resolver

	policy  engine.Evaluator
	updated bool
	after   []func()
}

// OrgID returns the id of the org being written.
func (e *Env) OrgID() string { return e.Org.ID }

// Updating marks the write as an update of an existing entity for the audit trail.
func (e *Env) Updating() { e.updated = true }

// AfterCommit registers fn to run after the transaction commits. It never runs for a failed write.
func (e *Env) AfterCommit(fn func()) {
	e.after = append(e.after, fn)
}

// Allow evaluates the write policy for resource. The first denial is returned as a domain rule failure of
// field, which may be empty for a global error.
func (e *Env) Allow(ctx context.Context, resource, field string, rawAddresses bool) error {
	denials, err := e.policy.DenyWrite(ctx, engine.WriteInput{
		OrgID:        e.Org.ID,
		Anonymous:    e.Org.Anonymous,
		UserID:       e.UserID,
		Resource:     resource,
		RawAddresses: rawAddresses,
	})
	if err != nil {
		return fmt.Errorf("evaluate write policy: %w", err)
	}
	if len(denials) > 0 {
		return pipeline.Denied(field, "%s", denials[0])
	}
	return nil
}

// Run validates body against schema and applies it in one transaction for the org in ctx.
// Expected failures are returned as *pipeline.ValidationError and leave no trace in the store.
func Run[T any](ctx context.Context, w *Writer, schema *pipeline.Schema[*Env, T], body any) (T, error) {
	var zero T
	orgID, ok := middleware.GetOrgID(ctx)
	if !ok {
		return zero, ErrNoOrg
	}
	userID, _ := middleware.GetUserID(ctx)

	org, err := w.store.Orgs().GetOrganizationByID(ctx, orgID)
	if err != nil {
		return zero, fmt.Errorf("load org: %w", err)
	}
	if !org.IsActive() {
		return zero, ErrOrgInactive
	}

	var (
		out T
		env *Env
	)
	err = w.store.WithinTx(ctx, func(ctx context.Context, st store.Store) error {
		env = &Env{
			Org:     org,
			UserID:  userID,
			Now:     w.now().UTC(),
			Store:   st,
			Resolve: resolver.New(st, org.ID),
			policy:  w.policy,
		}
		var err error
		out, err = schema.Run(ctx, env, body, nil)
		return err
	})
	if err != nil {
		if _, ok := pipeline.AsValidation(err); ok {
			w.log.Debug("write rejected", zap.String("resource", schema.Resource), zap.String("org_id", org.ID), zap.Error(err))
		} else {
			w.log.Error("write failed", zap.String("resource", schema.Resource), zap.String("org_id", org.ID), zap.Error(err))
		}
		return zero, err
	}

	for _, fn := range env.after {
		fn()
	}

	action := audit.ActionCreate
	if env.updated {
		action = audit.ActionUpdate
	}
	if w.audit != nil {
		w.audit.LogEvent(ctx, org.ID, userID, action, schema.Resource, "")
	}
	w.log.Info("write applied",
		zap.String("resource", schema.Resource), zap.String("action", action),
		zap.String("org_id", org.ID), zap.String("user_id", userID))
	return out, nil
}
