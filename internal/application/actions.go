package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lmco/eurekastreams-sub009/internal/domain"
	"github.com/lmco/eurekastreams-sub009/internal/metrics"
	"github.com/sirupsen/logrus"
)

type ActionFunc func(ctx context.Context, ac *domain.ActionContext) (any, error)

// Action is one named execution strategy. An empty Permission means any authenticated principal.
type Action struct {
	Name       string
	Permission string
	Run        ActionFunc
}

type Executor struct {
	mu      sync.RWMutex
	actions map[string]Action
	queue   domain.TaskQueue
	log     *logrus.Entry
}

func NewExecutor(queue domain.TaskQueue, log logrus.FieldLogger) *Executor {
	return &Executor{
		actions: make(map[string]Action),
		queue:   queue,
		log:     log.WithField("component", "executor"),
	}
}

// Register adds actions to the registry. Registering the same name twice panics.
func (e *Executor) Register(actions ...Action) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, a := range actions {
		if a.Name == "" || a.Run == nil {
			panic("application: action needs a name and a run func")
		}
		if _, exists := e.actions[a.Name]; exists {
			panic(fmt.Sprintf("application: action %q registered twice", a.Name))
		}
		e.actions[a.Name] = a
	}
}

func (e *Executor) Lookup(name string) (Action, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	a, ok := e.actions[name]
	return a, ok
}

func (e *Executor) Names() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.actions))
	for name := range e.actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Execute runs the named action for principal. Follow-up requests collected during the run are
// queued only when it succeeds; a full queue is logged and does not fail the call.
func (e *Executor) Execute(ctx context.Context, name string, principal domain.Principal, params json.RawMessage) (any, error) {
	start := time.Now()
	result, requests, err := e.run(ctx, name, principal, params)
	elapsed := time.Since(start)

	label := name
	if _, ok := e.Lookup(name); !ok {
		label = "unknown"
	}
	metrics.RecordAction(label, actionStatus(err), elapsed)

	entry := e.log.WithFields(logrus.Fields{
		"action":    name,
		"principal": principal.AccountID,
		"duration":  elapsed,
	})
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			entry.WithField("errors", verr.Errors).Info("action rejected")
		} else {
			entry.WithError(err).Warn("action failed")
		}
		return nil, err
	}

	if len(requests) > 0 && e.queue != nil {
		if qerr := e.queue.Enqueue(ctx, requests...); qerr != nil {
			entry.WithError(qerr).WithField("requests", len(requests)).Warn("follow-up requests not queued")
		}
	}
	entry.WithField("queued", len(requests)).Debug("action executed")
	return result, nil
}

// ExecuteRequest runs a queued request as the system principal.
func (e *Executor) ExecuteRequest(ctx context.Context, req domain.UserActionRequest) error {
	_, err := e.Execute(ctx, req.ActionKey, domain.SystemPrincipal(), req.Params)
	return err
}

func (e *Executor) run(ctx context.Context, name string, principal domain.Principal, params json.RawMessage) (any, []domain.UserActionRequest, error) {
	action, ok := e.Lookup(name)
	if !ok {
		return nil, nil, &domain.ExecutionError{Action: name, Err: fmt.Errorf("%w: unknown action", domain.ErrNotFound)}
	}
	if !principal.Can(action.Permission) {
		return nil, nil, &domain.ExecutionError{Action: name, Err: domain.ErrForbidden}
	}

	ac := &domain.ActionContext{Principal: principal, Params: params, ActionID: uuid.NewString()}
	result, err := action.Run(ctx, ac)
	if err != nil {
		var ee *domain.ExecutionError
		if errors.As(err, &ee) {
			return nil, nil, err
		}
		return nil, nil, &domain.ExecutionError{Action: name, Err: err}
	}
	return result, ac.Requests(), nil
}

func actionStatus(err error) string {
	var verr *domain.ValidationError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &verr), errors.Is(err, domain.ErrBadRequest):
		return "invalid"
	case errors.Is(err, domain.ErrForbidden), errors.Is(err, domain.ErrUnauthorized):
		return "forbidden"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
