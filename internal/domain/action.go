package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrForbidden      = errors.New("forbidden")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrBadRequest     = errors.New("bad request")
	ErrReindexRunning = errors.New("reindex already running")
	ErrInvalidToken   = errors.New("invalid token")
	ErrQueueFull      = errors.New("task queue full")
)

type Principal struct {
	PersonID     int64               `json:"personId"`
	AccountID    string              `json:"accountId"`
	OpenSocialID string              `json:"openSocialId"`
	Permissions  map[string]struct{} `json:"-"`
}

// SystemPrincipal runs scheduled and queued work.
func SystemPrincipal() Principal {
	return Principal{AccountID: "system", Permissions: map[string]struct{}{"*": {}}}
}

func (p Principal) Can(permission string) bool {
	if permission == "" {
		return true
	}
	if _, ok := p.Permissions["*"]; ok {
		return true
	}
	_, ok := p.Permissions[permission]
	return ok
}

func (p Principal) PermissionList() []string {
	out := make([]string, 0, len(p.Permissions))
	for k := range p.Permissions {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

type UserActionRequest struct {
	ActionKey string          `json:"actionKey"`
	Params    json.RawMessage `json:"params,omitempty"`
}

func NewUserActionRequest(actionKey string, params any) (UserActionRequest, error) {
	if params == nil {
		return UserActionRequest{ActionKey: actionKey}, nil
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return UserActionRequest{}, fmt.Errorf("encode %s params: %w", actionKey, err)
	}
	return UserActionRequest{ActionKey: actionKey, Params: raw}, nil
}

// ActionContext is handed to every action run. Follow-up requests collected here are queued only
// when the run succeeds.
type ActionContext struct {
	Principal Principal
	Params    json.RawMessage
	ActionID  string
	requests  []UserActionRequest
}

// Decode unmarshals the params into out. Empty params leave out untouched.
func (ac *ActionContext) Decode(out any) error {
	trimmed := bytes.TrimSpace(ac.Params)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return nil
}

func (ac *ActionContext) Enqueue(actionKey string, params any) error {
	req, err := NewUserActionRequest(actionKey, params)
	if err != nil {
		return err
	}
	ac.requests = append(ac.requests, req)
	return nil
}

// Adopt appends requests collected by a nested context.
func (ac *ActionContext) Adopt(requests ...UserActionRequest) {
	ac.requests = append(ac.requests, requests...)
}

func (ac *ActionContext) Requests() []UserActionRequest {
	return ac.requests
}

type ExecutionError struct {
	Action string
	Err    error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Action, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

type ValidationError struct {
	Errors map[string]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{Errors: map[string]string{}}
}

func (e *ValidationError) Add(field, message string) {
	if _, exists := e.Errors[field]; !exists {
		e.Errors[field] = message
	}
}

func (e *ValidationError) HasErrors() bool { return len(e.Errors) > 0 }

// OrNil lets validators return a typed nil as a plain nil error.
func (e *ValidationError) OrNil() error {
	if e == nil || !e.HasErrors() {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Errors))
	for k := range e.Errors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Errors[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
