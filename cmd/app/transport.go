package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lmco/eurekastreams-sub009/internal/domain"
)

const (
	transportSocket = "uds"
	transportHTTP   = "http"
)

// transport reaches a running server. Failed calls come back as *remoteError, which unwraps to the
// domain error the server reported.
type transport interface {
	Login(ctx context.Context, login, password, tokenName string) (loginResult, error)
	WhoAmI(ctx context.Context) (whoAmI, error)
	Logout(ctx context.Context) error
	Execute(ctx context.Context, action string, params json.RawMessage, out any) error
	Actions(ctx context.Context) ([]string, error)
}

type loginResult struct {
	PersonID  int64  `json:"person_id"`
	AccountID string `json:"account_id"`
	Token     string `json:"token"`
}

func newTransport(cfg cliConfig) (transport, error) {
	switch cfg.Transport {
	case transportSocket:
		return newSocketTransport(cfg.Socket, cfg.Token), nil
	case transportHTTP:
		return newHTTPTransport(cfg.Server, cfg.Token), nil
	}
	return nil, fmt.Errorf("unknown transport %q (want %s or %s)", cfg.Transport, transportSocket, transportHTTP)
}

type remoteError struct {
	// Code is the HTTP status or the JSON-RPC error code.
	Code    int
	Message string
	kind    error
}

func (e *remoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server error (%d)", e.Code)
	}
	return fmt.Sprintf("server error (%d): %s", e.Code, e.Message)
}

func (e *remoteError) Unwrap() error { return e.kind }

func newRemoteError(code int, message string, fields map[string]string, kind error) *remoteError {
	if len(fields) > 0 {
		kind = &domain.ValidationError{Errors: fields}
	}
	return &remoteError{Code: code, Message: message, kind: kind}
}

func kindForStatus(status int) error {
	switch status {
	case 400:
		return domain.ErrBadRequest
	case 401:
		return domain.ErrUnauthorized
	case 403:
		return domain.ErrForbidden
	case 404:
		return domain.ErrNotFound
	case 409:
		return domain.ErrReindexRunning
	}
	return nil
}

// kindForRPCCode follows the application codes of the socket server: the HTTP status times 100.
func kindForRPCCode(code int) error {
	switch code {
	case -32602:
		return domain.ErrBadRequest
	case 40000, 40100, 40300, 40400, 40900:
		return kindForStatus(code / 100)
	}
	return nil
}
