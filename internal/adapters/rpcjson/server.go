package rpcjson

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/lmco/eurekastreams-sub009/internal/application"
	"github.com/lmco/eurekastreams-sub009/internal/domain"
	"github.com/lmco/eurekastreams-sub009/internal/logging"
	"github.com/sirupsen/logrus"
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602

	codeValidation   = 40000
	codeUnauthorized = 40100
	codeForbidden    = 40300
	codeNotFound     = 40400
	codeConflict     = 40900
	codeInternal     = 50000
)

type Server struct {
	service  *application.Service
	exec     *application.Executor
	listener net.Listener
	path     string
	log      *logrus.Entry

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      any             `json:"id"`
}

type response struct {
	JSONRPC string    `json:"jsonrpc"`
	Result  any       `json:"result,omitempty"`
	Error   *rpcError `json:"error,omitempty"`
	ID      any       `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Start listens on a unix socket readable only by the owner.
func Start(path string, service *application.Service, exec *application.Executor, log logrus.FieldLogger) (*Server, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("rpc socket path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	_ = os.Remove(path)
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(path, 0o600); err != nil {
		_ = ln.Close()
		_ = os.Remove(path)
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		service:  service,
		exec:     exec,
		listener: ln,
		path:     path,
		log:      logging.Component(log, "rpc"),
		ctx:      ctx,
		cancel:   cancel,
	}
	s.wg.Add(1)
	go s.serve()
	s.log.WithField("socket", path).Info("rpc listening")
	return s, nil
}

func (s *Server) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

func (s *Server) Close() error {
	s.cancel()
	err := s.listener.Close()
	_ = os.Remove(s.path)
	s.wg.Wait()
	return err
}

func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer func() { _ = conn.Close() }()
	go func() {
		<-s.ctx.Done()
		_ = conn.Close()
	}()

	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)
	for {
		var req request
		if err := dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				return
			}
			_ = enc.Encode(errorResponse(nil, codeParseError, "parse error", nil))
			return
		}
		if err := enc.Encode(s.dispatch(s.ctx, req)); err != nil {
			return
		}
	}
}

func (s *Server) dispatch(ctx context.Context, req request) response {
	if req.JSONRPC != "2.0" || strings.TrimSpace(req.Method) == "" {
		return errorResponse(req.ID, codeInvalidRequest, "invalid request", nil)
	}

	switch req.Method {
	case "auth.login":
		return s.handleAuthLogin(ctx, req)
	case "auth.whoami":
		p, errResp, ok := s.authn(ctx, req)
		if !ok {
			return errResp
		}
		return result(req.ID, map[string]any{"person_id": p.PersonID, "account_id": p.AccountID, "permissions": p.PermissionList()})
	case "actions.list":
		if _, errResp, ok := s.authn(ctx, req); !ok {
			return errResp
		}
		return result(req.ID, s.exec.Names())
	case "action.execute":
		return s.handleExecute(ctx, req)
	}
	return errorResponse(req.ID, codeMethodNotFound, "method not found", nil)
}

func (s *Server) handleAuthLogin(ctx context.Context, req request) response {
	var p struct {
		Login     string `json:"login"`
		Password  string `json:"password"`
		TokenName string `json:"token_name"`
	}
	if !decodeParams(req.Params, &p) {
		return invalidParams(req.ID)
	}
	principal, token, err := s.service.LoginWithAPIToken(ctx, p.Login, p.Password, defaultTokenName(p.TokenName), nil)
	if err != nil {
		return errorResponse(req.ID, codeUnauthorized, "invalid credentials", nil)
	}
	return result(req.ID, map[string]any{"person_id": principal.PersonID, "account_id": principal.AccountID, "token": token})
}

func (s *Server) handleExecute(ctx context.Context, req request) response {
	p, errResp, ok := s.authn(ctx, req)
	if !ok {
		return errResp
	}
	var in struct {
		Action string          `json:"action"`
		Params json.RawMessage `json:"params"`
	}
	if !decodeParams(req.Params, &in) || strings.TrimSpace(in.Action) == "" {
		return invalidParams(req.ID)
	}
	out, err := s.exec.Execute(ctx, in.Action, p, in.Params)
	if err != nil {
		return appError(req.ID, err)
	}
	return result(req.ID, out)
}

func (s *Server) authn(ctx context.Context, req request) (domain.Principal, response, bool) {
	var p struct {
		Token string `json:"token"`
	}
	if !decodeParams(req.Params, &p) {
		return domain.Principal{}, invalidParams(req.ID), false
	}
	principal, err := s.service.AuthenticateBearerToken(ctx, p.Token)
	if err != nil {
		return domain.Principal{}, errorResponse(req.ID, codeUnauthorized, "unauthorized", nil), false
	}
	return principal, response{}, true
}

func decodeParams(raw json.RawMessage, out any) bool {
	if len(raw) == 0 {
		return false
	}
	return json.Unmarshal(raw, out) == nil
}

func defaultTokenName(name string) string {
	if strings.TrimSpace(name) == "" {
		return "rpc"
	}
	return name
}

func result(id any, out any) response {
	return response{JSONRPC: "2.0", Result: out, ID: id}
}

func errorResponse(id any, code int, message string, data any) response {
	return response{JSONRPC: "2.0", Error: &rpcError{Code: code, Message: message, Data: data}, ID: id}
}

func invalidParams(id any) response {
	return errorResponse(id, codeInvalidParams, "invalid params", nil)
}

func appError(id any, err error) response {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return errorResponse(id, codeValidation, "validation failed", verr.Errors)
	case errors.Is(err, domain.ErrBadRequest):
		return errorResponse(id, codeInvalidParams, err.Error(), nil)
	case errors.Is(err, domain.ErrInvalidToken):
		return errorResponse(id, codeValidation, err.Error(), nil)
	case errors.Is(err, domain.ErrNotFound):
		return errorResponse(id, codeNotFound, err.Error(), nil)
	case errors.Is(err, domain.ErrForbidden):
		return errorResponse(id, codeForbidden, "forbidden", nil)
	case errors.Is(err, domain.ErrUnauthorized):
		return errorResponse(id, codeUnauthorized, "unauthorized", nil)
	case errors.Is(err, domain.ErrReindexRunning):
		return errorResponse(id, codeConflict, err.Error(), nil)
	}
	return errorResponse(id, codeInternal, fmt.Sprintf("internal error: %v", err), nil)
}
