package main

import (
	"context"
	"encoding/json"
	"net"
	"sync/atomic"
	"time"
)

type socketTransport struct {
	socket string
	token  string
	nextID atomic.Int64
}

func newSocketTransport(socket, token string) *socketTransport {
	return &socketTransport{socket: socket, token: token}
}

type rpcCall struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
	ID      int64  `json:"id"`
}

type rpcReply struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int             `json:"code"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	} `json:"error"`
}

// call sends one request per connection; the server answers each line in order.
func (t *socketTransport) call(ctx context.Context, method string, params, out any) error {
	dialer := net.Dialer{Timeout: 5 * time.Second}
	conn, err := dialer.DialContext(ctx, "unix", t.socket)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if err := json.NewEncoder(conn).Encode(rpcCall{JSONRPC: "2.0", Method: method, Params: params, ID: t.nextID.Add(1)}); err != nil {
		return err
	}
	var reply rpcReply
	if err := json.NewDecoder(conn).Decode(&reply); err != nil {
		return err
	}
	if e := reply.Error; e != nil {
		var fields map[string]string
		if len(e.Data) > 0 {
			_ = json.Unmarshal(e.Data, &fields)
		}
		return newRemoteError(e.Code, e.Message, fields, kindForRPCCode(e.Code))
	}
	if out == nil || len(reply.Result) == 0 {
		return nil
	}
	return json.Unmarshal(reply.Result, out)
}

func (t *socketTransport) Login(ctx context.Context, login, password, tokenName string) (loginResult, error) {
	var out loginResult
	err := t.call(ctx, "auth.login", map[string]string{"login": login, "password": password, "token_name": tokenName}, &out)
	return out, err
}

func (t *socketTransport) WhoAmI(ctx context.Context) (whoAmI, error) {
	var out whoAmI
	err := t.call(ctx, "auth.whoami", map[string]string{"token": t.token}, &out)
	return out, err
}

// Logout is local only: the socket server has no session to end.
func (t *socketTransport) Logout(context.Context) error { return nil }

func (t *socketTransport) Execute(ctx context.Context, action string, params json.RawMessage, out any) error {
	return t.call(ctx, "action.execute", map[string]any{"token": t.token, "action": action, "params": params}, out)
}

func (t *socketTransport) Actions(ctx context.Context) ([]string, error) {
	var names []string
	err := t.call(ctx, "actions.list", map[string]string{"token": t.token}, &names)
	return names, err
}
