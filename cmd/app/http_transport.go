package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type httpTransport struct {
	client *http.Client
	server string
	token  string
}

func newHTTPTransport(server, token string) *httpTransport {
	return &httpTransport{
		client: &http.Client{Timeout: 30 * time.Second},
		server: strings.TrimRight(server, "/"),
		token:  token,
	}
}

// errorBody is what the API writes for a failed request.
type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}

func (t *httpTransport) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	switch v := in.(type) {
	case nil:
	case json.RawMessage:
		body = bytes.NewReader(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, t.server+path, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if t.token != "" {
		req.Header.Set("Authorization", "Bearer "+t.token)
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		var eb errorBody
		if json.Unmarshal(payload, &eb) != nil || eb.Error == "" {
			eb.Error = strings.TrimSpace(string(payload))
		}
		return newRemoteError(resp.StatusCode, eb.Error, eb.Fields, kindForStatus(resp.StatusCode))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (t *httpTransport) Login(ctx context.Context, login, password, tokenName string) (loginResult, error) {
	var out loginResult
	err := t.do(ctx, http.MethodPost, "/api/auth/login", map[string]string{
		"login":      login,
		"password":   password,
		"mode":       "token",
		"token_name": tokenName,
	}, &out)
	return out, err
}

func (t *httpTransport) WhoAmI(ctx context.Context) (whoAmI, error) {
	var out whoAmI
	err := t.do(ctx, http.MethodGet, "/api/auth/whoami", nil, &out)
	return out, err
}

func (t *httpTransport) Logout(ctx context.Context) error {
	return t.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

// Execute posts params to the action route and unwraps the {"result": ...} envelope into out.
func (t *httpTransport) Execute(ctx context.Context, action string, params json.RawMessage, out any) error {
	var in any
	if len(params) > 0 {
		in = params
	}
	var envelope struct {
		Result json.RawMessage `json:"result"`
	}
	if err := t.do(ctx, http.MethodPost, "/api/actions/"+url.PathEscape(action), in, &envelope); err != nil {
		return err
	}
	if out == nil || len(envelope.Result) == 0 {
		return nil
	}
	return json.Unmarshal(envelope.Result, out)
}

func (t *httpTransport) Actions(ctx context.Context) ([]string, error) {
	var out struct {
		Actions []string `json:"actions"`
	}
	err := t.do(ctx, http.MethodGet, "/api/actions", nil, &out)
	return out.Actions, err
}
