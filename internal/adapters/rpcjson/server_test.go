package rpcjson

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/lmco/eurekastreams-sub009/internal/adapters/blob"
	"github.com/lmco/eurekastreams-sub009/internal/adapters/cache"
	"github.com/lmco/eurekastreams-sub009/internal/adapters/db/sqlite"
	"github.com/lmco/eurekastreams-sub009/internal/application"
	"github.com/lmco/eurekastreams-sub009/internal/domain"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type discardQueue struct{}

func (discardQueue) Enqueue(context.Context, ...domain.UserActionRequest) error { return nil }

type client struct {
	t   *testing.T
	enc *json.Encoder
	dec *json.Decoder
	id  int
}

func (c *client) call(method string, params any) response {
	c.t.Helper()
	c.id++
	raw, err := json.Marshal(params)
	require.NoError(c.t, err)
	require.NoError(c.t, c.enc.Encode(request{JSONRPC: "2.0", Method: method, Params: raw, ID: c.id}))
	var resp response
	require.NoError(c.t, c.dec.Decode(&resp))
	return resp
}

func startTestServer(t *testing.T) *client {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "rpc_test.db"))
	require.NoError(t, err)
	require.NoError(t, sqlite.RunMigrations(ctx, db, nil))
	mem, err := cache.NewMemory(1000, 100)
	require.NoError(t, err)
	blobs, err := blob.NewFS(t.TempDir())
	require.NoError(t, err)
	log := logrus.New()
	log.SetOutput(io.Discard)

	svc := application.NewService(sqlite.NewRepository(db), mem, blobs, log, application.Options{})
	exec := application.NewExecutor(discardQueue{}, log)
	exec.Register(svc.Actions()...)
	require.NoError(t, svc.BootstrapAdmin(ctx, "admin", "admin@example.com", "admin-password"))

	dir, err := os.MkdirTemp("", "rpc")
	require.NoError(t, err)
	socket := filepath.Join(dir, "s.sock")
	srv, err := Start(socket, svc, exec, log)
	require.NoError(t, err)

	conn, err := net.Dial("unix", socket)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = conn.Close()
		_ = srv.Close()
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
		_ = os.RemoveAll(dir)
	})
	return &client{t: t, enc: json.NewEncoder(conn), dec: json.NewDecoder(conn)}
}

func TestLoginWhoAmIAndExecute(t *testing.T) {
	c := startTestServer(t)

	resp := c.call("auth.login", map[string]string{"login": "admin", "password": "bad"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeUnauthorized, resp.Error.Code)

	resp = c.call("auth.login", map[string]string{"login": "admin", "password": "admin-password"})
	require.Nil(t, resp.Error)
	token := resp.Result.(map[string]any)["token"].(string)

	resp = c.call("auth.whoami", map[string]string{"token": token})
	require.Nil(t, resp.Error)
	assert.Equal(t, "admin", resp.Result.(map[string]any)["account_id"])

	resp = c.call("action.execute", map[string]any{"token": token, "action": "getPerson", "params": map[string]string{"accountId": "admin"}})
	require.Nil(t, resp.Error)
	assert.Equal(t, "admin", resp.Result.(map[string]any)["accountId"])

	resp = c.call("action.execute", map[string]any{"token": token, "action": "getPerson", "params": map[string]string{"accountId": "nobody"}})
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeNotFound, resp.Error.Code)

	resp = c.call("action.execute", map[string]any{"token": token, "action": "createOrganization", "params": map[string]string{"shortName": "Bad Name"}})
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeValidation, resp.Error.Code)
	assert.NotNil(t, resp.Error.Data)

	resp = c.call("actions.list", map[string]string{"token": token})
	require.Nil(t, resp.Error)
	assert.Contains(t, resp.Result, "postActivity")
}

func TestRejectsBadRequests(t *testing.T) {
	c := startTestServer(t)

	resp := c.call("action.execute", map[string]any{"token": "nope", "action": "getPerson"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeUnauthorized, resp.Error.Code)

	resp = c.call("no.such.method", map[string]string{})
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeMethodNotFound, resp.Error.Code)

	require.NoError(t, c.enc.Encode(map[string]any{"jsonrpc": "1.0", "method": "auth.whoami", "id": 9}))
	var bad response
	require.NoError(t, c.dec.Decode(&bad))
	require.NotNil(t, bad.Error)
	assert.Equal(t, codeInvalidRequest, bad.Error.Code)
}
