package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/lmco/eurekastreams-sub009/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPTransportDecodesServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/actions/createGroup":
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"validation failed","fields":{"name":"Group Name is required."}}`))
		case "/api/actions/getPerson":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"not found"}`))
		case "/api/actions/reindexEntities":
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"error":"reindex already running"}`))
		case "/api/actions/getSystemSettings":
			_, _ = w.Write([]byte(`{"result":{"siteLabel":"INTERNAL"}}`))
		default:
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("upstream down"))
		}
	}))
	defer srv.Close()

	tr := newHTTPTransport(srv.URL+"/", "tok")
	ctx := context.Background()

	err := tr.Execute(ctx, "createGroup", json.RawMessage(`{}`), nil)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Group Name is required.", verr.Errors["name"])

	err = tr.Execute(ctx, "getPerson", nil, nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	var remote *remoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, http.StatusNotFound, remote.Code)

	assert.ErrorIs(t, tr.Execute(ctx, "reindexEntities", nil, nil), domain.ErrReindexRunning)

	var settings domain.SystemSettings
	require.NoError(t, tr.Execute(ctx, "getSystemSettings", nil, &settings))
	assert.Equal(t, "INTERNAL", settings.SiteLabel)

	err = tr.Execute(ctx, "other", nil, nil)
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, "upstream down", remote.Message)
	assert.Nil(t, errors.Unwrap(err))
}

// serveOneReply answers every JSON-RPC line on a unix socket with reply.
func serveOneReply(t *testing.T, reply string) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "cli")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	socket := filepath.Join(dir, "s.sock")
	ln, err := net.Listen("unix", socket)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer func() { _ = conn.Close() }()
				if _, err := bufio.NewReader(conn).ReadBytes('\n'); err == nil {
					_, _ = conn.Write([]byte(reply + "\n"))
				}
			}()
		}
	}()
	return socket
}

func TestSocketTransportDecodesErrorCodes(t *testing.T) {
	ctx := context.Background()

	socket := serveOneReply(t, `{"jsonrpc":"2.0","error":{"code":40000,"message":"validation failed","data":{"shortName":"Group Web Address is already in use."}},"id":1}`)
	err := newSocketTransport(socket, "tok").Execute(ctx, "createGroup", nil, nil)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Group Web Address is already in use.", verr.Errors["shortName"])

	socket = serveOneReply(t, `{"jsonrpc":"2.0","error":{"code":40900,"message":"reindex already running"},"id":1}`)
	assert.ErrorIs(t, newSocketTransport(socket, "tok").Execute(ctx, "reindexEntities", nil, nil), domain.ErrReindexRunning)

	socket = serveOneReply(t, `{"jsonrpc":"2.0","error":{"code":40100,"message":"unauthorized"},"id":1}`)
	_, err = newSocketTransport(socket, "").WhoAmI(ctx)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	socket = serveOneReply(t, `{"jsonrpc":"2.0","result":["getPerson","getStream"],"id":1}`)
	names, err := newSocketTransport(socket, "tok").Actions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"getPerson", "getStream"}, names)
}

func TestReportActionErrorListsFields(t *testing.T) {
	var buf bytes.Buffer
	err := reportActionError(&buf, newRemoteError(400, "validation failed", map[string]string{
		"name":      "Group Name is required.",
		"shortName": "Group Web Address is required.",
	}, nil))
	require.EqualError(t, err, "validation failed on 2 field(s)")
	assert.Equal(t, "name       Group Name is required.\nshortName  Group Web Address is required.\n", buf.String())

	plain := newRemoteError(404, "not found", nil, domain.ErrNotFound)
	assert.Same(t, plain, reportActionError(&buf, plain))
}

func TestCLIConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	t.Setenv(cliConfigEnv, path)

	cfg, err := loadCLIConfig()
	require.NoError(t, err)
	assert.Equal(t, cliConfig{Transport: transportSocket, Server: defaultServer, Socket: defaultSocket}, cfg)

	cfg.Transport = transportHTTP
	cfg.Token = "tok"
	require.NoError(t, saveCLIConfig(cfg))
	loaded, err := loadCLIConfig()
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)

	_, err = newTransport(cliConfig{Transport: "carrier-pigeon"})
	assert.Error(t, err)
}
