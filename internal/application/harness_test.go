package application

import (
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"sync"
	"testing"

	"github.com/lmco/eurekastreams-sub009/internal/adapters/blob"
	"github.com/lmco/eurekastreams-sub009/internal/adapters/cache"
	"github.com/lmco/eurekastreams-sub009/internal/adapters/db/sqlite"
	"github.com/lmco/eurekastreams-sub009/internal/domain"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

type recordingQueue struct {
	mu       sync.Mutex
	requests []domain.UserActionRequest
	err      error
}

func (q *recordingQueue) Enqueue(_ context.Context, requests ...domain.UserActionRequest) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.requests = append(q.requests, requests...)
	return nil
}

func (q *recordingQueue) take() []domain.UserActionRequest {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.requests
	q.requests = nil
	return out
}

type harness struct {
	t     *testing.T
	ctx   context.Context
	svc   *Service
	repo  *sqlite.Repository
	cache *cache.Memory
	blobs *blob.FS
	queue *recordingQueue
	exec  *Executor
	admin domain.Principal
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "app_test.db"))
	require.NoError(t, err)
	require.NoError(t, sqlite.RunMigrations(ctx, db, nil))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	repo := sqlite.NewRepository(db)

	mem, err := cache.NewMemory(1000, 100)
	require.NoError(t, err)
	blobs, err := blob.NewFS(t.TempDir())
	require.NoError(t, err)

	log := logrus.New()
	log.SetOutput(io.Discard)

	svc := NewService(repo, mem, blobs, log, Options{
		MaxCacheListSize:   100,
		EmailTokenSecret:   "test-secret",
		InboundEmailUser:   "streams",
		InboundEmailDomain: "example.com",
	})
	queue := &recordingQueue{}
	exec := NewExecutor(queue, log)
	exec.Register(svc.Actions()...)

	require.NoError(t, svc.BootstrapAdmin(ctx, "admin", "admin@example.com", "admin-password"))
	admin, err := svc.PrincipalForAccount(ctx, "admin")
	require.NoError(t, err)

	return &harness{t: t, ctx: ctx, svc: svc, repo: repo, cache: mem, blobs: blobs, queue: queue, exec: exec, admin: admin}
}

func (h *harness) run(p domain.Principal, action string, params any) (any, error) {
	h.t.Helper()
	var raw json.RawMessage
	if params != nil {
		b, err := json.Marshal(params)
		require.NoError(h.t, err)
		raw = b
	}
	return h.exec.Execute(h.ctx, action, p, raw)
}

func (h *harness) mustRun(p domain.Principal, action string, params any) any {
	h.t.Helper()
	result, err := h.run(p, action, params)
	require.NoError(h.t, err, action)
	return result
}

// drain runs queued requests, including the ones they queue, until nothing is left.
func (h *harness) drain() {
	h.t.Helper()
	for i := 0; i < 20; i++ {
		requests := h.queue.take()
		if len(requests) == 0 {
			return
		}
		for _, req := range requests {
			require.NoError(h.t, h.exec.ExecuteRequest(h.ctx, req), req.ActionKey)
		}
	}
	h.t.Fatal("queue did not drain")
}

// person creates a person in the root organization and returns its principal.
func (h *harness) person(accountID string) domain.Principal {
	h.t.Helper()
	h.mustRun(h.admin, ActionCreatePerson, map[string]any{
		"accountId":             accountID,
		"firstName":             accountID,
		"lastName":              "Tester",
		"email":                 accountID + "@example.com",
		"organizationShortName": "root",
		"password":              "password-" + accountID,
	})
	p, err := h.svc.PrincipalForAccount(h.ctx, accountID)
	require.NoError(h.t, err)
	return p
}

func (h *harness) group(p domain.Principal, shortName string, public bool) domain.GroupModelView {
	h.t.Helper()
	result := h.mustRun(p, ActionCreateGroup, map[string]any{
		"shortName":                   shortName,
		"name":                        "Group " + shortName,
		"publicGroup":                 public,
		"parentOrganizationShortName": "root",
	})
	return result.(domain.GroupModelView)
}

func (h *harness) post(p domain.Principal, scopeType domain.ScopeType, key, body string) domain.ActivityModelView {
	h.t.Helper()
	result := h.mustRun(p, ActionPostActivity, map[string]any{
		"destinationType":     scopeType,
		"destinationUniqueId": key,
		"body":                body,
	})
	return result.(domain.ActivityModelView)
}

func requestsFor(requests []domain.UserActionRequest, action string) []domain.UserActionRequest {
	out := make([]domain.UserActionRequest, 0)
	for _, r := range requests {
		if r.ActionKey == action {
			out = append(out, r)
		}
	}
	return out
}

func decodeParams[T any](t *testing.T, req domain.UserActionRequest) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(req.Params, &out))
	return out
}
