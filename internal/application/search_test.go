package application

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/lmco/eurekastreams-sub009/internal/domain"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchDirectoryAfterIndexing(t *testing.T) {
	h := newHarness(t)
	h.person("gus")
	h.group(h.admin, "gusfans", true)
	h.drain()

	docs := h.mustRun(h.admin, ActionSearchDirectory, map[string]any{"q": "gus"}).([]domain.SearchDocument)
	types := map[domain.ScopeType]int{}
	for _, d := range docs {
		types[d.EntityType]++
	}
	assert.Equal(t, 1, types[domain.ScopeTypePerson])
	assert.Equal(t, 1, types[domain.ScopeTypeGroup])

	people := h.mustRun(h.admin, ActionSearchDirectory, map[string]any{"q": "gus", "entityType": "person"}).([]domain.SearchDocument)
	require.Len(t, people, 1)
	assert.Equal(t, "gus", people[0].Key)

	_, err := h.run(h.admin, ActionSearchDirectory, map[string]any{"q": "  "})
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestSearchDirectoryHidesPrivateGroupContent(t *testing.T) {
	h := newHarness(t)
	nina := h.person("nina")
	h.mustRun(h.admin, ActionCreateGroup, map[string]any{
		"shortName":                   "council",
		"name":                        "Council",
		"overview":                    "budget talks",
		"parentOrganizationShortName": "root",
		"coordinators":                []string{"admin"},
	})
	h.post(h.admin, domain.ScopeTypeGroup, "council", "layoffs planned friday")
	h.post(nina, domain.ScopeTypePerson, "nina", "layoffs rumor heard")
	h.drain()

	docs := h.mustRun(nina, ActionSearchDirectory, map[string]any{"q": "layoffs"}).([]domain.SearchDocument)
	require.Len(t, docs, 1)
	assert.Equal(t, "nina", docs[0].Key)

	docs = h.mustRun(h.admin, ActionSearchDirectory, map[string]any{"q": "layoffs"}).([]domain.SearchDocument)
	assert.Len(t, docs, 2)

	groups := h.mustRun(nina, ActionSearchDirectory, map[string]any{"q": "council", "entityType": "GROUP"}).([]domain.SearchDocument)
	require.Len(t, groups, 1)
	assert.True(t, groups[0].Restricted)
	assert.Equal(t, "Council", groups[0].Title)
	assert.Empty(t, groups[0].Body)

	hidden := h.mustRun(nina, ActionSearchDirectory, map[string]any{"q": "budget", "entityType": "GROUP"}).([]domain.SearchDocument)
	assert.Empty(t, hidden)

	groups = h.mustRun(h.admin, ActionSearchDirectory, map[string]any{"q": "budget"}).([]domain.SearchDocument)
	require.Len(t, groups, 1)
	assert.False(t, groups[0].Restricted)
	assert.Equal(t, "budget talks", groups[0].Body)
}

func TestReindexEntities(t *testing.T) {
	h := newHarness(t)
	h.person("hal")
	h.queue.take()

	result := h.mustRun(domain.SystemPrincipal(), ActionReindexEntities, nil).(ReindexResult)
	assert.Equal(t, 2, result.People)
	assert.Equal(t, 1, result.Organizations)
	assert.Zero(t, result.Groups)

	docs, err := h.repo.SearchDocuments(h.ctx, "hal", domain.ScopeTypePerson, 10)
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	require.True(t, h.svc.beginReindex())
	_, err = h.run(domain.SystemPrincipal(), ActionReindexEntities, nil)
	assert.ErrorIs(t, err, domain.ErrReindexRunning)
	h.svc.endReindex()
}

type brokenCache struct{}

var errCacheDown = errors.New("cache down")

func (brokenCache) Get(context.Context, string, any) (bool, error)         { return false, errCacheDown }
func (brokenCache) Set(context.Context, string, any) error                 { return errCacheDown }
func (brokenCache) Delete(context.Context, ...string) error                { return errCacheDown }
func (brokenCache) Clear(context.Context) error                            { return errCacheDown }
func (brokenCache) GetList(context.Context, string) ([]int64, bool, error) { return nil, false, errCacheDown }
func (brokenCache) SetList(context.Context, string, []int64) error         { return errCacheDown }
func (brokenCache) AddToTopOfList(context.Context, string, ...int64) error { return errCacheDown }
func (brokenCache) RemoveFromList(context.Context, string, ...int64) error { return errCacheDown }

func TestReadsSurviveCacheFailures(t *testing.T) {
	h := newHarness(t)
	h.person("ivy")
	h.post(h.admin, domain.ScopeTypePerson, "admin", "still readable")

	log := logrus.New()
	log.SetOutput(io.Discard)
	svc := NewService(h.repo, brokenCache{}, h.blobs, log, h.svc.opts)
	exec := NewExecutor(&recordingQueue{}, log)
	exec.Register(svc.Actions()...)

	view, err := exec.Execute(h.ctx, ActionGetPerson, h.admin, []byte(`{"accountId":"ivy"}`))
	require.NoError(t, err)
	assert.Equal(t, "ivy", view.(domain.PersonModelView).AccountID)

	stream, err := exec.Execute(h.ctx, ActionGetStream, h.admin, []byte(`{"scopeType":"PERSON","uniqueKey":"admin"}`))
	require.NoError(t, err)
	assert.Len(t, stream, 1)

	_, err = exec.Execute(h.ctx, ActionDeleteCacheKeys, domain.SystemPrincipal(), []byte(`{"keys":["x"]}`))
	assert.ErrorIs(t, err, errCacheDown)
}
