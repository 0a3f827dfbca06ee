package directory

import (
	"context"
	"io"
	"path/filepath"
	"strings"
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

const sample = `
organizations:
  - shortName: west
    name: West Region
    parent: sales
  - shortName: sales
    name: Sales
    parent: root
people:
  - accountId: quinn
    firstName: Quinn
    lastName: Park
    email: quinn@example.com
    organization: west
  - accountId: rosa
    firstName: Rosa
    lastName: Diaz
    email: not-an-email
    organization: sales
groups:
  - shortName: deals
    name: Deals
    public: true
    parent: sales
    coordinators: [quinn]
`

type syncQueue struct {
	exec *application.Executor
}

func (q *syncQueue) Enqueue(ctx context.Context, requests ...domain.UserActionRequest) error {
	for _, r := range requests {
		if err := q.exec.ExecuteRequest(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

func newTestImporter(t *testing.T) (*Importer, *sqlite.Repository) {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "dir_test.db"))
	require.NoError(t, err)
	require.NoError(t, sqlite.RunMigrations(ctx, db, nil))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	mem, err := cache.NewMemory(1000, 100)
	require.NoError(t, err)
	blobs, err := blob.NewFS(t.TempDir())
	require.NoError(t, err)
	log := logrus.New()
	log.SetOutput(io.Discard)

	repo := sqlite.NewRepository(db)
	svc := application.NewService(repo, mem, blobs, log, application.Options{})
	queue := &syncQueue{}
	exec := application.NewExecutor(queue, log)
	queue.exec = exec
	exec.Register(svc.Actions()...)
	require.NoError(t, svc.BootstrapAdmin(ctx, "admin", "admin@example.com", "admin-password"))
	admin, err := svc.PrincipalForAccount(ctx, "admin")
	require.NoError(t, err)
	return NewImporter(exec, admin, log), repo
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse(strings.NewReader("people:\n  - accountId: a\n    shoeSize: 9\n"))
	assert.Error(t, err)

	f, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, f.People)
}

func TestOrderOrganizationsPutsParentsFirst(t *testing.T) {
	ordered := orderOrganizations([]Organization{
		{ShortName: "c", Parent: "b"},
		{ShortName: "b", Parent: "a"},
		{ShortName: "a", Parent: "root"},
		{ShortName: "x", Parent: "y"},
		{ShortName: "y", Parent: "x"},
	})
	names := make([]string, 0, len(ordered))
	for _, o := range ordered {
		names = append(names, o.ShortName)
	}
	assert.Equal(t, []string{"a", "b", "c", "x", "y"}, names)
}

func TestImportCreatesMissingEntries(t *testing.T) {
	im, repo := newTestImporter(t)
	ctx := context.Background()
	f, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)

	res, err := im.Import(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Created["organization"])
	assert.Equal(t, 1, res.Created["person"])
	assert.Equal(t, 1, res.Created["group"])
	require.Len(t, res.Failed, 1)
	assert.Contains(t, res.Failed[0], "rosa")

	west, err := repo.GetOrganizationByShortName(ctx, "west")
	require.NoError(t, err)
	sales, err := repo.GetOrganizationByShortName(ctx, "sales")
	require.NoError(t, err)
	require.NotNil(t, west.ParentOrganizationID)
	assert.Equal(t, sales.ID, *west.ParentOrganizationID)

	again, err := im.Import(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, 2, again.Skipped["organization"])
	assert.Equal(t, 1, again.Skipped["person"])
	assert.Equal(t, 1, again.Skipped["group"])
	assert.Empty(t, again.Created)
}
