package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docfoundry/docfoundry/internal/docsync"
)

func newMockCatalog(t *testing.T) (*Catalog, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	cat, err := NewWithPool(mock)
	require.NoError(t, err)
	return cat, mock
}

func TestNewWithPoolRequiresPool(t *testing.T) {
	t.Parallel()

	_, err := NewWithPool(nil)
	require.Error(t, err)
}

func TestNewRequiresDSN(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dsn")
}

func TestListActiveProjects(t *testing.T) {
	t.Parallel()

	cat, mock := newMockCatalog(t)

	mock.ExpectQuery("SELECT id, slug, name, active").
		WillReturnRows(pgxmock.NewRows([]string{"id", "slug", "name", "active"}).
			AddRow(int64(1), "pulse", "Pulse", true).
			AddRow(int64(2), "beacon", "Beacon", true))

	projects, err := cat.ListActiveProjects(context.Background())
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, "pulse", projects[0].Slug)
	assert.Equal(t, int64(2), projects[1].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListActiveVersionsScansLifecycleDates(t *testing.T) {
	t.Parallel()

	cat, mock := newMockCatalog(t)
	eol := time.Date(2027, 6, 30, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT id, project_id, name, latest, active, support_end, extended_support_end").
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "project_id", "name", "latest", "active", "support_end", "extended_support_end"}).
			AddRow(int64(10), int64(7), "1.0", false, true, &eol, &eol).
			AddRow(int64(11), int64(7), "2.0", true, true, (*time.Time)(nil), (*time.Time)(nil)))

	versions, err := cat.ListActiveVersions(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	require.NotNil(t, versions[0].ExtendedSupportEnd)
	assert.Equal(t, eol, *versions[0].ExtendedSupportEnd)
	assert.Nil(t, versions[1].ExtendedSupportEnd)
	assert.True(t, versions[1].Latest)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListActiveLinksHandlesNullHash(t *testing.T) {
	t.Parallel()

	cat, mock := newMockCatalog(t)
	fetched := time.Date(2026, 3, 1, 4, 0, 0, 0, time.UTC)
	hash := "deadbeef"

	mock.ExpectQuery("SELECT id, version_id, url, kind, active, content_hash, last_fetched").
		WithArgs(int64(10)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "version_id", "url", "kind", "active", "content_hash", "last_fetched"}).
			AddRow(int64(100), int64(10), "https://docs.pulse.dev/a", "html", true, &hash, &fetched).
			AddRow(int64(101), int64(10), "https://docs.pulse.dev/b", "markdown", true, (*string)(nil), (*time.Time)(nil)))

	links, err := cat.ListActiveLinks(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, "deadbeef", links[0].ContentHash)
	assert.Equal(t, docsync.ContentKindHTML, links[0].Kind)
	assert.Empty(t, links[1].ContentHash)
	assert.Equal(t, docsync.ContentKindMarkdown, links[1].Kind)
	assert.Nil(t, links[1].LastFetched)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeactivateLink(t *testing.T) {
	t.Parallel()

	cat, mock := newMockCatalog(t)

	mock.ExpectExec("UPDATE doc_links SET active = FALSE").
		WithArgs(int64(100)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, cat.DeactivateLink(context.Background(), 100))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeactivateLinkMissingRow(t *testing.T) {
	t.Parallel()

	cat, mock := newMockCatalog(t)

	mock.ExpectExec("UPDATE doc_links SET active = FALSE").
		WithArgs(int64(999)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := cat.DeactivateLink(context.Background(), 999)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertVersionReportsCreation(t *testing.T) {
	t.Parallel()

	cat, mock := newMockCatalog(t)
	eol := time.Date(2027, 6, 30, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("INSERT INTO versions").
		WithArgs(int64(7), "2.0", true, true, (*time.Time)(nil), &eol).
		WillReturnRows(pgxmock.NewRows([]string{"id", "active", "created"}).
			AddRow(int64(11), true, true))

	v, created, err := cat.UpsertVersion(context.Background(), docsync.Version{
		ProjectID:          7,
		Name:               "2.0",
		Latest:             true,
		Active:             true,
		ExtendedSupportEnd: &eol,
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(11), v.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertVersionKeepsStoredActiveFlag(t *testing.T) {
	t.Parallel()

	cat, mock := newMockCatalog(t)

	// The row existed and was manually deactivated; the upsert must not
	// silently revive it.
	mock.ExpectQuery("INSERT INTO versions").
		WithArgs(int64(7), "1.0", false, true, (*time.Time)(nil), (*time.Time)(nil)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "active", "created"}).
			AddRow(int64(10), false, false))

	v, created, err := cat.UpsertVersion(context.Background(), docsync.Version{
		ProjectID: 7,
		Name:      "1.0",
		Active:    true,
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.False(t, v.Active)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertProject(t *testing.T) {
	t.Parallel()

	cat, mock := newMockCatalog(t)

	mock.ExpectQuery("INSERT INTO projects").
		WithArgs("pulse", "Pulse", true).
		WillReturnRows(pgxmock.NewRows([]string{"id", "active"}).AddRow(int64(7), true))

	p, err := cat.UpsertProject(context.Background(), docsync.Project{Slug: "pulse", Name: "Pulse", Active: true})
	require.NoError(t, err)
	assert.Equal(t, int64(7), p.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertProjectQueryError(t *testing.T) {
	t.Parallel()

	cat, mock := newMockCatalog(t)

	mock.ExpectQuery("INSERT INTO projects").
		WithArgs("pulse", "Pulse", true).
		WillReturnError(fmt.Errorf("connection reset"))

	_, err := cat.UpsertProject(context.Background(), docsync.Project{Slug: "pulse", Name: "Pulse", Active: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upsert project")
	require.NoError(t, mock.ExpectationsWereMet())
}
