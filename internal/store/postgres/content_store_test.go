package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docfoundry/docfoundry/internal/docsync"
)

func newMockStore(t *testing.T) (*ContentStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	store, err := NewWithPool(mock)
	require.NoError(t, err)
	return store, mock
}

func sampleContent() docsync.IndexedContent {
	return docsync.IndexedContent{
		LinkID:   100,
		Markdown: "# Install\n\nRun the installer.",
		Hash:     "abc123",
		Metadata: docsync.DocumentMetadata{
			Title:          "Install Guide",
			WordCount:      4,
			ReadingMinutes: 1,
			ContentType:    "guide",
		},
		SearchText: "install run the installer",
		IndexedAt:  time.Date(2026, 3, 1, 4, 0, 0, 0, time.UTC),
	}
}

func TestGetHashReturnsStoredHash(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT content_hash FROM indexed_content").
		WithArgs(int64(100)).
		WillReturnRows(pgxmock.NewRows([]string{"content_hash"}).AddRow("abc123"))

	hash, err := store.GetHash(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, "abc123", hash)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetHashEmptyForNeverIndexed(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT content_hash FROM indexed_content").
		WithArgs(int64(999)).
		WillReturnRows(pgxmock.NewRows([]string{"content_hash"}))

	hash, err := store.GetHash(context.Background(), 999)
	require.NoError(t, err)
	assert.Empty(t, hash)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreCommitsContentAndLinkTogether(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	content := sampleContent()
	metaJSON, err := json.Marshal(content.Metadata)
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO indexed_content").
		WithArgs(content.LinkID, content.Markdown, content.Hash, metaJSON, content.SearchText, content.IndexedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("UPDATE doc_links SET content_hash").
		WithArgs(content.LinkID, content.Hash, content.IndexedAt).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()
	mock.ExpectRollback()

	require.NoError(t, store.Store(context.Background(), content))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreRollsBackWhenLinkUpdateFails(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	content := sampleContent()
	metaJSON, err := json.Marshal(content.Metadata)
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO indexed_content").
		WithArgs(content.LinkID, content.Markdown, content.Hash, metaJSON, content.SearchText, content.IndexedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("UPDATE doc_links SET content_hash").
		WithArgs(content.LinkID, content.Hash, content.IndexedAt).
		WillReturnError(fmt.Errorf("deadlock detected"))
	mock.ExpectRollback()

	err = store.Store(context.Background(), content)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "update link")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreFailsWhenBeginFails(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	mock.ExpectBegin().WillReturnError(fmt.Errorf("too many connections"))

	err := store.Store(context.Background(), sampleContent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "begin store tx")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTouchFetched(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	at := time.Date(2026, 3, 2, 4, 0, 0, 0, time.UTC)

	mock.ExpectExec("UPDATE doc_links SET last_fetched").
		WithArgs(int64(100), at).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, store.TouchFetched(context.Background(), 100, at))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTouchFetchedMissingLink(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE doc_links SET last_fetched").
		WithArgs(int64(999), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := store.TouchFetched(context.Background(), 999, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	require.NoError(t, mock.ExpectationsWereMet())
}
