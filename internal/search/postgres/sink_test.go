package postgres

import (
	"context"
	"fmt"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockSink(t *testing.T) (*Sink, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	sink, err := NewWithPool(mock)
	require.NoError(t, err)
	return sink, mock
}

func TestPutRebuildsSearchVector(t *testing.T) {
	t.Parallel()

	sink, mock := newMockSink(t)

	mock.ExpectExec("UPDATE indexed_content SET search_vector").
		WithArgs(int64(100), "install run the installer").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, sink.Put(context.Background(), 100, "install run the installer"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPutFailsForMissingContentRow(t *testing.T) {
	t.Parallel()

	sink, mock := newMockSink(t)

	mock.ExpectExec("UPDATE indexed_content SET search_vector").
		WithArgs(int64(999), "anything").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := sink.Put(context.Background(), 999, "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no indexed content")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPutPropagatesExecError(t *testing.T) {
	t.Parallel()

	sink, mock := newMockSink(t)

	mock.ExpectExec("UPDATE indexed_content SET search_vector").
		WithArgs(int64(100), "text").
		WillReturnError(fmt.Errorf("connection reset"))

	err := sink.Put(context.Background(), 100, "text")
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewWithPoolRequiresPool(t *testing.T) {
	t.Parallel()

	_, err := NewWithPool(nil)
	require.Error(t, err)
}
