package sqlite

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphorm/internal/query"
	"graphorm/internal/store"
)

func mockClient(t *testing.T) (*Client, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewFromDB(db), mock
}

func TestSession_RunReturnsNodes(t *testing.T) {
	ctx := context.Background()
	c, mock := mockClient(t)

	q, err := c.Dialect().Find("Person", query.Match{Where: map[string]any{"age": 30}})
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta(q.Text)).
		WithArgs("Person", 30).
		WillReturnRows(sqlmock.NewRows([]string{"id", "label", "properties"}).
			AddRow(int64(1), "Person", `{"name":"A","age":30}`).
			AddRow(int64(2), "Person", `{"name":"B","age":30}`))

	s, err := c.NewSession(ctx)
	require.NoError(t, err)
	res, err := s.Run(ctx, q.Text, q.Params)
	require.NoError(t, err)
	require.NoError(t, s.Close(ctx))

	require.Len(t, res.Records, 2)
	n, err := res.Records[1].NodeOf(query.NodeColumn)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n.ID)
	assert.Equal(t, "B", n.Props["name"])
	assert.Equal(t, int64(30), n.Props["age"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSession_RunDeleteReportsSummary(t *testing.T) {
	ctx := context.Background()
	c, mock := mockClient(t)

	q, err := c.Dialect().Delete("Person", 4)
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta(q.Text)).
		WithArgs(int64(4), "Person").
		WillReturnResult(sqlmock.NewResult(0, 1))

	s, err := c.NewSession(ctx)
	require.NoError(t, err)
	defer s.Close(ctx)

	res, err := s.Run(ctx, q.Text, q.Params)
	require.NoError(t, err)
	assert.Equal(t, store.Summary{NodesDeleted: 1}, res.Summary)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSession_RunPassesDriverErrors(t *testing.T) {
	ctx := context.Background()
	c, mock := mockClient(t)
	boom := errors.New("disk I/O error")

	mock.ExpectQuery("SELECT").WillReturnError(boom)

	s, err := c.NewSession(ctx)
	require.NoError(t, err)
	defer s.Close(ctx)

	_, err = s.Run(ctx, "SELECT 1", nil)
	assert.ErrorIs(t, err, boom)
}

func TestSession_ExecuteWrite(t *testing.T) {
	ctx := context.Background()

	t.Run("commits", func(t *testing.T) {
		c, mock := mockClient(t)
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE nodes").WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectCommit()

		s, err := c.NewSession(ctx)
		require.NoError(t, err)
		defer s.Close(ctx)

		out, err := s.ExecuteWrite(ctx, func(tx store.Transaction) (any, error) {
			res, err := tx.Run(ctx, "UPDATE nodes SET properties = '{}'", nil)
			if err != nil {
				return nil, err
			}
			return res.Summary.PropertiesSet, nil
		})
		require.NoError(t, err)
		assert.Equal(t, int64(2), out)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on error", func(t *testing.T) {
		c, mock := mockClient(t)
		boom := errors.New("boom")
		mock.ExpectBegin()
		mock.ExpectRollback()

		s, err := c.NewSession(ctx)
		require.NoError(t, err)
		defer s.Close(ctx)

		_, err = s.ExecuteRead(ctx, func(tx store.Transaction) (any, error) {
			return nil, boom
		})
		assert.ErrorIs(t, err, boom)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestIndexStatements(t *testing.T) {
	got := indexStatements([]store.IndexSpec{
		{Label: "Person", Key: "email", Unique: true},
		{Label: "Person", Key: "age"},
	})
	assert.Equal(t, []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS uq_person_email ON nodes (json_extract(properties, '$.email')) WHERE label = 'Person';",
		"CREATE INDEX IF NOT EXISTS idx_person_age ON nodes (json_extract(properties, '$.age')) WHERE label = 'Person';",
	}, got)
}

func TestSplitStatements(t *testing.T) {
	stmts := splitStatements("-- comment\nCREATE TABLE a (x);\nCREATE INDEX i ON a (x);\n")
	require.Len(t, stmts, 3)
	assert.Contains(t, stmts[0], "CREATE TABLE a")
	assert.NotContains(t, stmts[0], "comment")
}
