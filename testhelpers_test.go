package snowmcp

import (
	"database/sql"
	"os"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
)

// autoTagPattern matches generated query tags in expected session directives.
const autoTagPattern = `ALTER SESSION SET QUERY_TAG = 'mcp_\d{8}_\d{6}_\d{3}'`

func testLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).Level(zerolog.Disabled)
}

func defaultConfig() Config {
	return Config{
		Connection: ConnectionConfig{
			Account:  "test-account",
			User:     "test-user",
			Password: "test-password",
		},
		Query: QueryConfig{
			DefaultTimeoutSeconds: 30,
			MaxRows:               10000,
		},
	}
}

func newSQLMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

// newTestInstance creates a SnowflakeMcp wired to a sqlmock database instead
// of a real Snowflake connection.
func newTestInstance(t *testing.T, config Config) (*SnowflakeMcp, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newSQLMock(t)
	s, err := New(testLogger(), WithConfig(config))
	if err != nil {
		t.Fatalf("failed to create SnowflakeMcp: %v", err)
	}
	s.openDB = func(ConnectionConfig) (*sql.DB, error) { return db, nil }
	return s, mock
}

// expectPipeline registers the expectations for one full session pipeline
// around the given query: health probe (reused sessions only), cache and tag
// directives, the query itself, the query ID lookup, and the directive
// reverts.
func expectPipeline(mock sqlmock.Sqlmock, reusedSession bool, queryPattern string, rows *sqlmock.Rows) {
	if reusedSession {
		mock.ExpectPing()
	}
	mock.ExpectExec(regexp.QuoteMeta("ALTER SESSION SET USE_CACHED_RESULT = FALSE")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(autoTagPattern).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(queryPattern).WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT LAST_QUERY_ID()")).
		WillReturnRows(sqlmock.NewRows([]string{"LAST_QUERY_ID()"}).AddRow("01b2c3d4-0000-0001"))
	mock.ExpectExec(regexp.QuoteMeta("ALTER SESSION SET QUERY_TAG = NULL")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("ALTER SESSION SET USE_CACHED_RESULT = TRUE")).
		WillReturnResult(sqlmock.NewResult(0, 0))
}

func assertExpectationsMet(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}
