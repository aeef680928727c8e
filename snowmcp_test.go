package snowmcp

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestNew_InvalidMaskingRule(t *testing.T) {
	t.Parallel()
	_, err := New(testLogger(), WithConfig(Config{
		Masking: []MaskingRule{{Pattern: "([unclosed", Replacement: "x"}},
	}))
	if err == nil {
		t.Fatal("expected error for invalid masking pattern")
	}
}

func TestNew_InvalidErrorPromptRule(t *testing.T) {
	t.Parallel()
	_, err := New(testLogger(), WithConfig(Config{
		ErrorPrompts: []ErrorPromptRule{{Pattern: "([unclosed", Message: "x"}},
	}))
	if err == nil {
		t.Fatal("expected error for invalid error prompt pattern")
	}
}

func TestNew_NeverTouchesCredentials(t *testing.T) {
	// No SNOWFLAKE_* variables are needed at construction time.
	t.Setenv("SNOWFLAKE_ACCOUNT", "")
	t.Setenv("SNOWFLAKE_USER", "")
	t.Setenv("SNOWFLAKE_PASSWORD", "")

	s, err := New(testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Close(context.Background())
}

func TestQuery_LazyEnvConfiguration(t *testing.T) {
	t.Setenv("SNOWFLAKE_ACCOUNT", "myorg-myaccount")
	t.Setenv("SNOWFLAKE_USER", "agent")
	t.Setenv("SNOWFLAKE_PASSWORD", "hunter2")
	t.Setenv("SNOWFLAKE_TIMEOUT", "60")
	t.Setenv("MAX_QUERY_ROWS", "100")

	db, mock := newSQLMock(t)
	s, err := New(testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.openDB = func(cc ConnectionConfig) (*sql.DB, error) {
		if cc.Account != "myorg-myaccount" {
			t.Errorf("expected env account, got %q", cc.Account)
		}
		return db, nil
	}

	expectPipeline(mock, false, regexp.QuoteMeta("SELECT 1"),
		sqlmock.NewRows([]string{"1"}).AddRow(1))

	output := s.Query(context.Background(), QueryInput{SQL: "SELECT 1"})
	if output.Error != "" {
		t.Fatalf("unexpected error: %s", output.Error)
	}
	if output.MaxRowsReturned != 100 {
		t.Fatalf("expected max rows from environment, got %d", output.MaxRowsReturned)
	}
	assertExpectationsMet(t, mock)
}

func TestQuery_MissingCredentialsSurfaceAsConnectionError(t *testing.T) {
	t.Setenv("SNOWFLAKE_ACCOUNT", "")
	t.Setenv("SNOWFLAKE_USER", "")
	t.Setenv("SNOWFLAKE_PASSWORD", "")

	s, err := New(testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	output := s.Query(context.Background(), QueryInput{SQL: "SELECT 1"})
	if output.Error == "" {
		t.Fatal("expected error for missing credentials")
	}
	if !regexp.MustCompile(`could not establish connection to Snowflake.*SNOWFLAKE_ACCOUNT`).MatchString(output.Error) {
		t.Fatalf("expected missing variable named in connection error, got: %s", output.Error)
	}
}

func TestClose_WithoutConnection(t *testing.T) {
	t.Parallel()
	s, _ := newTestInstance(t, defaultConfig())
	// Close before any query is a no-op.
	s.Close(context.Background())
}
