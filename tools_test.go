package snowmcp

import (
	"context"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestListDatabases(t *testing.T) {
	t.Parallel()
	s, mock := newTestInstance(t, defaultConfig())

	rows := sqlmock.NewRows([]string{"created_on", "name", "comment"}).
		AddRow("2026-01-01", "ANALYTICS", "").
		AddRow("2026-01-02", "RAW", "landing zone")
	expectPipeline(mock, false, regexp.QuoteMeta("SHOW DATABASES"), rows)

	output := s.ListDatabases(context.Background())
	if output.Error != "" {
		t.Fatalf("unexpected error: %s", output.Error)
	}
	if len(output.Databases) != 2 || output.Databases[0] != "ANALYTICS" || output.Databases[1] != "RAW" {
		t.Fatalf("unexpected databases: %v", output.Databases)
	}
	assertExpectationsMet(t, mock)
}

func TestListSchemas_WithDatabase(t *testing.T) {
	t.Parallel()
	s, mock := newTestInstance(t, defaultConfig())

	rows := sqlmock.NewRows([]string{"name"}).
		AddRow("PUBLIC").
		AddRow("STAGING")
	expectPipeline(mock, false, regexp.QuoteMeta("SHOW SCHEMAS IN DATABASE ANALYTICS"), rows)

	output := s.ListSchemas(context.Background(), "ANALYTICS")
	if output.Error != "" {
		t.Fatalf("unexpected error: %s", output.Error)
	}
	if output.Database != "ANALYTICS" {
		t.Fatalf("unexpected database in output: %s", output.Database)
	}
	if len(output.Schemas) != 2 || output.Schemas[1] != "STAGING" {
		t.Fatalf("unexpected schemas: %v", output.Schemas)
	}
	assertExpectationsMet(t, mock)
}

func TestListSchemas_InvalidIdentifier(t *testing.T) {
	t.Parallel()
	s, mock := newTestInstance(t, defaultConfig())

	output := s.ListSchemas(context.Background(), "bad-name; DROP DATABASE x")
	if !strings.Contains(output.Error, "invalid database name") {
		t.Fatalf("expected identifier rejection, got: %s", output.Error)
	}
	assertExpectationsMet(t, mock)
}

func TestListTables_WithScope(t *testing.T) {
	t.Parallel()
	s, mock := newTestInstance(t, defaultConfig())

	rows := sqlmock.NewRows([]string{"name", "kind", "comment"}).
		AddRow("ORDERS", "TABLE", "").
		AddRow("ORDERS_V", "VIEW", "flattened view")
	expectPipeline(mock, false, regexp.QuoteMeta("SHOW TABLES IN SCHEMA ANALYTICS.PUBLIC"), rows)

	output := s.ListTables(context.Background(), "ANALYTICS", "PUBLIC")
	if output.Error != "" {
		t.Fatalf("unexpected error: %s", output.Error)
	}
	if len(output.Tables) != 2 {
		t.Fatalf("expected 2 tables, got %d", len(output.Tables))
	}
	if output.Tables[1].Name != "ORDERS_V" || output.Tables[1].Kind != "VIEW" || output.Tables[1].Comment != "flattened view" {
		t.Fatalf("unexpected table entry: %+v", output.Tables[1])
	}
	assertExpectationsMet(t, mock)
}

func TestListTables_RequiresBothDatabaseAndSchema(t *testing.T) {
	t.Parallel()
	s, mock := newTestInstance(t, defaultConfig())

	output := s.ListTables(context.Background(), "ANALYTICS", "")
	if !strings.Contains(output.Error, "database and schema must be provided together") {
		t.Fatalf("expected pairing error, got: %s", output.Error)
	}
	assertExpectationsMet(t, mock)
}

func TestDescribeTable_QualifiedName(t *testing.T) {
	t.Parallel()
	s, mock := newTestInstance(t, defaultConfig())

	rows := sqlmock.NewRows([]string{"name", "type", "null?", "default", "comment"}).
		AddRow("ID", "NUMBER(38,0)", "N", "", "primary key").
		AddRow("EMAIL", "VARCHAR(255)", "Y", "", "")
	expectPipeline(mock, false, regexp.QuoteMeta("DESCRIBE TABLE ANALYTICS.PUBLIC.USERS"), rows)

	output := s.DescribeTable(context.Background(), "ANALYTICS.PUBLIC.USERS")
	if output.Error != "" {
		t.Fatalf("unexpected error: %s", output.Error)
	}
	if output.Database != "ANALYTICS" || output.Schema != "PUBLIC" || output.Table != "USERS" {
		t.Fatalf("unexpected name split: %+v", output)
	}
	if len(output.Columns) != 2 {
		t.Fatalf("expected 2 columns, got %d", len(output.Columns))
	}
	if output.Columns[0].Nullable {
		t.Fatal("expected ID to be non-nullable")
	}
	if !output.Columns[1].Nullable || output.Columns[1].Type != "VARCHAR(255)" {
		t.Fatalf("unexpected EMAIL column: %+v", output.Columns[1])
	}
	assertExpectationsMet(t, mock)
}

func TestDescribeTable_InvalidNames(t *testing.T) {
	t.Parallel()
	s, mock := newTestInstance(t, defaultConfig())

	for _, name := range []string{"", "a.b.c.d", "users; DROP TABLE x", "db..users"} {
		output := s.DescribeTable(context.Background(), name)
		if output.Error == "" {
			t.Fatalf("expected rejection for %q", name)
		}
	}
	assertExpectationsMet(t, mock)
}

func TestCheckDatabase_FullyAccessible(t *testing.T) {
	t.Parallel()
	s, mock := newTestInstance(t, defaultConfig())

	expectPipeline(mock, false, regexp.QuoteMeta("SHOW DATABASES LIKE 'ANALYTICS'"),
		sqlmock.NewRows([]string{"name"}).AddRow("ANALYTICS"))
	expectPipeline(mock, true, regexp.QuoteMeta("SHOW SCHEMAS IN DATABASE ANALYTICS"),
		sqlmock.NewRows([]string{"name"}).AddRow("PUBLIC").AddRow("STAGING"))
	expectPipeline(mock, true, regexp.QuoteMeta("SHOW TABLES IN SCHEMA ANALYTICS.PUBLIC"),
		sqlmock.NewRows([]string{"name"}).AddRow("ORDERS").AddRow("USERS").AddRow("EVENTS"))

	output := s.CheckDatabase(context.Background(), "ANALYTICS", "PUBLIC")
	if output.Error != "" {
		t.Fatalf("unexpected error: %s", output.Error)
	}
	if !output.Accessible || output.SchemaCount != 2 {
		t.Fatalf("unexpected database result: %+v", output)
	}
	if !output.SchemaAccessible || output.TableCount != 3 {
		t.Fatalf("unexpected schema result: %+v", output)
	}
	assertExpectationsMet(t, mock)
}

func TestCheckDatabase_NotAccessible(t *testing.T) {
	t.Parallel()
	s, mock := newTestInstance(t, defaultConfig())

	expectPipeline(mock, false, regexp.QuoteMeta("SHOW DATABASES LIKE 'SECRETS'"),
		sqlmock.NewRows([]string{"name"}))

	output := s.CheckDatabase(context.Background(), "SECRETS", "")
	if output.Error != "" {
		t.Fatalf("unexpected error: %s", output.Error)
	}
	if output.Accessible {
		t.Fatal("expected database to be inaccessible")
	}
	if output.SchemaCount != 0 {
		t.Fatalf("expected no schema probing for inaccessible database, got count %d", output.SchemaCount)
	}
	assertExpectationsMet(t, mock)
}

func TestCheckDatabase_SchemaMissing(t *testing.T) {
	t.Parallel()
	s, mock := newTestInstance(t, defaultConfig())

	expectPipeline(mock, false, regexp.QuoteMeta("SHOW DATABASES LIKE 'ANALYTICS'"),
		sqlmock.NewRows([]string{"name"}).AddRow("ANALYTICS"))
	expectPipeline(mock, true, regexp.QuoteMeta("SHOW SCHEMAS IN DATABASE ANALYTICS"),
		sqlmock.NewRows([]string{"name"}).AddRow("PUBLIC"))

	output := s.CheckDatabase(context.Background(), "ANALYTICS", "GHOST")
	if output.Error != "" {
		t.Fatalf("unexpected error: %s", output.Error)
	}
	if !output.Accessible || output.SchemaAccessible {
		t.Fatalf("unexpected result: %+v", output)
	}
	assertExpectationsMet(t, mock)
}

func TestValidateIdentifier(t *testing.T) {
	t.Parallel()
	for _, name := range []string{"users", "USERS", "_internal", "tab$le", "a1"} {
		if err := validateIdentifier("table", name); err != nil {
			t.Fatalf("expected %q to be valid: %v", name, err)
		}
	}
	for _, name := range []string{"", "1abc", "a-b", "a b", "a;b", "a'b", `a"b`} {
		if err := validateIdentifier("table", name); err == nil {
			t.Fatalf("expected %q to be rejected", name)
		}
	}
}
