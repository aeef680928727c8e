package snowmcp

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// safeIdentifierRe matches unquoted Snowflake identifiers. Metadata tool
// arguments are interpolated into SHOW/DESCRIBE statements, so anything that
// could break out of an identifier position is rejected up front.
var safeIdentifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*$`)

func validateIdentifier(kind, name string) error {
	if name == "" {
		return &ValidationError{Message: fmt.Sprintf("%s name cannot be empty", kind)}
	}
	if !safeIdentifierRe.MatchString(name) {
		return &ValidationError{Message: fmt.Sprintf("invalid %s name: %q", kind, name)}
	}
	return nil
}

// ListDatabases lists databases accessible to the current role.
func (s *SnowflakeMcp) ListDatabases(ctx context.Context) *ListDatabasesOutput {
	result, err := s.execute(ctx, "SHOW DATABASES", QueryOptions{})
	if err != nil {
		return &ListDatabasesOutput{Error: s.adviseError(err, "metadata tool error")}
	}
	return &ListDatabasesOutput{Databases: namesFromRows(result.Rows)}
}

// ListSchemas lists schemas in the given database, or in the session's
// current database when database is empty.
func (s *SnowflakeMcp) ListSchemas(ctx context.Context, database string) *ListSchemasOutput {
	out := &ListSchemasOutput{Database: database}
	stmt := "SHOW SCHEMAS"
	if database != "" {
		if err := validateIdentifier("database", database); err != nil {
			out.Error = s.adviseError(err, "metadata tool error")
			return out
		}
		stmt = fmt.Sprintf("SHOW SCHEMAS IN DATABASE %s", database)
	}
	result, err := s.execute(ctx, stmt, QueryOptions{})
	if err != nil {
		out.Error = s.adviseError(err, "metadata tool error")
		return out
	}
	out.Schemas = namesFromRows(result.Rows)
	return out
}

// ListTables lists tables in the given database and schema, or in the
// session's current schema when both are empty.
func (s *SnowflakeMcp) ListTables(ctx context.Context, database, schema string) *ListTablesOutput {
	out := &ListTablesOutput{Database: database, Schema: schema}
	stmt := "SHOW TABLES"
	if database != "" || schema != "" {
		if database == "" || schema == "" {
			out.Error = s.adviseError(&ValidationError{
				Message: "database and schema must be provided together",
			}, "metadata tool error")
			return out
		}
		if err := validateIdentifier("database", database); err != nil {
			out.Error = s.adviseError(err, "metadata tool error")
			return out
		}
		if err := validateIdentifier("schema", schema); err != nil {
			out.Error = s.adviseError(err, "metadata tool error")
			return out
		}
		stmt = fmt.Sprintf("SHOW TABLES IN SCHEMA %s.%s", database, schema)
	}
	result, err := s.execute(ctx, stmt, QueryOptions{})
	if err != nil {
		out.Error = s.adviseError(err, "metadata tool error")
		return out
	}
	tables := make([]TableEntry, 0, len(result.Rows))
	for _, row := range result.Rows {
		tables = append(tables, TableEntry{
			Name:    rowString(row, "name"),
			Kind:    rowString(row, "kind"),
			Comment: rowString(row, "comment"),
		})
	}
	out.Tables = tables
	return out
}

// DescribeTable describes the columns of a table. The table name may be
// qualified as table, schema.table, or database.schema.table.
func (s *SnowflakeMcp) DescribeTable(ctx context.Context, tableName string) *DescribeTableOutput {
	out := &DescribeTableOutput{}

	parts := strings.Split(tableName, ".")
	if tableName == "" || len(parts) > 3 {
		out.Error = s.adviseError(&ValidationError{
			Message: fmt.Sprintf("invalid table name: %q", tableName),
		}, "metadata tool error")
		return out
	}
	for _, part := range parts {
		if err := validateIdentifier("table", part); err != nil {
			out.Error = s.adviseError(err, "metadata tool error")
			return out
		}
	}
	switch len(parts) {
	case 3:
		out.Database, out.Schema, out.Table = parts[0], parts[1], parts[2]
	case 2:
		out.Schema, out.Table = parts[0], parts[1]
	default:
		out.Table = parts[0]
	}

	result, err := s.execute(ctx, fmt.Sprintf("DESCRIBE TABLE %s", tableName), QueryOptions{})
	if err != nil {
		out.Error = s.adviseError(err, "metadata tool error")
		return out
	}
	columns := make([]ColumnInfo, 0, len(result.Rows))
	for _, row := range result.Rows {
		columns = append(columns, ColumnInfo{
			Name:     rowString(row, "name"),
			Type:     rowString(row, "type"),
			Nullable: rowString(row, "null?") == "Y",
			Default:  rowString(row, "default"),
			Comment:  rowString(row, "comment"),
		})
	}
	out.Columns = columns
	return out
}

// CheckDatabase reports whether a database (and optionally a schema inside
// it) is visible to the current role, along with object counts.
func (s *SnowflakeMcp) CheckDatabase(ctx context.Context, database, schema string) *CheckDatabaseOutput {
	out := &CheckDatabaseOutput{Database: database, Schema: schema}

	if err := validateIdentifier("database", database); err != nil {
		out.Error = s.adviseError(err, "metadata tool error")
		return out
	}
	if schema != "" {
		if err := validateIdentifier("schema", schema); err != nil {
			out.Error = s.adviseError(err, "metadata tool error")
			return out
		}
	}

	result, err := s.execute(ctx, fmt.Sprintf("SHOW DATABASES LIKE '%s'", database), QueryOptions{})
	if err != nil {
		out.Error = s.adviseError(err, "metadata tool error")
		return out
	}
	for _, name := range namesFromRows(result.Rows) {
		if strings.EqualFold(name, database) {
			out.Accessible = true
			break
		}
	}
	if !out.Accessible {
		return out
	}

	schemasResult, err := s.execute(ctx, fmt.Sprintf("SHOW SCHEMAS IN DATABASE %s", database), QueryOptions{})
	if err != nil {
		out.Error = s.adviseError(err, "metadata tool error")
		return out
	}
	schemaNames := namesFromRows(schemasResult.Rows)
	out.SchemaCount = len(schemaNames)

	if schema == "" {
		return out
	}
	for _, name := range schemaNames {
		if strings.EqualFold(name, schema) {
			out.SchemaAccessible = true
			break
		}
	}
	if !out.SchemaAccessible {
		return out
	}

	tablesResult, err := s.execute(ctx, fmt.Sprintf("SHOW TABLES IN SCHEMA %s.%s", database, schema), QueryOptions{})
	if err != nil {
		out.Error = s.adviseError(err, "metadata tool error")
		return out
	}
	out.TableCount = len(tablesResult.Rows)
	return out
}

// adviseError formats an error for a tool output's Error field, appending any
// matching error prompt messages, and logs it under logMsg.
func (s *SnowflakeMcp) adviseError(err error, logMsg string) string {
	errMsg := err.Error()
	prompt := s.advisor.Advise(errMsg)
	patterns := s.advisor.MatchedPatterns(errMsg)

	logEvent := s.logger.Error().Err(err)
	if len(patterns) > 0 {
		logEvent = logEvent.Strs("error_prompts", patterns)
	}
	logEvent.Msg(logMsg)

	if prompt != "" {
		errMsg = errMsg + "\n\n" + prompt
	}
	return errMsg
}

// namesFromRows extracts the "name" column from SHOW command rows.
func namesFromRows(rows []map[string]interface{}) []string {
	names := make([]string, 0, len(rows))
	for _, row := range rows {
		if name := rowString(row, "name"); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// rowString reads a string-valued field from a result row, tolerating both
// missing keys and non-string values.
func rowString(row map[string]interface{}, key string) string {
	if v, ok := row[key].(string); ok {
		return v
	}
	return ""
}
