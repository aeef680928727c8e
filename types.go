package snowmcp

// QueryInput is the input for the Query tool. TimeoutSeconds and DisableCache
// are pointers so that "not provided" is distinguishable from an explicit
// zero/false; absent values fall back to the session configuration.
type QueryInput struct {
	SQL            string `json:"sql"`
	TimeoutSeconds *int   `json:"timeout_seconds,omitempty"`
	QueryTag       string `json:"query_tag,omitempty"`
	DisableCache   *bool  `json:"disable_cache,omitempty"`
}

// QueryOutput is the output of the Query tool. All failures (validation,
// classification, connection, warehouse errors) are placed in Error so that
// callers only need to check one field.
type QueryOutput struct {
	Columns         []string                 `json:"columns"`
	Rows            []map[string]interface{} `json:"rows"`
	RowCount        int                      `json:"row_count"`
	HasMoreRows     bool                     `json:"has_more_rows"`
	MaxRowsReturned int                      `json:"max_rows_returned"`
	QueryID         string                   `json:"query_id,omitempty"`
	QueryTag        string                   `json:"query_tag,omitempty"`
	Error           string                   `json:"error,omitempty"`
}

// ListDatabasesOutput is the output of the ListDatabases tool.
type ListDatabasesOutput struct {
	Databases []string `json:"databases"`
	Error     string   `json:"error,omitempty"`
}

// ListSchemasOutput is the output of the ListSchemas tool.
type ListSchemasOutput struct {
	Database string   `json:"database"`
	Schemas  []string `json:"schemas"`
	Error    string   `json:"error,omitempty"`
}

// TableEntry represents a single table in the ListTables output.
type TableEntry struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Comment string `json:"comment,omitempty"`
}

// ListTablesOutput is the output of the ListTables tool.
type ListTablesOutput struct {
	Database string       `json:"database"`
	Schema   string       `json:"schema"`
	Tables   []TableEntry `json:"tables"`
	Error    string       `json:"error,omitempty"`
}

// ColumnInfo describes a single column in a DescribeTable output.
type ColumnInfo struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
	Default  string `json:"default,omitempty"`
	Comment  string `json:"comment,omitempty"`
}

// DescribeTableOutput is the output of the DescribeTable tool.
type DescribeTableOutput struct {
	Database string       `json:"database"`
	Schema   string       `json:"schema"`
	Table    string       `json:"table"`
	Columns  []ColumnInfo `json:"columns"`
	Error    string       `json:"error,omitempty"`
}

// CheckDatabaseOutput is the output of the CheckDatabase tool.
type CheckDatabaseOutput struct {
	Database         string `json:"database"`
	Accessible       bool   `json:"accessible"`
	SchemaCount      int    `json:"schema_count"`
	Schema           string `json:"schema,omitempty"`
	SchemaAccessible bool   `json:"schema_accessible,omitempty"`
	TableCount       int    `json:"table_count,omitempty"`
	Error            string `json:"error,omitempty"`
}
