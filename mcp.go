package snowmcp

import (
	"context"
	"encoding/json"
	"math"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// RegisterMCPTools registers the query and metadata tools on the given MCP
// server.
func RegisterMCPTools(mcpServer *server.MCPServer, snowMcp *SnowflakeMcp) {
	// execute_query tool
	queryTool := mcp.NewTool("execute_query",
		mcp.WithDescription("Execute a read-only SQL query against Snowflake. Only SELECT, WITH, SHOW, DESCRIBE, and EXPLAIN statements are allowed. Returns results as JSON."),
		mcp.WithString("sql",
			mcp.Required(),
			mcp.Description("The SQL query to execute"),
		),
		mcp.WithNumber("timeout_seconds",
			mcp.Description("Per-query timeout override in seconds (1-3600). Defaults to the configured timeout."),
		),
		mcp.WithString("query_tag",
			mcp.Description("Query tag for warehouse-side tracking. Auto-generated when omitted."),
		),
		mcp.WithBoolean("disable_cache",
			mcp.Description("Disable the Snowflake result cache for this query. Defaults to the configured setting."),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	mcpServer.AddTool(queryTool, snowMcp.loggedToolHandler("execute_query", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sql, err := req.RequireString("sql")
		if err != nil {
			return mcp.NewToolResultError("sql parameter is required"), nil
		}
		input := QueryInput{SQL: sql, QueryTag: req.GetString("query_tag", "")}

		args := req.GetArguments()
		if v, ok := args["timeout_seconds"]; ok {
			f, isNum := v.(float64)
			if !isNum || f != math.Trunc(f) {
				return mcp.NewToolResultError("timeout_seconds must be an integer"), nil
			}
			t := int(f)
			input.TimeoutSeconds = &t
		}
		if v, ok := args["disable_cache"]; ok {
			b, isBool := v.(bool)
			if !isBool {
				return mcp.NewToolResultError("disable_cache must be a boolean"), nil
			}
			input.DisableCache = &b
		}

		output := snowMcp.Query(ctx, input)
		if output.Error != "" {
			return mcp.NewToolResultError(output.Error), nil
		}
		return marshalToolResult(output, "query")
	}))

	// list_databases tool
	listDatabasesTool := mcp.NewTool("list_databases",
		mcp.WithDescription("List all Snowflake databases accessible to the current role."),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	mcpServer.AddTool(listDatabasesTool, snowMcp.loggedToolHandler("list_databases", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		output := snowMcp.ListDatabases(ctx)
		if output.Error != "" {
			return mcp.NewToolResultError(output.Error), nil
		}
		return marshalToolResult(output, "list databases")
	}))

	// list_schemas tool
	listSchemasTool := mcp.NewTool("list_schemas",
		mcp.WithDescription("List schemas in a Snowflake database. Uses the session's current database when omitted."),
		mcp.WithString("database",
			mcp.Description("The database to list schemas from"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	mcpServer.AddTool(listSchemasTool, snowMcp.loggedToolHandler("list_schemas", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		output := snowMcp.ListSchemas(ctx, req.GetString("database", ""))
		if output.Error != "" {
			return mcp.NewToolResultError(output.Error), nil
		}
		return marshalToolResult(output, "list schemas")
	}))

	// list_tables tool
	listTablesTool := mcp.NewTool("list_tables",
		mcp.WithDescription("List tables in a Snowflake schema. Uses the session's current schema when database and schema are omitted."),
		mcp.WithString("database",
			mcp.Description("The database containing the schema"),
		),
		mcp.WithString("schema",
			mcp.Description("The schema to list tables from"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	mcpServer.AddTool(listTablesTool, snowMcp.loggedToolHandler("list_tables", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		output := snowMcp.ListTables(ctx, req.GetString("database", ""), req.GetString("schema", ""))
		if output.Error != "" {
			return mcp.NewToolResultError(output.Error), nil
		}
		return marshalToolResult(output, "list tables")
	}))

	// describe_table tool
	describeTableTool := mcp.NewTool("describe_table",
		mcp.WithDescription("Describe the columns of a Snowflake table, including types, nullability, defaults, and comments."),
		mcp.WithString("table_name",
			mcp.Required(),
			mcp.Description("The table name, optionally qualified as database.schema.table"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	mcpServer.AddTool(describeTableTool, snowMcp.loggedToolHandler("describe_table", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tableName, err := req.RequireString("table_name")
		if err != nil {
			return mcp.NewToolResultError("table_name parameter is required"), nil
		}
		output := snowMcp.DescribeTable(ctx, tableName)
		if output.Error != "" {
			return mcp.NewToolResultError(output.Error), nil
		}
		return marshalToolResult(output, "describe table")
	}))

	// check_database_exists tool
	checkDatabaseTool := mcp.NewTool("check_database_exists",
		mcp.WithDescription("Check whether a Snowflake database (and optionally a schema inside it) is accessible to the current role."),
		mcp.WithString("database",
			mcp.Required(),
			mcp.Description("The database to check"),
		),
		mcp.WithString("schema",
			mcp.Description("A schema inside the database to check as well"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	mcpServer.AddTool(checkDatabaseTool, snowMcp.loggedToolHandler("check_database_exists", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		database, err := req.RequireString("database")
		if err != nil {
			return mcp.NewToolResultError("database parameter is required"), nil
		}
		output := snowMcp.CheckDatabase(ctx, database, req.GetString("schema", ""))
		if output.Error != "" {
			return mcp.NewToolResultError(output.Error), nil
		}
		return marshalToolResult(output, "check database")
	}))
}

// marshalToolResult serializes a tool output struct as the text content of a
// successful MCP result.
func marshalToolResult(output interface{}, what string) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(output)
	if err != nil {
		return mcp.NewToolResultError("failed to marshal " + what + " result"), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// loggedToolHandler wraps a tool handler to log request and response lengths.
func (s *SnowflakeMcp) loggedToolHandler(tool string, handler server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		reqLen := requestLength(req)
		result, err := handler(ctx, req)
		respLen := resultLength(result)
		s.logger.Info().
			Str("tool", tool).
			Int("request_bytes", reqLen).
			Int("response_bytes", respLen).
			Msg("tool call")
		return result, err
	}
}

// requestLength returns the JSON-encoded byte length of the request arguments.
func requestLength(req mcp.CallToolRequest) int {
	args := req.GetArguments()
	if len(args) == 0 {
		return 0
	}
	b, err := json.Marshal(args)
	if err != nil {
		return 0
	}
	return len(b)
}

// resultLength returns the total byte length of text content in a CallToolResult.
func resultLength(result *mcp.CallToolResult) int {
	if result == nil {
		return 0
	}
	total := 0
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			total += len(tc.Text)
		}
	}
	return total
}
