// Package snowmcp provides safe, read-only Snowflake access for AI agents
// through the Model Context Protocol (MCP).
//
// It exposes a query tool and five metadata tools (list_databases,
// list_schemas, list_tables, describe_table, check_database_exists) backed by
// a single warehouse session with a full execution pipeline: a lexical
// read-only guard, per-call session directives (query tag, result cache
// toggle, timeout), bounded result materialization, data masking, and dynamic
// agent steering via error prompts.
//
// Only SELECT, WITH, SHOW, DESCRIBE, and EXPLAIN statements pass the guard.
// Everything else, including any statement containing a write or DDL keyword,
// is rejected before it reaches the warehouse. The guard is lexical on
// purpose: it never needs to keep pace with Snowflake's SQL dialect, at the
// cost of rejecting some legal read-only queries that merely mention a
// forbidden keyword outside of comments and leading position.
//
// All tool calls share one Snowflake session, serialized internally. Each
// call health-checks the session first and reconnects transparently if it has
// gone stale. Session directives set for a call are always reverted before
// the next call runs, so no call observes another call's query tag or cache
// setting.
//
// # Library Usage
//
//	s, err := snowmcp.New(logger, snowmcp.WithConfig(snowmcp.Config{
//		Connection: snowmcp.ConnectionConfig{
//			Account:  "myorg-myaccount",
//			User:     "agent",
//			Password: os.Getenv("SNOWFLAKE_PASSWORD"),
//		},
//		Query: snowmcp.QueryConfig{
//			DefaultTimeoutSeconds: 30,
//			MaxRows:               10000,
//		},
//	}))
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer s.Close(ctx)
//
//	// Use directly
//	output := s.Query(ctx, snowmcp.QueryInput{SQL: "SELECT * FROM users LIMIT 10"})
//
//	// Or register as MCP tools
//	snowmcp.RegisterMCPTools(mcpServer, s)
//
// Without WithConfig, credentials are loaded lazily from SNOWFLAKE_*
// environment variables (and a .env file, if present) on the first call that
// needs the warehouse. Construction itself never touches the network, so an
// MCP handshake can complete before credentials are checked.
package snowmcp
