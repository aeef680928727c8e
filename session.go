package snowmcp

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sf "github.com/snowflakedb/gosnowflake"
)

// snowflakeQueryTimeoutCode is the Snowflake error number reported when a
// statement is cancelled for exceeding its timeout.
const snowflakeQueryTimeoutCode = 604

// revertTimeout bounds the session-directive revert statements. Reverts run
// on their own context because the query context may already be expired.
const revertTimeout = 10 * time.Second

// QueryOptions are the per-call session options for execute. Every field is
// optional; zero values fall back to the session configuration. Options are
// applied before the query and reverted after it, success or failure, so no
// call observes the options of a prior call on the shared session.
type QueryOptions struct {
	// TimeoutSeconds overrides QueryConfig.DefaultTimeoutSeconds when > 0.
	TimeoutSeconds int
	// QueryTag labels this execution on the warehouse side. Auto-generated
	// from the current timestamp when empty.
	QueryTag string
	// DisableCache controls the warehouse result cache for this call.
	// Nil falls back to the configured default (cache disabled).
	DisableCache *bool
}

type executeResult struct {
	out *QueryOutput
	err error
}

// execute runs one query through the session pipeline. The blocking pipeline
// runs on its own goroutine so callers waiting on ctx are never stalled by a
// slow warehouse round trip. A dispatched query always runs to completion,
// error, or timeout; there is no mid-flight abort.
func (s *SnowflakeMcp) execute(ctx context.Context, query string, opts QueryOptions) (*QueryOutput, error) {
	ch := make(chan executeResult, 1)
	go func() {
		out, err := s.executePipeline(query, opts)
		ch <- executeResult{out: out, err: err}
	}()

	select {
	case r := <-ch:
		return r.out, r.err
	case <-ctx.Done():
		// The pipeline keeps running and reverts its session directives;
		// only the caller stops waiting.
		return nil, &QueryFailedError{Err: fmt.Errorf("caller cancelled while query was in flight: %w", ctx.Err())}
	}
}

// executePipeline holds the session lock for the full pipeline: health check,
// per-call directives, query, bounded fetch, and directive revert. One
// in-flight execution per session handle.
func (s *SnowflakeMcp) executePipeline(query string, opts QueryOptions) (*QueryOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureConfigured(); err != nil {
		return nil, err
	}

	timeout := time.Duration(s.queryCfg.DefaultTimeoutSeconds) * time.Second
	if opts.TimeoutSeconds > 0 {
		timeout = time.Duration(opts.TimeoutSeconds) * time.Second
	}
	tag := opts.QueryTag
	if tag == "" {
		tag = autoQueryTag(time.Now())
	}
	disableCache := !s.queryCfg.UseCachedResults
	if opts.DisableCache != nil {
		disableCache = *opts.DisableCache
	}

	// The timeout context is derived from Background, not the caller's
	// context: cancellation beyond the statement timeout is a non-goal.
	queryCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.ensureConn(queryCtx); err != nil {
		return nil, err
	}

	if disableCache {
		if _, err := s.conn.ExecContext(queryCtx, "ALTER SESSION SET USE_CACHED_RESULT = FALSE"); err != nil {
			return nil, normalizeExecError(err, timeout)
		}
		defer s.revertDirective("ALTER SESSION SET USE_CACHED_RESULT = TRUE")
	}

	if _, err := s.conn.ExecContext(queryCtx, fmt.Sprintf("ALTER SESSION SET QUERY_TAG = '%s'", escapeTag(tag))); err != nil {
		return nil, normalizeExecError(err, timeout)
	}
	defer s.revertDirective("ALTER SESSION SET QUERY_TAG = NULL")

	rows, err := s.conn.QueryContext(queryCtx, query)
	if err != nil {
		return nil, normalizeExecError(err, timeout)
	}

	columns, resultRows, hasMore, err := collectRows(rows, s.queryCfg.MaxRows)
	if err != nil {
		return nil, normalizeExecError(err, timeout)
	}

	// Read the query ID before the deferred reverts run; the reverts are
	// themselves queries and would overwrite LAST_QUERY_ID.
	queryID := s.lastQueryID(queryCtx)

	return &QueryOutput{
		Columns:         columns,
		Rows:            resultRows,
		RowCount:        len(resultRows),
		HasMoreRows:     hasMore,
		MaxRowsReturned: s.queryCfg.MaxRows,
		QueryID:         queryID,
		QueryTag:        tag,
	}, nil
}

// ensureConn guarantees a healthy pinned session, creating or replacing the
// handle as needed. Must be called with s.mu held so that two calls observing
// a dead handle cannot race to open two sessions.
func (s *SnowflakeMcp) ensureConn(ctx context.Context) error {
	if s.conn != nil {
		err := s.conn.PingContext(ctx)
		if err == nil {
			return nil
		}
		s.logger.Warn().Err(err).Msg("session health probe failed, reconnecting")
		_ = s.conn.Close()
		s.conn = nil
	}

	if s.db == nil {
		db, err := s.openDB(s.connCfg)
		if err != nil {
			return &ConnectionUnavailableError{Err: err}
		}
		s.db = db
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return &ConnectionUnavailableError{Err: err}
	}
	s.conn = conn
	s.logger.Info().Msg("connected to Snowflake")
	return nil
}

// revertDirective restores a session setting after a call. Failures are
// logged but never mask the call's own result or error.
func (s *SnowflakeMcp) revertDirective(stmt string) {
	if s.conn == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), revertTimeout)
	defer cancel()
	if _, err := s.conn.ExecContext(ctx, stmt); err != nil {
		s.logger.Error().Err(err).Str("directive", stmt).Msg("failed to revert session directive")
	}
}

// lastQueryID fetches the warehouse-assigned identifier of the query that
// just ran. Best-effort: the ID is informational metadata.
func (s *SnowflakeMcp) lastQueryID(ctx context.Context) string {
	var id string
	if err := s.conn.QueryRowContext(ctx, "SELECT LAST_QUERY_ID()").Scan(&id); err != nil {
		s.logger.Warn().Err(err).Msg("failed to fetch query ID")
		return ""
	}
	return id
}

// collectRows materializes at most maxRows rows and probes for one more to
// detect truncation without returning the extra row.
func collectRows(rows *sql.Rows, maxRows int) ([]string, []map[string]interface{}, bool, error) {
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		// Statements with no tabular result (some SHOW forms) have no
		// column metadata.
		columns = []string{}
	}

	resultRows := make([]map[string]interface{}, 0)
	hasMore := false
	for rows.Next() {
		if len(resultRows) >= maxRows {
			hasMore = true
			break
		}
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, false, err
		}
		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			row[col] = convertValue(values[i])
		}
		resultRows = append(resultRows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, false, err
	}
	return columns, resultRows, hasMore, nil
}

// convertValue converts a driver-returned value to a JSON-friendly Go type.
func convertValue(v interface{}) interface{} {
	switch val := v.(type) {
	case nil:
		return nil
	case time.Time:
		return val.Format(time.RFC3339Nano)
	case []byte:
		return string(val)
	default:
		return val
	}
}

// normalizeExecError translates warehouse failures into the error taxonomy.
// Snowflake's statement-timeout error code and a context deadline both become
// QueryTimeoutError carrying the effective timeout.
func normalizeExecError(err error, timeout time.Duration) error {
	var se *sf.SnowflakeError
	if errors.As(err, &se) && se.Number == snowflakeQueryTimeoutCode {
		return &QueryTimeoutError{Timeout: timeout}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &QueryTimeoutError{Timeout: timeout}
	}
	return &QueryFailedError{Err: err}
}

// autoQueryTag derives a per-call tag with millisecond precision so rapid
// sequential calls get distinct tags.
func autoQueryTag(now time.Time) string {
	return fmt.Sprintf("mcp_%s_%03d", now.Format("20060102_150405"), now.Nanosecond()/1e6)
}

// escapeTag doubles single quotes so a tag value cannot break out of the
// session directive's string literal.
func escapeTag(tag string) string {
	return strings.ReplaceAll(tag, "'", "''")
}
