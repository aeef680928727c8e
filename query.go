package snowmcp

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/snowmcp/snowmcp/internal/classify"
)

// Timeout override bounds, in seconds.
const (
	minTimeoutSeconds = 1
	maxTimeoutSeconds = 3600
)

// Query executes the full query pipeline and returns only QueryOutput.
// All failures (validation rejections, read-only guard rejections, connection
// failures, warehouse errors, timeouts) are converted to output.Error. The
// error message is then evaluated against error_prompts patterns; matching
// prompt messages are appended. Callers only need to check output.Error,
// never a Go error.
func (s *SnowflakeMcp) Query(ctx context.Context, input QueryInput) *QueryOutput {
	startTime := time.Now()

	// 1. Validate the per-call options before any classification or I/O.
	opts := QueryOptions{
		QueryTag:     input.QueryTag,
		DisableCache: input.DisableCache,
	}
	if input.TimeoutSeconds != nil {
		t := *input.TimeoutSeconds
		if t < minTimeoutSeconds || t > maxTimeoutSeconds {
			return s.handleError(&ValidationError{
				Message: "Timeout must be an integer between 1 and 3600 seconds",
			})
		}
		opts.TimeoutSeconds = t
	}

	// 2. Read-only guard. Rejected queries never reach the warehouse.
	if err := classify.Check(input.SQL); err != nil {
		var rej *classify.RejectionError
		if errors.As(err, &rej) {
			return s.handleError(&ClassificationError{Reason: rej.Reason})
		}
		return s.handleError(err)
	}

	// 3. Execute on the shared session.
	result, err := s.execute(ctx, input.SQL, opts)
	if err != nil {
		return s.handleError(err)
	}

	// 4. Apply masking (per-field, recursive into VARIANT/ARRAY values).
	masked := s.masker.HasRules()
	result.Rows = s.masker.MaskRows(result.Rows)

	// 5. Log successful query execution.
	logEvent := s.logger.Info().
		Str("sql", truncateForLog(input.SQL, 200)).
		Dur("duration", time.Since(startTime)).
		Int("row_count", result.RowCount).
		Str("query_id", result.QueryID).
		Str("query_tag", result.QueryTag)
	if result.HasMoreRows {
		logEvent = logEvent.Bool("has_more_rows", true)
	}
	if masked {
		logEvent = logEvent.Bool("masked", true)
	}
	logEvent.Msg("query executed")

	return result
}

// handleError converts any error into a QueryOutput with error message.
// The error message is evaluated against error_prompts; matching prompt
// messages are appended.
func (s *SnowflakeMcp) handleError(err error) *QueryOutput {
	return &QueryOutput{Error: s.adviseError(err, "query error")}
}

// truncateForLog truncates a string for log output to avoid oversized log entries.
func truncateForLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	truncateAt := maxLen
	for truncateAt > 0 && !utf8.RuneStart(s[truncateAt]) {
		truncateAt--
	}
	return s[:truncateAt] + "...[truncated]"
}
