package snowmcp

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	sf "github.com/snowflakedb/gosnowflake"

	"github.com/snowmcp/snowmcp/internal/advise"
	"github.com/snowmcp/snowmcp/internal/mask"
)

// SnowflakeMcp is the core engine that provides the Query tool and the
// metadata tools (ListDatabases, ListSchemas, ListTables, DescribeTable,
// CheckDatabase). All exported methods are safe for concurrent use; calls
// sharing the single warehouse session are serialized internally.
//
// Construction never touches credentials or the network. The connection
// configuration is resolved, from Config or the environment, on the first
// call that actually needs the warehouse.
type SnowflakeMcp struct {
	logger  zerolog.Logger
	masker  *mask.Masker
	advisor *advise.Advisor

	mu         sync.Mutex // guards everything below and serializes executions
	configured bool
	connCfg    ConnectionConfig
	queryCfg   QueryConfig
	db         *sql.DB
	conn       *sql.Conn // the single warehouse session; nil when absent

	// openDB is swapped out in tests to avoid a real Snowflake connection.
	openDB func(cc ConnectionConfig) (*sql.DB, error)
}

// Option is a functional option for New().
type Option func(*options)

type options struct {
	config *Config
}

// WithConfig provides a full configuration up front instead of lazy
// environment loading. A zero-value Connection still defers credential
// loading to first use.
func WithConfig(config Config) Option {
	return func(o *options) {
		o.config = &config
	}
}

// New creates a new SnowflakeMcp instance. It validates masking and error
// prompt rules eagerly but defers connection configuration until first use.
func New(logger zerolog.Logger, opts ...Option) (*SnowflakeMcp, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	var cfg Config
	if o.config != nil {
		cfg = *o.config
	}

	maskRules := make([]mask.Rule, len(cfg.Masking))
	for i, r := range cfg.Masking {
		maskRules[i] = mask.Rule{Pattern: r.Pattern, Replacement: r.Replacement}
	}
	masker, err := mask.New(maskRules)
	if err != nil {
		return nil, err
	}

	adviseRules := make([]advise.Rule, len(cfg.ErrorPrompts))
	for i, r := range cfg.ErrorPrompts {
		adviseRules[i] = advise.Rule{Pattern: r.Pattern, Message: r.Message}
	}
	advisor, err := advise.New(adviseRules)
	if err != nil {
		return nil, err
	}

	s := &SnowflakeMcp{
		logger:  logger,
		masker:  masker,
		advisor: advisor,
		openDB:  openSnowflakeDB,
	}
	if o.config != nil {
		s.queryCfg = applyQueryDefaults(cfg.Query)
		if cfg.Connection.Account != "" {
			s.connCfg = cfg.Connection
			s.configured = true
		}
	}
	return s, nil
}

// ensureConfigured resolves the connection and query configuration on first
// use. Must be called with s.mu held.
func (s *SnowflakeMcp) ensureConfigured() error {
	if s.configured {
		return nil
	}
	cc, err := ConnectionConfigFromEnv()
	if err != nil {
		return &ConnectionUnavailableError{Err: err}
	}
	if s.queryCfg == (QueryConfig{}) {
		qc, err := QueryConfigFromEnv()
		if err != nil {
			return &ConnectionUnavailableError{Err: err}
		}
		s.queryCfg = qc
	}
	s.connCfg = cc
	s.configured = true
	s.logger.Info().
		Str("account", cc.Account).
		Str("user", cc.User).
		Msg("session configuration loaded")
	return nil
}

// openSnowflakeDB builds a gosnowflake DSN and opens the database handle.
// No network traffic happens here; the first connection is established when
// a session is pinned.
func openSnowflakeDB(cc ConnectionConfig) (*sql.DB, error) {
	dsn, err := sf.DSN(&sf.Config{
		Account:          cc.Account,
		User:             cc.User,
		Password:         cc.Password,
		Warehouse:        cc.Warehouse,
		Database:         cc.Database,
		Schema:           cc.Schema,
		Role:             cc.Role,
		KeepSessionAlive: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build Snowflake DSN: %w", err)
	}
	db, err := sql.Open("snowflake", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open Snowflake driver: %w", err)
	}
	// One logical session per process: session-scoped directives (query tag,
	// cache toggle) only behave predictably on a single pinned connection.
	db.SetMaxOpenConns(1)
	return db, nil
}

// Close tears down the warehouse session. Close-time errors are logged and
// swallowed; the engine is left in the absent-connection state.
func (s *SnowflakeMcp) Close(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			s.logger.Error().Err(err).Msg("error closing Snowflake session")
		} else {
			s.logger.Info().Msg("disconnected from Snowflake")
		}
		s.conn = nil
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error().Err(err).Msg("error closing Snowflake driver")
		}
		s.db = nil
	}
}
