package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	snowmcp "github.com/snowmcp/snowmcp"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"golang.org/x/term"
)

const serverVersion = "1.0.0"

func runServe() error {
	ctx := context.Background()

	_ = godotenv.Load()

	// 1. Load ServerConfig (optional; defaults mean stdio + env credentials)
	serverConfig, err := loadServerConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := applyEnvOverrides(serverConfig); err != nil {
		return err
	}

	// 2. Setup logger. On stdio transport stdout carries the protocol, so
	// logs always go to stderr (or a file).
	stdioMode := serverConfig.Server.Port <= 0
	logger := setupLogger(serverConfig.Logging, stdioMode)

	// 3. Create the engine. Connection config resolves lazily from the
	// environment on the first tool call, so startup never blocks on the
	// warehouse.
	var opts []snowmcp.Option
	if serverConfig.fromFile {
		opts = append(opts, snowmcp.WithConfig(serverConfig.Config))
	}
	snowMcp, err := snowmcp.New(logger, opts...)
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}
	defer snowMcp.Close(ctx)

	// 4. Create MCP server with initialize lifecycle logging
	hooks := &server.Hooks{}
	hooks.AddAfterInitialize(func(ctx context.Context, id any, req *mcp.InitializeRequest, result *mcp.InitializeResult) {
		logger.Info().
			Str("client_name", req.Params.ClientInfo.Name).
			Str("client_version", req.Params.ClientInfo.Version).
			Msg("AI agent connected (MCP initialize)")
	})

	mcpServer := server.NewMCPServer("gosnowmcp", serverVersion,
		server.WithToolCapabilities(true),
		server.WithHooks(hooks),
	)

	snowmcp.RegisterMCPTools(mcpServer, snowMcp)

	// 5. Serve on stdio or streamable HTTP
	if stdioMode {
		logger.Info().Msg("starting gosnowmcp server on stdio")
		return server.ServeStdio(mcpServer)
	}

	addr := fmt.Sprintf(":%d", serverConfig.Server.Port)
	mux := http.NewServeMux()

	// Health check endpoint (process liveness only, not warehouse connectivity)
	if serverConfig.Server.HealthCheckEnabled {
		path := serverConfig.Server.HealthCheckPath
		if path == "" {
			path = "/healthz"
		}
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		})
	}

	httpSrv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	streamableServer := server.NewStreamableHTTPServer(mcpServer,
		server.WithEndpointPath("/mcp"),
		server.WithStateLess(true),
		server.WithStreamableHTTPServer(httpSrv),
	)

	// Manually register the MCP handler — Start() does NOT register
	// when a custom *http.Server is provided via WithStreamableHTTPServer.
	mux.Handle("/mcp", streamableServer)

	logger.Info().Int("port", serverConfig.Server.Port).Msg("starting gosnowmcp server")
	return streamableServer.Start(addr)
}

// serverConfigFile wraps ServerConfig with a flag recording whether a config
// file was actually present.
type serverConfigFile struct {
	snowmcp.ServerConfig
	fromFile bool
}

func loadServerConfig() (*serverConfigFile, error) {
	configPath := os.Getenv("GOSNOWMCP_CONFIG_PATH")
	explicit := configPath != ""
	if configPath == "" {
		configPath = ".gosnowmcp/config.json"
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		// The config file is optional unless explicitly pointed at.
		if os.IsNotExist(err) && !explicit {
			return &serverConfigFile{}, nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	config := &serverConfigFile{fromFile: true}
	if err := json.Unmarshal(data, &config.ServerConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return config, nil
}

// applyEnvOverrides layers GOSNOWMCP_PORT, LOG_LEVEL, and LOG_FORMAT over
// the file config, so a config file is never required for common settings.
func applyEnvOverrides(config *serverConfigFile) error {
	if v := os.Getenv("GOSNOWMCP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 {
			return fmt.Errorf("invalid GOSNOWMCP_PORT %q: must be a positive integer", v)
		}
		config.Server.Port = port
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		config.Logging.Format = v
	}
	return nil
}

func setupLogger(config snowmcp.LoggingConfig, stdioMode bool) zerolog.Logger {
	level := zerolog.InfoLevel
	switch strings.ToLower(config.Level) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	var output io.Writer = os.Stderr
	if config.Output == "stdout" && !stdioMode {
		output = os.Stdout
	} else if config.Output != "" && config.Output != "stderr" && config.Output != "stdout" {
		f, err := os.OpenFile(config.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err == nil {
			output = f
		}
	}

	format := config.Format
	if format == "" && term.IsTerminal(int(os.Stderr.Fd())) {
		format = "text"
	}
	if format == "text" {
		output = zerolog.ConsoleWriter{Out: output}
	}

	return zerolog.New(output).Level(level).With().Timestamp().Logger()
}
