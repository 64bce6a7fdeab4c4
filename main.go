// MediaWiki Gateway MCP Server - exposes a MediaWiki wiki to MCP clients
// through the XML API gateway in package wiki.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/olgasafonova/mediawiki-gateway/internal/infra"
	"github.com/olgasafonova/mediawiki-gateway/tools"
	"github.com/olgasafonova/mediawiki-gateway/tracing"
	"github.com/olgasafonova/mediawiki-gateway/wiki"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// recoverPanic logs a recovered panic instead of crashing
func recoverPanic(logger *slog.Logger, operation string) {
	if r := recover(); r != nil {
		logger.Error("Panic recovered",
			"operation", operation,
			"panic", r,
			"stack", string(debug.Stack()))
	}
}

const (
	ServerName    = "mediawiki-gateway"
	ServerVersion = wiki.LibraryVersion
)

const instructions = `MediaWiki Gateway provides tools for reading and editing a MediaWiki wiki through its XML API.

Read tools never change the wiki. Write tools (mediawiki_edit_page, mediawiki_move_page, mediawiki_delete_page) need an account configured with MEDIAWIKI_USERNAME and MEDIAWIKI_PASSWORD.

Configure via environment variables:
- MEDIAWIKI_URL: Wiki API URL (e.g., https://wiki.example.com/w/api.php)
- MEDIAWIKI_USERNAME / MEDIAWIKI_PASSWORD / MEDIAWIKI_DOMAIN: Login (optional)
- MEDIAWIKI_MAXLAG, MEDIAWIKI_RETRY_COUNT, MEDIAWIKI_RETRY_DELAY: Load handling`

// parseLogLevel maps MEDIAWIKI_LOG_LEVEL to a slog level; warn by default.
func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

func main() {
	httpAddr := flag.String("http", "", "serve streamable HTTP on this address instead of stdio (e.g. :8080)")
	readOnly := flag.Bool("read-only", os.Getenv("MEDIAWIKI_READ_ONLY") == "true", "register read-only tools only")
	rateLimit := flag.Int("rate-limit", 60, "HTTP requests per minute per client IP (0 disables)")
	flag.Parse()

	// Configure logging to stderr (stdout is used for MCP protocol)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(os.Getenv("MEDIAWIKI_LOG_LEVEL")),
	}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config, err := wiki.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	traceConfig := tracing.DefaultConfig()
	traceConfig.ServiceVersion = ServerVersion
	shutdownTracing, err := tracing.Setup(ctx, traceConfig)
	if err != nil {
		log.Fatalf("Failed to set up tracing: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("Tracing shutdown failed", "error", err)
		}
	}()

	siteCache := infra.NewCache[*wiki.Element](0)
	defer siteCache.Close()

	gateway := wiki.NewGateway(config, logger,
		wiki.WithCircuitBreaker(infra.NewCircuitBreaker()),
		wiki.WithSiteCache(siteCache, 10*time.Minute),
	)
	if config.HasCredentials() {
		if err := gateway.Login(ctx, config.Username, config.Password, config.Domain); err != nil {
			log.Fatalf("Login failed: %v", err)
		}
		logger.Info("Logged in", "user", config.Username)
	}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    ServerName,
		Version: ServerVersion,
	}, &mcp.ServerOptions{
		Logger:       logger,
		Instructions: instructions,
	})

	registry := tools.NewHandlerRegistry(gateway, logger)
	if *readOnly {
		registry.RegisterTools(server, tools.ReadOnlyTools())
	} else {
		registry.RegisterAll(server)
	}

	logger.Info("Starting MediaWiki Gateway MCP Server",
		"name", ServerName,
		"version", ServerVersion,
		"wiki_url", config.BaseURL,
		"read_only", *readOnly,
	)

	if *httpAddr != "" {
		if err := serveHTTP(ctx, *httpAddr, server, logger, SecurityConfig{
			RateLimit:      *rateLimit,
			MaxBodySize:    1 << 20,
			AuthToken:      os.Getenv("MCP_AUTH_TOKEN"),
			AllowedOrigins: splitList(os.Getenv("MCP_ALLOWED_ORIGINS")),
		}); err != nil {
			log.Fatalf("Server error: %v", err)
		}
		return
	}

	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("Server error: %v", err)
	}
}

// newHTTPHandler routes /mcp to the streamable MCP transport behind the
// security middleware, and serves /metrics and /health unguarded.
func newHTTPHandler(server *mcp.Server, logger *slog.Logger, security SecurityConfig) (http.Handler, func()) {
	mcpHandler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return server }, nil)
	guarded := NewSecurityMiddleware(mcpHandler, logger, security)

	mux := http.NewServeMux()
	mux.Handle("/mcp", guarded)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("ok"))
	})
	return mux, guarded.Close
}

func serveHTTP(ctx context.Context, addr string, server *mcp.Server, logger *slog.Logger, security SecurityConfig) error {
	handler, closeHandler := newHTTPHandler(server, logger, security)
	defer closeHandler()

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		defer recoverPanic(logger, "http shutdown")
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("Listening", "addr", addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
