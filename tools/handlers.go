package tools

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/olgasafonova/mediawiki-gateway/metrics"
	"github.com/olgasafonova/mediawiki-gateway/tracing"
	"github.com/olgasafonova/mediawiki-gateway/wiki"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// HandlerRegistry provides type-safe tool registration by mapping
// tool names to their gateway methods.
type HandlerRegistry struct {
	gateway *wiki.Gateway
	logger  *slog.Logger
}

// NewHandlerRegistry creates a new handler registry.
func NewHandlerRegistry(gateway *wiki.Gateway, logger *slog.Logger) *HandlerRegistry {
	return &HandlerRegistry{
		gateway: gateway,
		logger:  logger,
	}
}

// RegisterAll registers all tools with the MCP server.
func (h *HandlerRegistry) RegisterAll(server *mcp.Server) {
	h.RegisterTools(server, AllTools)
}

// RegisterTools registers the given subset of tools.
func (h *HandlerRegistry) RegisterTools(server *mcp.Server, specs []ToolSpec) {
	registered := 0
	for _, spec := range specs {
		if h.registerByName(server, spec) {
			registered++
		}
	}
	h.logger.Info("Registered tools", "count", registered)
}

// registerByName dispatches to the correct typed registration function.
func (h *HandlerRegistry) registerByName(server *mcp.Server, spec ToolSpec) bool {
	tool := h.buildTool(spec)
	g := h.gateway

	switch spec.Method {
	// Read
	case "GetPage":
		register(h, server, tool, spec, g.GetPageMCP)
	case "Langlinks":
		register(h, server, tool, spec, g.LanglinksMCP)
	case "Siteinfo":
		register(h, server, tool, spec, g.SiteinfoMCP)

	// Search and listing
	case "ListPages":
		register(h, server, tool, spec, g.ListPagesMCP)
	case "Search":
		register(h, server, tool, spec, g.SearchMCP)
	case "CategoryMembers":
		register(h, server, tool, spec, g.CategoryMembersMCP)
	case "Backlinks":
		register(h, server, tool, spec, g.BacklinksMCP)
	case "SemanticQuery":
		register(h, server, tool, spec, g.SemanticQueryMCP)

	// Users
	case "Contributions":
		register(h, server, tool, spec, g.ContributionsMCP)

	// Write
	case "EditPage":
		register(h, server, tool, spec, g.EditPageMCP)
	case "DeletePage":
		register(h, server, tool, spec, g.DeletePageMCP)
	case "MovePage":
		register(h, server, tool, spec, g.MovePageMCP)

	default:
		h.logger.Error("Unknown method, tool not registered", "method", spec.Method, "tool", spec.Name)
		return false
	}
	return true
}

// buildTool creates an mcp.Tool from a ToolSpec.
func (h *HandlerRegistry) buildTool(spec ToolSpec) *mcp.Tool {
	annotations := &mcp.ToolAnnotations{
		Title:          spec.Title,
		ReadOnlyHint:   spec.ReadOnly,
		IdempotentHint: spec.Idempotent,
	}
	if spec.Destructive {
		annotations.DestructiveHint = ptr(true)
	}
	if spec.OpenWorld {
		annotations.OpenWorldHint = ptr(true)
	}

	return &mcp.Tool{
		Name:        spec.Name,
		Description: spec.Description,
		Annotations: annotations,
	}
}

// register is a generic helper that registers a tool with the MCP server.
func register[Args, Result any](
	h *HandlerRegistry,
	server *mcp.Server,
	tool *mcp.Tool,
	spec ToolSpec,
	method func(context.Context, Args) (Result, error),
) {
	mcp.AddTool(server, tool, handler(h, spec, method))
}

// handler wraps the gateway method with panic recovery, metrics, tracing, and logging.
func handler[Args, Result any](
	h *HandlerRegistry,
	spec ToolSpec,
	method func(context.Context, Args) (Result, error),
) mcp.ToolHandlerFor[Args, Result] {
	return func(ctx context.Context, req *mcp.CallToolRequest, args Args) (_ *mcp.CallToolResult, result Result, err error) {
		defer h.recoverPanic(spec.Name, &err)

		// Start trace span
		ctx, span := tracing.StartSpan(ctx, "mcp.tool."+spec.Name)
		defer span.End()

		tracing.AddToolAttributes(span, spec.Name, spec.Category)
		span.SetAttributes(attribute.Bool("mcp.tool.readonly", spec.ReadOnly))

		// Track in-flight requests
		metrics.ToolRequestsInFlight.WithLabelValues(spec.Name).Inc()
		defer metrics.ToolRequestsInFlight.WithLabelValues(spec.Name).Dec()

		start := time.Now()
		result, err = method(ctx, args)
		duration := time.Since(start).Seconds()

		span.SetAttributes(attribute.Float64("mcp.tool.duration_seconds", duration))

		if err != nil {
			tracing.RecordError(span, err)
			metrics.RecordRequest(spec.Name, duration, false)
			h.logger.Warn("Tool failed", "tool", spec.Name, "error", err)
			var zero Result
			return nil, zero, fmt.Errorf("%s failed: %w", spec.Name, err)
		}

		span.SetStatus(codes.Ok, "")
		metrics.RecordRequest(spec.Name, duration, true)
		h.logExecution(spec, args, result)
		return nil, result, nil
	}
}

// recoverPanic recovers from panics in tool handlers and turns them into
// tool errors.
func (h *HandlerRegistry) recoverPanic(toolName string, err *error) {
	if rec := recover(); rec != nil {
		metrics.PanicsRecovered.WithLabelValues(toolName).Inc()
		h.logger.Error("Panic recovered",
			"tool", toolName,
			"panic", rec,
			"stack", string(debug.Stack()))
		if err != nil {
			*err = fmt.Errorf("%s failed: internal error", toolName)
		}
	}
}

// logExecution logs tool execution details.
func (h *HandlerRegistry) logExecution(spec ToolSpec, args, result any) {
	attrs := []any{"tool", spec.Name, "category", spec.Category}

	// Add extractable fields from args using type assertions
	switch a := args.(type) {
	case wiki.GetPageArgs:
		attrs = append(attrs, "title", a.Title, "format", a.Format)
	case wiki.ListPagesArgs:
		attrs = append(attrs, "prefix", a.Prefix)
	case wiki.SearchArgs:
		attrs = append(attrs, "query", a.Query)
	case wiki.CategoryMembersArgs:
		attrs = append(attrs, "category", a.Category)
	case wiki.BacklinksArgs:
		attrs = append(attrs, "title", a.Title)
	case wiki.LanglinksArgs:
		attrs = append(attrs, "title", a.Title)
	case wiki.EditPageArgs:
		attrs = append(attrs, "title", a.Title, "bytes", len(a.Content))
	case wiki.DeletePageArgs:
		attrs = append(attrs, "title", a.Title)
	case wiki.MovePageArgs:
		attrs = append(attrs, "from", a.From, "to", a.To)
	case wiki.ContributionsArgs:
		attrs = append(attrs, "user", a.User)
	case wiki.SemanticQueryArgs:
		attrs = append(attrs, "query", a.Query)
	case wiki.SiteinfoArgs:
		// No args to log
	}

	// Add extractable fields from result
	switch r := result.(type) {
	case wiki.GetPageResult:
		attrs = append(attrs, "exists", r.Exists, "bytes", len(r.Content))
	case wiki.TitlesResult:
		attrs = append(attrs, "results_count", r.Count)
	case wiki.LanglinksResult:
		attrs = append(attrs, "langlinks", len(r.Links))
	case wiki.SiteinfoResult:
		attrs = append(attrs, "version", r.Version, "extensions", len(r.Extensions))
	case wiki.EditPageResult:
		attrs = append(attrs, "result", r.Result, "new_revision_id", r.NewRevID)
	case wiki.ContributionsResult:
		attrs = append(attrs, "contributions", len(r.Contributions))
	}

	h.logger.Info("Tool executed", attrs...)
}
