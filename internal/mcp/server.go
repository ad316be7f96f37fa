package mcp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"stock-analysis/internal/metrics"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const defaultRequestTimeout = 5 * time.Second

var errToolFailed = errors.New("tool returned an error result")

type ServerConfig struct {
	RequestTimeout time.Duration
}

// NewServer builds the MCP server over the stock and notification services.
// A nil notifications reader leaves the notification tools and resources
// answering with an unavailable error.
func NewServer(tracer trace.Tracer, stocks StockReader, notifications NotificationReaderWriter, cfg ServerConfig) *sdkmcp.Server {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("mcp")
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	srv := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "stock-analysis-mcp",
		Version: "1.0.0",
	}, &sdkmcp.ServerOptions{
		Instructions: "Read daily stock prices with RSI, MACD and SMA, backtest threshold trade rules, and manage indicator notifications.",
		Logger:       slog.Default(),
	})
	srv.AddReceivingMiddleware(instrument(tracer, timeout))

	registerTools(srv, stocks, notifications)
	registerResources(srv, stocks, notifications)
	return srv
}

func NewHTTPTransportHandler(server *sdkmcp.Server, cfg HTTPHandlerConfig) http.Handler {
	streamable := sdkmcp.NewStreamableHTTPHandler(func(*http.Request) *sdkmcp.Server {
		return server
	}, &sdkmcp.StreamableHTTPOptions{})
	return newGuard(streamable, cfg)
}

// instrument bounds every request by timeout, wraps it in a span and counts
// it. Tool calls that come back with IsError count as failures.
func instrument(tracer trace.Tracer, timeout time.Duration) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			target := requestTarget(req)
			ctx, span := tracer.Start(ctx, spanName(method, target))
			defer span.End()
			span.SetAttributes(attribute.String("mcp.method", method))
			if target != "" {
				span.SetAttributes(attribute.String("mcp.target", target))
			}

			result, err := next(ctx, method, req)

			failure := err
			if res, ok := result.(*sdkmcp.CallToolResult); ok && res != nil && res.IsError && failure == nil {
				failure = errToolFailed
			}
			if failure != nil {
				span.RecordError(failure)
				span.SetStatus(codes.Error, failure.Error())
			}
			metrics.RecordMCPCall(method, failure)
			return result, err
		}
	}
}

// requestTarget is the tool name or resource URI a request addresses.
func requestTarget(req sdkmcp.Request) string {
	switch r := req.(type) {
	case *sdkmcp.CallToolRequest:
		if r.Params != nil {
			return strings.TrimSpace(r.Params.Name)
		}
	case *sdkmcp.ReadResourceRequest:
		if r.Params != nil {
			return strings.TrimSpace(r.Params.URI)
		}
	}
	return ""
}

func spanName(method, target string) string {
	if method == "tools/call" && target != "" {
		return "mcp.tool." + target
	}
	return "mcp." + strings.ReplaceAll(method, "/", ".")
}
