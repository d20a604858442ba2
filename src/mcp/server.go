package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"operator-dashboard/src/contracts"
	"operator-dashboard/src/logger"
	"operator-dashboard/src/operator"
	"operator-dashboard/src/report"
	"operator-dashboard/src/store"
)

// Server is the MCP server for a dashboard.
type Server struct {
	mcpServer *server.MCPServer
	store     store.Store
	operator  operator.Config
	codec     contracts.Codec
	logger    logger.Logger
	now       func() time.Time
}

// NewServer creates a new MCP server reading from st on every call.
func NewServer(st store.Store, op operator.Config, log logger.Logger) *Server {
	if log == nil {
		log = logger.NewSilentLogger()
	}
	s := server.NewMCPServer(
		"operator-dashboard",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	srv := &Server{
		mcpServer: s,
		store:     st,
		operator:  op,
		codec:     contracts.NewCodec(op),
		logger:    log,
		now:       time.Now,
	}
	srv.registerTools()

	return srv
}

// registerTools registers all available tools.
func (s *Server) registerTools() {
	listTool := mcp.NewTool("list_versions",
		mcp.WithDescription(fmt.Sprintf("List the OpenShift versions tracked by the %s dashboard with a one-line health summary each: bundle run count and latest bundle status, number of release versions tested and how many of them failed. Use get_version_history or get_release_matrix to drill into one version.", s.operator.Label())),
	)

	historyTool := mcp.NewTool("get_version_history",
		mcp.WithDescription("Get the persisted history of one OpenShift version: notes, bundle runs (newest first), release runs and job history links."),
		mcp.WithString("bucket",
			mcp.Required(),
			mcp.Description("OpenShift version as listed by list_versions, e.g. 4.14"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max bundle runs to return (default: all)"),
		),
	)

	matrixTool := mcp.NewTool("get_release_matrix",
		mcp.WithDescription("Get the release matrix of one OpenShift version: for each exact OpenShift version, the operator versions tested and whether the authoritative run passed."),
		mcp.WithString("bucket",
			mcp.Required(),
			mcp.Description("OpenShift version as listed by list_versions, e.g. 4.14"),
		),
	)

	s.mcpServer.AddTool(listTool, s.handleListVersions)
	s.mcpServer.AddTool(historyTool, s.handleGetVersionHistory)
	s.mcpServer.AddTool(matrixTool, s.handleGetReleaseMatrix)
}

// Run starts the MCP server on stdio.
func (s *Server) Run() error {
	s.logger.Info("[MCP] Serving %s dashboard on stdio", s.operator.Label())
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) load(ctx context.Context) (contracts.Dashboard, *mcp.CallToolResult) {
	d, err := s.store.Load(ctx)
	if err != nil {
		s.logger.Error("[MCP] Failed to load dashboard: %v", err)
		return nil, mcp.NewToolResultError(fmt.Sprintf("failed to load dashboard: %v", err))
	}
	return d, nil
}

func (s *Server) lookup(ctx context.Context, request mcp.CallToolRequest) (string, contracts.VersionHistory, *mcp.CallToolResult) {
	bucket := request.GetString("bucket", "")
	if bucket == "" {
		return "", contracts.VersionHistory{}, mcp.NewToolResultError("bucket parameter is required")
	}
	d, errResult := s.load(ctx)
	if errResult != nil {
		return "", contracts.VersionHistory{}, errResult
	}
	h, ok := d[bucket]
	if !ok {
		return "", contracts.VersionHistory{}, mcp.NewToolResultError(fmt.Sprintf("version not found: %s", bucket))
	}
	return bucket, h, nil
}

// handleListVersions handles the list_versions tool call.
func (s *Server) handleListVersions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	d, errResult := s.load(ctx)
	if errResult != nil {
		return errResult, nil
	}
	return jsonResult(ListResponse{Operator: s.operator.Name, Versions: report.Summarize(d, s.operator, s.now())})
}

// handleGetVersionHistory handles the get_version_history tool call.
func (s *Server) handleGetVersionHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	_, h, errResult := s.lookup(ctx, request)
	if errResult != nil {
		return errResult, nil
	}

	if limit := request.GetInt("limit", 0); limit > 0 && len(h.BundleTests) > limit {
		h.BundleTests = h.BundleTests[:limit]
	}

	data, err := s.codec.MarshalHistory(h)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal history: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// handleGetReleaseMatrix handles the get_release_matrix tool call.
func (s *Server) handleGetReleaseMatrix(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	bucket, h, errResult := s.lookup(ctx, request)
	if errResult != nil {
		return errResult, nil
	}

	return jsonResult(MatrixResponse{Operator: s.operator.Name, Bucket: bucket, Rows: report.Matrix(h)})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
