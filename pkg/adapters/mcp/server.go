// Package mcp exposes protocol planning and simulation as MCP tools, so
// agent frontends can drive the robot without linking the library.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/openlh/aliquot"
	"github.com/openlh/aliquot/internal/logging"
	"github.com/openlh/aliquot/internal/protocol"
	"github.com/openlh/aliquot/pkg/domain"
	"github.com/openlh/aliquot/pkg/labware"
)

// PlanResponse is the structured result of the plan_transfer tool.
type PlanResponse struct {
	Pipette  string   `json:"pipette" jsonschema_description:"Pipette model the plan was built for"`
	Mode     string   `json:"mode" jsonschema_description:"transfer, distribute or consolidate"`
	Steps    int      `json:"steps" jsonschema_description:"Liquid-handling steps after pairing"`
	Commands []string `json:"commands" jsonschema_description:"The command sequence, rendered in order"`
}

// RunResponse is the structured result of the simulate_protocol tool.
type RunResponse struct {
	Protocol string              `json:"protocol" jsonschema_description:"Protocol name from the document"`
	Status   string              `json:"status" jsonschema_description:"succeeded or failed"`
	Error    string              `json:"error,omitempty" jsonschema_description:"Failure detail when the run failed"`
	Trace    []domain.TraceEntry `json:"trace" jsonschema_description:"Executed commands in order"`
}

// Server wraps the planner and exposes it as an MCP server.
type Server struct {
	catalog   *labware.Catalog
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the server.
type Option func(*Server)

// WithLogger replaces the default stderr logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// NewServer creates a new MCP server instance. A nil catalog starts from
// the built-in definitions.
func NewServer(catalog *labware.Catalog, opts ...Option) *Server {
	s := &Server{
		catalog: catalog,
		logger:  logging.New(slog.LevelInfo),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.catalog == nil {
		s.catalog = labware.NewCatalog()
	}
	s.mcpServer = server.NewMCPServer("aliquot-mcp", strings.TrimSpace(aliquot.Version))
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		// Create a timeout context for the graceful shutdown
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	// TOOL: plan_transfer
	planTool := mcp.NewTool("plan_transfer",
		mcp.WithDescription("Build the command sequence for one liquid-handling step without executing it. Source and destination share a plate when the labware names match."),
		mcp.WithString("pipette", mcp.Required(), mcp.Description("Pipette model, e.g. p300_single")),
		mcp.WithNumber("volume", mcp.Required(), mcp.Description("Volume in microliters")),
		mcp.WithString("source_labware", mcp.Description("Catalog name of the source labware (default plate_96_340ul)")),
		mcp.WithString("source_wells", mcp.Description("Comma-separated well names, e.g. A1,B1")),
		mcp.WithString("source_columns", mcp.Description("JSON array of column indexes for multi-channel heads, e.g. [0,1]")),
		mcp.WithString("dest_labware", mcp.Description("Catalog name of the destination labware (default: the source labware)")),
		mcp.WithString("dest_wells", mcp.Description("Comma-separated well names")),
		mcp.WithString("dest_columns", mcp.Description("JSON array of column indexes")),
		mcp.WithString("mode", mcp.Description("transfer (default), distribute or consolidate")),
		mcp.WithString("options", mcp.Description("JSON object of step options: tip_policy, air_gap, carryover, disposal_volume, mix_before, mix_after, touch_tip, touch_tip_speed, blow_out, tip_return, rate")),
		mcp.WithOutputSchema[PlanResponse](),
	)
	s.mcpServer.AddTool(planTool, mcp.NewStructuredToolHandler(s.handlePlanTransfer))

	// TOOL: simulate_protocol
	simulateTool := mcp.NewTool("simulate_protocol",
		mcp.WithDescription("Parse a protocol document (YAML or JSON) and execute it on a simulated robot. Returns the outcome and the full command trace, also on failure."),
		mcp.WithString("protocol", mcp.Required(), mcp.Description("The protocol document text")),
		mcp.WithOutputSchema[RunResponse](),
	)
	s.mcpServer.AddTool(simulateTool, mcp.NewStructuredToolHandler(s.handleSimulateProtocol))

	// TOOL: list_labware
	s.mcpServer.AddTool(mcp.NewTool("list_labware",
		mcp.WithDescription("List the labware definitions the robot knows, tip racks included."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		jsonBytes, err := s.labwareJSON()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("listing failed: %v", err)), nil
		}
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})
}

// Handler methods for structured tools

func (s *Server) handlePlanTransfer(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (PlanResponse, error) {
	model, _ := args["pipette"].(string)
	volume, _ := args["volume"].(float64)

	mode, _ := args["mode"].(string)
	if mode == "" {
		mode = protocol.StepTransfer
	}

	srcName, _ := args["source_labware"].(string)
	if srcName == "" {
		srcName = "plate_96_340ul"
	}
	dstName, _ := args["dest_labware"].(string)
	if dstName == "" {
		dstName = srcName
	}

	from, err := wellsArg(args, "source_wells", "source_columns", 1)
	if err != nil {
		return PlanResponse{}, err
	}
	destSlot := 2
	if dstName == srcName {
		destSlot = 1
	}
	to, err := wellsArg(args, "dest_wells", "dest_columns", destSlot)
	if err != nil {
		return PlanResponse{}, err
	}

	var stepOpts protocol.StepOptions
	if optStr, ok := args["options"].(string); ok && optStr != "" {
		if err := json.Unmarshal([]byte(optStr), &stepOpts); err != nil {
			return PlanResponse{}, fmt.Errorf("options: %w", err)
		}
	}

	doc := &protocol.Document{
		Name:     "plan_transfer",
		Labware:  []protocol.LabwareDecl{{Name: srcName, Slot: 1}},
		Pipettes: []protocol.PipetteDecl{{Model: model, Mount: "right"}},
		Steps: []protocol.Step{{
			Type:    mode,
			Volume:  volume,
			From:    from,
			To:      to,
			Options: stepOpts,
		}},
	}
	if dstName != srcName {
		doc.Labware = append(doc.Labware, protocol.LabwareDecl{Name: dstName, Slot: 2})
	}
	if err := doc.Validate(); err != nil {
		return PlanResponse{}, err
	}

	plans, err := protocol.Compile(doc, aliquot.WithCatalog(s.catalog), aliquot.WithLogger(s.logger))
	if err != nil {
		return PlanResponse{}, err
	}

	plan := plans[0].Plan
	cmds, err := plan.Commands()
	if err != nil {
		return PlanResponse{}, err
	}
	rendered := make([]string, len(cmds))
	for i, cmd := range cmds {
		rendered[i] = cmd.String()
	}

	return PlanResponse{
		Pipette:  model,
		Mode:     string(plan.Info().Mode),
		Steps:    plan.Info().Steps,
		Commands: rendered,
	}, nil
}

func (s *Server) handleSimulateProtocol(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (RunResponse, error) {
	text, _ := args["protocol"].(string)
	doc, err := protocol.Parse([]byte(text))
	if err != nil {
		return RunResponse{}, err
	}

	robot, runErr := protocol.Run(ctx, doc,
		aliquot.WithCatalog(s.catalog),
		aliquot.WithLogger(s.logger),
	)

	resp := RunResponse{Protocol: doc.Name, Status: string(domain.RunSucceeded)}
	if robot != nil {
		resp.Trace = robot.Trace()
	}
	if runErr != nil {
		resp.Status = string(domain.RunFailed)
		resp.Error = runErr.Error()
		s.logger.Warn("simulate_protocol failed", "protocol", doc.Name, "error", runErr)
	}
	return resp, nil
}

// wellsArg assembles one side of a step from the flat tool arguments.
func wellsArg(args map[string]interface{}, wellsKey, columnsKey string, slot int) (protocol.Wells, error) {
	w := protocol.Wells{Slot: slot}
	if raw, ok := args[wellsKey].(string); ok && raw != "" {
		for _, name := range strings.Split(raw, ",") {
			if name = strings.TrimSpace(name); name != "" {
				w.Wells = append(w.Wells, name)
			}
		}
	}
	if raw, ok := args[columnsKey].(string); ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &w.Columns); err != nil {
			return w, fmt.Errorf("%s: %w", columnsKey, err)
		}
	}
	return w, nil
}

func (s *Server) registerResources() {
	// EXPOSE: aliquot://labware
	s.mcpServer.AddResource(mcp.NewResource("aliquot://labware", "Labware Catalog",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, err := s.labwareJSON()
		if err != nil {
			return nil, fmt.Errorf("failed to list labware: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "aliquot://labware",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}

func (s *Server) labwareJSON() ([]byte, error) {
	defs := make([]labware.Definition, 0)
	for _, name := range s.catalog.Names() {
		def, err := s.catalog.Get(name)
		if err != nil {
			continue
		}
		defs = append(defs, def)
	}
	return json.Marshal(defs)
}
