package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/louisbranch/simlab/internal/services/mcp/domain"
	"github.com/louisbranch/simlab/internal/services/simulation/app"
	simulationserver "github.com/louisbranch/simlab/internal/services/simulation/server"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	serverName    = "simlab"
	serverVersion = "0.1.0"
)

// Config selects where simulations run.
type Config struct {
	// Addr is a simulation gRPC server; empty runs simulations in process.
	Addr string
	// DBPath is the in-process run journal; empty uses SIMLAB_DB_PATH.
	DBPath string
}

// Server is an MCP server bound to one simulator.
type Server struct {
	mcpServer *mcp.Server
	closers   []func() error
}

// New builds a server for cfg, dialing the remote simulator or opening the
// local journal.
func New(ctx context.Context, cfg Config) (*Server, error) {
	sim, closeFn, err := simulationserver.OpenSimulator(ctx, cfg.Addr, cfg.DBPath)
	if err != nil {
		return nil, err
	}
	return newServer(sim, closeFn), nil
}

func newServer(sim app.Simulator, closers ...func() error) *Server {
	mcpServer := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)
	registerTools(mcpServer, sim)
	return &Server{mcpServer: mcpServer, closers: closers}
}

func registerTools(server *mcp.Server, sim app.Simulator) {
	mcp.AddTool(server, domain.SimulateTool(), domain.SimulateHandler(sim))
	mcp.AddTool(server, domain.LinearTool(), domain.LinearHandler(sim))
	mcp.AddTool(server, domain.MultiplicativeTool(), domain.MultiplicativeHandler(sim))
	mcp.AddTool(server, domain.DepositTool(), domain.DepositHandler(sim))
	mcp.AddTool(server, domain.NewEpochTool(), domain.NewEpochHandler(sim))
	mcp.AddTool(server, domain.ReplayTool(), domain.ReplayHandler(sim))
	mcp.AddTool(server, domain.ListRunsTool(), domain.ListRunsHandler(sim))
}

// Run creates a server and serves it on stdio until ctx ends.
func Run(ctx context.Context, cfg Config) error {
	server, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve starts the MCP server on stdio and blocks until it stops or the context ends.
func (s *Server) Serve(ctx context.Context) error {
	return s.serveWithTransport(ctx, &mcp.StdioTransport{})
}

// Close releases the simulator backing the server.
func (s *Server) Close() error {
	if s == nil {
		return nil
	}
	var errs []error
	for _, closeFn := range s.closers {
		errs = append(errs, closeFn())
	}
	s.closers = nil
	return errors.Join(errs...)
}

func (s *Server) serveWithTransport(ctx context.Context, transport mcp.Transport) error {
	if s == nil || s.mcpServer == nil {
		return fmt.Errorf("MCP server is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	err := s.mcpServer.Run(ctx, transport)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		err = nil
	}
	if closeErr := s.Close(); closeErr != nil {
		if err == nil {
			return fmt.Errorf("close simulator: %w", closeErr)
		}
		return fmt.Errorf("serve MCP: %v; close simulator: %w", err, closeErr)
	}
	if err != nil {
		return fmt.Errorf("serve MCP: %w", err)
	}
	return nil
}
