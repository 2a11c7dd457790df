package server

import (
	"context"
	"fmt"
	"log"
	"strings"

	platformgrpc "github.com/louisbranch/simlab/internal/platform/grpc"
	"github.com/louisbranch/simlab/internal/platform/timeouts"
	simulationservice "github.com/louisbranch/simlab/internal/services/simulation/api/grpc/simulation"
	"github.com/louisbranch/simlab/internal/services/simulation/app"
)

// OpenSimulator returns a client for the simulation server at addr, or an
// in-process service journaling to dbPath when addr is empty. An empty dbPath
// falls back to DBPath. The returned func releases the connection or store.
func OpenSimulator(ctx context.Context, addr, dbPath string) (app.Simulator, func() error, error) {
	if addr = strings.TrimSpace(addr); addr != "" {
		conn, err := platformgrpc.Dial(ctx, platformgrpc.DialConfig{
			Addr:    addr,
			Service: simulationservice.ServiceName,
			Timeout: timeouts.GRPCDial,
			Logf:    log.Printf,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("dial simulation server: %w", err)
		}
		return simulationservice.NewClient(conn), conn.Close, nil
	}

	if strings.TrimSpace(dbPath) == "" {
		var err error
		if dbPath, err = DBPath(); err != nil {
			return nil, nil, err
		}
	}
	store, err := OpenStore(dbPath)
	if err != nil {
		return nil, nil, err
	}
	return app.NewService(store), store.Close, nil
}
