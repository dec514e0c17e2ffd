// Command tradsys runs one node of a replicated spot-matching engine:
// a Raft voter holding the order books in memory, fronted by a gRPC
// service using the engine's own binary wire codec, with trades
// fanned out to an external SQL sink and a Prometheus metrics server.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/raft"
	raftboltdb "github.com/hashicorp/raft-boltdb/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapio"
	"google.golang.org/grpc"

	"github.com/abdoElHodaky/tradSys/internal/config"
	"github.com/abdoElHodaky/tradSys/internal/engine/processor"
	grpcclient "github.com/abdoElHodaky/tradSys/internal/grpc/client"
	grpccodec "github.com/abdoElHodaky/tradSys/internal/grpc/codec"
	"github.com/abdoElHodaky/tradSys/internal/grpc/handler"
	"github.com/abdoElHodaky/tradSys/internal/grpc/ratelimit"
	"github.com/abdoElHodaky/tradSys/internal/grpc/server"
	"github.com/abdoElHodaky/tradSys/internal/metrics"
	"github.com/abdoElHodaky/tradSys/internal/replication"
	"github.com/abdoElHodaky/tradSys/internal/tradesink"
	"github.com/abdoElHodaky/tradSys/proto/trading"
)

func main() {
	configPath := flag.String("config", "", "path to the node's YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("node exited with error", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if level == "debug" {
		zcfg = zap.NewDevelopmentConfig()
	}
	if err := zcfg.Level.UnmarshalText([]byte(level)); err != nil {
		zcfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return zcfg.Build()
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	proc := processor.New(cfg.HistoryRetention)

	r, fsm, err := startRaft(cfg, proc, log)
	if err != nil {
		return fmt.Errorf("start raft: %w", err)
	}

	adapter := replication.New(r, fsm, log, 5*time.Second)
	defer func() {
		r.Shutdown().Error()
		adapter.Close()
	}()

	var egress *tradesink.Egress
	if cfg.TradeSinkURL != "" {
		sink, err := tradesink.Open(cfg.TradeSinkURL, log)
		if err != nil {
			return fmt.Errorf("open trade sink: %w", err)
		}
		defer sink.Close()
		egress = tradesink.NewEgress(sink, 4096, log)
		defer egress.Close()
	}

	peerAddrs := make(map[raft.ServerID]string, len(cfg.RaftPeers))
	for _, p := range cfg.RaftPeers {
		if p.GRPCAddress != "" {
			peerAddrs[raft.ServerID(p.ID)] = p.GRPCAddress
		}
	}
	forwarder := grpcclient.NewLeaderForwarder(log.Named("forwarder"))
	defer forwarder.Close()

	h := handler.New(adapter, egress, forwarder, peerAddrs)

	srvOpts := server.DefaultServerOptions()
	srvOpts.Codec = grpccodec.Codec{}
	srvOpts.MaxRecvMsgSize = cfg.GRPC.MaxRecvMsgSize
	srvOpts.MaxSendMsgSize = cfg.GRPC.MaxSendMsgSize
	if cfg.RateLimit.Enabled {
		interceptor, err := ratelimit.Interceptor(cfg.RateLimit.Rate)
		if err != nil {
			return fmt.Errorf("build rate limit interceptor: %w", err)
		}
		srvOpts.UnaryInterceptors = append(srvOpts.UnaryInterceptors, interceptor)
	}

	grpcSrv := server.NewServer(log, srvOpts)
	grpcSrv.RegisterService(func(s *grpc.Server) {
		trading.RegisterServer(s, h)
	})

	grpcErrCh := make(chan error, 1)
	go func() {
		grpcErrCh <- grpcSrv.Start(ctx, cfg.GRPC.ListenAddr)
	}()

	m := metrics.New()
	metricsSrv := m.Server(cfg.MetricsAddr, log)
	metricsErrCh := make(chan error, 1)
	go func() { metricsErrCh <- metrics.Run(ctx, metricsSrv, log) }()

	log.Info("node started",
		zap.String("node_id", cfg.NodeID),
		zap.String("grpc_addr", cfg.GRPC.ListenAddr),
		zap.String("metrics_addr", cfg.MetricsAddr))

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
		grpcSrv.Stop()
		return <-metricsErrCh
	case err := <-grpcErrCh:
		return fmt.Errorf("grpc server: %w", err)
	case err := <-metricsErrCh:
		return fmt.Errorf("metrics server: %w", err)
	}
}

// startRaft wires a voting raft.Raft instance backed by a boltdb log
// and stable store and a real TCP transport, per §6's raft_peers /
// data_dir / node_id options. Cluster bootstrap uses cfg.RaftPeers as
// the initial voter configuration; joining an already-bootstrapped
// cluster is an operational concern handled by the surrounding
// deployment tooling, not this process.
func startRaft(cfg *config.Config, proc *processor.Processor, log *zap.Logger) (*raft.Raft, *replication.FSM, error) {
	raftCfg := raft.DefaultConfig()
	raftCfg.LocalID = raft.ServerID(cfg.NodeID)
	raftCfg.Logger = newRaftLogger(log)

	addr, err := net.ResolveTCPAddr("tcp", cfg.ListenAddr)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve raft bind addr %q: %w", cfg.ListenAddr, err)
	}
	transport, err := raft.NewTCPTransport(cfg.ListenAddr, addr, 3, 10*time.Second, os.Stderr)
	if err != nil {
		return nil, nil, fmt.Errorf("new tcp transport: %w", err)
	}

	snapshots, err := raft.NewFileSnapshotStore(cfg.DataDir, 2, os.Stderr)
	if err != nil {
		return nil, nil, fmt.Errorf("new snapshot store: %w", err)
	}

	boltStore, err := raftboltdb.New(raftboltdb.Options{
		Path: filepath.Join(cfg.DataDir, "raft-log.db"),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("new bolt store: %w", err)
	}

	fsm := replication.NewFSM(proc)

	r, err := raft.NewRaft(raftCfg, fsm, boltStore, boltStore, snapshots, transport)
	if err != nil {
		return nil, nil, fmt.Errorf("new raft: %w", err)
	}

	hasState, err := raft.HasExistingState(boltStore, boltStore, snapshots)
	if err != nil {
		return nil, nil, fmt.Errorf("check existing raft state: %w", err)
	}
	if !hasState {
		servers := make([]raft.Server, 0, len(cfg.RaftPeers))
		for _, p := range cfg.RaftPeers {
			servers = append(servers, raft.Server{
				ID:      raft.ServerID(p.ID),
				Address: raft.ServerAddress(p.Address),
			})
		}
		f := r.BootstrapCluster(raft.Configuration{Servers: servers})
		if err := f.Error(); err != nil {
			return nil, nil, fmt.Errorf("bootstrap cluster: %w", err)
		}
	}

	return r, fsm, nil
}

// newRaftLogger routes raft's internal hclog output through the same
// zap core as everything else in this process, at info level.
func newRaftLogger(log *zap.Logger) hclog.Logger {
	writer := &zapio.Writer{Log: log.Named("raft"), Level: zap.InfoLevel}
	return hclog.New(&hclog.LoggerOptions{
		Name:   "raft",
		Output: writer,
		Level:  hclog.Info,
	})
}
