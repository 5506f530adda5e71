package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/mymonad/aura/internal/audit"
	"github.com/mymonad/aura/internal/config"
	"github.com/mymonad/aura/internal/graph"
	"github.com/mymonad/aura/internal/httpapi"
	"github.com/mymonad/aura/internal/ipc"
	"github.com/mymonad/aura/internal/ledger"
	"github.com/mymonad/aura/internal/sweeper"
	"github.com/mymonad/aura/internal/zkproof"
)

const graphTimeout = 10 * time.Second

// Daemon wires the ledger to its verifier, audit sinks and servers.
type Daemon struct {
	cfg    *config.NodeConfig
	logger *slog.Logger

	zk         *zkproof.ZKService
	ledger     *ledger.Ledger
	dispatcher *audit.Dispatcher
	journal    *audit.Journal
	store      *audit.Store
	publisher  *audit.Publisher
	graph      graph.Client
	projector  *graph.Projector
	sweeper    *sweeper.Sweeper
	rpc        *ipc.Server
	http       *httpapi.Server
}

// NewDaemon builds every component from cfg. Optional sinks (AMQP, graph)
// that cannot be reached are logged and skipped; the verifier and the
// audit store are required once configured.
func NewDaemon(ctx context.Context, cfg *config.NodeConfig, logger *slog.Logger) (d *Daemon, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ledgerCfg, err := cfg.LedgerConfig()
	if err != nil {
		return nil, err
	}

	d = &Daemon{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			d.shutdown()
		}
	}()

	d.zk, err = zkproof.NewZKService(cfg.ZKConfig(), logger.With("component", "zk"))
	if err != nil {
		return nil, fmt.Errorf("failed to start verifier: %w", err)
	}

	d.dispatcher = audit.NewDispatcher(cfg.Audit.BufferSize, logger.With("component", "audit"))
	d.journal = audit.NewJournal(cfg.Audit.JournalSize)
	d.dispatcher.Subscribe(d.journal)

	if cfg.Audit.Driver != "" {
		if cfg.Audit.Driver == audit.DriverSQLite {
			if err := os.MkdirAll(filepath.Dir(cfg.Audit.DSN), 0700); err != nil {
				return nil, fmt.Errorf("failed to create audit directory: %w", err)
			}
		}
		d.store, err = audit.OpenStore(cfg.Audit.Driver, cfg.Audit.DSN)
		if err != nil {
			return nil, err
		}
		if last, err := d.store.LastSeq(ctx); err == nil && last > 0 {
			logger.Info("audit store holds events from a previous run", "last_seq", last)
		}
		d.dispatcher.Subscribe(d.store)
	}

	if cfg.AMQP.URL != "" {
		pub, err := audit.DialPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange, cfg.AMQP.RoutingPrefix)
		if err != nil {
			logger.Warn("amqp publisher disabled", "error", err)
		} else {
			d.publisher = pub
			d.dispatcher.Subscribe(pub)
		}
	}

	if cfg.Graph.URI != "" {
		d.connectGraph(ctx)
	}

	d.ledger, err = ledger.New(ledgerCfg, d.zk,
		ledger.WithEventSink(d.dispatcher),
		ledger.WithLogger(logger.With("component", "ledger")),
	)
	if err != nil {
		return nil, err
	}

	d.sweeper = sweeper.New(d.ledger, cfg.Sweeper.Schedule, logger.With("component", "sweeper"))

	d.rpc, err = ipc.NewServer(cfg.RPC.Socket, d.ledger, ipc.Options{
		MaxClockSkew:    time.Duration(cfg.RPC.MaxClockSkew),
		ReplayCacheSize: cfg.RPC.ReplayCacheSize,
		Logger:          logger.With("component", "rpc"),
		Events:          d.events(),
		ZK:              d.zk,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create rpc server: %w", err)
	}

	if cfg.HTTP.Enabled {
		opts := httpapi.Options{
			Events: d.events(),
			Logger: logger.With("component", "http"),
		}
		if d.projector != nil {
			opts.Graph = d.projector
		}
		d.http = httpapi.NewServer(d.ledger, opts)
	}

	return d, nil
}

func (d *Daemon) connectGraph(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, graphTimeout)
	defer cancel()

	client, err := graph.NewNeo4jClient(ctx, graph.Options{
		URI:      d.cfg.Graph.URI,
		Database: d.cfg.Graph.Database,
		Username: d.cfg.Graph.Username,
		Password: d.cfg.Graph.Password,
	})
	if err != nil {
		d.logger.Warn("graph projection disabled", "error", err)
		return
	}
	if err := client.VerifyConnectivity(ctx); err != nil {
		d.logger.Warn("graph projection disabled", "error", err)
		client.Close(context.Background())
		return
	}
	d.graph = client
	d.projector = graph.NewProjector(client)
	d.dispatcher.Subscribe(d.projector)
}

// events prefers the durable store over the in-memory journal.
func (d *Daemon) events() audit.Lister {
	if d.store != nil {
		return d.store
	}
	return d.journal
}

// Run starts the daemon and blocks until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	d.dispatcher.Start(context.WithoutCancel(ctx))

	if err := d.sweeper.Start(); err != nil {
		d.shutdown()
		return err
	}

	serverErr := make(chan error, 2)
	go func() {
		d.logger.Info("starting gRPC server", "socket", d.cfg.RPC.Socket)
		serverErr <- d.rpc.Start()
	}()

	httpCtx, stopHTTP := context.WithCancel(ctx)
	defer stopHTTP()
	if d.http != nil {
		ln, err := net.Listen("tcp", d.cfg.HTTP.Listen)
		if err != nil {
			d.shutdown()
			return fmt.Errorf("failed to listen on %s: %w", d.cfg.HTTP.Listen, err)
		}
		go func() {
			d.logger.Info("starting http gateway", "addr", ln.Addr().String())
			serverErr <- d.http.Serve(httpCtx, ln)
		}()
	}

	stats := d.ledger.Stats()
	d.logger.Info("aura node running",
		"owner", stats.Owner.String(),
		"zk", d.zk.GetConfig().String(),
		"audit_driver", d.cfg.Audit.Driver,
		"amqp", d.publisher != nil,
		"graph", d.projector != nil,
	)

	var runErr error
	select {
	case <-ctx.Done():
		d.logger.Info("shutting down daemon")
	case err := <-serverErr:
		if err != nil {
			d.logger.Error("server error", "error", err)
			runErr = err
		}
	}

	stopHTTP()
	if err := d.shutdown(); err != nil {
		return errors.Join(runErr, err)
	}
	return runErr
}

// shutdown stops servers first, then drains the audit pipeline into the
// sinks, then closes the sinks.
func (d *Daemon) shutdown() error {
	var errs []error

	if d.rpc != nil {
		d.rpc.Stop()
	}
	if d.sweeper != nil {
		d.sweeper.Stop()
	}
	if d.dispatcher != nil {
		d.dispatcher.Close()
		if n := d.dispatcher.Dropped(); n > 0 {
			d.logger.Warn("audit events were dropped", "count", n)
		}
	}
	if d.publisher != nil {
		if err := d.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close amqp publisher: %w", err))
		}
	}
	if d.graph != nil {
		if err := d.graph.Close(context.Background()); err != nil {
			errs = append(errs, fmt.Errorf("failed to close graph client: %w", err))
		}
	}
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close audit store: %w", err))
		}
	}
	if d.zk != nil {
		d.zk.Close()
	}

	return errors.Join(errs...)
}
