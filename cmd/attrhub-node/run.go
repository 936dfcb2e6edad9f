package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/attrhub/attrhub-go/internal/node"
	"github.com/attrhub/attrhub-go/pkg/cluster/natscluster"
	"github.com/attrhub/attrhub-go/pkg/config"
	"github.com/attrhub/attrhub-go/pkg/discovery"
	"github.com/attrhub/attrhub-go/pkg/distributed"
	"github.com/attrhub/attrhub-go/pkg/executor"
	"github.com/attrhub/attrhub-go/pkg/log"
	"github.com/attrhub/attrhub-go/pkg/logfields"
	"github.com/attrhub/attrhub-go/pkg/metrics"
)

const shutdownTimeout = 10 * time.Second

// RunCmd runs the node until SIGINT or SIGTERM.
type RunCmd struct {
	Watch      bool `help:"Reload the configuration file when it changes." default:"true" negatable:""`
	APIWorkers int  `help:"Concurrent attribute reads for bulk API requests." default:"8"`
}

func (r *RunCmd) Run(cli *CLI) error {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return err
	}
	logger := cli.logger
	nodeID := cfg.Node.ID
	if nodeID == "" {
		nodeID = uuid.NewString()
	}
	logger.Info("starting attrhub node", logfields.Node(nodeID), slog.String("version", version),
		slog.String("cluster", cfg.Cluster.Mode))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	events, closeEvents, err := openEvents(cfg.Events, logger)
	if err != nil {
		return err
	}
	defer closeEvents()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	opts := node.Options{
		Logger:   logger,
		Events:   events,
		Recorder: metrics.NewPrometheusRecorder(reg),
		Interval: cfg.Cluster.Interval.Std(),
		Workers:  cfg.Cluster.Workers,
	}
	if cfg.Cluster.Mode == config.ClusterNATS {
		closeNATS, err := connectNATS(ctx, cfg.Cluster, nodeID, logger, &opts)
		if err != nil {
			return err
		}
		defer closeNATS()
	}

	n := node.New(nodeID, opts)
	if err := n.Apply(ctx, cfg); err != nil {
		// Partial failures leave the healthy resources running.
		logger.Error("configuration applied with errors", logfields.Error(err))
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := n.Stop(stopCtx); err != nil {
			logger.Warn("stopping node", logfields.Error(err))
		}
	}()

	if r.Watch {
		w, err := config.NewWatcher(cli.Config, func(ctx context.Context, next *config.Config) error {
			if next.Cluster != cfg.Cluster {
				logger.Warn("cluster settings changed; restart to apply them")
			}
			return n.Apply(ctx, next)
		}, config.WithWatcherLogger(logger))
		if err != nil {
			return err
		}
		if err := w.Start(ctx); err != nil {
			return err
		}
		defer w.Stop()
	}

	g, ctx := errgroup.WithContext(ctx)
	if cfg.Metrics.Listen != "" {
		srv := newServer(cfg.Metrics.Listen, n, reg, r.APIWorkers)
		ln, err := net.Listen("tcp", cfg.Metrics.Listen)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", cfg.Metrics.Listen, err)
		}
		logger.Info("http server listening", slog.String("addr", ln.Addr().String()))

		g.Go(func() error {
			if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutCtx)
		})

		if cfg.Discovery.Advertise {
			adv := discovery.NewAdvertiser(discovery.AdvertiserConfig{Interface: cfg.Discovery.Interface})
			if err := adv.Advertise(nodeInfo(n, cfg, ln.Addr())); err != nil {
				logger.Warn("mDNS advertisement failed", logfields.Error(err))
			} else {
				defer adv.Stop()
			}
		}
	}

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		return nil
	})
	return g.Wait()
}

func newServer(addr string, n *node.Node, reg *prometheus.Registry, workers int) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", metrics.HTTPHandler(reg))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	node.NewAPI(n, executor.NewPool(workers)).Register(mux)
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func nodeInfo(n *node.Node, cfg *config.Config, addr net.Addr) *discovery.NodeInfo {
	info := &discovery.NodeInfo{
		NodeID:      n.ID(),
		Resources:   n.Resources(),
		ClusterMode: cfg.Cluster.Mode,
		Version:     version,
	}
	if _, port, err := net.SplitHostPort(addr.String()); err == nil {
		info.Port, _ = strconv.Atoi(port)
	}
	return info
}

// openEvents builds the activity trace sink from configuration.
func openEvents(cfg config.EventsConfig, logger *slog.Logger) (log.Logger, func(), error) {
	var sinks []log.Logger
	closeFn := func() {}
	if cfg.File != "" {
		fl, err := log.NewFileLogger(cfg.File)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open event log: %w", err)
		}
		sinks = append(sinks, fl)
		closeFn = func() { _ = fl.Close() }
	}
	if cfg.Console {
		sinks = append(sinks, log.NewSlogAdapter(logger))
	}
	switch len(sinks) {
	case 0:
		return log.NoopLogger{}, closeFn, nil
	case 1:
		return sinks[0], closeFn, nil
	default:
		return log.NewMultiLogger(sinks...), closeFn, nil
	}
}

// connectNATS wires NATS messaging and per-resource lease elections into opts.
func connectNATS(ctx context.Context, cfg config.ClusterConfig, nodeID string, logger *slog.Logger, opts *node.Options) (func(), error) {
	conn, err := natscluster.Dial(cfg.NATSURL, "attrhub-"+nodeID)
	if err != nil {
		return nil, err
	}
	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}
	opts.Messaging = natscluster.NewMessaging(conn)
	opts.Membership = func(ctx context.Context, resource string) (distributed.ClusterMembership, error) {
		m, err := natscluster.NewMembership(ctx, js, natscluster.MembershipConfig{
			Bucket:        cfg.LeaseBucket,
			Lease:         resource,
			NodeID:        nodeID,
			LeaseTTL:      cfg.LeaseTTL.Std(),
			RenewInterval: cfg.RenewInterval.Std(),
			Logger:        logger,
		})
		if err != nil {
			return nil, err
		}
		m.Start(ctx)
		return m, nil
	}
	logger.Info("connected to NATS", slog.String("url", conn.ConnectedUrlRedacted()))
	return func() {
		if err := conn.Drain(); err != nil {
			logger.Warn("draining NATS connection", logfields.Error(err))
		}
	}, nil
}
