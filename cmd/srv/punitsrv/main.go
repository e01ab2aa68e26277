package main

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/core-tools/hsu-punit/pkg/configsource"
	"github.com/core-tools/hsu-punit/pkg/control"
	"github.com/core-tools/hsu-punit/pkg/logging"
	"github.com/core-tools/hsu-punit/pkg/metrics"
	"github.com/core-tools/hsu-punit/pkg/provisioning"
	"github.com/core-tools/hsu-punit/pkg/punit"

	flags "github.com/jessevdk/go-flags"
	"google.golang.org/grpc"
)

type flagOptions struct {
	ConfigDir   string `long:"config-dir" description:"directory of persistence unit record files" required:"true"`
	Port        int    `long:"port" description:"port to serve gRPC health on" default:"50055"`
	MetricsPort int    `long:"metrics-port" description:"port to serve /metrics on, 0 disables it"`
	LogLevel    string `long:"log-level" description:"log level" default:"info" choice:"debug" choice:"info" choice:"warn" choice:"error"`
	LogFormat   string `long:"log-format" description:"log format" default:"json" choice:"json" choice:"console"`
}

func main() {
	var opts flagOptions
	var parser = flags.NewParser(&opts, flags.HelpFlag)
	if _, err := parser.ParseArgs(os.Args[1:]); err != nil {
		fmt.Printf("Command line flags parsing failed: %v\n", err)
		os.Exit(1)
	}

	zapConfig := logging.DefaultZapConfig()
	zapConfig.Level = opts.LogLevel
	zapConfig.Format = opts.LogFormat
	logger, err := logging.NewZapLogger(zapConfig)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Infof("opts: %+v", opts)

	collector := metrics.NewCollector()
	reporter := control.NewHealthReporter(logger.Named("health"))
	normalizer := punit.NewNormalizer(logger.Named("normalizer"), collector)
	registry := provisioning.NewRegistry(normalizer, logger.Named("registry"), collector, reporter)

	if err := reload(opts.ConfigDir, registry, logger); err != nil {
		logger.Errorf("Initial load finished with errors: %v", err)
	}

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", opts.Port))
	if err != nil {
		logger.Errorf("Failed to listen, port: %d, error: %v", opts.Port, err)
		os.Exit(1)
	}
	grpcServer := grpc.NewServer()
	control.RegisterGRPCHealthServer(grpcServer, reporter)
	go func() {
		if err := grpcServer.Serve(listener); err != nil {
			logger.Errorf("gRPC server stopped: %v", err)
		}
	}()
	logger.Infof("Serving gRPC health, port: %d", opts.Port)

	var metricsServer *http.Server
	if opts.MetricsPort != 0 {
		mux := http.NewServeMux()
		mux.Handle("/metrics", collector.Handler())
		metricsServer = &http.Server{
			Addr:              fmt.Sprintf(":%d", opts.MetricsPort),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Errorf("Metrics server stopped: %v", err)
			}
		}()
		logger.Infof("Serving metrics, port: %d", opts.MetricsPort)
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)

	for sig := range signals {
		if sig == syscall.SIGHUP {
			logger.Infof("Reloading configuration, directory: %s", opts.ConfigDir)
			if err := reload(opts.ConfigDir, registry, logger); err != nil {
				logger.Errorf("Reload finished with errors: %v", err)
			}
			continue
		}

		logger.Infof("Received signal %v, shutting down", sig)
		break
	}

	reporter.Shutdown()
	grpcServer.GracefulStop()
	if metricsServer != nil {
		_ = metricsServer.Close()
	}
	logger.Infof("Done")
}

// reload syncs the registry with the record files in dir. Files that fail to load are
// skipped, so units they configured are retired.
func reload(dir string, registry *provisioning.Registry, logger logging.Logger) error {
	entries, loadErr := configsource.LoadDir(dir)

	records := make(map[string]punit.Record, len(entries))
	for _, entry := range entries {
		records[entry.PID] = entry.Record()
	}

	syncErr := registry.Sync(records)
	logger.Infof("Provisioned units: %v", registry.Units())

	if loadErr != nil {
		return loadErr
	}
	return syncErr
}
