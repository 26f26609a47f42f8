package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"steward/internal/config"
	"steward/internal/controllers"
	"steward/internal/metrics"
	"steward/internal/reconciler"
	"steward/pkg/apis/steward/v1alpha1"
	"steward/pkg/logging"
)

// serveDebug enables verbose logging regardless of the configured level.
var serveDebug bool

// serveConfigPath specifies a custom configuration directory path.
// When unset, configuration is loaded from ~/.config/steward.
var serveConfigPath string

// serveCmd defines the serve command structure. This is the main command of
// steward: it runs the reconciliation engine until terminated.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the reconciliation engine",
	Long: `Starts the steward reconciliation engine and runs it until terminated.

In kubernetes mode (the default), steward watches ClusterDefinition custom
resources through the API server and contends for a coordination Lease, so
that across all replicas exactly one instance reconciles at a time.

In filesystem mode, steward watches a local directory of YAML manifests and
promotes itself unconditionally. No cluster access is needed; intended for
development.

Configuration:
  steward loads config.yaml from ~/.config/steward, or from the directory
  given with --config-path.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

// runServe is the main entry point for the serve command.
func runServe(cmd *cobra.Command, args []string) error {
	configPath := serveConfigPath
	if configPath == "" {
		configPath = config.GetDefaultConfigPathOrPanic()
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	level := logging.ParseLevel(cfg.LogLevel)
	if serveDebug {
		level = logging.LevelDebug
	}
	logging.InitForCLI(level, os.Stderr)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	source, elector, controllerClient, err := buildCollaborators(cfg)
	if err != nil {
		return err
	}

	tally := reconciler.NewCallbackTally()
	var counters reconciler.EventCounters = tally

	group, groupCtx := errgroup.WithContext(ctx)

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		registry := prometheus.NewRegistry()
		prom, err := metrics.NewPrometheusCounters(registry, "ClusterDefinition", tally)
		if err != nil {
			return fmt.Errorf("failed to register metrics: %w", err)
		}
		counters = prom

		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler(registry))
		metricsServer = &http.Server{Addr: cfg.Metrics.Address, Handler: mux}

		group.Go(func() error {
			logging.Info("Serve", "metrics listening on %s", cfg.Metrics.Address)
			if err := metricsServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server failed: %w", err)
			}
			return nil
		})
	}

	manager, err := reconciler.New(reconciler.Options{
		Kind:   "ClusterDefinition",
		Source: source,
		Factory: func() (reconciler.ResourceController, error) {
			return &controllers.ClusterDefinitionController{Client: controllerClient}, nil
		},
		Elector:      elector,
		IdleInterval: cfg.IdleInterval.Duration,
		Counters:     counters,
	})
	if err != nil {
		return fmt.Errorf("failed to create resource manager: %w", err)
	}

	if err := manager.Start(ctx, cfg.Namespace); err != nil {
		return fmt.Errorf("failed to start resource manager: %w", err)
	}

	<-groupCtx.Done()

	if err := manager.Close(); err != nil {
		logging.Error("Serve", err, "error during manager shutdown")
	}
	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}

	return group.Wait()
}

// buildCollaborators assembles the event source, elector and controller
// client for the configured mode.
func buildCollaborators(cfg config.StewardConfig) (reconciler.EventSource, reconciler.Elector, client.Client, error) {
	switch cfg.Mode {
	case config.ModeFilesystem:
		source, err := reconciler.NewFilesystemSource(cfg.ManifestDir)
		if err != nil {
			return nil, nil, nil, err
		}
		// No API server in this mode; controllers run without a client.
		return source, reconciler.NewStandaloneElector(), nil, nil

	case config.ModeKubernetes:
		restConfig, err := ctrl.GetConfig()
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to load kubeconfig: %w", err)
		}

		dynamicClient, err := dynamic.NewForConfig(restConfig)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to create dynamic client: %w", err)
		}
		source, err := reconciler.NewKubernetesSource(dynamicClient, v1alpha1.ClusterDefinitionResource)
		if err != nil {
			return nil, nil, nil, err
		}

		kubeClient, err := kubernetes.NewForConfig(restConfig)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to create kubernetes client: %w", err)
		}
		elector, err := reconciler.NewLeaseElector(reconciler.LeaseElectorConfig{
			Client:         kubeClient,
			LeaseName:      cfg.Lease.Name,
			LeaseNamespace: cfg.Lease.Namespace,
			LeaseDuration:  cfg.Lease.Duration.Duration,
			RenewDeadline:  cfg.Lease.RenewDeadline.Duration,
			RetryPeriod:    cfg.Lease.RetryPeriod.Duration,
		})
		if err != nil {
			return nil, nil, nil, err
		}

		scheme, err := v1alpha1.NewScheme()
		if err != nil {
			return nil, nil, nil, err
		}
		controllerClient, err := client.New(restConfig, client.Options{Scheme: scheme})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to create controller client: %w", err)
		}

		return source, elector, controllerClient, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown mode %q", cfg.Mode)
	}
}

// init registers the serve command and its flags with the root command.
func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Enable debug logging")
	serveCmd.Flags().StringVar(&serveConfigPath, "config-path", "", "Custom configuration directory path")
}
