package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fivetide/phiremock-server/internal/storage"
	"github.com/fivetide/phiremock-server/pkg/admin"
	"github.com/fivetide/phiremock-server/pkg/config"
	"github.com/fivetide/phiremock-server/pkg/engine"
	"github.com/fivetide/phiremock-server/pkg/logging"
	"github.com/fivetide/phiremock-server/pkg/requestlog"
	"github.com/fivetide/phiremock-server/pkg/scenario"
)

// shutdownTimeout is the grace period for in-flight requests on shutdown.
const shutdownTimeout = 30 * time.Second

// serveFlags holds the flag values bound to the serve command.
type serveFlags struct {
	ip              string
	port            int
	debug           bool
	expectationsDir string
	configPath      string
	factoryClass    string
	certificate     string
	certificateKey  string
	certPassphrase  string
	proxyTimeout    int
	journalSize     int
}

var serveFlagVals serveFlags

// serveCmd starts the mock server in the foreground.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the mock server (foreground)",
	Example: `  # Start with defaults (0.0.0.0:8086)
  phiremock serve

  # Custom port, expectations preloaded from disk
  phiremock serve --port 3000 --expectations-dir ./expectations

  # TLS
  phiremock serve --certificate server.crt --certificate-key server.key`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

func initServeCmd() {
	rootCmd.AddCommand(serveCmd)

	f := &serveFlagVals
	serveCmd.Flags().StringVarP(&f.ip, "ip", "i", config.DefaultIP, "Bind address")
	serveCmd.Flags().IntVarP(&f.port, "port", "p", config.DefaultPort, "Bind port")
	serveCmd.Flags().BoolVarP(&f.debug, "debug", "d", false, "Raise log verbosity")
	serveCmd.Flags().StringVarP(&f.expectationsDir, "expectations-dir", "e", "", "Directory scanned once at boot for *.json expectation files")
	serveCmd.Flags().StringVar(&f.configPath, "config-path", "", "Directory in which to seek a phiremock.yaml|yml|json configuration file")
	serveCmd.Flags().StringVar(&f.factoryClass, "factory-class", "", "Accepted for configuration compatibility; ignored")
	serveCmd.Flags().StringVar(&f.certificate, "certificate", "", "Path to TLS certificate file")
	serveCmd.Flags().StringVar(&f.certificateKey, "certificate-key", "", "Path to TLS certificate key file")
	serveCmd.Flags().StringVar(&f.certPassphrase, "cert-passphrase", "", "Passphrase for an encrypted certificate key")
	serveCmd.Flags().IntVar(&f.proxyTimeout, "proxy-timeout", config.DefaultProxyTimeoutSeconds, "Outbound proxy timeout in seconds")
	serveCmd.Flags().IntVar(&f.journalSize, "journal-size", config.DefaultJournalSize, "Maximum journal entries (0 = unbounded)")
}

func runServe(cmd *cobra.Command) error {
	cfg, err := resolveConfig(cmd, &serveFlagVals)
	if err != nil {
		return err
	}

	level := logging.LevelInfo
	if cfg.Debug {
		level = logging.LevelDebug
	}
	log := logging.NewWithLevel(level)

	srv, store, err := buildServer(cfg, log)
	if err != nil {
		return err
	}

	if err := srv.Start(); err != nil {
		return err
	}
	log.Info("phiremock started", "expectations", store.Count())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Stop(shutdownCtx)
}

// buildServer wires the stores, dispatcher, and listener, and performs the
// one-shot expectation bootstrap.
func buildServer(cfg *config.ServerConfig, log *slog.Logger) (*engine.Server, storage.ExpectationStore, error) {
	store := storage.NewInMemoryStore()
	scenarios := scenario.NewStore()
	journal := requestlog.NewInMemoryJournal(cfg.JournalSize)

	adminHandler := admin.NewHandler(store, scenarios, journal)
	adminHandler.SetLogger(log.With("component", "admin"))

	responder := engine.NewResponder(time.Duration(cfg.ProxyTimeoutSeconds) * time.Second)
	responder.SetLogger(log.With("component", "responder"))

	dispatcher := engine.NewHandler(store, scenarios, journal, adminHandler, responder)
	dispatcher.SetLogger(log.With("component", "dispatcher"))

	if cfg.ExpectationsDir != "" {
		source := &config.DirSource{Dir: cfg.ExpectationsDir}
		expectations, err := source.LoadAll()
		if err != nil {
			return nil, nil, fmt.Errorf("loading expectations: %w", err)
		}
		for _, e := range expectations {
			store.Add(e)
		}
		log.Info("expectations loaded", "dir", cfg.ExpectationsDir, "count", len(expectations))
	}

	srv := engine.NewServer(cfg, dispatcher, engine.WithLogger(log))
	return srv, store, nil
}

// resolveConfig merges defaults, the optional config file, and explicitly
// set CLI flags, in that order.
func resolveConfig(cmd *cobra.Command, f *serveFlags) (*config.ServerConfig, error) {
	cfg := config.Default()

	if f.configPath != "" {
		fileCfg, err := config.LoadFromDir(f.configPath)
		if err != nil && !errors.Is(err, config.ErrFileNotFound) {
			return nil, err
		}
		if fileCfg != nil {
			cfg = fileCfg
		}
	}

	flags := cmd.Flags()
	if flags.Changed("ip") {
		cfg.IP = f.ip
	}
	if flags.Changed("port") {
		cfg.Port = f.port
	}
	if flags.Changed("debug") {
		cfg.Debug = f.debug
	}
	if flags.Changed("expectations-dir") {
		cfg.ExpectationsDir = f.expectationsDir
	}
	if flags.Changed("certificate") {
		cfg.Certificate = f.certificate
	}
	if flags.Changed("certificate-key") {
		cfg.CertificateKey = f.certificateKey
	}
	if flags.Changed("cert-passphrase") {
		cfg.CertPassphrase = f.certPassphrase
	}
	if flags.Changed("proxy-timeout") {
		cfg.ProxyTimeoutSeconds = f.proxyTimeout
	}
	if flags.Changed("journal-size") {
		cfg.JournalSize = f.journalSize
	}

	if cfg.Certificate != "" && cfg.CertificateKey == "" {
		return nil, errors.New("certificate requires certificate-key")
	}
	if cfg.CertificateKey != "" && cfg.Certificate == "" {
		return nil, errors.New("certificate-key requires certificate")
	}
	return cfg, nil
}
