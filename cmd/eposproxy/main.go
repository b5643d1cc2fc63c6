// eposproxy bridges Epson ePOS print requests onto raw ESC/POS printers.
// POS software POSTs SOAP-ish envelopes at it; it answers every one with the
// fixed acknowledgement Epson clients expect and pushes the decoded raster
// or drawer kick to the device configured with -printer.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/thearyadev/epson-esc-proxy/internal/api"
	"github.com/thearyadev/epson-esc-proxy/internal/api/handlers"
	"github.com/thearyadev/epson-esc-proxy/internal/api/middleware"
	"github.com/thearyadev/epson-esc-proxy/internal/certs"
	"github.com/thearyadev/epson-esc-proxy/internal/config"
	"github.com/thearyadev/epson-esc-proxy/internal/discover"
	"github.com/thearyadev/epson-esc-proxy/internal/journal"
	"github.com/thearyadev/epson-esc-proxy/internal/metrics"
	"github.com/thearyadev/epson-esc-proxy/internal/printer"
	"github.com/thearyadev/epson-esc-proxy/internal/retry"
)

// Version is overridden at build time via -ldflags.
var Version = "dev"

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "eposproxy: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath  = flag.String("config", "eposproxy.yaml", "path to the yaml configuration file")
		host        = flag.String("host", "", "server bind address (overrides config)")
		port        = flag.Int("port", 0, "server port (overrides config)")
		https       = flag.Bool("https", false, "serve HTTPS with a self-signed certificate (overrides config)")
		device      = flag.String("printer", "", "printer: IP address, USB:<vendor>:<product>, COM port, or device path (overrides config)")
		width       = flag.Int("width", 0, "receipt width in pixels (overrides config)")
		logLevel    = flag.String("log-level", "", "log level: debug, info, warn, error (overrides config)")
		runDiscover = flag.Bool("discover", false, "scan the network for printers, print them, and exit")
		showVersion = flag.Bool("version", false, "print the version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("eposproxy %s (%s/%s)\n", Version, runtime.GOOS, runtime.GOARCH)
		return nil
	}

	if *runDiscover {
		return discoverPrinters()
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	// Flags passed explicitly beat the file and the environment.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "host":
			cfg.Server.Host = *host
		case "port":
			cfg.Server.Port = *port
		case "https":
			cfg.Server.HTTPS = *https
		case "printer":
			cfg.Printer.Device = *device
		case "width":
			cfg.Printer.PaperWidthPx = *width
		case "log-level":
			cfg.Logging.Level = *logLevel
		}
	})

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log := cfg.Logging.NewLogger()
	slog.SetDefault(log)

	// The descriptor is resolved once, before anything listens: a bad device
	// string is an operator mistake, not a condition to retry against.
	desc, err := printer.ParseDescriptor(cfg.Printer.Device)
	if err != nil {
		if errors.Is(err, printer.ErrNoDefaultDevice) {
			return fmt.Errorf("no printer configured: pass -printer (try -discover to find network printers)")
		}
		return fmt.Errorf("printer device %q: %w", cfg.Printer.Device, err)
	}

	m := metrics.New()

	manager := printer.NewManager(desc, cfg.Printer.DialTimeout, cfg.Printer.WriteTimeout, log)
	defer manager.Close()

	policy := retry.Policy{Attempts: cfg.Retry.MaxAttempts, Delay: cfg.Retry.Delay}
	service := printer.NewService(manager, policy, log, m)

	var jnl *journal.Journal
	if cfg.Journal.Enabled {
		jnl, err = journal.Open(cfg.Journal.Path, log)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer jnl.Close()
		jnl.StartRetention(cfg.Journal.RetentionDays)
	}

	gateway := handlers.NewGateway(service, jnl, m, log, cfg.Printer.PaperWidthPx)

	// The admin surface keeps its credentials in the journal, so it cannot
	// run without one.
	var admin *handlers.AdminHandler
	var auth *middleware.AuthMiddleware
	switch {
	case cfg.Admin.Enabled && jnl != nil:
		auth, err = middleware.NewAuthMiddleware(jnl, cfg.Server.HTTPS)
		if err != nil {
			return fmt.Errorf("init admin auth: %w", err)
		}
		admin = handlers.NewAdminHandler(jnl, manager)
	case cfg.Admin.Enabled:
		log.Warn("admin api disabled: it requires the journal, and journal.enabled is false")
	}

	router := api.NewRouter(gateway, admin, auth, m)

	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	if cfg.Server.HTTPS {
		created, err := certs.EnsureKeyPair(cfg.Server.CertFile, cfg.Server.KeyFile, certs.LocalHosts(cfg.Server.Host))
		if err != nil {
			return fmt.Errorf("tls material: %w", err)
		}
		if created {
			log.Info("generated self-signed certificate",
				"cert", cfg.Server.CertFile,
				"key", cfg.Server.KeyFile,
			)
		}
	}

	printBanner(cfg, desc)
	log.Info("eposproxy starting",
		"version", Version,
		"addr", addr,
		"https", cfg.Server.HTTPS,
		"printer", desc.Target(),
		"paper_width_px", cfg.Printer.PaperWidthPx,
		"journal", cfg.Journal.Enabled,
	)

	errCh := make(chan error, 1)
	go func() {
		var err error
		if cfg.Server.HTTPS {
			err = srv.ListenAndServeTLS(cfg.Server.CertFile, cfg.Server.KeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case sig := <-sigCh:
		log.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	return nil
}

// printBanner writes the human-facing startup block to stdout. Operators run
// this in a terminal window on the till machine; the structured log goes to
// stderr for everything after startup.
func printBanner(cfg *config.Config, desc printer.Descriptor) {
	scheme := "http"
	if cfg.Server.HTTPS {
		scheme = "https"
	}
	displayHost := cfg.Server.Host
	if displayHost == "0.0.0.0" || displayHost == "::" {
		displayHost = "localhost"
	}

	line := "=================================================="
	fmt.Println()
	fmt.Println(line)
	fmt.Println("  eposproxy - Epson ePOS printer proxy")
	fmt.Println(line)
	fmt.Printf("  Protocol : %s\n", scheme)
	fmt.Printf("  Address  : %s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("  Printer  : %s\n", desc.Target())
	fmt.Printf("  Paper    : %dpx\n", cfg.Printer.PaperWidthPx)
	fmt.Printf("  Platform : %s\n", runtime.GOOS)
	fmt.Println(line)
	fmt.Printf("  URL: %s://%s:%d\n", scheme, displayHost, cfg.Server.Port)
	if cfg.Server.HTTPS {
		fmt.Println()
		fmt.Println("  Note: visit the URL in a browser and accept the")
		fmt.Println("  self-signed certificate before printing.")
	}
	fmt.Println(line)
	fmt.Println()
}

// discoverPrinters scans for network printers and prints a table an operator
// can copy a -printer value from.
func discoverPrinters() error {
	fmt.Println("Scanning the local network for printers (5s)...")

	found, err := discover.Browse(context.Background(), 5*time.Second)
	if err != nil {
		return fmt.Errorf("discovery: %w", err)
	}
	if len(found) == 0 {
		fmt.Println("No printers announced themselves. Wired printers often don't; try the device's network settings page.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ADDRESS\tPORT\tNAME\tSERVICE")
	for _, p := range found {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", p.Host, p.Port, p.Name, p.Service)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("Use one as: eposproxy -printer <ADDRESS>")
	return nil
}
