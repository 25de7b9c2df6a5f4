package server

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wcfdehao/gomoku/pkg/config"
	"github.com/wcfdehao/gomoku/pkg/logger"
)

// Main is the server entrypoint: subcommand handling, flags, config,
// signal-driven graceful shutdown.
func Main() {
	if len(os.Args) > 1 && (os.Args[len(os.Args)-1] == "-h" || os.Args[len(os.Args)-1] == "--help") {
		fs := flag.NewFlagSet("gomoku-server", flag.ContinueOnError)
		registerFlags(fs)
		printHelp(fs)
		return
	}

	// Subcommands: start|stop|restart|status (default: start)
	command := "start"
	if len(os.Args) > 1 {
		first := os.Args[1]
		if first == "start" || first == "stop" || first == "restart" || first == "status" {
			command = first
			os.Args = append([]string{os.Args[0]}, os.Args[2:]...)
		}
	}

	instanceMgr := NewInstanceManager()

	switch command {
	case "status":
		if running, pid := instanceMgr.IsRunning(); running {
			fmt.Printf("Server running (PID %d)\n", pid)
		} else {
			fmt.Println("Server not running")
		}
		return
	case "stop":
		if err := instanceMgr.Kill(); err != nil {
			fmt.Printf("Stop failed: %v\n", err)
		} else {
			fmt.Println("Server stopped")
		}
		return
	case "restart":
		_ = instanceMgr.Kill() // May not be running
		fmt.Println("Restarting server...")
	case "start":
		if running, pid := instanceMgr.IsRunning(); running {
			fmt.Printf("Server already running (PID %d)\n", pid)
			return
		}
	}

	addr := flag.String("addr", "", "Server address (overrides config)")
	configPath := flag.String("config", "", "Config file path (optional)")
	certFile := flag.String("cert", "", "TLS certificate file")
	keyFile := flag.String("key", "", "TLS key file")
	useTLS := flag.Bool("tls", false, "Enable TLS")
	storeType := flag.String("store", "", "Store backend: redis, sqlite or memory (overrides config)")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	logFormat := flag.String("log-format", "text", "Log format: text or json")
	flag.Parse()

	logger.Init(logger.LogLevel(*logLevel), *logFormat)
	log := logger.Get()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.ErrorWithErr("Failed to load configuration", err)
		return
	}

	if *addr != "" {
		cfg.Address = *addr
	}
	if *storeType != "" {
		cfg.Store.Type = *storeType
	}
	if *certFile != "" {
		cfg.TLS.CertFile = *certFile
	}
	if *keyFile != "" {
		cfg.TLS.KeyFile = *keyFile
	}
	if *useTLS {
		cfg.TLS.Enabled = true
	}

	log.InfoWith("Configuration loaded", "address", cfg.Address, "store", cfg.Store.Type, "tls", cfg.TLS.Enabled)

	srv, err := NewServer(cfg)
	if err != nil {
		log.ErrorWithErr("Failed to create server", err)
		return
	}

	if err := instanceMgr.WritePID(); err != nil {
		log.WarnWith("Failed to write PID file", "error", err)
	}
	defer instanceMgr.RemovePID()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)

	errorChan := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			errorChan <- err
		}
	}()

	log.InfoWith("Server is running", "press", "Ctrl+C to stop")

	select {
	case sig := <-sigChan:
		log.InfoWith("Received signal, shutting down", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.ErrorWithErr("Error during shutdown", err)
		}
		log.InfoWith("Server stopped")

	case err := <-errorChan:
		log.ErrorWithErr("Server encountered fatal error", err)
	}
}

func registerFlags(fs *flag.FlagSet) {
	fs.String("addr", "", "Server address (overrides config)")
	fs.String("config", "", "Config file path (optional)")
	fs.String("cert", "", "TLS certificate file")
	fs.String("key", "", "TLS key file")
	fs.Bool("tls", false, "Enable TLS")
	fs.String("store", "", "Store backend: redis, sqlite or memory (overrides config)")
	fs.String("log-level", "info", "Log level: debug, info, warn, error")
	fs.String("log-format", "text", "Log format: text or json")
}

func printHelp(fs *flag.FlagSet) {
	fmt.Print(`Gomoku Server - Usage:

Commands:
  start              Start the server (default if no command given)
  stop               Stop the running server
  restart            Restart the server
  status             Show server status

Flags:
`)
	fs.PrintDefaults()
	fmt.Print(`
Examples:
  ./bin/gomoku-server                            # Start on default port 8080
  ./bin/gomoku-server -addr 127.0.0.1:8081       # Start on custom port
  ./bin/gomoku-server -store memory              # Start without redis
  ./bin/gomoku-server stop                       # Stop the server
  ./bin/gomoku-server status                     # Check if server is running
`)
}
