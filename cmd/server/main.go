package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/qnkhuat/chessterm/pkg"
	"github.com/qnkhuat/chessterm/pkg/server"
)

func main() {
	cfg := server.DefaultConfig()
	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "address game clients connect to")
	flag.IntVar(&cfg.Workers, "workers", cfg.Workers, "number of connection workers")
	flag.IntVar(&cfg.QueueSize, "queue", cfg.QueueSize, "event queue size per worker")
	flag.DurationVar(&cfg.IdleTimeout, "idle", cfg.IdleTimeout, "close connections idle for this long, 0 disables")
	flag.DurationVar(&cfg.WriteTimeout, "write-timeout", cfg.WriteTimeout, "deadline for a single write to a client")
	flag.DurationVar(&cfg.ShutdownWait, "shutdown-wait", cfg.ShutdownWait, "how long shutdown notices may take to flush")
	flag.StringVar(&cfg.SSHAddr, "ssh", "", "serve the terminal client over ssh on this address, e.g. "+server.DefaultSSHPort)
	flag.StringVar(&cfg.HostKeyFile, "hostkey", "", "ssh host key file, a key is generated when empty")
	flag.StringVar(&cfg.ClientBinary, "client", "", "path of the chessterm binary run for ssh sessions")
	flag.StringVar(&cfg.StatusAddr, "status", "", "serve /health and /stats on this address")
	logPath := flag.String("log", "", "path to log file, stderr when empty")
	debug := flag.Bool("debug", false, "log every move and board")
	flag.Parse()

	level := zerolog.InfoLevel
	if *debug {
		level = zerolog.DebugLevel
	}
	log, closer, err := pkg.InitLog(*logPath, "server", level)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer closer.Close()

	if err := run(cfg, log); err != nil {
		log.Error().Err(err).Msg("server stopped")
		closer.Close()
		os.Exit(1)
	}
}

func run(cfg server.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s, err := server.New(cfg, log)
	if err != nil {
		return err
	}

	var ssh *server.SSHServer
	if cfg.SSHAddr != "" {
		if ssh, err = server.NewSSHServer(cfg, log); err != nil {
			return err
		}
	}

	errc := make(chan error, 3)
	services := 1
	go func() {
		errc <- s.ListenAndServe(ctx)
	}()
	if ssh != nil {
		services++
		go func() {
			errc <- ssh.ListenAndServe(ctx)
		}()
	}
	if cfg.StatusAddr != "" {
		services++
		go func() {
			errc <- s.ServeStatus(ctx, cfg.StatusAddr)
		}()
	}

	var first error
	for i := 0; i < services; i++ {
		if err := <-errc; err != nil && first == nil {
			first = err
			stop()
		}
	}
	return first
}
