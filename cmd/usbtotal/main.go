// Command usbtotal offers local game files to a peer console over USB.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/danmuck/usbtotal/internal/catalog"
	"github.com/danmuck/usbtotal/internal/logging"
	"github.com/danmuck/usbtotal/internal/protocol/session"
	"github.com/danmuck/usbtotal/internal/status"
	"github.com/danmuck/usbtotal/internal/transport"
	"github.com/danmuck/usbtotal/internal/transport/usbfs"
	"github.com/rs/zerolog/log"
)

func main() {
	var params cli
	kong.Parse(&params,
		kong.Name("usbtotal"),
		kong.Description("Serve .nsp/.xci/.nsz/.xcz files to a console over USB."),
	)

	logging.ConfigureRuntime()
	if params.LogLevel != "" && !logging.SetLevel(params.LogLevel) {
		fmt.Fprintf(os.Stderr, "usbtotal: unknown log level %q\n", params.LogLevel)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, params, usbfs.Finder{}); err != nil {
		fmt.Fprintf(os.Stderr, "usbtotal: %v\n", err)
		os.Exit(1)
	}
}

// deviceFinder is satisfied by usbfs.Finder.
type deviceFinder interface {
	Wait(ctx context.Context, filter usbfs.Filter, backoff transport.Backoff) (usbfs.DeviceInfo, error)
	Open(info usbfs.DeviceInfo, iface uint8) (*usbfs.Device, error)
}

func run(ctx context.Context, params cli, finder deviceFinder) error {
	cfg, err := params.resolveConfig()
	if err != nil {
		return err
	}

	files, err := catalog.Discover(params.Paths, cfg.Extensions)
	if err != nil {
		if errors.Is(err, catalog.ErrEmpty) {
			return fmt.Errorf("no eligible files in %v", params.Paths)
		}
		return err
	}
	log.Info().
		Int("files", files.Len()).
		Uint64("total_bytes", files.TotalSize()).
		Msg("catalog ready")
	for i, e := range files.Entries() {
		log.Debug().Int("index", i).Str("path", e.Path).Uint64("size", e.Size).Msg("catalog entry")
	}

	var current atomic.Pointer[session.Session]
	if cfg.StatusAddr != "" {
		srv := status.New(cfg.StatusAddr, cfg.CorsOrigins, func() session.Progress {
			if sess := current.Load(); sess != nil {
				return sess.Progress()
			}
			return session.Progress{Index: -1, FileCount: files.Len()}
		}, status.WithToken(cfg.StatusToken))
		go func() {
			if err := srv.Serve(); err != nil {
				log.Error().Err(err).Msg("status server stopped")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	filter := usbfs.Filter{VendorID: cfg.VendorID, ProductID: cfg.ProductID}
	log.Info().
		Str("vid", fmt.Sprintf("%#04x", filter.VendorID)).
		Str("pid", fmt.Sprintf("%#04x", filter.ProductID)).
		Msg("waiting for device")
	info, err := finder.Wait(ctx, filter, cfg.Backoff())
	if err != nil {
		return fmt.Errorf("wait for device: %w", err)
	}
	dev, err := finder.Open(info, cfg.Interface)
	if err != nil {
		return err
	}
	defer dev.Close()

	scfg := session.DefaultConfig()
	scfg.Prefetch = cfg.Prefetch
	sess := session.New(scfg, transport.NewLimitedTransport(dev, cfg.MaxSendKbps), files)
	current.Store(sess)
	return sess.Run()
}
