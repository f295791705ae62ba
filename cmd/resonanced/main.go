// Command resonanced is the Resonance player control plane: a Slimproto
// TCP server, a UDP discovery responder, and an HTTP surface (JSON-RPC,
// Cometd, audio streaming) for Squeezebox-compatible hardware and
// software players.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/srosecker/resonance-go/internal/cometd"
	"github.com/srosecker/resonance-go/internal/config"
	"github.com/srosecker/resonance-go/internal/discovery"
	"github.com/srosecker/resonance-go/internal/events"
	"github.com/srosecker/resonance-go/internal/httpapi"
	"github.com/srosecker/resonance-go/internal/identity"
	"github.com/srosecker/resonance-go/internal/jsonrpc"
	"github.com/srosecker/resonance-go/internal/library"
	"github.com/srosecker/resonance-go/internal/models"
	"github.com/srosecker/resonance-go/internal/playlist"
	"github.com/srosecker/resonance-go/internal/registry"
	"github.com/srosecker/resonance-go/internal/seek"
	"github.com/srosecker/resonance-go/internal/slimproto"
	"github.com/srosecker/resonance-go/internal/streaming"
	"github.com/srosecker/resonance-go/internal/transcode"
)

const version = "1.0.0"

func main() {
	var (
		host      = flag.String("host", "", "IP address to bind and advertise (default: autodetect)")
		port      = flag.Int("port", 3483, "Slimproto TCP port (UDP discovery always uses 3483)")
		verbose   = flag.Bool("verbose", false, "enable debug logging")
		showVer   = flag.Bool("version", false, "print version and exit")
		cacheDir  = flag.String("cache-dir", "", "cache directory (default: ~/.cache/resonance)")
		toolsDir  = flag.String("tools-dir", "", "directory to search for transcode binaries before PATH")
		transTOML = flag.String("transcode-table", "", "path to transcode.toml (default: <cache-dir>/transcode.toml)")
		devTOML   = flag.String("device-table", "", "path to devices.toml (default: <cache-dir>/devices.toml)")
	)
	var webPort int
	flag.IntVar(&webPort, "web-port", 9000, "HTTP port (JSON-RPC, Cometd, streaming)")
	flag.IntVar(port, "p", 3483, "Slimproto TCP port (shorthand)")
	flag.BoolVar(verbose, "v", false, "enable debug logging (shorthand)")
	flag.Parse()

	if *showVer {
		fmt.Println("resonanced", version)
		os.Exit(0)
	}

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	if *cacheDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			slog.Error("cannot determine home directory", "err", err)
			os.Exit(1)
		}
		*cacheDir = filepath.Join(home, ".cache", "resonance")
	}
	if err := os.MkdirAll(*cacheDir, 0o755); err != nil {
		slog.Error("cannot create cache directory", "path", *cacheDir, "err", err)
		os.Exit(1)
	}

	if *transTOML == "" {
		*transTOML = filepath.Join(*cacheDir, "transcode.toml")
	}
	if *devTOML == "" {
		*devTOML = filepath.Join(*cacheDir, "devices.toml")
	}
	ensureDefaultTables(*transTOML, *devTOML)

	serverUUID, err := identity.LoadOrCreateServerUUID(*cacheDir)
	if err != nil {
		slog.Error("cannot load or create server UUID", "err", err)
		os.Exit(1)
	}
	serverName := identity.Hostname()
	if *host == "" {
		*host = "0.0.0.0"
	}

	tables, err := config.Load(*transTOML, *devTOML)
	if err != nil {
		slog.Error("cannot load config tables", "err", err)
		os.Exit(1)
	}
	policy := transcode.New(tables)
	if err := tables.WatchForChanges(func() {
		slog.Info("config: transcode/device tables reloaded")
	}); err != nil {
		slog.Warn("config: hot reload not available", "err", err)
	}
	defer tables.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	bus := events.New()
	reg := registry.New(bus)
	playlists := playlist.NewManager()
	streamCoord := streaming.New(playlists.CurrentTrackPath)
	seekCoord := seek.New()

	httpHost := fmt.Sprintf("%s:%d", *host, webPort)
	slimSrv := slimproto.NewServer(reg, bus, streamCoord, policy, httpHost, *port)

	lib := library.Empty{}
	artwork, err := library.NewDiskArtworkCache(library.EmptyArtwork{}, *cacheDir)
	if err != nil {
		slog.Error("cannot set up artwork cache", "err", err)
		os.Exit(1)
	}

	dispatcher := &jsonrpc.Dispatcher{
		Server:    jsonrpc.ServerInfo{Name: serverName, UUID: serverUUID, Version: version},
		Registry:  reg,
		Playlists: playlists,
		Streaming: streamCoord,
		Seek:      seekCoord,
		Slim:      slimSrv,
		Policy:    policy,
		Library:   lib,
		Artwork:   artwork,
	}

	cometdMgr := cometd.New(bus)
	cometdMgr.SetRequestHandler(func(playerID string, command []any) (map[string]any, error) {
		return dispatcher.Dispatch(context.Background(), playerID, command)
	})

	go consumeTrackFinish(bus, dispatcher)
	go expireCometdSessionsLoop(ctx, cometdMgr)

	h := &httpapi.Handlers{
		Dispatcher: dispatcher,
		Cometd:     cometdMgr,
		Streaming:  streamCoord,
		Policy:     policy,
		Registry:   reg,
		Playlists:  playlists,
		Artwork:    artwork,
		Library:    lib,
		ServerName: serverName,
		ServerUUID: serverUUID,
		ToolsDir:   *toolsDir,
		StartedAt:  time.Now(),
	}
	router := httpapi.NewRouter(h)

	httpSrv := &http.Server{
		Addr:         fmt.Sprintf(":%d", webPort),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // streaming endpoints run indefinitely
		IdleTimeout:  120 * time.Second,
	}

	discoverer := discovery.New(serverName, webPort, serverUUID)
	mdns := discovery.NewMDNS(serverName, webPort, serverUUID)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := discoverer.ListenAndServe(gctx); err != nil {
			slog.Warn("discovery: failed to start, continuing without it", "err", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := mdns.Start(gctx); err != nil {
			slog.Warn("discovery: mdns failed to start, continuing without it", "err", err)
		}
		return nil
	})

	g.Go(func() error {
		return slimSrv.ListenAndServe(gctx)
	})

	g.Go(func() error {
		slog.Info("httpapi: listening", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("httpapi: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutCancel()
		return httpSrv.Shutdown(shutCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("resonanced: fatal error", "err", err)
		os.Exit(1)
	}
	slog.Info("resonanced: shutdown complete")
}

func consumeTrackFinish(bus *events.Bus, d *jsonrpc.Dispatcher) {
	_, ch := bus.Subscribe(events.ChannelPlayerTrackFinish)
	for evt := range ch {
		payload, ok := evt.Payload.(events.TrackFinishedPayload)
		if !ok {
			continue
		}
		d.HandleTrackFinished(models.PlayerIdentity(payload.PlayerMAC), payload.StreamGeneration)
	}
}

func expireCometdSessionsLoop(ctx context.Context, m *cometd.Manager) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.ExpireSessions()
		}
	}
}

// ensureDefaultTables writes empty but valid transcode/device tables the
// first time resonanced runs against a cache directory, so a fresh
// install has something to hot-reload against instead of failing to
// start.
func ensureDefaultTables(transcodePath, devicePath string) {
	writeIfAbsent(transcodePath, "# Resonance transcode rules. See devices.toml for capability fallback.\n")
	writeIfAbsent(devicePath, "# Resonance device capability table.\n")
}

func writeIfAbsent(path, contents string) {
	if _, err := os.Stat(path); err == nil {
		return
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		slog.Warn("cannot write default config table", "path", path, "err", err)
	}
}
