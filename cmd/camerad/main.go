package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/netglass-io/Camera/internal/capture"
	"github.com/netglass-io/Camera/internal/config"
	"github.com/netglass-io/Camera/internal/detector"
	"github.com/netglass-io/Camera/internal/pipeline"
	"github.com/netglass-io/Camera/internal/server"
	"github.com/netglass-io/Camera/internal/snapshot"
	"github.com/netglass-io/Camera/internal/ws"
)

func main() {
	var (
		addrF    = flag.String("addr", "", "HTTP listen address (overrides HTTP_ADDR)")
		deviceF  = flag.String("device", "", "Capture device (overrides CAMERA_DEVICE)")
		cascadeF = flag.String("cascade", "haarcascade_frontalface_default.xml", "Haar cascade file")
		dbF      = flag.String("db", "", "Snapshot database path (overrides SNAPSHOT_DB; \"none\" disables)")
	)
	flag.Parse()

	logger := log.New(os.Stderr, "[camerad] ", log.Ltime)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("invalid configuration: %v", err)
	}
	if *addrF != "" {
		cfg.HTTPAddr = *addrF
	}
	if *deviceF != "" {
		cfg.Device = *deviceF
	}
	if *dbF != "" {
		cfg.DBPath = *dbF
	}

	// Open the camera and verify it delivers frames before anything else.
	cam, err := capture.OpenWebcam(cfg.Device, cfg.Width, cfg.Height, cfg.TargetFPS)
	if err != nil {
		logger.Fatalf("camera init failed: %v", err)
	}
	defer cam.Close()

	haar, err := detector.NewHaar(*cascadeF)
	if err != nil {
		logger.Fatalf("detector init failed: %v", err)
	}
	defer haar.Close()

	var store *snapshot.Store
	if cfg.DBPath != "none" {
		store, err = snapshot.Open(cfg.DBPath)
		if err != nil {
			logger.Fatalf("snapshot store init failed: %v", err)
		}
		defer store.Close()
	}

	state := pipeline.NewState()
	dist := pipeline.NewDistributor()
	health := pipeline.NewHealth(cfg.StaleThreshold)
	hub := ws.NewHub(state, ws.StaticInfo{
		CameraResolution: cfg.Resolution(),
		TargetFPS:        cfg.TargetFPS,
	})
	emitter := ws.NewEmitter(hub, cfg.EmitInterval)

	var snapSink pipeline.SnapshotSink
	if store != nil {
		snapSink = store
	}
	loop := pipeline.NewLoop(pipeline.DefaultLoopConfig(cfg.TargetFPS), cam, haar, state, dist, emitter, health, snapSink)
	commands := pipeline.NewCommands(state, hub, loop)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: server.New(dist, hub, commands, health, store),
	}

	// Channel used by the signal handler and the worker goroutines to
	// notify the main goroutine when to stop.
	errc := make(chan error)
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		errc <- fmt.Errorf("%s", <-c)
	}()

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		// A capture fault past the retry budget is fatal: no device means
		// no service.
		if err := loop.Run(ctx); err != nil {
			errc <- err
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		emitter.Run(ctx)
	}()

	go func() {
		logger.Printf("serving on %s (camera %s, %s @ %d fps)", cfg.HTTPAddr, cfg.Device, cfg.Resolution(), cfg.TargetFPS)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()

	logger.Printf("exiting (%v)", <-errc)

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)

	wg.Wait()
	logger.Println("exited")
}
