package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ayusman/easel/internal/app"
	"github.com/ayusman/easel/internal/config"
	"github.com/ayusman/easel/internal/server"
	"github.com/ayusman/easel/internal/store"
	"github.com/ayusman/easel/internal/tray"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start tracking and the web server",
	Long: `Start the camera, the face landmark detector and the drawing pipeline,
and serve the drawing, the tracking overlay and the controls over HTTP.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "Address to listen on (default from EASEL_ADDR)")
	serveCmd.Flags().Int("camera", 0, "Camera device ID")
	serveCmd.Flags().String("web-dir", "", "Directory of static web files")
	serveCmd.Flags().Bool("mdns", false, "Advertise the server on the local network")
	serveCmd.Flags().Bool("tray", false, "Show the system tray menu")
}

// applyServeFlags lets explicitly set flags override the environment.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("addr") {
		cfg.Addr = mustGetString(cmd, "addr")
	}
	if flags.Changed("camera") {
		cfg.CameraID = mustGetInt(cmd, "camera")
	}
	if flags.Changed("web-dir") {
		cfg.WebDir = mustGetString(cmd, "web-dir")
	}
	if flags.Changed("mdns") {
		cfg.MDNS = mustGetBool(cmd, "mdns")
	}
	if flags.Changed("tray") {
		cfg.Tray = mustGetBool(cmd, "tray")
	}
	if cfg.WebDir == "" {
		cfg.WebDir = findWebDir()
	}
}

// appConfig translates the runtime settings into the application config.
func appConfig(cfg *config.Config, st *store.Store) app.Config {
	return app.Config{
		Store:        st,
		CameraID:     cfg.CameraID,
		CameraWidth:  cfg.CameraWidth,
		CameraHeight: cfg.CameraHeight,
		DetectorConf: cfg.DetectorConfig(),
		Session: app.SessionConfig{
			Width:          cfg.CanvasWidth,
			Height:         cfg.CanvasHeight,
			MouthThreshold: cfg.MouthThreshold,
			SmoothingAlpha: cfg.SmoothingAlpha,
		},
		OverlayWidth:  cfg.OverlayWidth,
		OverlayHeight: cfg.OverlayHeight,
		BrushSize:     cfg.BrushSize,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyServeFlags(cmd, cfg)

	st, err := store.New(cfg.DBPath())
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer st.Close()

	application := app.New(appConfig(cfg, st))
	defer application.Close()

	if err := application.Start(); err != nil {
		// The saved drawing and controls stay available without tracking.
		log.Printf("Tracking unavailable: %v", err)
	}

	if cfg.WebDir != "" {
		fmt.Printf("Serving static files from: %s\n", cfg.WebDir)
	}
	srv := server.New(server.Config{StaticDir: cfg.WebDir, Controller: application})

	if cfg.MDNS {
		port, err := server.PortFromAddr(cfg.Addr)
		if err != nil {
			return err
		}
		adv, err := server.Advertise(port)
		if err != nil {
			log.Printf("mDNS advertisement failed: %v", err)
		} else {
			defer adv.Shutdown()
			log.Printf("Advertising %s on port %d", server.ServiceType, port)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe(cfg.Addr)
	}()

	if cfg.Tray {
		tr := tray.New(application)
		tr.OnOpen(func() { openBrowser(browserURL(cfg.Addr)) })
		tr.OnQuit(stop)
		go func() {
			<-ctx.Done()
			tr.Quit()
		}()
		tr.Run()
		stop()
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}
	return nil
}

// browserURL turns a listen address into a local URL.
func browserURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

func openBrowser(url string) {
	var c *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		c = exec.Command("open", url)
	case "windows":
		c = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		c = exec.Command("xdg-open", url)
	}
	if err := c.Start(); err != nil {
		log.Printf("Failed to open browser: %v", err)
	}
}
