package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/ayusman/facecloud/internal/app"
	"github.com/ayusman/facecloud/internal/capture"
	"github.com/ayusman/facecloud/internal/config"
	"github.com/ayusman/facecloud/internal/detector"
	"github.com/ayusman/facecloud/internal/hook"
	"github.com/ayusman/facecloud/internal/preview"
	"github.com/ayusman/facecloud/internal/server"
	"github.com/ayusman/facecloud/internal/session"
	"github.com/ayusman/facecloud/internal/sound"
	"github.com/ayusman/facecloud/internal/tray"
	"github.com/spf13/cobra"
)

type runOptions struct {
	addr         string
	cameraID     int
	settingsFile string
	staticDir    string
	hooksDir     string
	fps          int
	mock         bool
	noSound      bool
	withTray     bool
}

func main() {
	root := newRootCmd()
	if err := root.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "facecloud",
		Short: "Webcam face and hand landmarks as an animated particle cloud",
		Long: `facecloud turns webcam face and hand landmarks into animated particle clouds.

"facecloud run" captures the camera, detects landmarks, animates the clouds and
serves every frame over a websocket at /api/frames for a renderer to draw.`,
		SilenceUsage: true,
	}

	root.AddCommand(newRunCmd(), newPreviewCmd(), newSettingsCmd())
	return root
}

func newRunCmd() *cobra.Command {
	opts := runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Capture, animate and serve frames",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.addr, "addr", ":8080", "HTTP listen address")
	f.IntVar(&opts.cameraID, "camera", 0, "Camera device ID")
	f.StringVar(&opts.settingsFile, "settings", "", "JSON settings file merged over the defaults")
	f.StringVar(&opts.staticDir, "static", "", "Renderer directory to serve (default: search for ./web)")
	f.StringVar(&opts.hooksDir, "hooks", "", "Hooks directory (default: ~/.facecloud/hooks)")
	f.IntVar(&opts.fps, "fps", app.RenderFPS, "Animation tick rate")
	f.BoolVar(&opts.mock, "mock", false, "Use a synthetic camera and face instead of the webcam")
	f.BoolVar(&opts.noSound, "no-sound", false, "Disable the collect chime")
	f.BoolVar(&opts.withTray, "tray", false, "Show the system tray menu")
	return cmd
}

func run(ctx context.Context, opts runOptions) error {
	settings := config.Defaults()
	if opts.settingsFile != "" {
		loaded, err := config.Load(opts.settingsFile)
		if err != nil {
			return err
		}
		settings = loaded
		log.Printf("Loaded settings from %s", opts.settingsFile)
	}
	store := config.NewStore(settings)
	hub := server.NewHub()

	cfg := app.Config{
		Settings:  store,
		Session:   session.DefaultConfig(),
		Frames:    hub,
		RenderFPS: opts.fps,
	}

	if opts.mock {
		cam := capture.DefaultConfig()
		cfg.Camera = capture.NewMockCamera(cam.Width, cam.Height, cam.FPS, 0)
		mock := detector.NewMockDetector()
		mock.SetFace(detector.NeutralFace())
		mock.SetHands(detector.OpenPalmHand())
		cfg.Detector = mock
		log.Println("Using synthetic camera and landmarks")
	} else {
		cam := capture.DefaultConfig()
		cam.DeviceID = opts.cameraID
		cfg.Camera = capture.NewCamera(cam)
		if mp, err := detector.NewMediaPipeDetector(detector.DefaultConfig()); err == nil {
			cfg.Detector = mp
			log.Println("Using MediaPipe landmark detection")
		} else {
			log.Printf("MediaPipe not available: %v", err)
		}
	}

	hooksDir := opts.hooksDir
	if hooksDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			hooksDir = filepath.Join(home, ".facecloud", "hooks")
		}
	}
	if hooksDir != "" {
		mgr := hook.NewManager(hooksDir)
		if err := mgr.Discover(); err != nil {
			log.Printf("Hook discovery failed: %v", err)
		} else {
			log.Printf("Loaded %d hooks from %s", len(mgr.List()), hooksDir)
			cfg.Hooks = mgr
		}
	}

	if !opts.noSound {
		chime := sound.NewChime(sound.DefaultConfig())
		if err := chime.Init(); err != nil {
			log.Printf("Sound disabled: %v", err)
		} else {
			cfg.Chime = chime
			defer chime.Close()
		}
	}

	a := app.New(cfg)
	go hub.Run()
	defer hub.Stop()

	staticDir := opts.staticDir
	if staticDir == "" {
		staticDir = findWebDir()
	}
	if staticDir != "" {
		log.Printf("Serving renderer from: %s", staticDir)
	}

	srv := server.New(server.Config{
		StaticDir: staticDir,
		Settings:  store,
		Frames:    hub,
		Preview:   a,
		Status:    func() any { return a.Status() },
		Resize:    a.Resize,
	})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx); err != nil {
		// Not fatal: the server still serves settings and status.
		log.Printf("Pipeline not running: %v", err)
	}
	defer a.Stop()

	httpSrv := &http.Server{Addr: opts.addr, Handler: srv}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting server on %s", opts.addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	if opts.withTray {
		t := tray.New(store)
		t.OnResetGame(a.ResetGame)
		t.OnOpen(func() { openBrowser(localURL(opts.addr)) })
		t.OnQuit(stop)
		a.OnScore(t.SetScore)
		go func() {
			<-ctx.Done()
			httpSrv.Close()
		}()
		t.Run()
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}
	return httpSrv.Close()
}

func newPreviewCmd() *cobra.Command {
	var url string
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Draw the live frames in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return preview.Run(ctx, url)
		},
	}
	cmd.Flags().StringVar(&url, "url", "ws://localhost:8080/api/frames", "Frame websocket URL")
	return cmd
}

func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Inspect the settings table",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "defaults",
		Short: "Print the default settings as JSON",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), string(config.Defaults().JSON()))
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "schema",
		Short: "Print the slider ranges as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := json.MarshalIndent(config.Ranges(), "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "check <file.json>",
		Short: "Load a settings file and print the result after clamping",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := config.Load(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(s.JSON()))
			return nil
		},
	})

	return cmd
}

// findWebDir searches for the renderer directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.facecloud/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	for _, p := range []string{"web", "../web", "../../web"} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if absPath, err := filepath.Abs(p); err == nil {
				return absPath
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	homeWebDir := filepath.Join(homeDir, ".facecloud", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}
	return ""
}

func localURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr + "/"
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		log.Printf("Failed to open browser: %v", err)
	}
}
