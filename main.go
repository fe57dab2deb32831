package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/njyeung/loopwall/playback"
	"github.com/njyeung/loopwall/player"
	"github.com/njyeung/loopwall/render"
	"github.com/njyeung/loopwall/tui"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var version = "dev"

func main() {
	app := &cli.App{
		Name:      "loopwall",
		Usage:     "play a video on a loop behind the terminal",
		UsageText: "loopwall [options] <video>",
		Version:   version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-level",
				Value: "info",
				Usage: "log level (debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "write logs to `FILE` (logs are discarded otherwise)",
			},
			&cli.BoolFlag{
				Name:  "no-shm",
				Usage: "always transmit frames inline instead of through shared memory",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("expected exactly one video argument")
	}
	source := c.Args().First()

	log, closeLog, err := newLogger(c.String("log-level"), c.String("log-file"))
	if err != nil {
		return err
	}
	defer closeLog()
	player.SetLogger(log)

	if !render.IsTerminal(os.Stdout) {
		return errors.New("stdout is not a terminal")
	}
	surface, err := render.CaptureSurface()
	if err != nil {
		return fmt.Errorf("query terminal size: %w", err)
	}

	renderer := render.NewKittyRenderer(os.Stdout)
	renderer.SetCellGrid(surface.Cols, surface.Rows)

	// Probe before bubbletea owns stdin
	useShm := !c.Bool("no-shm") && render.ShmSupported()
	renderer.SetUseShm(useShm)

	log.WithFields(logrus.Fields{
		"function": "run",
		"cols":     surface.Cols,
		"rows":     surface.Rows,
		"width":    surface.WidthPx,
		"height":   surface.HeightPx,
		"shm":      useShm,
	}).Info("Captured surface")

	cfg := playback.DefaultConfig()
	cfg.Width = surface.WidthPx
	cfg.Height = surface.HeightPx
	cfg.Format = playback.PixelFormatRGBA
	cfg.Logger = log

	loop, err := player.Open(source, cfg, renderer, nil)
	if err != nil {
		return err
	}

	// Copies of the model share its session, so m can shut down whatever Run returns
	m := tui.NewModel(loop, renderer, source)
	p := tea.NewProgram(m, tea.WithAltScreen())

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigs)
	go func() {
		for range sigs {
			p.Send(tui.StopMsg{})
		}
	}()

	_, runErr := p.Run()
	shutdownErr := m.Shutdown()

	if runErr != nil {
		return runErr
	}
	return shutdownErr
}

// newLogger builds the process logger. The terminal is the video surface, so
// logs only go to a file.
func newLogger(level, path string) (*logrus.Logger, func(), error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, nil, err
	}

	log := logrus.New()
	log.SetLevel(lvl)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if path == "" {
		log.SetOutput(io.Discard)
		return log, func() {}, nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	log.SetOutput(f)
	return log, func() { f.Close() }, nil
}
