package cmd

import (
	"context"
	"fmt"
	"os"
	ossignal "os/signal"
	"strconv"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/go-drift/loopview/cmd/loopview/internal/config"
	"github.com/go-drift/loopview/pkg/core"
	lverrors "github.com/go-drift/loopview/pkg/errors"
	"github.com/go-drift/loopview/pkg/host/ebitenhost"
	"github.com/go-drift/loopview/pkg/host/termhost"
	"github.com/go-drift/loopview/pkg/loopview"
	"github.com/go-drift/loopview/pkg/signal"
	"github.com/go-drift/loopview/pkg/surface"
)

const defaultRasterFrames = 60

func init() {
	RegisterCommand(&Command{
		Name:  "run",
		Short: "Run the demo program",
		Long: `Mount a demo view and run its event loop until the program exits.

Backends:
  auto     term when stdout is a terminal, raster otherwise (default)
  term     draw in the terminal with half-block characters
  ebiten   open a desktop window
  raster   draw into memory and print a summary

Defaults come from loopview.yaml in the project root when present.

Flags:
  --backend NAME   Host backend (auto, term, ebiten, raster)
  --width N        Initial surface width
  --height N       Initial surface height
  --title TEXT     Window title
  --frames N       Exit after N frames (raster default: 60)
  --verbose        Log lifecycle events to stderr

Press q or Escape to quit the terminal and desktop backends.`,
		Usage: "loopview run [--backend NAME] [--width N] [--height N] [--title TEXT] [--frames N] [--verbose]",
		Run:   runRun,
	})
}

type runOptions struct {
	backend string
	width   uint32
	height  uint32
	title   string
	frames  int64
	verbose bool
}

func parseRunArgs(args []string) (runOptions, error) {
	var opts runOptions
	for i := 0; i < len(args); i++ {
		arg := args[i]
		name, value, inline := strings.Cut(arg, "=")

		if name == "--verbose" {
			opts.verbose = true
			continue
		}

		switch name {
		case "--backend", "--width", "--height", "--title", "--frames":
		default:
			return opts, fmt.Errorf("unknown flag %q", arg)
		}
		if !inline {
			if i+1 >= len(args) {
				return opts, fmt.Errorf("%s requires a value", name)
			}
			i++
			value = args[i]
		}

		switch name {
		case "--backend":
			opts.backend = strings.ToLower(value)
			if err := config.ValidateBackend(opts.backend); err != nil {
				return opts, err
			}
		case "--width", "--height":
			n, err := strconv.ParseUint(value, 10, 32)
			if err != nil || n == 0 {
				return opts, fmt.Errorf("%s must be a positive integer (got %q)", name, value)
			}
			if name == "--width" {
				opts.width = uint32(n)
			} else {
				opts.height = uint32(n)
			}
		case "--title":
			opts.title = value
		case "--frames":
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil || n <= 0 {
				return opts, fmt.Errorf("--frames must be a positive integer (got %q)", value)
			}
			opts.frames = n
		}
	}
	return opts, nil
}

func runRun(args []string) error {
	opts, err := parseRunArgs(args)
	if err != nil {
		return err
	}

	root, err := config.FindProjectRoot()
	if err != nil {
		return err
	}
	cfg, err := config.Resolve(root)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if opts.width != 0 {
		cfg.Width = opts.width
	}
	if opts.height != 0 {
		cfg.Height = opts.height
	}
	if opts.title != "" {
		cfg.Title = opts.title
	}
	backend := cfg.Backend
	if opts.backend != "" {
		backend = opts.backend
	}
	if backend == config.BackendAuto {
		backend = config.BackendRaster
		if term.IsTerminal(int(os.Stdout.Fd())) {
			backend = config.BackendTerm
		}
	}

	if opts.verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		lverrors.SetLogger(logger)
		defer func() {
			logger.Sync()
			lverrors.SetLogger(nil)
		}()
	}

	ctx, stop := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d := &demoRun{
		width:  signal.New(cfg.Width),
		height: signal.New(cfg.Height),
		stats:  &demoStats{},
	}
	frames := opts.frames
	if backend == config.BackendRaster && frames == 0 {
		frames = defaultRasterFrames
	}
	d.view = loopview.View[tick]{
		Program:       demo(d.stats, frames),
		Width:         signal.Dynamic(d.width),
		Height:        signal.Dynamic(d.height),
		Alt:           signal.Static(cfg.Title),
		FrameInterval: cfg.FrameInterval,
	}

	switch backend {
	case config.BackendTerm:
		return d.runTerm(ctx)
	case config.BackendEbiten:
		return d.runEbiten(ctx)
	default:
		return d.runRaster(ctx)
	}
}

// demoRun holds the inputs shared by every backend.
type demoRun struct {
	view   loopview.View[tick]
	width  *signal.Signal[uint32]
	height *signal.Signal[uint32]
	stats  *demoStats
}

// follow makes the view track the host's size.
func (d *demoRun) follow(size surface.Size) {
	signal.Batch(func() {
		d.width.Set(size.Width)
		d.height.Set(size.Height)
	})
}

// mount installs factory on the default document and inflates the view
// into it. The returned restore puts the raster factory back.
func (d *demoRun) mount(factory surface.Factory) (core.Element, *loopview.Controller[tick], func(), error) {
	doc := surface.DefaultDocument()
	doc.SetFactory(factory)
	restore := func() { doc.SetFactory(nil) }

	element, err := core.Inflate(d.view, nil)
	if err != nil {
		restore()
		return nil, nil, nil, err
	}
	return element, loopview.ControllerOf[tick](element), restore, nil
}

// wait unmounts the view once ctx is done or the program exits, and
// returns the program's error.
func (d *demoRun) wait(ctx context.Context, element core.Element, ctrl *loopview.Controller[tick]) error {
	select {
	case <-ctx.Done():
	case <-ctrl.Done():
	}
	element.Unmount()
	return ctrl.Wait(context.Background())
}

func (d *demoRun) runRaster(ctx context.Context) error {
	element, ctrl, restore, err := d.mount(surface.RasterFactory{})
	if err != nil {
		return err
	}
	defer restore()
	if err := d.wait(ctx, element, ctrl); err != nil {
		return err
	}
	size := surface.Size{}
	if last := d.stats.last.Load(); last != nil {
		size = *last
	}
	fmt.Fprintf(stdout, "rendered %d frames at %s\n", d.stats.frames.Load(), size)
	return nil
}

func (d *demoRun) runTerm(ctx context.Context) error {
	host, err := termhost.Open()
	if err != nil {
		return err
	}
	defer host.Close()

	d.follow(host.PixelSize())
	host.OnResize(d.follow)

	element, ctrl, restore, err := d.mount(host)
	if err != nil {
		return err
	}
	defer restore()
	return d.wait(ctx, element, ctrl)
}

func (d *demoRun) runEbiten(ctx context.Context) error {
	host := ebitenhost.New()
	host.OnResize(d.follow)

	element, ctrl, restore, err := d.mount(host)
	if err != nil {
		return err
	}
	defer restore()

	errc := make(chan error, 1)
	go func() {
		errc <- d.wait(ctx, element, ctrl)
		host.Quit()
	}()
	if err := host.Run(); err != nil {
		element.Unmount()
		<-errc
		return err
	}
	element.Unmount()
	return <-errc
}
