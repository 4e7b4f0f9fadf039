package cmd

import (
	"bytes"
	"errors"
	"image"
	"strings"
	"testing"

	"github.com/go-drift/loopview/pkg/loopview"
	"github.com/go-drift/loopview/pkg/surface"
	"github.com/go-drift/loopview/pkg/window"
)

func captureStdout(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := stdout
	stdout = &buf
	t.Cleanup(func() { stdout = prev })
	return &buf
}

func TestParseRunArgs(t *testing.T) {
	opts, err := parseRunArgs([]string{"--backend", "Raster", "--width=320", "--height", "240", "--title", "Hi", "--frames=5", "--verbose"})
	if err != nil {
		t.Fatalf("parseRunArgs: %v", err)
	}
	want := runOptions{backend: "raster", width: 320, height: 240, title: "Hi", frames: 5, verbose: true}
	if opts != want {
		t.Errorf("opts = %+v, want %+v", opts, want)
	}
}

func TestParseRunArgsErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown flag", []string{"--fast"}, "unknown flag"},
		{"missing value", []string{"--width"}, "requires a value"},
		{"bad width", []string{"--width", "wide"}, "positive integer"},
		{"zero height", []string{"--height=0"}, "positive integer"},
		{"bad frames", []string{"--frames", "-2"}, "positive integer"},
		{"bad backend", []string{"--backend", "x11"}, "unknown backend"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseRunArgs(tt.args)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestVersion(t *testing.T) {
	out := captureStdout(t)
	if err := execute([]string{"version"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), Version) {
		t.Errorf("output %q should contain version %s", out.String(), Version)
	}
}

func TestUnknownCommand(t *testing.T) {
	captureStdout(t)
	if err := execute([]string{"paint"}); err == nil {
		t.Fatal("expected error for unknown command")
	}
}

func TestHelpListsCommands(t *testing.T) {
	out := captureStdout(t)
	if err := execute(nil); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"run", "version"} {
		if !strings.Contains(out.String(), name) {
			t.Errorf("help should list %q", name)
		}
	}
}

func TestRunRasterDemo(t *testing.T) {
	out := captureStdout(t)
	err := execute([]string{"run", "--backend", "raster", "--frames", "3", "--width", "32", "--height", "16"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := out.String(); !strings.Contains(got, "rendered 3 frames at 32x16") {
		t.Errorf("output = %q, want summary of 3 frames at 32x16", got)
	}
}

func TestRunRejectsOversizedSurface(t *testing.T) {
	captureStdout(t)
	err := execute([]string{"run", "--backend", "raster", "--width", "3000000000", "--height", "3000000000"})
	if !errors.Is(err, loopview.ErrSurfaceCreationFailed) || !errors.Is(err, surface.ErrSizeTooLarge) {
		t.Fatalf("err = %v, want ErrSurfaceCreationFailed wrapping ErrSizeTooLarge", err)
	}
	if loopview.DefaultGuard.Held() {
		t.Fatal("failed run left the guard held")
	}

	out := captureStdout(t)
	if err := execute([]string{"run", "--backend", "raster", "--frames", "1", "--width", "8", "--height", "8"}); err != nil {
		t.Fatalf("run after failure: %v", err)
	}
	if !strings.Contains(out.String(), "rendered 1 frames at 8x8") {
		t.Errorf("output = %q, want one frame at 8x8", out.String())
	}
}

func TestRunRestoresDefaultFactory(t *testing.T) {
	captureStdout(t)
	if err := execute([]string{"run", "--backend", "raster", "--frames", "1"}); err != nil {
		t.Fatal(err)
	}
	doc := surface.DefaultDocument()
	if doc.Len() != 0 {
		t.Errorf("default document holds %d nodes after run, want 0", doc.Len())
	}
	h, err := doc.CreateSurface(surface.SurfaceConfig{Size: surface.Sz(1, 1)})
	if err != nil {
		t.Fatal(err)
	}
	defer h.Destroy()
	if _, ok := h.Target().(*surface.Raster); !ok {
		t.Errorf("target = %T, want *surface.Raster", h.Target())
	}
}

func TestPaintRecordsAppliedSize(t *testing.T) {
	h, err := surface.NewDocument(nil).CreateSurface(surface.SurfaceConfig{Size: surface.Sz(4, 4)})
	if err != nil {
		t.Fatal(err)
	}
	defer h.Destroy()
	win, err := window.New(h, window.Attributes{InnerSize: surface.Sz(4, 4)})
	if err != nil {
		t.Fatal(err)
	}
	defer win.Close()

	// Pending until Paint applies it.
	win.RequestInnerSize(surface.Sz(8, 2))

	stats := &demoStats{}
	if err := stats.paint(win, 0); err != nil {
		t.Fatalf("paint: %v", err)
	}
	if got := stats.last.Load(); got == nil || *got != surface.Sz(8, 2) {
		t.Errorf("recorded size = %v, want 8x2", got)
	}
}

func TestGradientPaints(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 4, 2))
	if err := gradient(0)(dst, surface.Sz(4, 2)); err != nil {
		t.Fatal(err)
	}
	if dst.RGBAAt(0, 0).A != 0xff || dst.RGBAAt(3, 1).A != 0xff {
		t.Error("gradient should fill every pixel")
	}
	if dst.RGBAAt(0, 0) == dst.RGBAAt(3, 1) {
		t.Error("gradient should vary across the surface")
	}
}
