package cmd

import (
	"context"
	"image"
	"image/color"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/image/draw"

	lverrors "github.com/go-drift/loopview/pkg/errors"
	"github.com/go-drift/loopview/pkg/loopview"
	"github.com/go-drift/loopview/pkg/surface"
	"github.com/go-drift/loopview/pkg/window"
)

const tickInterval = 100 * time.Millisecond

// tick is the demo's user event.
type tick struct {
	n int
}

type demoStats struct {
	frames atomic.Int64
	last   atomic.Pointer[surface.Size]
}

// paint draws one gradient frame and records the size the painter was
// given, which includes any resize applied by Paint itself.
func (s *demoStats) paint(win *window.Window, phase int) error {
	paint := gradient(phase)
	return win.Paint(func(dst draw.Image, size surface.Size) error {
		s.last.Store(&size)
		return paint(dst, size)
	})
}

// demo returns a program that animates a gradient. It exits on a close
// request, on "q", or after maxFrames frames when maxFrames is positive.
func demo(stats *demoStats, maxFrames int64) loopview.Program[tick] {
	return func(ctx context.Context, loop *window.EventLoop[tick], win *window.Window) error {
		proxy := loop.CreateProxy()
		go func() {
			ticker := time.NewTicker(tickInterval)
			defer ticker.Stop()
			for n := 1; ; n++ {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if err := proxy.SendEvent(tick{n: n}); err != nil {
						return
					}
				}
			}
		}()

		phase := 0
		return loop.Run(func(ev window.Event[tick], ctl *window.Control) {
			switch ev.Kind {
			case window.KindResumed:
				win.RequestRedraw()
			case window.KindUserEvent:
				phase = ev.User.n * 8
				win.RequestRedraw()
			case window.KindWindowEvent:
				switch ev.Window.Kind {
				case window.CloseRequested:
					ctl.Exit()
				case window.KeyboardInput:
					if ev.Window.Pressed && ev.Window.Key == "q" {
						ctl.Exit()
					}
				case window.RedrawRequested:
					if err := stats.paint(win, phase); err != nil {
						lverrors.Logger().Warn("paint failed", zap.Error(err))
						return
					}
					if n := stats.frames.Add(1); maxFrames > 0 && n >= maxFrames {
						ctl.Exit()
					}
				}
			case window.KindAboutToWait:
				ctl.SetWait()
			}
		})
	}
}

// gradient paints a diagonal colour ramp shifted by phase.
func gradient(phase int) window.Painter {
	return func(dst draw.Image, size surface.Size) error {
		rgba, ok := dst.(*image.RGBA)
		if !ok || size.Empty() {
			return nil
		}
		w, h := int(size.Width), int(size.Height)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				rgba.SetRGBA(x, y, color.RGBA{
					R: uint8((x*255/w + phase) & 0xff),
					G: uint8(y * 255 / h),
					B: uint8((255 - phase) & 0xff),
					A: 0xff,
				})
			}
		}
		return nil
	}
}
