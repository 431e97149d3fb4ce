package preview

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ayusman/facecloud/internal/session"
	"github.com/gdamore/tcell/v2"
	"github.com/gorilla/websocket"
)

// DrawFPS is the terminal redraw rate.
const DrawFPS = 30

// Run dials the frame websocket at url and draws frames until ctx is done,
// the user presses q or Esc, or the connection drops.
func Run(ctx context.Context, url string) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", url, err)
	}
	defer conn.Close()

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("init screen: %w", err)
	}
	defer screen.Fini()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu      sync.Mutex
		latest  *session.Frame
		readErr error
	)

	go func() {
		defer cancel()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				mu.Lock()
				readErr = err
				mu.Unlock()
				return
			}
			var f session.Frame
			if err := json.Unmarshal(data, &f); err != nil {
				log.Printf("preview: bad frame: %v", err)
				continue
			}
			mu.Lock()
			latest = &f
			mu.Unlock()
		}
	}()

	events := make(chan tcell.Event, 16)
	go pollEvents(ctx, screen, events)

	ticker := time.NewTicker(time.Second / DrawFPS)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			mu.Lock()
			err := readErr
			mu.Unlock()
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return err

		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC ||
					(ev.Key() == tcell.KeyRune && ev.Rune() == 'q') {
					return nil
				}
			case *tcell.EventResize:
				screen.Sync()
			}

		case <-ticker.C:
			mu.Lock()
			f := latest
			mu.Unlock()
			draw(screen, f)
		}
	}
}

// pollEvents forwards screen events until the screen is finalized or ctx is
// done, so it never blocks on a channel nobody reads.
func pollEvents(ctx context.Context, screen tcell.Screen, events chan<- tcell.Event) {
	for {
		ev := screen.PollEvent()
		if ev == nil {
			return
		}
		select {
		case events <- ev:
		case <-ctx.Done():
			return
		}
	}
}

func draw(screen tcell.Screen, f *session.Frame) {
	screen.Clear()
	if f == nil {
		drawText(screen, 0, 0, tcell.StyleDefault, "waiting for frames...")
		screen.Show()
		return
	}

	cols, rows := screen.Size()
	view := NewView(f.Viewport, cols, rows-1)
	for _, c := range Rasterize(f, view) {
		r, g, b := c.Color.RGB255()
		k := 1.0
		if c.Rune == ParticleGlyph {
			k = Shade(c.Depth)
		}
		color := tcell.NewRGBColor(int32(float64(r)*k), int32(float64(g)*k), int32(float64(b)*k))
		screen.SetContent(c.X, c.Y, c.Rune, nil, tcell.StyleDefault.Foreground(color))
	}

	drawText(screen, 0, rows-1, tcell.StyleDefault.Reverse(true), StatusLine(f))
	screen.Show()
}

func drawText(screen tcell.Screen, x, y int, style tcell.Style, text string) {
	for _, r := range text {
		screen.SetContent(x, y, r, nil, style)
		x++
	}
}

// StatusLine summarizes a frame for the bottom row.
func StatusLine(f *session.Frame) string {
	flags := ""
	if f.Signals.MouthOpen {
		flags += " mouth"
	}
	if f.Signals.Smiling {
		flags += " smile"
	}
	if f.Signals.Pinching {
		flags += " pinch"
	}
	if flags == "" {
		flags = " -"
	}
	return fmt.Sprintf(" score %d  targets %d  gestures:%s  q to quit ", f.Score, len(f.Collectibles), flags)
}
