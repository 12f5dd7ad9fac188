package input

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.design/x/hotkey"
)

type binding struct {
	name    string
	combo   string
	mods    []hotkey.Modifier
	key     hotkey.Key
	onPress func()
	hk      *hotkey.Hotkey
}

// HotkeyManager registers global hotkeys and runs a callback on each press.
// Callbacks run on the listener goroutine of their hotkey.
type HotkeyManager struct {
	log      *zap.Logger
	bindings []*binding
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewHotkeyManager creates a new HotkeyManager
func NewHotkeyManager(log *zap.Logger) *HotkeyManager {
	if log == nil {
		log = zap.NewNop()
	}
	return &HotkeyManager{log: log.With(zap.String("component", "hotkeys"))}
}

// Bind adds a hotkey such as "ctrl+shift+space"; call before Start
func (h *HotkeyManager) Bind(name, combo string, onPress func()) error {
	mods, key, err := parseHotkey(combo)
	if err != nil {
		return fmt.Errorf("invalid %s hotkey %q: %w", name, combo, err)
	}
	h.bindings = append(h.bindings, &binding{
		name:    name,
		combo:   combo,
		mods:    mods,
		key:     key,
		onPress: onPress,
	})
	return nil
}

// Start registers every binding and listens until ctx is done or Stop is called
func (h *HotkeyManager) Start(ctx context.Context) error {
	ctx, h.cancel = context.WithCancel(ctx)

	for _, b := range h.bindings {
		b.hk = hotkey.New(b.mods, b.key)
		if err := b.hk.Register(); err != nil {
			b.hk = nil
			h.Stop()
			return fmt.Errorf("failed to register %s hotkey %q: %w", b.name, b.combo, err)
		}
		h.log.Debug("hotkey registered", zap.String("name", b.name), zap.String("combo", b.combo))

		h.wg.Add(1)
		go h.listen(ctx, b.name, b.hk.Keydown(), b.onPress)
	}
	return nil
}

// listen never touches the binding, so Stop may unregister it while a
// callback is still running.
func (h *HotkeyManager) listen(ctx context.Context, name string, keydown <-chan hotkey.Event, onPress func()) {
	defer h.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-keydown:
			if !ok {
				return
			}
			h.log.Debug("hotkey pressed", zap.String("name", name))
			if onPress != nil {
				onPress()
			}
		}
	}
}

// Stop unregisters all hotkeys
func (h *HotkeyManager) Stop() {
	if h.cancel != nil {
		h.cancel()
	}
	for _, b := range h.bindings {
		if b.hk == nil {
			continue
		}
		if err := b.hk.Unregister(); err != nil {
			h.log.Debug("hotkey unregister failed", zap.String("name", b.name), zap.Error(err))
		}
		b.hk = nil
	}

	// listeners blocked in a callback get a moment to return
	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
	}
}

// Toggle is a thread-safe on/off switch driven by a hotkey
type Toggle struct {
	mu sync.Mutex
	on bool
}

// Flip inverts the switch and returns the new value
func (t *Toggle) Flip() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.on = !t.on
	return t.on
}

// Set forces the switch
func (t *Toggle) Set(on bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.on = on
}

// On reports the current value
func (t *Toggle) On() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.on
}

// parseHotkey parses a hotkey string like "ctrl+shift+space" into modifiers and key
func parseHotkey(s string) ([]hotkey.Modifier, hotkey.Key, error) {
	if strings.TrimSpace(s) == "" {
		return nil, 0, fmt.Errorf("empty hotkey string")
	}
	parts := strings.Split(strings.ToLower(s), "+")

	var mods []hotkey.Modifier
	var key hotkey.Key
	var keyFound bool

	for _, part := range parts {
		part = strings.TrimSpace(part)
		switch part {
		case "ctrl", "control":
			mods = append(mods, hotkey.ModCtrl)
		case "shift":
			mods = append(mods, hotkey.ModShift)
		case "alt":
			mods = append(mods, altModifier)
		case "cmd", "command", "super", "win":
			mods = append(mods, superModifier)
		default:
			if keyFound {
				return nil, 0, fmt.Errorf("multiple keys specified")
			}
			k, err := parseKey(part)
			if err != nil {
				return nil, 0, err
			}
			key = k
			keyFound = true
		}
	}

	if !keyFound {
		return nil, 0, fmt.Errorf("no key specified")
	}

	return mods, key, nil
}

var keyNames = map[string]hotkey.Key{
	"space":  hotkey.KeySpace,
	"return": hotkey.KeyReturn,
	"enter":  hotkey.KeyReturn,
	"tab":    hotkey.KeyTab,
	"escape": hotkey.KeyEscape,
	"esc":    hotkey.KeyEscape,
	"a":      hotkey.KeyA,
	"b":      hotkey.KeyB,
	"c":      hotkey.KeyC,
	"d":      hotkey.KeyD,
	"e":      hotkey.KeyE,
	"f":      hotkey.KeyF,
	"g":      hotkey.KeyG,
	"h":      hotkey.KeyH,
	"i":      hotkey.KeyI,
	"j":      hotkey.KeyJ,
	"k":      hotkey.KeyK,
	"l":      hotkey.KeyL,
	"m":      hotkey.KeyM,
	"n":      hotkey.KeyN,
	"o":      hotkey.KeyO,
	"p":      hotkey.KeyP,
	"q":      hotkey.KeyQ,
	"r":      hotkey.KeyR,
	"s":      hotkey.KeyS,
	"t":      hotkey.KeyT,
	"u":      hotkey.KeyU,
	"v":      hotkey.KeyV,
	"w":      hotkey.KeyW,
	"x":      hotkey.KeyX,
	"y":      hotkey.KeyY,
	"z":      hotkey.KeyZ,
	"0":      hotkey.Key0,
	"1":      hotkey.Key1,
	"2":      hotkey.Key2,
	"3":      hotkey.Key3,
	"4":      hotkey.Key4,
	"5":      hotkey.Key5,
	"6":      hotkey.Key6,
	"7":      hotkey.Key7,
	"8":      hotkey.Key8,
	"9":      hotkey.Key9,
	"f1":     hotkey.KeyF1,
	"f2":     hotkey.KeyF2,
	"f3":     hotkey.KeyF3,
	"f4":     hotkey.KeyF4,
	"f5":     hotkey.KeyF5,
	"f6":     hotkey.KeyF6,
	"f7":     hotkey.KeyF7,
	"f8":     hotkey.KeyF8,
	"f9":     hotkey.KeyF9,
	"f10":    hotkey.KeyF10,
	"f11":    hotkey.KeyF11,
	"f12":    hotkey.KeyF12,
}

func parseKey(s string) (hotkey.Key, error) {
	key, ok := keyNames[s]
	if !ok {
		return 0, fmt.Errorf("unknown key: %s", s)
	}
	return key, nil
}
