package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/term"

	"github.com/ItvordRE/MacroRecorder/internal/app"
	"github.com/ItvordRE/MacroRecorder/internal/input/backend"
	"github.com/ItvordRE/MacroRecorder/internal/input/macro"
	"github.com/ItvordRE/MacroRecorder/internal/library"
	"github.com/ItvordRE/MacroRecorder/internal/notify"
	"github.com/ItvordRE/MacroRecorder/internal/profile"
)

// ErrNoTerminal is returned when a live session is started without a
// terminal to read input from.
var ErrNoTerminal = errors.New("standard input is not a terminal (use --dry-run to replay without one)")

// notifyBuffer is how many session notifications may queue before a
// publisher waits for observers.
const notifyBuffer = 256

// BackendFactory creates the input backend for a session. The returned
// release function restores whatever the backend took over; interrupt
// is called when the user asks to stop from inside the backend.
type BackendFactory func(dryRun bool, out io.Writer, interrupt func()) (b backend.Backend, release func(), err error)

// DefaultBackend returns a NullBackend that prints synthesized actions
// for dry runs, and a tcell terminal backend otherwise.
func DefaultBackend(dryRun bool, out io.Writer, interrupt func()) (backend.Backend, func(), error) {
	if dryRun {
		nb := backend.NewNullBackend()
		nb.OnAction(func(a backend.Action) {
			fmt.Fprintln(out, describeAction(a))
		})
		return nb, nb.Close, nil
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil, nil, ErrNoTerminal
	}
	t, err := backend.NewTerminal()
	if err != nil {
		return nil, nil, fmt.Errorf("creating terminal: %w", err)
	}
	if err := t.Init(); err != nil {
		return nil, nil, fmt.Errorf("initializing terminal: %w", err)
	}
	t.OnInterrupt(interrupt)
	return t, t.Shutdown, nil
}

func describeAction(a backend.Action) string {
	switch a.Op {
	case backend.OpMovePointer:
		return fmt.Sprintf("move   %d,%d", a.X, a.Y)
	case backend.OpClick:
		return fmt.Sprintf("click  %s", a.Button)
	case backend.OpPressAndRelease:
		return fmt.Sprintf("key    %s", a.Key)
	case backend.OpTypeText:
		return fmt.Sprintf("type   %q", a.Text)
	default:
		return string(a.Op)
	}
}

// newRegistry builds the profile registry from the configured profile
// directories.
func (c *CLI) newRegistry() (*profile.Registry, *profile.DirLoader) {
	var dirOpts []profile.DirOption
	if len(c.cfg.Profiles.Dirs) > 0 {
		dirOpts = append(dirOpts, profile.WithPaths(c.cfg.Profiles.Dirs...))
	}
	loader := profile.NewDirLoader(dirOpts...)

	registry := profile.NewRegistry(
		profile.WithLoaders(loader),
		profile.WithRegistryLogger(c.component("profile")),
	)
	return registry, loader
}

// session is one controller wired to a backend, a profile watcher and
// a notifier.
type session struct {
	ctrl     *app.Controller
	notifier *notify.Notifier
	watcher  *profile.Watcher
	release  func()

	closeOnce sync.Once
	closeErr  error
}

func (c *CLI) openSession(dryRun bool, interrupt func()) (*session, error) {
	actions := c.out
	if c.jsonOutput() {
		actions = c.errOut
	}
	b, release, err := c.backend(dryRun, actions, interrupt)
	if err != nil {
		return nil, err
	}

	registry, loader := c.newRegistry()
	s := &session{
		notifier: notify.New(notify.WithAsync(notifyBuffer)),
		release:  release,
	}

	autoSave := c.cfg.Storage.AutoSave
	if dryRun {
		autoSave = ""
	}

	s.ctrl = app.New(b, registry,
		app.WithLogger(c.component("controller")),
		app.WithNotifier(s.notifier),
		app.WithAutoSavePath(autoSave),
		app.WithPlayerOptions(
			macro.WithTick(c.cfg.Playback.Tick.Std()),
			macro.WithPresetDelay(c.cfg.Playback.PresetDelay.Std()),
		),
	)

	if c.cfg.Profiles.Watch {
		w, err := profile.NewWatcher(loader,
			profile.WithOnChange(s.ctrl.ProfilesChanged),
			profile.WithWatcherLogger(c.component("watcher")),
		)
		if err != nil {
			c.logger.Warn().Err(err).Msg("profile watcher disabled")
		} else {
			s.watcher = w
		}
	}

	s.notifier.Subscribe(c.logNotification)
	return s, nil
}

// Close stops the session and releases the backend. It is safe to call
// more than once.
func (s *session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.ctrl.Close()
		if s.watcher != nil {
			if err := s.watcher.Close(); err != nil && s.closeErr == nil {
				s.closeErr = err
			}
		}
		s.notifier.Close()
		if s.release != nil {
			s.release()
		}
	})
	return s.closeErr
}

func (c *CLI) logNotification(n notify.Notification) {
	l := c.component(n.Kind.Source())
	switch n.Kind {
	case notify.CaptureEvent, notify.PlaybackEvent:
		l.Trace().Str("kind", string(n.Kind)).Int("count", n.Count).Msg("session event")
	case notify.PlaybackFailed:
		l.Debug().Str("kind", string(n.Kind)).Err(n.Err).Msg("session event")
	default:
		l.Debug().
			Str("kind", string(n.Kind)).
			Int("count", n.Count).
			Int("iteration", n.Iteration).
			Str("profile", n.Profile).
			Msg("session event")
	}
}

func (c *CLI) openLibrary() (*library.Library, error) {
	lib, err := library.Open(c.cfg.Storage.Library)
	if err != nil {
		return nil, fmt.Errorf("opening library %s: %w", c.cfg.Storage.Library, err)
	}
	return lib, nil
}
