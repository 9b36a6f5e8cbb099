// Package app provides the macro recorder's engine controller. It owns
// one capture session and one playback session, the active profile and
// the active event sequence, and publishes session notifications to the
// control surface.
package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ItvordRE/MacroRecorder/internal/input/backend"
	"github.com/ItvordRE/MacroRecorder/internal/input/macro"
	"github.com/ItvordRE/MacroRecorder/internal/notify"
	"github.com/ItvordRE/MacroRecorder/internal/profile"
)

// AutoSaveName is the macro name written to the auto-save file.
const AutoSaveName = "recording"

// Option configures a Controller.
type Option func(*Controller)

// WithAutoSavePath sets where finished recordings are written. An empty
// path disables auto-save.
func WithAutoSavePath(path string) Option {
	return func(c *Controller) {
		c.autoSave = path
	}
}

// WithLogger sets the controller's logger. Sessions log through it with
// their own component tag.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

// WithNotifier sets the notification channel.
func WithNotifier(n *notify.Notifier) Option {
	return func(c *Controller) {
		c.notifier = n
	}
}

// WithPlayerOptions passes options to the playback session.
func WithPlayerOptions(opts ...macro.PlayerOption) Option {
	return func(c *Controller) {
		c.playerOpts = append(c.playerOpts, opts...)
	}
}

// WithRecorderOptions passes options to the capture session.
func WithRecorderOptions(opts ...macro.RecorderOption) Option {
	return func(c *Controller) {
		c.recorderOpts = append(c.recorderOpts, opts...)
	}
}

// WithMetrics sets the metrics tracker. By default each controller has
// its own.
func WithMetrics(m *Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// WithNow sets the clock used for macro metadata.
func WithNow(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// Controller coordinates capture, playback and profile selection.
// Capture and playback are mutually exclusive, and the active profile
// and sequence only change while both are idle.
type Controller struct {
	registry *profile.Registry
	recorder *macro.Recorder
	player   *macro.Player
	notifier *notify.Notifier
	metrics  *Metrics
	logger   zerolog.Logger
	autoSave string
	now      func() time.Time

	recorderOpts []macro.RecorderOption
	playerOpts   []macro.PlayerOption

	mu       sync.Mutex
	profile  profile.Profile
	events   []macro.Event
	name     string
	playDone chan struct{}
	result   macro.Result
	err      error
}

// New creates a controller for the given backend and registry. The
// initial profile is the default profile.
func New(b backend.Backend, registry *profile.Registry, opts ...Option) *Controller {
	c := &Controller{
		registry: registry,
		logger:   zerolog.Nop(),
		autoSave: macro.DefaultRecordingFile,
		now:      time.Now,
		profile:  profile.Base{},
		playDone: closedChan(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics = NewMetrics()
	}

	recorderOpts := append([]macro.RecorderOption{
		macro.WithRecorderLogger(c.logger.With().Str("component", "capture").Logger()),
		macro.WithOnEvent(c.onCaptured),
		macro.WithOnComplete(c.onRecordingComplete),
	}, c.recorderOpts...)
	c.recorder = macro.NewRecorder(b, recorderOpts...)

	playerOpts := append([]macro.PlayerOption{
		macro.WithPlayerLogger(c.logger.With().Str("component", "playback").Logger()),
	}, c.playerOpts...)
	c.player = macro.NewPlayer(b, playerOpts...)

	return c
}

// Registry returns the profile registry.
func (c *Controller) Registry() *profile.Registry {
	return c.registry
}

// Metrics returns the controller's session metrics.
func (c *Controller) Metrics() *Metrics {
	return c.metrics
}

// State returns the live session state.
func (c *Controller) State() macro.State {
	switch {
	case c.recorder.IsRecording():
		return macro.StateRecording
	case c.player.IsPlaying():
		return macro.StatePlaying
	default:
		return macro.StateIdle
	}
}

func (c *Controller) busy() bool {
	return c.State() != macro.StateIdle
}

// SelectProfile resolves name and makes it the active profile. An unknown
// name selects the default profile and returns an error wrapping
// profile.ErrProfileNotFound; the returned profile is active either way.
func (c *Controller) SelectProfile(name string) (profile.Profile, error) {
	c.mu.Lock()
	if c.busy() {
		c.mu.Unlock()
		return nil, ErrSessionActive
	}

	p, err := c.registry.Resolve(name)
	c.profile = p
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn().Err(err).Str("profile", name).Msg("using default profile")
	} else {
		c.logger.Info().Str("profile", p.Name()).Msg("profile selected")
	}
	c.notifier.Notify(notify.Notification{Kind: notify.ProfileChanged, Profile: p.Name()})
	return p, err
}

// Profile returns the active profile.
func (c *Controller) Profile() profile.Profile {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.profile
}

// Presets returns the active profile's presets.
func (c *Controller) Presets() []profile.Preset {
	return c.Profile().Presets()
}

// LoadPreset makes the named preset of the active profile the active
// sequence. The first preset with that name wins.
func (c *Controller) LoadPreset(name string) (profile.Preset, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.busy() {
		return profile.Preset{}, ErrSessionActive
	}

	pr, ok := c.profile.Preset(name)
	if !ok {
		return profile.Preset{}, ErrPresetNotFound
	}

	c.events = pr.Actions
	c.name = pr.Name
	c.logger.Info().
		Str("preset", pr.Name).
		Int("events", len(pr.Actions)).
		Dur("estimate", macro.Duration(pr.Actions, c.player.PresetDelay())).
		Msg("preset loaded")
	return pr, nil
}

// Events returns a copy of the active sequence.
func (c *Controller) Events() []macro.Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]macro.Event, len(c.events))
	copy(out, c.events)
	return out
}

// Name returns the name of the active sequence: the preset or macro
// name, or empty for a fresh recording.
func (c *Controller) Name() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.name
}

// Duration estimates one pass over the active sequence.
func (c *Controller) Duration() time.Duration {
	return macro.Duration(c.Events(), c.player.PresetDelay())
}

// SetEvents replaces the active sequence.
func (c *Controller) SetEvents(events []macro.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.busy() {
		return ErrSessionActive
	}
	c.events = make([]macro.Event, len(events))
	copy(c.events, events)
	c.name = ""
	return nil
}

// Clear empties the active sequence.
func (c *Controller) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.busy() {
		return ErrSessionActive
	}
	c.events = nil
	c.name = ""
	c.logger.Debug().Msg("events cleared")
	return nil
}

// StartRecording clears the active sequence and starts a capture session
// with the active profile's hooks.
func (c *Controller) StartRecording() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.player.IsPlaying() {
		return ErrSessionActive
	}
	if err := c.recorder.Start(c.profile); err != nil {
		return err
	}

	c.events = nil
	c.name = ""
	c.logger.Info().Str("profile", c.profile.Name()).Msg("recording started")
	c.notifier.Notify(notify.Notification{Kind: notify.CaptureStarted, Profile: c.profile.Name()})
	return nil
}

// StopRecording ends the capture session and returns the captured
// events. The error reports a failed auto-save; the events are kept
// either way.
func (c *Controller) StopRecording() ([]macro.Event, error) {
	return c.recorder.Stop()
}

// RecordingDone returns a channel closed when the current capture ends,
// whether by a stop key or StopRecording.
func (c *Controller) RecordingDone() <-chan struct{} {
	return c.recorder.Done()
}

// RecordingErr returns the auto-save error of the last capture.
func (c *Controller) RecordingErr() error {
	return c.recorder.Err()
}

func (c *Controller) onCaptured(count int) {
	c.notifier.Notify(notify.Notification{Kind: notify.CaptureEvent, Count: count})
}

func (c *Controller) onRecordingComplete(events []macro.Event) error {
	c.mu.Lock()
	c.events = events
	c.name = ""
	prof := c.profile.Name()
	c.mu.Unlock()

	c.metrics.RecordCapture(len(events))

	var err error
	if c.autoSave != "" {
		meta := macro.Metadata{
			Name:       AutoSaveName,
			Profile:    prof,
			Created:    c.now(),
			EventCount: len(events),
		}
		if serr := macro.SaveFile(c.autoSave, events, meta); serr != nil {
			err = &OperationError{Op: "autosave", Target: c.autoSave, Err: serr}
		} else {
			c.logger.Debug().Str("path", c.autoSave).Int("events", len(events)).Msg("recording saved")
		}
	}

	c.notifier.Notify(notify.Notification{Kind: notify.CaptureStopped, Count: len(events), Err: err})
	return err
}

// StartPlayback replays the active sequence on a worker goroutine with
// the active profile's hooks. It returns once playback has begun.
func (c *Controller) StartPlayback(ctx context.Context, loop bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.recorder.IsRecording() {
		return ErrSessionActive
	}

	events := c.events
	timer := StartTimer()
	step := StartTimer()
	opts := macro.PlayOptions{
		Loop:      loop,
		Processor: c.profile,
		OnIteration: func(n int) {
			c.notifier.Notify(notify.Notification{Kind: notify.PlaybackIteration, Iteration: n})
		},
		OnEvent: func(i int, _ macro.Event) {
			c.metrics.RecordStep(step.Lap())
			c.notifier.Notify(notify.Notification{Kind: notify.PlaybackEvent, Count: i})
		},
	}

	done := make(chan struct{})
	err := c.player.Start(ctx, events, opts, func(res macro.Result, err error) {
		c.metrics.RecordPlayback(res, err, timer.Elapsed())
		c.finishPlayback(res, err, done)
	})
	if err != nil {
		return err
	}

	c.playDone = done
	c.logger.Info().
		Int("events", len(events)).
		Bool("loop", loop).
		Str("profile", c.profile.Name()).
		Msg("playback started")
	c.notifier.Notify(notify.Notification{Kind: notify.PlaybackStarted, Count: len(events)})
	return nil
}

func (c *Controller) finishPlayback(res macro.Result, err error, done chan struct{}) {
	c.mu.Lock()
	c.result = res
	c.err = err
	c.mu.Unlock()

	if err != nil {
		c.logger.Error().Err(err).Int("executed", res.Executed).Msg("playback failed")
		c.notifier.Notify(notify.Notification{
			Kind:      notify.PlaybackFailed,
			Count:     res.Executed,
			Iteration: res.Iterations,
			Err:       err,
		})
	} else {
		c.logger.Info().
			Int("iterations", res.Iterations).
			Int("executed", res.Executed).
			Bool("cancelled", res.Cancelled).
			Msg("playback finished")
		c.notifier.Notify(notify.Notification{
			Kind:      notify.PlaybackFinished,
			Count:     res.Executed,
			Iteration: res.Iterations,
			Cancelled: res.Cancelled,
		})
	}
	close(done)
}

// StopPlayback requests cancellation. It never blocks.
func (c *Controller) StopPlayback() {
	c.player.Stop()
}

// WaitPlayback blocks until the current or most recent playback ends and
// returns its outcome.
func (c *Controller) WaitPlayback() (macro.Result, error) {
	c.mu.Lock()
	done := c.playDone
	c.mu.Unlock()

	<-done

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result, c.err
}

// SaveMacro writes the active sequence to path under the given name.
func (c *Controller) SaveMacro(path, name string) error {
	c.mu.Lock()
	events := c.events
	meta := macro.Metadata{
		Name:       name,
		Profile:    c.profile.Name(),
		Created:    c.now(),
		EventCount: len(c.events),
	}
	c.mu.Unlock()

	if len(events) == 0 {
		return macro.ErrEmptySequence
	}
	if err := macro.SaveFile(path, events, meta); err != nil {
		return &OperationError{Op: "save", Target: path, Err: err}
	}

	c.logger.Info().Str("path", path).Int("events", len(events)).Msg("macro saved")
	return nil
}

// LoadMacro makes the macro stored at path the active sequence. When the
// file names a known profile, that profile becomes active. On error
// nothing changes.
func (c *Controller) LoadMacro(path string) (macro.Metadata, error) {
	if c.busy() {
		return macro.Metadata{}, ErrSessionActive
	}

	events, meta, err := macro.LoadFile(path)
	if err != nil {
		return macro.Metadata{}, &OperationError{Op: "load", Target: path, Err: err}
	}

	return meta, c.apply(events, meta)
}

// ApplyMacro makes an already decoded macro the active sequence, with the
// same profile switching as LoadMacro.
func (c *Controller) ApplyMacro(events []macro.Event, meta macro.Metadata) error {
	return c.apply(events, meta)
}

func (c *Controller) apply(events []macro.Event, meta macro.Metadata) error {
	c.mu.Lock()
	if c.busy() {
		c.mu.Unlock()
		return ErrSessionActive
	}

	c.events = events
	c.name = meta.Name

	var switched profile.Profile
	if meta.Profile != "" && !profile.IsDefaultName(meta.Profile) {
		if p, err := c.registry.Resolve(meta.Profile); err == nil {
			c.profile = p
			switched = p
		}
	}
	c.mu.Unlock()

	c.logger.Info().Str("name", meta.Name).Int("events", len(events)).Msg("macro loaded")
	if switched != nil {
		c.notifier.Notify(notify.Notification{Kind: notify.ProfileChanged, Profile: switched.Name()})
	}
	return nil
}

// ProfilesChanged reports that profile documents changed on disk. When
// idle, the active profile is resolved again so edits take effect.
func (c *Controller) ProfilesChanged(path string) {
	c.mu.Lock()
	if !c.busy() {
		if p, err := c.registry.Resolve(c.profile.Name()); err == nil {
			c.profile = p
		}
	}
	c.mu.Unlock()

	c.logger.Debug().Str("path", path).Msg("profiles changed")
	c.notifier.Notify(notify.Notification{Kind: notify.ProfilesChanged, Profile: path})
}

// Close stops any live session and waits for playback to end.
func (c *Controller) Close() error {
	var err error
	if c.recorder.IsRecording() {
		if _, serr := c.recorder.Stop(); serr != nil && !errors.Is(serr, macro.ErrNotRecording) {
			err = serr
		}
	}
	c.player.Stop()
	_, _ = c.WaitPlayback()
	return err
}

func closedChan() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
