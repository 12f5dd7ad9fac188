package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/emmett/voxbot/internal/command"
	"github.com/emmett/voxbot/internal/output"
	"github.com/emmett/voxbot/internal/pilot"
)

// Utterance sources reported in command records
const (
	SourceVoice      = "voice"
	SourcePushToTalk = "ptt"
	SourceText       = "text"
	SourceHotkey     = "hotkey"
)

// Driver is implemented by *pilot.Pilot
type Driver interface {
	Say(ctx context.Context, utterance string) (pilot.Result, error)
	Command(ctx context.Context, c command.Category) (pilot.Result, error)
}

// Dispatcher forwards final utterances to the pilot and reports each result
type Dispatcher struct {
	driver    Driver
	formatter output.Formatter
	log       *zap.Logger
	session   string

	mu    sync.Mutex
	count int
}

// NewDispatcher creates a dispatcher
func NewDispatcher(driver Driver, formatter output.Formatter, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	session := uuid.NewString()
	return &Dispatcher{
		driver:    driver,
		formatter: formatter,
		log:       log.With(zap.String("session", session)),
		session:   session,
	}
}

// Session identifies this run in command records and logs
func (d *Dispatcher) Session() string {
	return d.session
}

// Utterance submits recognized text; blank text is ignored
func (d *Dispatcher) Utterance(ctx context.Context, source, text string, confidence float64) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	res, err := d.driver.Say(ctx, text)
	if errors.Is(err, pilot.ErrEmptyUtterance) {
		return nil
	}
	if err != nil {
		return err
	}
	return d.report(source, confidence, res)
}

// Stop halts the robot regardless of what was said
func (d *Dispatcher) Stop(ctx context.Context, source string) error {
	res, err := d.driver.Command(ctx, command.Stop)
	if err != nil {
		return err
	}
	return d.report(source, 0, res)
}

// Count returns the number of reported commands
func (d *Dispatcher) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.count
}

func (d *Dispatcher) report(source string, confidence float64, res pilot.Result) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.count++
	record := output.CommandRecord{
		Index:      d.count,
		Session:    d.session,
		Source:     source,
		Utterance:  res.Utterance,
		Confidence: confidence,
		Command:    res.Category.String(),
		Outcome:    res.Payload.Outcome.String(),
		Left:       res.Payload.Left,
		Right:      res.Payload.Right,
		Circle:     res.Payload.Circle,
		Direction:  res.State.Direction.String(),
		Speed:      res.State.Speed,
		Delivered:  res.Delivered,
		Timestamp:  time.Now(),
	}
	if res.DeliveryErr != nil {
		record.Error = res.DeliveryErr.Error()
	}

	d.log.Debug("command processed",
		zap.Int("index", record.Index),
		zap.String("source", source),
		zap.String("command", record.Command),
		zap.String("outcome", record.Outcome))

	if err := d.formatter.WriteCommand(record); err != nil {
		d.log.Warn("failed to write command record", zap.Error(err))
	}
	return nil
}
