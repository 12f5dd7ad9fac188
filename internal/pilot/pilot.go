// Package pilot serializes utterances into classify, apply and deliver
// steps on a single goroutine, the only owner of the motion state.
package pilot

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/emmett/voxbot/internal/command"
	"github.com/emmett/voxbot/internal/motion"
)

// haltTimeout bounds the shutdown halt sent to the robot
const haltTimeout = 2 * time.Second

var (
	// ErrEmptyUtterance is returned for blank input; it never reaches the classifier
	ErrEmptyUtterance = errors.New("empty utterance")
	// ErrStopped is returned when the pilot is no longer running
	ErrStopped = errors.New("pilot stopped")
)

// Actuator delivers payloads to the robot
type Actuator interface {
	Deliver(ctx context.Context, p motion.Payload) error
	Close(ctx context.Context) error
}

// Result describes one processed request
type Result struct {
	Utterance string
	Category  command.Category
	Payload   motion.Payload
	State     motion.State

	// Delivered is false when the payload could not reach the robot
	Delivered   bool
	DeliveryErr error
}

type requestKind int

const (
	kindUtterance requestKind = iota
	kindCategory
	kindState
)

type request struct {
	kind      requestKind
	utterance string
	category  command.Category
	reply     chan Result
}

// Pilot owns the classifier, the controller and the actuator
type Pilot struct {
	vocab    *command.Vocabulary
	ctrl     *motion.Controller
	actuator Actuator
	log      *zap.Logger

	requests chan request
	done     chan struct{}
}

// New creates a pilot; call Run to start processing
func New(vocab *command.Vocabulary, ctrl *motion.Controller, actuator Actuator, log *zap.Logger) *Pilot {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pilot{
		vocab:    vocab,
		ctrl:     ctrl,
		actuator: actuator,
		log:      log.With(zap.String("component", "pilot")),
		requests: make(chan request),
		done:     make(chan struct{}),
	}
}

// Run processes requests one at a time until ctx is done, then halts the robot
func (p *Pilot) Run(ctx context.Context) error {
	defer close(p.done)

	for {
		select {
		case <-ctx.Done():
			closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), haltTimeout)
			defer cancel()
			if err := p.actuator.Close(closeCtx); err != nil {
				p.log.Warn("failed to halt robot on shutdown", zap.Error(err))
			}
			return nil

		case req := <-p.requests:
			req.reply <- p.handle(ctx, req)
		}
	}
}

// Say classifies an utterance, applies it and delivers the payload
func (p *Pilot) Say(ctx context.Context, utterance string) (Result, error) {
	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		return Result{}, ErrEmptyUtterance
	}
	return p.submit(ctx, request{kind: kindUtterance, utterance: utterance})
}

// Command applies an explicit category, bypassing the classifier
func (p *Pilot) Command(ctx context.Context, c command.Category) (Result, error) {
	return p.submit(ctx, request{kind: kindCategory, category: c})
}

// State returns the current motion state
func (p *Pilot) State(ctx context.Context) (motion.State, error) {
	res, err := p.submit(ctx, request{kind: kindState})
	return res.State, err
}

// Vocabulary returns the classifier's keyword table
func (p *Pilot) Vocabulary() *command.Vocabulary {
	return p.vocab
}

func (p *Pilot) submit(ctx context.Context, req request) (Result, error) {
	req.reply = make(chan Result, 1)

	select {
	case p.requests <- req:
	case <-p.done:
		return Result{}, ErrStopped
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}

	// the pilot always answers an accepted request
	return <-req.reply, nil
}

func (p *Pilot) handle(ctx context.Context, req request) Result {
	if req.kind == kindState {
		return Result{State: p.ctrl.State()}
	}

	res := Result{Utterance: req.utterance, Category: req.category}
	if req.kind == kindUtterance {
		res.Category = p.vocab.Classify(req.utterance)
	}

	res.Payload = p.ctrl.Apply(res.Category)
	res.State = p.ctrl.State()

	log := p.log.With(
		zap.String("utterance", res.Utterance),
		zap.Stringer("command", res.Category),
		zap.Stringer("outcome", res.Payload.Outcome),
	)
	switch res.Payload.Outcome {
	case motion.Unrecognized:
		log.Info("skip unknown command")
	case motion.Ineffective:
		log.Info("command ignored while stopped")
	default:
		log.Debug("command applied",
			zap.Int("left", res.Payload.Left),
			zap.Int("right", res.Payload.Right),
			zap.Stringer("direction", res.State.Direction),
			zap.Int("speed", res.State.Speed))
	}

	if err := p.actuator.Deliver(ctx, res.Payload); err != nil {
		res.DeliveryErr = err
		log.Warn("payload not delivered", zap.Error(err))
		return res
	}
	res.Delivered = true
	return res
}
