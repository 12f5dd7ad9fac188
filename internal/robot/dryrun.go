package robot

import (
	"context"
	"sort"

	"go.uber.org/zap"
)

// DryRun connects to no hardware; its links log every request
type DryRun struct {
	Logger *zap.Logger
}

// Connect always succeeds
func (d DryRun) Connect(ctx context.Context) (Link, error) {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log.Info("dry run: no robot attached")
	return &dryRunLink{log: log}, nil
}

type dryRunLink struct {
	log *zap.Logger
}

func (l *dryRunLink) SetVariables(ctx context.Context, vars map[string][]int) error {
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]zap.Field, 0, len(names))
	for _, name := range names {
		fields = append(fields, zap.Ints(name, vars[name]))
	}
	l.log.Info("dry run: set variables", fields...)
	return ctx.Err()
}

func (l *dryRunLink) RunBehavior(ctx context.Context, index int) error {
	l.log.Info("dry run: run behavior", zap.Int("index", index))
	return ctx.Err()
}

func (l *dryRunLink) Close() error {
	return nil
}
