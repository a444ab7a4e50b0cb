package apply

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/conduit-lang/dynarename/internal/rewrite"
)

// ErrCanceled is returned when the confirmation gate is declined
var ErrCanceled = errors.New("canceled")

// Source loads every item of the table
type Source interface {
	FetchAll(ctx context.Context) ([]rewrite.Item, error)
}

// Confirmer is the single yes/no gate between planning and writing
type Confirmer interface {
	Confirm(plan *Plan) (bool, error)
}

// Reporter receives the user-facing milestones of a session
type Reporter interface {
	Scanned(count int)
	NoChanges(plan *Plan)
	Prepared(plan *Plan)
	Applied(count int)
}

// LockFunc takes an exclusive hold on the table and returns its release
type LockFunc func(ctx context.Context) (release func(context.Context) error, err error)

// Session runs one scan, rewrite, confirm, write cycle
type Session struct {
	source    Source
	rules     []rewrite.Replace
	runner    *Runner
	confirmer Confirmer
	reporter  Reporter
	lock      LockFunc
	logger    *zap.Logger
}

// SessionConfig wires a Session
type SessionConfig struct {
	Source    Source
	Rules     []rewrite.Replace
	Runner    *Runner
	Confirmer Confirmer
	Reporter  Reporter
	// Lock is optional
	Lock   LockFunc
	Logger *zap.Logger
}

// NewSession creates a new Session
func NewSession(config SessionConfig) *Session {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		source:    config.Source,
		rules:     config.Rules,
		runner:    config.Runner,
		confirmer: config.Confirmer,
		reporter:  config.Reporter,
		lock:      config.Lock,
		logger:    logger,
	}
}

// Plan scans the table and rewrites it in memory. Nothing is written.
func (s *Session) Plan(ctx context.Context) (*Plan, error) {
	items, err := s.source.FetchAll(ctx)
	if err != nil {
		return nil, err
	}
	s.reporter.Scanned(len(items))

	plan := NewPlan(items, s.rules)
	s.logger.Info("plan computed",
		zap.Int("scanned", plan.Scanned),
		zap.Int("replacements", plan.Result.Replacements),
		zap.Int("items", len(plan.Changes)),
		zap.Int("overwrites", plan.Result.Overwrites),
	)
	return plan, nil
}

// Run plans, asks for confirmation and then writes every changed item.
// A plan with no replacements ends the session successfully without asking.
func (s *Session) Run(ctx context.Context) error {
	if s.lock != nil {
		release, err := s.lock(ctx)
		if err != nil {
			return err
		}
		defer func() {
			if rerr := release(context.WithoutCancel(ctx)); rerr != nil {
				s.logger.Warn("failed to release lock", zap.Error(rerr))
			}
		}()
	}

	plan, err := s.Plan(ctx)
	if err != nil {
		return err
	}

	if plan.Empty() {
		s.reporter.NoChanges(plan)
		return nil
	}
	s.reporter.Prepared(plan)

	ok, err := s.confirmer.Confirm(plan)
	if err != nil {
		return fmt.Errorf("could not read confirmation: %w", err)
	}
	if !ok {
		return ErrCanceled
	}

	applied, err := s.runner.Apply(ctx, plan.Changes)
	if err != nil {
		return err
	}
	s.reporter.Applied(applied)
	return nil
}
