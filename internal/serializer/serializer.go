// Package serializer renders action batches into the engine's tabular script
// format.
package serializer

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/xkilldash9x/handbridge/api/schemas"
)

// Builder renders a single action into script records.
type Builder interface {
	Build(action schemas.Action) ([]Record, error)
}

// BuilderFunc adapts a function to the Builder interface.
type BuilderFunc func(action schemas.Action) ([]Record, error)

func (f BuilderFunc) Build(action schemas.Action) ([]Record, error) { return f(action) }

// typed wraps a kind specific render function with the type assertion.
func typed[T schemas.Action](render func(T) Record) Builder {
	return BuilderFunc(func(action schemas.Action) ([]Record, error) {
		a, ok := action.(T)
		if !ok {
			return nil, fmt.Errorf("builder for %s cannot render %T", action.Kind(), action)
		}
		return []Record{render(a)}, nil
	})
}

// Option configures a Serializer.
type Option func(*Serializer)

// WithBuilder registers or replaces the builder of one action kind.
func WithBuilder(kind schemas.ActionKind, factory func() Builder) Option {
	return func(s *Serializer) {
		s.factories[kind] = factory
	}
}

// Serializer maps action kinds to builders. The kind table is fixed at
// construction; builders are instantiated on first use and reused afterwards.
type Serializer struct {
	factories map[schemas.ActionKind]func() Builder
	builders  sync.Map // schemas.ActionKind -> Builder
	logger    *zap.Logger
}

// New creates a Serializer with every web and desktop builder registered.
func New(logger *zap.Logger, opts ...Option) *Serializer {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Serializer{
		factories: make(map[schemas.ActionKind]func() Builder),
		logger:    logger.Named("serializer"),
	}
	s.registerBuilders()
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Serializer) registerBuilders() {
	for kind, b := range webBuilders() {
		s.factories[kind] = func() Builder { return b }
	}
	for kind, b := range windowsBuilders() {
		s.factories[kind] = func() Builder { return b }
	}
}

// Supports reports whether a builder is registered for kind.
func (s *Serializer) Supports(kind schemas.ActionKind) bool {
	_, ok := s.factories[kind]
	return ok
}

func (s *Serializer) builder(kind schemas.ActionKind) (Builder, bool) {
	if b, ok := s.builders.Load(kind); ok {
		return b.(Builder), true
	}
	factory, ok := s.factories[kind]
	if !ok {
		return nil, false
	}
	b, _ := s.builders.LoadOrStore(kind, factory())
	return b.(Builder), true
}

// Serialize renders actions in order. Actions of unknown kinds, or that a
// builder rejects, are logged and skipped.
func (s *Serializer) Serialize(actions []schemas.Action) *Script {
	sc := &Script{Records: make([]Record, 0, len(actions))}
	for i, action := range actions {
		if action == nil {
			continue
		}
		b, ok := s.builder(action.Kind())
		if !ok {
			s.logger.Warn("Unknown action kind, skipping.",
				zap.String("kind", string(action.Kind())), zap.Int("index", i))
			continue
		}
		records, err := b.Build(action)
		if err != nil {
			s.logger.Warn("Failed to build action, skipping.",
				zap.String("kind", string(action.Kind())), zap.Int("index", i), zap.Error(err))
			continue
		}
		sc.Records = append(sc.Records, records...)
	}
	return sc
}
