package jarpatch

import (
	"fmt"
	"log/slog"
)

// Result describes a patched class.
type Result struct {
	// Class is the dotted class name.
	Class string

	// Plan is the edit that was applied.
	Plan Plan
}

// Patcher applies the main/init edit to one class of a ClassPool.
type Patcher struct {
	// Logger receives diagnostics. Nil discards them.
	Logger *slog.Logger
}

func (p *Patcher) log() *slog.Logger {
	if p.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return p.Logger
}

// Patch loads className from pool, ensures it declares main, inserts the
// diagnostic statement into init (or main when init is absent), and writes
// the class back into dir. Nothing is written if any step fails.
func (p *Patcher) Patch(pool ClassPool, className, dir string) (*Result, error) {
	cls, err := pool.Get(className)
	if err != nil {
		return nil, err
	}

	plan := Decide(cls.HasDeclaredMethod(MainMethodName), cls.HasDeclaredMethod(InitMethodName))
	log := p.log().With("class", cls.Name())

	if plan.AddMain {
		spec := MainMethod()
		if err := cls.AddMethod(spec); err != nil {
			return nil, fmt.Errorf("add %s to %s: %w", spec.Name, cls.Name(), err)
		}
		log.Info("added method", "method", spec.String())
	}

	if err := cls.InsertBefore(plan.Target, plan.Statement); err != nil {
		return nil, fmt.Errorf("inject into %s.%s: %w", cls.Name(), plan.Target, err)
	}
	log.Info("injected statement", "method", plan.Target, "statement", plan.Statement.String())

	if err := cls.WriteFile(dir); err != nil {
		return nil, fmt.Errorf("write %s: %w", cls.Name(), err)
	}
	return &Result{Class: cls.Name(), Plan: plan}, nil
}
