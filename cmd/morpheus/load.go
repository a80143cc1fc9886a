package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/chazu/morpheus/pkg/config"
	"github.com/chazu/morpheus/pkg/engine"
	"github.com/chazu/morpheus/pkg/logging"
	"github.com/chazu/morpheus/pkg/scene"
)

// ErrInvalidScene is returned when a program evaluates but its scene fails
// validation.
var ErrInvalidScene = errors.New("invalid scene")

// loader evaluates scene files with one engine so that a newer evaluation
// supersedes a slower older one.
type loader struct {
	engine *engine.Engine
}

func newLoader(cfg config.Config) *loader {
	return &loader{engine: engine.NewEngine().WithTimeout(cfg.Engine.EvalTimeout.Duration)}
}

// load reads, evaluates and validates path. Validation warnings are logged;
// errors fail the load.
func (l *loader) load(path string) (*scene.Scene, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	sc, evalErrs, err := l.engine.Evaluate(string(src))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(evalErrs) > 0 {
		return nil, fmt.Errorf("%s: %w", path, joinEvalErrors(evalErrs))
	}

	var problems []string
	for _, v := range sc.Validate() {
		if v.Severity == scene.SeverityWarning {
			logging.Logger().Warn("scene warning", "file", path, "code", v.Code, "err", v.Message, "object", v.Name)
			continue
		}
		problems = append(problems, v.Error())
	}
	if len(problems) > 0 {
		return nil, fmt.Errorf("%s: %w:\n  %s", path, ErrInvalidScene, strings.Join(problems, "\n  "))
	}
	return sc, nil
}

func joinEvalErrors(errs []engine.EvalError) error {
	joined := make([]error, len(errs))
	for i, e := range errs {
		joined[i] = e
	}
	return errors.Join(joined...)
}
