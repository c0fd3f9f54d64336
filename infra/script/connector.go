// Package script runs connectors written in JavaScript. A connector is a
// directory holding plugin-config.json and plugin.js; the script defines
// verify() and load() and talks to the host through globals.
package script

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/CrestNiraj12/tapestry/app"
)

//go:embed prelude.js
var preludeSource string

var prelude = goja.MustCompile("prelude.js", preludeSource, true)

// ErrNoReport is reported when a script has nothing left to wait for and
// never ended the operation.
var ErrNoReport = errors.New("script finished without reporting a result")

// Connector is a JavaScript connector.
type Connector struct {
	manifest Manifest
	dir      string
	program  *goja.Program
	logger   *zap.Logger
}

var _ app.Connector = (*Connector)(nil)

// Load reads and compiles the connector in dir.
func Load(dir string, logger *zap.Logger) (*Connector, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	m, err := readManifest(dir)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", dir, err)
	}
	src, err := os.ReadFile(filepath.Join(dir, sourceFile))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", dir, err)
	}
	program, err := goja.Compile(m.ID+"/"+sourceFile, string(src), false)
	if err != nil {
		return nil, fmt.Errorf("%s: compiling %s: %w", dir, sourceFile, err)
	}
	return &Connector{
		manifest: m,
		dir:      dir,
		program:  program,
		logger:   logger.Named("script").With(zap.String("connector", m.ID)),
	}, nil
}

// Discover loads every connector directory under root. Directories that fail
// to load are skipped and their errors joined; a missing root is not an
// error.
func Discover(root string, logger *zap.Logger) ([]*Connector, error) {
	entries, err := os.ReadDir(root)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var out []*Connector
	var errs []error
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		c, err := Load(filepath.Join(root, e.Name()), logger)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, c)
	}
	return out, errors.Join(errs...)
}

func (c *Connector) ID() string { return c.manifest.ID }

func (c *Connector) DisplayName() string { return c.manifest.DisplayName }

func (c *Connector) Verify(ctx context.Context, s app.Session) { c.run(ctx, s, "verify") }

func (c *Connector) Load(ctx context.Context, s app.Session) { c.run(ctx, s, "load") }

// run gives the script a fresh VM, calls entry and drives the event loop
// until the operation ends.
func (c *Connector) run(ctx context.Context, s app.Session, entry string) {
	logger := c.logger.With(zap.String("op", entry))
	vm := goja.New()
	l := newLoop(vm, func(err error) { s.ProcessError(scriptError(err)) })

	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			vm.Interrupt(ctx.Err())
		case <-watchDone:
		}
	}()

	if err := c.start(ctx, vm, l, s, entry, logger); err != nil {
		s.ProcessError(err)
	}

	switch l.run(ctx, s.Done()) {
	case exitIdle:
		logger.Warn("script went idle without a terminal report")
		s.ProcessError(ErrNoReport)
	case exitCanceled:
		logger.Debug("script canceled", zap.Error(ctx.Err()))
	}
}

func (c *Connector) start(ctx context.Context, vm *goja.Runtime, l *loop, s app.Session, entry string, logger *zap.Logger) error {
	b, err := newBindings(ctx, vm, l, s, c.manifest, logger)
	if err != nil {
		return err
	}
	if _, err := vm.RunProgram(prelude); err != nil {
		return fmt.Errorf("prelude: %w", err)
	}
	if err := b.install(s.Variables()); err != nil {
		return err
	}
	if _, err := vm.RunProgram(c.program); err != nil {
		return scriptError(err)
	}
	fn, ok := goja.AssertFunction(vm.Get(entry))
	if !ok {
		return fmt.Errorf("%s does not define %s()", sourceFile, entry)
	}
	if _, err := fn(goja.Undefined()); err != nil {
		return scriptError(err)
	}
	return nil
}

func scriptError(err error) error {
	var ex *goja.Exception
	if errors.As(err, &ex) {
		return errorFromValue(ex.Value())
	}
	return err
}
