package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mcrav/xdl/internal/compiler"
	"github.com/mcrav/xdl/internal/device"
	"github.com/mcrav/xdl/internal/executor"
	"github.com/mcrav/xdl/internal/procedure"
	"github.com/mcrav/xdl/internal/scheduler"
	"github.com/mcrav/xdl/internal/step"
)

// ArtifactExt is the extension of frozen executable artifacts.
const ArtifactExt = ".xdlexe"

// Run executes the configured mode.
func (a *App) Run(ctx context.Context) error {
	ctx = a.Context(ctx)
	switch a.cfg.Mode {
	case "compile":
		return a.runCompile(ctx)
	case "schedule":
		return a.runSchedule(ctx)
	case "execute":
		return a.runExecute(ctx)
	case "describe":
		return a.runDescribe(ctx)
	}
	return fmt.Errorf("unknown mode %q", a.cfg.Mode)
}

func (a *App) loadProcedure(path string) (*procedure.Procedure, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p, err := procedure.Load(src, path, a.reg)
	if err != nil {
		return nil, err
	}
	p.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return p, nil
}

// compileAll compiles every configured procedure file.
func (a *App) compileAll(ctx context.Context) ([]*procedure.Procedure, error) {
	comp := compiler.New(a.graph, a.reg)
	var out []*procedure.Procedure
	for _, path := range a.cfg.Procedures {
		p, err := a.loadProcedure(path)
		if err != nil {
			return nil, err
		}
		frozen, err := comp.Compile(ctx, p)
		if err != nil {
			return nil, err
		}
		out = append(out, frozen)
	}
	return out, nil
}

func (a *App) runCompile(ctx context.Context) error {
	frozen, err := a.compileAll(ctx)
	if err != nil {
		return err
	}
	for i, p := range frozen {
		dest := a.cfg.OutputPath
		if dest == "" || len(frozen) > 1 {
			base := strings.TrimSuffix(a.cfg.Procedures[i], filepath.Ext(a.cfg.Procedures[i]))
			dest = base + ArtifactExt
			if a.cfg.OutputPath != "" {
				dest = filepath.Join(a.cfg.OutputPath, filepath.Base(dest))
			}
		}
		if err := os.WriteFile(dest, procedure.Marshal(p), 0o644); err != nil {
			return err
		}
		fmt.Fprintf(a.outW, "compiled %s -> %s\n", a.cfg.Procedures[i], dest)
	}
	return nil
}

func (a *App) runSchedule(ctx context.Context) error {
	frozen, err := a.compileAll(ctx)
	if err != nil {
		return err
	}
	sched, err := scheduler.Run(ctx, frozen, a.graph, scheduler.Options{
		Strategy:    a.cfg.Strategy,
		Generations: a.cfg.Generations,
		Seed:        a.cfg.Seed,
		Workers:     a.cfg.Workers,
	})
	if err != nil {
		return err
	}

	out := scheduler.Marshal(sched)
	if a.cfg.OutputPath == "" {
		_, err = a.outW.Write(out)
		return err
	}
	if err := os.WriteFile(a.cfg.OutputPath, out, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(a.outW, "schedule written to %s (makespan %s)\n", a.cfg.OutputPath, sched.Makespan)
	return nil
}

func (a *App) runExecute(ctx context.Context) error {
	p, err := a.loadProcedure(a.cfg.Procedures[0])
	if err != nil {
		return err
	}

	var drv device.Driver
	switch a.cfg.Driver {
	case "sim":
		drv = device.NewSim()
	case "remote":
		remote, err := device.DialRemote(ctx, device.RemoteConfig{
			URL:                a.cfg.RigURL,
			Namespace:          a.cfg.RigNamespace,
			InsecureSkipVerify: a.cfg.RigInsecure,
		})
		if err != nil {
			return err
		}
		defer remote.Close()
		drv = remote
	default:
		return fmt.Errorf("unknown driver %q", a.cfg.Driver)
	}

	return executor.New(a.graph, drv).Execute(ctx, p)
}

func (a *App) runDescribe(ctx context.Context) error {
	frozen, err := a.compileAll(ctx)
	if err != nil {
		return err
	}
	for _, p := range frozen {
		fmt.Fprintf(a.outW, "%s:\n", p.Name)
		describeSteps(a, p.Steps, 1)
	}
	return nil
}

func describeSteps(a *App, list []*step.Step, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, s := range list {
		fmt.Fprintf(a.outW, "%s%s\n", indent, s.Describe())
		if len(s.Block) > 0 {
			describeSteps(a, s.Block, depth+1)
		}
		if len(s.Children) > 0 {
			describeSteps(a, s.Children, depth+1)
		}
	}
}
