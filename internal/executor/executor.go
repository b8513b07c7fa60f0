// Package executor replays a frozen artifact against a device driver: one
// blocking driver call per base leaf, dynamic steps polled against live
// sensors, async blocks on background goroutines joined at their Await.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/mcrav/xdl/internal/ctxlog"
	"github.com/mcrav/xdl/internal/device"
	"github.com/mcrav/xdl/internal/errs"
	"github.com/mcrav/xdl/internal/graph"
	"github.com/mcrav/xdl/internal/procedure"
	"github.com/mcrav/xdl/internal/step"
)

// pollInterval is how often dynamic steps re-read their sensor.
const pollInterval = 2 * time.Second

// Executor runs frozen artifacts on one rig.
type Executor struct {
	g   *graph.Graph
	drv device.Driver
}

// New creates an executor for the given graph and driver.
func New(g *graph.Graph, drv device.Driver) *Executor {
	return &Executor{g: g, drv: drv}
}

// Execute runs a frozen artifact to completion. The artifact must have
// been compiled against the executor's graph; executing against a changed
// rig is refused up front rather than failing halfway through a synthesis.
func (e *Executor) Execute(ctx context.Context, p *procedure.Procedure) error {
	log := ctxlog.FromContext(ctx)

	if !p.Frozen() {
		return fmt.Errorf("procedure %s is not compiled", p.Name)
	}
	if hash := e.g.Hash(); p.GraphHash != hash {
		return &errs.StaleArtifactError{Procedure: p.Name, Want: p.GraphHash, Got: hash}
	}

	log.Info("▶️ executing procedure", "name", p.Name)

	run := &run{exec: e, async: map[string]chan error{}}
	if err := run.steps(ctx, p.Steps); err != nil {
		return err
	}
	// Anything still running at the end was released by a Shutdown rather
	// than an Await; collect the goroutines before returning.
	for pid, done := range run.async {
		if err := <-done; err != nil {
			return fmt.Errorf("async %s: %w", pid, err)
		}
	}

	log.Info("🏁 procedure finished", "name", p.Name)
	return nil
}

// run is the per-execution state: the handles of in-flight async blocks.
type run struct {
	exec  *Executor
	async map[string]chan error
}

func (r *run) steps(ctx context.Context, list []*step.Step) error {
	for _, s := range list {
		if err := r.step(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) step(ctx context.Context, s *step.Step) error {
	log := ctxlog.FromContext(ctx)

	switch {
	case s.Class() == step.Abstract:
		if len(s.Children) == 0 {
			return fmt.Errorf("%s: abstract step has no expansion", s.Kind)
		}
		return r.steps(ctx, s.Children)

	case s.Kind == "Async":
		return r.startAsync(ctx, s)

	case s.Kind == "Await":
		return r.await(ctx, s.Str("pid"))

	case s.Class() == step.Dynamic:
		return r.dynamic(ctx, s)
	}

	log.Debug("step", "kind", s.Kind, "desc", s.Describe())
	return r.dispatch(ctx, s)
}

// startAsync launches the block's leaves on a goroutine keyed by pid. The
// sanity checker has already guaranteed a matching join exists.
func (r *run) startAsync(ctx context.Context, s *step.Step) error {
	pid := s.Str("pid")
	if _, dup := r.async[pid]; dup {
		return fmt.Errorf("async pid %q already running", pid)
	}
	log := ctxlog.FromContext(ctx)
	log.Info("starting async block", "pid", pid, "steps", len(s.Block))

	done := make(chan error, 1)
	r.async[pid] = done
	block := s.Block
	go func() {
		sub := &run{exec: r.exec, async: map[string]chan error{}}
		done <- sub.steps(ctx, block)
	}()
	return nil
}

func (r *run) await(ctx context.Context, pid string) error {
	done, ok := r.async[pid]
	if !ok {
		return fmt.Errorf("await for pid %q with nothing running", pid)
	}
	delete(r.async, pid)

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("async %s: %w", pid, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// dynamic polls the step's sensor condition until it holds or the declared
// timeout elapses. Only temperature waits exist today.
func (r *run) dynamic(ctx context.Context, s *step.Step) error {
	if s.Kind != "WaitForTemp" {
		return fmt.Errorf("unknown dynamic step kind %q", s.Kind)
	}
	vessel := s.Str("vessel")
	target := s.Float("temp")
	tolerance := s.Float("tolerance")
	timeout := s.Duration("timeout")

	log := ctxlog.FromContext(ctx)
	log.Info("waiting for temperature", "vessel", vessel, "target", target)

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	tick := time.NewTicker(pollInterval)
	defer tick.Stop()

	for {
		temp, err := r.exec.drv.ReadTemp(ctx, vessel)
		if err != nil {
			return err
		}
		if diff := temp - target; diff >= -tolerance && diff <= tolerance {
			log.Debug("temperature reached", "vessel", vessel, "temp", temp)
			return nil
		}
		select {
		case <-tick.C:
		case <-deadline.C:
			return &errs.TimeoutError{Step: s.Describe(), After: timeout}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// dispatch maps one base leaf to its driver call.
func (r *run) dispatch(ctx context.Context, s *step.Step) error {
	drv := r.exec.drv
	switch s.Kind {
	case "CMove":
		return drv.Move(ctx, device.MoveParams{
			From:            s.Str("from_vessel"),
			To:              s.Str("to_vessel"),
			FromPort:        s.Str("from_port"),
			ToPort:          s.Str("to_port"),
			Through:         s.Str("through"),
			Volume:          s.Float("volume"),
			MoveSpeed:       s.Float("move_speed"),
			AspirationSpeed: s.Float("aspiration_speed"),
			DispenseSpeed:   s.Float("dispense_speed"),
		})
	case "CWait":
		return drv.Wait(ctx, s.Duration("time"))
	case "CConfirm":
		return drv.Confirm(ctx, s.Str("msg"))
	case "CStartStir":
		return drv.StartStir(ctx, s.Str("vessel"), s.Float("stir_speed"))
	case "CStopStir":
		return drv.StopStir(ctx, s.Str("vessel"))
	case "CSetStirRate":
		return drv.SetStirRate(ctx, s.Str("vessel"), s.Float("stir_speed"))
	case "CStartHeat":
		return drv.StartHeat(ctx, s.Str("vessel"), s.Float("temp"))
	case "CStopHeat":
		return drv.StopHeat(ctx, s.Str("vessel"))
	case "CStartVacuum":
		return drv.StartVacuum(ctx, s.Str("vessel"), s.Float("pressure"))
	case "CStopVacuum":
		return drv.StopVacuum(ctx, s.Str("vessel"))
	case "CRotateStart":
		return drv.StartRotation(ctx, s.Str("vessel"), s.Float("rotation_speed"))
	case "CRotateStop":
		return drv.StopRotation(ctx, s.Str("vessel"))
	}
	return fmt.Errorf("no driver mapping for step kind %q", s.Kind)
}
