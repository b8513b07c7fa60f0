package device

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Sim is the in-process simulation driver. Commands succeed instantly
// (waits can optionally be scaled to real time), every call is recorded,
// and vessel temperatures are settable so tests and dry runs can exercise
// dynamic steps.
type Sim struct {
	// TimeScale stretches Wait calls: 0 completes them immediately, 1
	// waits in real time. Temperature approach in dry runs is modelled
	// by tests setting temps directly.
	TimeScale float64

	mu    sync.Mutex
	log   []string
	temps map[string]float64
}

// NewSim creates a simulation driver with all waits elided.
func NewSim() *Sim {
	return &Sim{temps: map[string]float64{}}
}

// SetTemp sets the simulated reading of a vessel's temperature sensor.
func (s *Sim) SetTemp(vessel string, temp float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.temps[vessel] = temp
}

// Commands returns every command issued so far, in order.
func (s *Sim) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.log...)
}

func (s *Sim) record(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log = append(s.log, fmt.Sprintf(format, args...))
}

func (s *Sim) Move(ctx context.Context, p MoveParams) error {
	s.record("move %s->%s %.4g", p.From, p.To, p.Volume)
	return ctx.Err()
}

func (s *Sim) StartStir(ctx context.Context, vessel string, speed float64) error {
	s.record("start_stir %s %.4g", vessel, speed)
	return ctx.Err()
}

func (s *Sim) StopStir(ctx context.Context, vessel string) error {
	s.record("stop_stir %s", vessel)
	return ctx.Err()
}

func (s *Sim) SetStirRate(ctx context.Context, vessel string, speed float64) error {
	s.record("set_stir_rate %s %.4g", vessel, speed)
	return ctx.Err()
}

func (s *Sim) StartHeat(ctx context.Context, vessel string, temp float64) error {
	s.record("start_heat %s %.4g", vessel, temp)
	return ctx.Err()
}

func (s *Sim) StopHeat(ctx context.Context, vessel string) error {
	s.record("stop_heat %s", vessel)
	return ctx.Err()
}

func (s *Sim) StartVacuum(ctx context.Context, vessel string, pressure float64) error {
	s.record("start_vacuum %s %.4g", vessel, pressure)
	return ctx.Err()
}

func (s *Sim) StopVacuum(ctx context.Context, vessel string) error {
	s.record("stop_vacuum %s", vessel)
	return ctx.Err()
}

func (s *Sim) StartRotation(ctx context.Context, vessel string, speed float64) error {
	s.record("start_rotation %s %.4g", vessel, speed)
	return ctx.Err()
}

func (s *Sim) StopRotation(ctx context.Context, vessel string) error {
	s.record("stop_rotation %s", vessel)
	return ctx.Err()
}

func (s *Sim) Wait(ctx context.Context, d time.Duration) error {
	s.record("wait %s", d)
	if s.TimeScale <= 0 {
		return ctx.Err()
	}
	scaled := time.Duration(float64(d) * s.TimeScale)
	select {
	case <-time.After(scaled):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Sim) Confirm(ctx context.Context, msg string) error {
	s.record("confirm %q", msg)
	return ctx.Err()
}

func (s *Sim) ReadTemp(ctx context.Context, vessel string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.temps[vessel]
	if !ok {
		// Unset sensors read ambient.
		return 20, ctx.Err()
	}
	return t, ctx.Err()
}
