// Package device defines the driver boundary between the compiled core
// and the physical rig: one blocking call per base step kind, plus sensor
// reads for dynamic steps. The executor never talks to hardware except
// through a Driver.
package device

import (
	"context"
	"time"
)

// MoveParams carries everything a liquid move needs. Speeds are mL/min,
// volume is mL.
type MoveParams struct {
	From      string
	To        string
	FromPort  string
	ToPort    string
	Through   string
	Volume    float64
	MoveSpeed float64
	// AspirationSpeed applies while drawing from the source,
	// DispenseSpeed while delivering to the target.
	AspirationSpeed float64
	DispenseSpeed   float64
}

// Driver is the device-command surface. Every call blocks until the rig
// acknowledges the command or the context is cancelled. The core never
// retries a failed command; retry policy belongs to the driver.
type Driver interface {
	Move(ctx context.Context, p MoveParams) error

	StartStir(ctx context.Context, vessel string, speed float64) error
	StopStir(ctx context.Context, vessel string) error
	SetStirRate(ctx context.Context, vessel string, speed float64) error

	StartHeat(ctx context.Context, vessel string, temp float64) error
	StopHeat(ctx context.Context, vessel string) error

	StartVacuum(ctx context.Context, vessel string, pressure float64) error
	StopVacuum(ctx context.Context, vessel string) error

	StartRotation(ctx context.Context, vessel string, speed float64) error
	StopRotation(ctx context.Context, vessel string) error

	Wait(ctx context.Context, d time.Duration) error
	Confirm(ctx context.Context, msg string) error

	ReadTemp(ctx context.Context, vessel string) (float64, error)
}
