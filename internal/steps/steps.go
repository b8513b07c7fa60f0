// Package steps declares every step kind the compiler knows: abstract
// steps and their expansions, base device commands, dynamic sensor waits,
// async blocks and declared-but-unimplemented placeholders.
package steps

import (
	"github.com/mcrav/xdl/internal/step"
)

// Defaults applied by step schemas. All values are canonical units
// (mL, s, °C, RPM, mL/min).
const (
	DefaultMoveSpeed              = 40.0 // mL/min
	DefaultAspirationSpeed        = 10.0 // mL/min
	DefaultDispenseSpeed          = 40.0 // mL/min
	DefaultViscousAspirationSpeed = 2.0  // mL/min

	DefaultStirSpeed = 250.0 // RPM

	DefaultPrimeVolume    = 3.0  // mL pushed through the line before an Add
	DefaultAirFlushVolume = 5.0  // mL of gas used to flush the delivery line
	DefaultAfterAddWait   = 10.0 // s

	DefaultSettleTime    = 300.0 // s, phase separation settling
	DefaultTempTolerance = 1.0   // °C, dynamic temperature wait
)

// Register adds every step definition to the registry.
func Register(r *step.Registry) {
	// Base device commands.
	r.Register(cMoveDef)
	r.Register(cWaitDef)
	r.Register(cConfirmDef)
	r.Register(cStartStirDef)
	r.Register(cStopStirDef)
	r.Register(cSetStirRateDef)
	r.Register(cStartHeatDef)
	r.Register(cStopHeatDef)
	r.Register(cStartVacuumDef)
	r.Register(cStopVacuumDef)
	r.Register(cRotateStartDef)
	r.Register(cRotateStopDef)

	// Abstract steps.
	r.Register(addDef)
	r.Register(primePumpDef)
	r.Register(transferDef)
	r.Register(startStirDef)
	r.Register(stopStirDef)
	r.Register(stirDef)
	r.Register(heatChillDef)
	r.Register(filterDef)
	r.Register(separateDef)
	r.Register(evaporateDef)
	r.Register(waitDef)
	r.Register(repeatDef)
	r.Register(shutdownDef)

	// Dynamic, async and placeholder steps.
	r.Register(waitForTempDef)
	r.Register(asyncDef)
	r.Register(awaitDef)
	r.Register(recrystallizeDef)
}

// NewRegistry returns a registry with every kind registered. Convenience
// for the compiler entry points and tests.
func NewRegistry() *step.Registry {
	r := step.NewRegistry()
	Register(r)
	return r
}

// mk builds a substep during expansion: a fresh step of the given
// definition with the supplied properties, with schema defaults applied to
// anything left unset. Internal properties of substeps are filled later by
// the resolver pass over the expanded tree.
func mk(def *step.Definition, props map[string]any) *step.Step {
	s := step.New(def)
	for k, v := range props {
		if v == nil {
			continue
		}
		s.Props[k] = v
	}
	for _, spec := range def.Props {
		if !s.Has(spec.Name) && spec.Default != nil {
			s.Props[spec.Name] = spec.Default
		}
	}
	return s
}
