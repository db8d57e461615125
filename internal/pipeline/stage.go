// Package pipeline drives registered processors through the ordered build
// stages and offers every item of a pass to the per-item processors until each
// reaches a fixed point.
package pipeline

// Stage is a whole-pipeline phase of a build pass.
type Stage int

const (
	BeforeLoad Stage = iota
	BeforeInit
	BeforeProcess
	Process
	Run
	AfterProcess
	AfterRun
)

// ExecutionOrder is the order stages run in. Generators subscribed to
// AfterProcess run before the Run stage writer so their items get emitted.
var ExecutionOrder = []Stage{BeforeLoad, BeforeInit, BeforeProcess, Process, AfterProcess, Run, AfterRun}

func (s Stage) String() string {
	switch s {
	case BeforeLoad:
		return "before_load"
	case BeforeInit:
		return "before_init"
	case BeforeProcess:
		return "before_process"
	case Process:
		return "process"
	case Run:
		return "run"
	case AfterProcess:
		return "after_process"
	case AfterRun:
		return "after_run"
	default:
		return "unknown"
	}
}

// SubStage partitions the Process stage for item processors. Each sub-stage
// runs its own fixed-point loop.
type SubStage int

const (
	Prepare SubStage = iota
	Transform
	Finalize
)

// SubStages lists the sub-stages in execution order.
var SubStages = []SubStage{Prepare, Transform, Finalize}

func (s SubStage) String() string {
	switch s {
	case Prepare:
		return "prepare"
	case Transform:
		return "transform"
	case Finalize:
		return "finalize"
	default:
		return "unknown"
	}
}

// Result is what an item processor reports for one offer.
type Result int

const (
	// None means the processor had nothing (more) to do.
	None Result = iota
	// Continue means the item changed and the scan restarts from the top.
	Continue
	// Break ends processing of the item for the rest of the stage.
	Break
)

func (r Result) String() string {
	switch r {
	case Continue:
		return "continue"
	case Break:
		return "break"
	default:
		return "none"
	}
}

// Mode tells processors whether a pass rebuilds everything or a scoped subset.
type Mode int

const (
	Full Mode = iota
	Partial
)

func (m Mode) String() string {
	if m == Partial {
		return "partial"
	}
	return "full"
}
