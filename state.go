package probcut

// State is the position of a job in the extraction pipeline. States
// advance linearly; RunningStage2 and ValidatingFinal are entered only
// when the decision step escalates. Failed is reachable from any
// state.
type State int

const (
	StateInitial State = iota
	StateConvertingPdf
	StateDetectingLayout
	StateSeparatingColumns
	StateRunningStage1
	StateValidatingStage1
	StateDeciding
	StateRunningStage2
	StateValidatingFinal
	StateGeneratingFiles
	StatePackaging
	StateComplete
	StateFailed
)

var stateNames = map[State]string{
	StateInitial:           "initial",
	StateConvertingPdf:     "converting_pdf",
	StateDetectingLayout:   "detecting_layout",
	StateSeparatingColumns: "separating_columns",
	StateRunningStage1:     "running_stage1",
	StateValidatingStage1:  "validating_stage1",
	StateDeciding:          "deciding",
	StateRunningStage2:     "running_stage2",
	StateValidatingFinal:   "validating_final",
	StateGeneratingFiles:   "generating_files",
	StatePackaging:         "packaging",
	StateComplete:          "complete",
	StateFailed:            "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether the job has finished.
func (s State) Terminal() bool {
	return s == StateComplete || s == StateFailed
}

// Decision is the outcome of the deciding step after stage-1
// validation.
type Decision int

const (
	// DecisionAccept means every expected number was found.
	DecisionAccept Decision = iota

	// DecisionEscalate re-runs the columns missing numbers with the
	// accurate engine.
	DecisionEscalate

	// DecisionPartial proceeds with what stage 1 found; too many
	// numbers are missing for escalation to be worth paying for, or
	// no accurate engine is usable.
	DecisionPartial
)

func (d Decision) String() string {
	switch d {
	case DecisionAccept:
		return "accept"
	case DecisionEscalate:
		return "escalate"
	default:
		return "partial"
	}
}

// escalationLimit is the largest number of missing problems that
// triggers a paid accurate-tier re-read.
const escalationLimit = 3

// decide applies the escalation rule: accept on full coverage,
// escalate when few numbers are missing and an accurate engine can
// run, settle for partial results otherwise.
func decide(missing int, accurateUsable bool) Decision {
	switch {
	case missing == 0:
		return DecisionAccept
	case missing <= escalationLimit && accurateUsable:
		return DecisionEscalate
	default:
		return DecisionPartial
	}
}

// StageParams are the tunables of one stage-1 attempt. They are
// immutable; a retry derives the next attempt's values with Relax
// rather than mutating shared state.
type StageParams struct {
	// Attempt counts from 1.
	Attempt int

	// MinConfidence drops OCR spans below this confidence.
	MinConfidence float64

	// MarkerBand is how far from the column's left edge, in pixels,
	// a marker may sit and still be trusted.
	MarkerBand int
}

// Relaxation steps per retry. Each retry widens the band and lowers
// the confidence floor; neither ever tightens.
const (
	bandWidenStep    = 300
	confidenceStep   = 0.15
	confidenceFloor  = 0.1
	defaultBandWidth = 600
)

// initialParams returns the attempt-1 parameters.
func initialParams(minConfidence float64) StageParams {
	return StageParams{
		Attempt:       1,
		MinConfidence: minConfidence,
		MarkerBand:    defaultBandWidth,
	}
}

// Relax derives the parameters for the next attempt. The result is
// always at least as permissive as the receiver.
func (p StageParams) Relax() StageParams {
	next := StageParams{
		Attempt:       p.Attempt + 1,
		MinConfidence: p.MinConfidence - confidenceStep,
		MarkerBand:    p.MarkerBand + bandWidenStep,
	}
	if next.MinConfidence < confidenceFloor {
		next.MinConfidence = confidenceFloor
	}
	return next
}
