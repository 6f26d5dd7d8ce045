package observ

import (
	"fmt"
	"time"
)

// Phase names a stage of the analysis pipeline. The engine runs the
// exported phases below in declaration order.
type Phase string

const (
	// PhaseInfer covers the inferred-alias fixpoint rounds.
	PhaseInfer Phase = "infer"
	// PhaseCaptures covers capture propagation over the condensation.
	PhaseCaptures Phase = "captures"
	// PhaseConflicts covers per-function borrow liveness checking.
	PhaseConflicts Phase = "conflicts"
	// PhaseObligations covers entry-root and dynamic-impl checks.
	PhaseObligations Phase = "obligations"
)

type sample struct {
	phase Phase
	start time.Time
	dur   time.Duration
	note  string
}

// Timer tracks how long each analysis phase took within one run.
type Timer struct {
	samples []sample
}

// NewTimer creates a new empty Timer.
func NewTimer() *Timer { return &Timer{samples: make([]sample, 0, 8)} }

// Time starts tracking a phase. The returned stop function finishes the
// sample and attaches an optional note, e.g. "3 rounds".
func (t *Timer) Time(p Phase) func(note string) {
	t.samples = append(t.samples, sample{phase: p, start: time.Now()})
	idx := len(t.samples) - 1
	return func(note string) {
		s := &t.samples[idx]
		s.dur = time.Since(s.start)
		s.note = note
	}
}

// Summary returns a human-readable string summarizing all tracked phases.
func (t *Timer) Summary() string {
	report := t.Report()
	out := "timings:\n"
	for _, p := range report.Phases {
		out += fmt.Sprintf("  %-20s %7.2f ms", p.Phase, p.DurationMS)
		if p.Note != "" {
			out += "  // " + p.Note
		}
		out += "\n"
	}
	out += fmt.Sprintf("  %-20s %7.2f ms\n", "total", report.TotalMS)
	return out
}

// PhaseReport представляет сжатую информацию о фазе для сериализации.
type PhaseReport struct {
	Phase      Phase   `json:"phase"`
	DurationMS float64 `json:"duration_ms"`
	Note       string  `json:"note,omitempty"`
}

// Report описывает агрегированные данные таймера.
type Report struct {
	TotalMS float64       `json:"total_ms"`
	Phases  []PhaseReport `json:"phases"`
}

// Report формирует срез фаз и общую длительность в миллисекундах.
func (t *Timer) Report() Report {
	if len(t.samples) == 0 {
		return Report{}
	}
	report := Report{
		Phases: make([]PhaseReport, len(t.samples)),
	}
	var total time.Duration
	for i, s := range t.samples {
		total += s.dur
		report.Phases[i] = PhaseReport{
			Phase:      s.phase,
			DurationMS: durationToMillis(s.dur),
			Note:       s.note,
		}
	}
	report.TotalMS = durationToMillis(total)
	return report
}

func durationToMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
