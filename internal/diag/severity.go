package diag

// Severity ranks how seriously a diagnostic affects a unit. Analysis keeps
// going after errors so one run can carry any mix of levels.
type Severity uint8

const (
	// SevInfo marks advisory output, such as phase timing reports.
	SevInfo Severity = iota
	// SevWarning marks findings that do not invalidate the capture
	// analysis.
	SevWarning
	// SevError marks capture, borrow or description violations; any
	// present makes the run fail.
	SevError
)

// String returns the uppercase display form.
func (s Severity) String() string {
	switch s {
	case SevInfo:
		return "INFO"
	case SevWarning:
		return "WARNING"
	case SevError:
		return "ERROR"
	}
	return "UNKNOWN"
}

// Wire returns the lowercase form used in machine-readable output. It is a
// stable contract; String is free to change with the display.
func (s Severity) Wire() string {
	switch s {
	case SevInfo:
		return "info"
	case SevWarning:
		return "warning"
	case SevError:
		return "error"
	}
	return "unknown"
}
