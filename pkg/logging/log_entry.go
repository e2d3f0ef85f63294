package logging

// LogEntry represents a structured log record emitted by the selection engine.
type LogEntry struct {
	// Standard fields
	Time     int64
	Severity Severity
	Message  string
	File     string
	Line     int
	Function string

	// Optimization-specific fields
	Generation int     // Generation the entry refers to, -1 when not applicable
	RunID      string  // Optimization run the entry belongs to
	FrontCount int     // Number of Pareto fronts at emission time
	Elapsed    int64   // Operation duration in milliseconds
	HV         float64 // Frontier hypervolume, when known

	// General structured data
	Fields map[string]interface{}
}
