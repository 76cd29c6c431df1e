package generic

import (
	"fmt"
	"log"
	"sync"
)

// =============================================================================
// SUMMARY - Validation/reporting sink for non-fatal diagnostics
// =============================================================================

// Summary receives diagnostics from the engine. The engine only writes to it.
type Summary interface {
	Warning(source Model, message string)
	Error(source Model, message string)
}

type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Diagnostic is one message written to a Summary.
type Diagnostic struct {
	Severity Severity
	Source   string
	Message  string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("[%s] %s: %s", d.Severity, d.Source, d.Message)
}

// LogSummary writes diagnostics to a standard logger.
type LogSummary struct {
	Logger *log.Logger
}

func (s LogSummary) Warning(source Model, message string) {
	s.printf("[Summary] WARNING %s: %s", sourceName(source), message)
}

func (s LogSummary) Error(source Model, message string) {
	s.printf("[Summary] ERROR %s: %s", sourceName(source), message)
}

func (s LogSummary) printf(format string, args ...any) {
	if s.Logger == nil {
		log.Printf(format, args...)
		return
	}
	s.Logger.Printf(format, args...)
}

// RecordingSummary keeps diagnostics in memory, optionally forwarding them.
type RecordingSummary struct {
	mu          sync.Mutex
	diagnostics []Diagnostic
	Next        Summary
}

func (s *RecordingSummary) Warning(source Model, message string) {
	s.add(SeverityWarning, source, message)
	if s.Next != nil {
		s.Next.Warning(source, message)
	}
}

func (s *RecordingSummary) Error(source Model, message string) {
	s.add(SeverityError, source, message)
	if s.Next != nil {
		s.Next.Error(source, message)
	}
}

func (s *RecordingSummary) add(sev Severity, source Model, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.diagnostics = append(s.diagnostics, Diagnostic{Severity: sev, Source: sourceName(source), Message: message})
}

// Diagnostics returns a copy of everything recorded so far.
func (s *RecordingSummary) Diagnostics() []Diagnostic {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]Diagnostic, len(s.diagnostics))
	copy(result, s.diagnostics)
	return result
}

func sourceName(m Model) string {
	if m == nil {
		return "simulation"
	}
	return m.Name()
}

// DiscardSummary drops every diagnostic.
type DiscardSummary struct{}

func (DiscardSummary) Warning(Model, string) {}
func (DiscardSummary) Error(Model, string)   {}
