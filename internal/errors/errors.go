// Package errors provides the diagnostic taxonomy used by the template
// compiler and renderer, along with collection and HTML overlay helpers
// for development-friendly error reporting.
//
// Every compile-time failure is an *EdgeError carrying a stable code, the
// template filename, line and column of the offending token and a message
// reproducing the snippet. Collections of diagnostics are gathered with an
// ErrorCollector, which is safe for concurrent use.
package errors

import (
	"errors"
	"fmt"
	"html"
	"sort"
	"strings"
	"sync"
	"time"
)

// Diagnostic is a collected template error
type Diagnostic struct {
	Template  string
	File      string
	Line      int
	Column    int
	Code      string
	Message   string
	Severity  ErrorSeverity
	Timestamp time.Time
}

// ErrorSeverity represents the severity of an error
type ErrorSeverity int

const (
	ErrorSeverityInfo ErrorSeverity = iota
	ErrorSeverityWarning
	ErrorSeverityError
	ErrorSeverityFatal
)

// String returns the string representation of the severity
func (s ErrorSeverity) String() string {
	switch s {
	case ErrorSeverityInfo:
		return "info"
	case ErrorSeverityWarning:
		return "warning"
	case ErrorSeverityError:
		return "error"
	case ErrorSeverityFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Error implements the error interface
func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s: [%s] %s", d.File, d.Line, d.Column, d.Severity, d.Code, d.Message)
}

// NewDiagnostic converts err into a Diagnostic for the named template.
func NewDiagnostic(template string, err error) Diagnostic {
	d := Diagnostic{
		Template: template,
		File:     template,
		Message:  err.Error(),
		Severity: ErrorSeverityError,
	}

	var ee *EdgeError
	if errors.As(err, &ee) {
		d.Code = ee.Code
		d.Message = ee.Message
		d.Line = ee.Line
		d.Column = ee.Column
		if ee.Filename != "" {
			d.File = ee.Filename
		}
	}

	return d
}

// ErrorCollector collects diagnostics and general errors
type ErrorCollector struct {
	diagnostics []Diagnostic
	errors      []error
	mutex       sync.RWMutex
}

// NewErrorCollector creates a new error collector
func NewErrorCollector() *ErrorCollector {
	return &ErrorCollector{
		diagnostics: make([]Diagnostic, 0),
		errors:      make([]error, 0),
	}
}

// Add adds a diagnostic to the collector
func (ec *ErrorCollector) Add(d Diagnostic) {
	ec.mutex.Lock()
	defer ec.mutex.Unlock()
	d.Timestamp = time.Now()
	ec.diagnostics = append(ec.diagnostics, d)
}

// AddError adds an error to the collector. Template errors become diagnostics.
func (ec *ErrorCollector) AddError(template string, err error) {
	if err == nil {
		return
	}
	if _, ok := KindOf(err); ok {
		ec.Add(NewDiagnostic(template, err))
		return
	}
	ec.mutex.Lock()
	defer ec.mutex.Unlock()
	ec.errors = append(ec.errors, err)
}

// GetDiagnostics returns the collected diagnostics ordered by file and line
func (ec *ErrorCollector) GetDiagnostics() []Diagnostic {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()

	result := make([]Diagnostic, len(ec.diagnostics))
	copy(result, ec.diagnostics)
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].File != result[j].File {
			return result[i].File < result[j].File
		}
		return result[i].Line < result[j].Line
	})
	return result
}

// GetAllErrors returns all collected errors
func (ec *ErrorCollector) GetAllErrors() []error {
	diagnostics := ec.GetDiagnostics()

	ec.mutex.RLock()
	defer ec.mutex.RUnlock()

	all := make([]error, 0, len(diagnostics)+len(ec.errors))
	for i := range diagnostics {
		all = append(all, &diagnostics[i])
	}
	all = append(all, ec.errors...)

	return all
}

// HasErrors returns true if there are any errors
func (ec *ErrorCollector) HasErrors() bool {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	return len(ec.diagnostics) > 0 || len(ec.errors) > 0
}

// Clear clears all errors
func (ec *ErrorCollector) Clear() {
	ec.mutex.Lock()
	defer ec.mutex.Unlock()
	ec.diagnostics = ec.diagnostics[:0]
	ec.errors = ec.errors[:0]
}

// RemoveTemplate drops every diagnostic recorded for template
func (ec *ErrorCollector) RemoveTemplate(template string) {
	ec.mutex.Lock()
	defer ec.mutex.Unlock()
	kept := ec.diagnostics[:0]
	for _, d := range ec.diagnostics {
		if d.Template != template {
			kept = append(kept, d)
		}
	}
	ec.diagnostics = kept
}

// GetByTemplate returns diagnostics for a specific template
func (ec *ErrorCollector) GetByTemplate(template string) []Diagnostic {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	var out []Diagnostic
	for _, d := range ec.diagnostics {
		if d.Template == template {
			out = append(out, d)
		}
	}
	return out
}

// ErrorOverlay generates HTML for the preview error overlay
func (ec *ErrorCollector) ErrorOverlay() string {
	diagnostics := ec.GetDiagnostics()
	if len(diagnostics) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(`
<div id="edge-error-overlay" style="
	position: fixed;
	top: 0;
	left: 0;
	width: 100%;
	height: 100%;
	background: rgba(0, 0, 0, 0.8);
	color: white;
	font-family: 'Monaco', 'Menlo', monospace;
	font-size: 14px;
	z-index: 9999;
	padding: 20px;
	box-sizing: border-box;
	overflow: auto;
">
	<div style="max-width: 1000px; margin: 0 auto;">
		<h2 style="margin: 0 0 20px; color: #ff6b6b;">Template Errors</h2>
		<div>`)

	for _, d := range diagnostics {
		severityColor := "#ff6b6b"
		switch d.Severity {
		case ErrorSeverityWarning:
			severityColor = "#feca57"
		case ErrorSeverityInfo:
			severityColor = "#48dbfb"
		}

		fmt.Fprintf(&b, `
			<div style="background: #2d3748; padding: 15px; margin-bottom: 15px; border-left: 4px solid %s;">
				<div style="color: %s; font-weight: bold;">%s %s</div>
				<div style="color: #e2e8f0; margin: 5px 0;"><strong>%s</strong></div>
				<div style="color: #a0aec0; font-size: 12px;">%s:%d:%d</div>
			</div>`,
			severityColor, severityColor, d.Severity.String(), html.EscapeString(d.Code),
			html.EscapeString(d.Message), html.EscapeString(d.File), d.Line, d.Column)
	}

	b.WriteString(`
		</div>
	</div>
</div>`)

	return b.String()
}
