package errors

import (
	"fmt"
	"time"
)

// ConversionError is an error raised while turning a rendered page into a
// fillable document, with enough context to find the offending page or field
type ConversionError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Stage      string    `json:"stage,omitempty"`
	FilePath   string    `json:"file_path,omitempty"`
	PageNumber int       `json:"page_number,omitempty"` // 1-based, 0 when not page specific
	FieldName  string    `json:"field_name,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	Err        error     `json:"-"`
}

// ErrorType classifies conversion errors
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeSourceUnavailable
	ErrorTypeRenderFailure
	ErrorTypeInvalidFieldList
	ErrorTypeWidgetConstructionDegraded
	ErrorTypePageCountMismatch
	ErrorTypeMergeFailure
	ErrorTypeWriteFailure
)

// ErrorSeverity indicates how critical an error is
type ErrorSeverity int

const (
	SeverityInfo ErrorSeverity = iota
	SeverityWarning
	SeverityError
	SeverityFatal
)

// Error implements the error interface
func (e *ConversionError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Type.String(), e.Message)
	if e.PageNumber > 0 {
		msg += fmt.Sprintf(" (page %d)", e.PageNumber)
	}
	if e.FieldName != "" {
		msg += fmt.Sprintf(" (field %q)", e.FieldName)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause
func (e *ConversionError) Unwrap() error {
	return e.Err
}

// Is matches another ConversionError of the same type, so callers can test
// errors.Is(err, &ConversionError{Type: ErrorTypeMergeFailure})
func (e *ConversionError) Is(target error) bool {
	t, ok := target.(*ConversionError)
	if !ok {
		return false
	}
	return t.Type == e.Type
}

// String returns a string representation of the ErrorType
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeSourceUnavailable:
		return "SOURCE_UNAVAILABLE"
	case ErrorTypeRenderFailure:
		return "RENDER_FAILURE"
	case ErrorTypeInvalidFieldList:
		return "INVALID_FIELD_LIST"
	case ErrorTypeWidgetConstructionDegraded:
		return "WIDGET_CONSTRUCTION_DEGRADED"
	case ErrorTypePageCountMismatch:
		return "PAGE_COUNT_MISMATCH"
	case ErrorTypeMergeFailure:
		return "MERGE_FAILURE"
	case ErrorTypeWriteFailure:
		return "WRITE_FAILURE"
	default:
		return "UNKNOWN"
	}
}

// GetSeverity returns the severity level for a given error type
func (et ErrorType) GetSeverity() ErrorSeverity {
	switch et {
	case ErrorTypePageCountMismatch:
		return SeverityInfo
	case ErrorTypeWidgetConstructionDegraded:
		return SeverityWarning
	case ErrorTypeSourceUnavailable, ErrorTypeMergeFailure, ErrorTypeWriteFailure:
		return SeverityFatal
	default:
		return SeverityError
	}
}

// IsFatal reports whether an error of this type aborts the run. Field level
// degradation and page count differences are absorbed locally.
func (et ErrorType) IsFatal() bool {
	switch et {
	case ErrorTypeWidgetConstructionDegraded, ErrorTypePageCountMismatch:
		return false
	default:
		return true
	}
}

// New creates a ConversionError of the given type
func New(errorType ErrorType, message string) *ConversionError {
	return &ConversionError{
		Type:      errorType,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// Wrap wraps err as a ConversionError of the given type
func Wrap(errorType ErrorType, message string, err error) *ConversionError {
	e := New(errorType, message)
	e.Err = err
	return e
}

// NewSourceUnavailable reports a source document that cannot be loaded
func NewSourceUnavailable(path string, err error) *ConversionError {
	return Wrap(ErrorTypeSourceUnavailable, "source document cannot be loaded", err).WithFile(path)
}

// NewMergeFailure reports a page pair the compositor rejected. page is 1-based.
func NewMergeFailure(page int, err error) *ConversionError {
	return Wrap(ErrorTypeMergeFailure, "failed to composite overlay page", err).WithPage(page)
}

// NewDegraded records a widget that fell back to the bare style
func NewDegraded(fieldName string, reason error) *ConversionError {
	return Wrap(ErrorTypeWidgetConstructionDegraded, "requested widget style not honored, using bare style", reason).
		WithField(fieldName)
}

// WithStage records the pipeline stage the error happened in
func (e *ConversionError) WithStage(stage string) *ConversionError {
	e.Stage = stage
	return e
}

// WithFile adds file path information to an existing ConversionError
func (e *ConversionError) WithFile(filePath string) *ConversionError {
	e.FilePath = filePath
	return e
}

// WithPage adds page number information to an existing ConversionError
func (e *ConversionError) WithPage(pageNumber int) *ConversionError {
	e.PageNumber = pageNumber
	return e
}

// WithField adds the offending field name
func (e *ConversionError) WithField(name string) *ConversionError {
	e.FieldName = name
	return e
}

// GetSeverity returns the severity of this specific error
func (e *ConversionError) GetSeverity() ErrorSeverity {
	return e.Type.GetSeverity()
}

// IsFatal reports whether this error aborts the run
func (e *ConversionError) IsFatal() bool {
	return e.Type.IsFatal()
}

// ErrorCollection gathers the non-fatal findings of a run
type ErrorCollection struct {
	Errors   []*ConversionError `json:"errors"`
	Warnings []*ConversionError `json:"warnings"`
}

// NewErrorCollection creates a new error collection
func NewErrorCollection() *ErrorCollection {
	return &ErrorCollection{
		Errors:   make([]*ConversionError, 0),
		Warnings: make([]*ConversionError, 0),
	}
}

// Add adds an error to the appropriate list based on severity
func (ec *ErrorCollection) Add(err *ConversionError) {
	severity := err.GetSeverity()
	if severity == SeverityWarning || severity == SeverityInfo {
		ec.Warnings = append(ec.Warnings, err)
	} else {
		ec.Errors = append(ec.Errors, err)
	}
}

// Merge appends all entries of other
func (ec *ErrorCollection) Merge(other *ErrorCollection) {
	if other == nil {
		return
	}
	ec.Errors = append(ec.Errors, other.Errors...)
	ec.Warnings = append(ec.Warnings, other.Warnings...)
}

// OfType returns the warnings and errors of a given type, in insertion order
func (ec *ErrorCollection) OfType(t ErrorType) []*ConversionError {
	var out []*ConversionError
	for _, e := range ec.Errors {
		if e.Type == t {
			out = append(out, e)
		}
	}
	for _, e := range ec.Warnings {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// Count returns the total number of errors and warnings
func (ec *ErrorCollection) Count() (errors, warnings int) {
	return len(ec.Errors), len(ec.Warnings)
}

// Summary returns a text summary of all errors and warnings
func (ec *ErrorCollection) Summary() string {
	errorCount, warningCount := ec.Count()
	if errorCount == 0 && warningCount == 0 {
		return "No errors or warnings"
	}
	return fmt.Sprintf("Found %d error(s) and %d warning(s)", errorCount, warningCount)
}
