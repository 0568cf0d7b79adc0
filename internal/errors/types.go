package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind categorises template diagnostics.
type Kind string

const (
	KindLex                  Kind = "lex"
	KindUnclosedStatement    Kind = "unclosed_statement"
	KindInvalidExpression    Kind = "invalid_expression"
	KindUnclosedTag          Kind = "unclosed_tag"
	KindUnknownTag           Kind = "unknown_tag"
	KindUnregisteredFunction Kind = "unregistered_function"
	KindTemplateNotFound     Kind = "template_not_found"
	KindRuntime              Kind = "runtime"
	KindConfig               Kind = "config"
	KindIO                   Kind = "io"
	KindInternal             Kind = "internal"
)

// Stable error codes.
const (
	ErrCodeUnclosedCurlyBrace    = "E_UNCLOSED_CURLY_BRACE"
	ErrCodeUnclosedParen         = "E_UNCLOSED_PAREN"
	ErrCodeCannotSeekStatement   = "E_CANNOT_SEEK_STATEMENT"
	ErrCodeInvalidExpression     = "E_INVALID_EXPRESSION"
	ErrCodeUnclosedTag           = "E_UNCLOSED_TAG"
	ErrCodeUnexpectedEndTag      = "E_UNEXPECTED_END_TAG"
	ErrCodeUnknownTag            = "E_UNKNOWN_TAG"
	ErrCodeUnregisteredFunction  = "E_UNREGISTERED_FUNCTION"
	ErrCodeTemplateNotFound      = "E_TEMPLATE_NOT_FOUND"
	ErrCodeRuntime               = "E_RUNTIME"
	ErrCodeConfigInvalid         = "E_CONFIG_INVALID"
	ErrCodeInvalidPath           = "E_INVALID_PATH"
	ErrCodeInternal              = "E_INTERNAL"
	ErrCodeDuplicateRegistration = "E_DUPLICATE_REGISTRATION"
)

// EdgeError is a structured error carrying the source position of the
// offending template snippet.
type EdgeError struct {
	Kind     Kind
	Code     string
	Message  string
	Snippet  string
	Filename string
	Line     int
	Column   int
	Cause    error
	Context  map[string]interface{}
}

// Error implements the error interface.
func (e *EdgeError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Filename != "" || e.Line > 0 {
		location := e.Filename
		if location == "" {
			location = "<anonymous>"
		}
		if e.Line > 0 {
			location += fmt.Sprintf(":%d:%d", e.Line, e.Column)
		}
		parts = append(parts, location)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")
	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *EdgeError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an EdgeError of the same kind and code.
func (e *EdgeError) Is(target error) bool {
	var t *EdgeError
	if errors.As(target, &t) {
		return e.Kind == t.Kind && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *EdgeError) WithContext(key string, value interface{}) *EdgeError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithLocation sets the source position.
func (e *EdgeError) WithLocation(filename string, line, column int) *EdgeError {
	e.Filename = filename
	e.Line = line
	e.Column = column

	return e
}

// WithSnippet records the offending source text.
func (e *EdgeError) WithSnippet(snippet string) *EdgeError {
	e.Snippet = snippet

	return e
}

// WithCause records the underlying error.
func (e *EdgeError) WithCause(cause error) *EdgeError {
	e.Cause = cause

	return e
}

func newError(kind Kind, code, message string) *EdgeError {
	return &EdgeError{Kind: kind, Code: code, Message: message}
}

// NewLexError reports malformed mustache or comment delimiters.
func NewLexError(message string) *EdgeError {
	return newError(KindLex, ErrCodeUnclosedCurlyBrace, message)
}

// NewUnclosedStatementError reports a tag statement that never ended
// or that has trailing content.
func NewUnclosedStatementError(code, message string) *EdgeError {
	return newError(KindUnclosedStatement, code, message)
}

// NewInvalidExpressionError reports a disallowed expression shape.
func NewInvalidExpressionError(snippet, message string) *EdgeError {
	return newError(KindInvalidExpression, ErrCodeInvalidExpression, message).WithSnippet(snippet)
}

// NewUnclosedTagError reports a block tag without its end tag.
func NewUnclosedTagError(tag string) *EdgeError {
	return newError(KindUnclosedTag, ErrCodeUnclosedTag, "Unclosed tag @"+tag).WithSnippet("@" + tag)
}

// NewUnexpectedEndTagError reports an end tag without an opener.
func NewUnexpectedEndTagError(tag string) *EdgeError {
	return newError(KindUnclosedTag, ErrCodeUnexpectedEndTag, "Unexpected @"+tag+" without an opening tag").
		WithSnippet("@" + tag)
}

// NewUnknownTagError reports an unregistered tag name.
func NewUnknownTagError(tag string) *EdgeError {
	return newError(KindUnknownTag, ErrCodeUnknownTag, "Undefined tag @"+tag).WithSnippet("@" + tag)
}

// NewUnregisteredFunctionError reports a call to an unknown helper.
func NewUnregisteredFunctionError(name string) *EdgeError {
	return newError(KindUnregisteredFunction, ErrCodeUnregisteredFunction,
		fmt.Sprintf("%s is not a registered function", name)).WithSnippet(name)
}

// NewTemplateNotFoundError reports a loader miss.
func NewTemplateNotFoundError(name string) *EdgeError {
	return newError(KindTemplateNotFound, ErrCodeTemplateNotFound, "Cannot resolve template "+name).
		WithContext("template", name)
}

// NewRuntimeError reports a render-time failure other than a missing function.
func NewRuntimeError(message string, cause error) *EdgeError {
	return newError(KindRuntime, ErrCodeRuntime, message).WithCause(cause)
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *EdgeError {
	return newError(KindConfig, code, message)
}

// NewIOError creates an I/O error.
func NewIOError(code, message string, cause error) *EdgeError {
	return newError(KindIO, code, message).WithCause(cause)
}

// NewInternalError creates an internal error.
func NewInternalError(code, message string, cause error) *EdgeError {
	return newError(KindInternal, code, message).WithCause(cause)
}

// KindOf returns the kind of err when it is an EdgeError.
func KindOf(err error) (Kind, bool) {
	var ee *EdgeError
	if errors.As(err, &ee) {
		return ee.Kind, true
	}

	return "", false
}

func isKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// IsLexError checks for malformed delimiters.
func IsLexError(err error) bool { return isKind(err, KindLex) }

// IsUnclosedStatementError checks for unterminated tag statements.
func IsUnclosedStatementError(err error) bool { return isKind(err, KindUnclosedStatement) }

// IsInvalidExpressionError checks for disallowed expression shapes.
func IsInvalidExpressionError(err error) bool { return isKind(err, KindInvalidExpression) }

// IsUnclosedTagError checks for unmatched block tags.
func IsUnclosedTagError(err error) bool { return isKind(err, KindUnclosedTag) }

// IsUnknownTagError checks for unregistered tags.
func IsUnknownTagError(err error) bool { return isKind(err, KindUnknownTag) }

// IsUnregisteredFunctionError checks for calls to unknown helpers.
func IsUnregisteredFunctionError(err error) bool { return isKind(err, KindUnregisteredFunction) }

// IsTemplateNotFoundError checks for loader misses.
func IsTemplateNotFoundError(err error) bool { return isKind(err, KindTemplateNotFound) }

// IsConfigError reports whether err is a configuration error.
func IsConfigError(err error) bool { return isKind(err, KindConfig) }

// IsCompileError reports whether err was raised while compiling a template.
func IsCompileError(err error) bool {
	k, ok := KindOf(err)
	if !ok {
		return false
	}
	switch k {
	case KindLex, KindUnclosedStatement, KindInvalidExpression, KindUnclosedTag, KindUnknownTag:
		return true
	}
	return false
}

// ErrorHandler provides centralized error handling.
type ErrorHandler struct {
	logger Logger
}

// Logger interface for error logging.
type Logger interface {
	Error(ctx context.Context, err error, msg string, fields ...interface{})
	Warn(ctx context.Context, err error, msg string, fields ...interface{})
}

// NewErrorHandler creates a new error handler.
func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Handle logs err with fields derived from its structure.
func (h *ErrorHandler) Handle(ctx context.Context, err error) {
	if err == nil || h.logger == nil {
		return
	}

	var ee *EdgeError
	if !errors.As(err, &ee) {
		h.logger.Error(ctx, err, "Unhandled error occurred")
		return
	}

	fields := []interface{}{
		"kind", ee.Kind,
		"code", ee.Code,
		"file", ee.Filename,
		"line", ee.Line,
		"column", ee.Column,
	}

	if IsCompileError(ee) || ee.Kind == KindTemplateNotFound {
		h.logger.Warn(ctx, ee, "Template error occurred", fields...)
		return
	}
	h.logger.Error(ctx, ee, "Error occurred", fields...)
}
