package errors

import (
	"errors"
)

// Wrap wraps err with a kind and code, keeping the position of an inner
// EdgeError when there is one.
func Wrap(err error, kind Kind, code, message string) *EdgeError {
	if err == nil {
		return nil
	}

	var ee *EdgeError
	if errors.As(err, &ee) {
		return &EdgeError{
			Kind:     kind,
			Code:     code,
			Message:  message,
			Snippet:  ee.Snippet,
			Filename: ee.Filename,
			Line:     ee.Line,
			Column:   ee.Column,
			Cause:    ee,
			Context:  ee.Context,
		}
	}

	return &EdgeError{
		Kind:    kind,
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// WrapIO wraps an error as an I/O error
func WrapIO(err error, code, message string) *EdgeError {
	return Wrap(err, KindIO, code, message)
}

// WrapInternal wraps an error as an internal error
func WrapInternal(err error, code, message string) *EdgeError {
	return Wrap(err, KindInternal, code, message)
}

// Locate stamps filename on err when it is an EdgeError without one and
// returns err unchanged otherwise.
func Locate(err error, filename string) error {
	var ee *EdgeError
	if errors.As(err, &ee) && ee.Filename == "" {
		ee.Filename = filename
	}
	return err
}

// ExtractContext extracts context information from an error chain
func ExtractContext(err error) map[string]interface{} {
	context := make(map[string]interface{})

	var ee *EdgeError
	if errors.As(err, &ee) {
		for k, v := range ee.Context {
			context[k] = v
		}
		context["kind"] = ee.Kind
		context["code"] = ee.Code
		if ee.Filename != "" {
			context["file"] = ee.Filename
		}
		if ee.Line > 0 {
			context["line"] = ee.Line
			context["column"] = ee.Column
		}
	}

	return context
}

// At stamps a position on err when it carries none. Errors that are not
// EdgeErrors become runtime errors at that position.
func At(err error, filename string, line, column int) error {
	if err == nil {
		return nil
	}
	var ee *EdgeError
	if !errors.As(err, &ee) {
		return NewRuntimeError(err.Error(), err).WithLocation(filename, line, column)
	}
	if ee.Line == 0 {
		ee.WithLocation(filename, line, column)
	}
	return err
}
