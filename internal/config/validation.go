package config

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/anhnt/edge/internal/errors"
)

var diskNamePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_-]*$`)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// validatorInstance returns the shared validator, reporting fields by their
// config keys instead of Go field names.
func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = validate.RegisterValidation("diskname", func(fl validator.FieldLevel) bool {
			return diskNamePattern.MatchString(fl.Field().String())
		})
	})
	return validate
}

// ValidationError represents a configuration validation error with suggestions
type ValidationError struct {
	Field       string
	Value       interface{}
	Message     string
	Suggestions []string
}

func (ve *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", ve.Field, ve.Message)
}

// ValidationResult holds the result of configuration validation
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// HasErrors returns true if there are any validation errors
func (vr *ValidationResult) HasErrors() bool {
	return len(vr.Errors) > 0
}

// HasWarnings returns true if there are any validation warnings
func (vr *ValidationResult) HasWarnings() bool {
	return len(vr.Warnings) > 0
}

// String returns a formatted string of all validation issues
func (vr *ValidationResult) String() string {
	var b strings.Builder
	write := func(title string, list []ValidationError) {
		if len(list) == 0 {
			return
		}
		b.WriteString(title + ":\n")
		for _, e := range list {
			fmt.Fprintf(&b, "  - %s: %s\n", e.Field, e.Message)
			for _, s := range e.Suggestions {
				fmt.Fprintf(&b, "      hint: %s\n", s)
			}
		}
	}
	write("Validation errors", vr.Errors)
	write("Validation warnings", vr.Warnings)
	return b.String()
}

// Validate checks cfg and returns a config error describing the first
// problem found.
func Validate(cfg *Config) error {
	result := ValidateWithDetails(cfg)
	if !result.HasErrors() {
		return nil
	}
	first := result.Errors[0]
	return errors.NewConfigError(errors.ErrCodeConfigInvalid, "invalid configuration: "+first.Error()).
		WithContext("field", first.Field).
		WithContext("issues", len(result.Errors))
}

// ValidateWithDetails performs struct and path validation, collecting every
// problem. Directories that do not exist yet are warnings.
func ValidateWithDetails(cfg *Config) *ValidationResult {
	result := &ValidationResult{}

	if err := validatorInstance().Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if !stderrors.As(err, &verrs) {
			result.Errors = append(result.Errors, ValidationError{Field: "config", Message: err.Error()})
			return result
		}
		for _, fe := range verrs {
			result.Errors = append(result.Errors, fieldError(fe))
		}
	}

	checkDir(result, "views.root", cfg.Views.Root)
	for _, name := range cfg.DiskNames() {
		checkDir(result, "views.disks."+name, cfg.Views.Disks[name])
	}
	if cfg.Log.Dir != "" {
		if err := validatePath(cfg.Log.Dir); err != nil {
			result.Errors = append(result.Errors, ValidationError{Field: "log.dir", Value: cfg.Log.Dir, Message: err.Error()})
		}
	}
	return result
}

// fieldError turns a validator failure into a readable message.
func fieldError(fe validator.FieldError) ValidationError {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	ve := ValidationError{Field: field, Value: fe.Value()}
	switch fe.Tag() {
	case "required":
		ve.Message = "is required"
	case "oneof":
		ve.Message = fmt.Sprintf("must be one of [%s], got %v", fe.Param(), fe.Value())
		ve.Suggestions = []string{"allowed values: " + strings.ReplaceAll(fe.Param(), " ", ", ")}
	case "gte", "lte":
		ve.Message = fmt.Sprintf("%v is out of range (%s %s)", fe.Value(), fe.Tag(), fe.Param())
	case "diskname":
		ve.Message = fmt.Sprintf("invalid disk name %q", fe.Value())
		ve.Suggestions = []string{"disk names start with a letter and contain letters, digits, '-' or '_'"}
	case "hostname_rfc1123|ip":
		ve.Message = fmt.Sprintf("%q is not a valid host", fe.Value())
		ve.Suggestions = []string{"use localhost, 0.0.0.0 or a hostname"}
	default:
		ve.Message = fmt.Sprintf("failed %q validation", fe.Tag())
	}
	return ve
}

func checkDir(result *ValidationResult, field, dir string) {
	if dir == "" {
		return
	}
	if err := validatePath(dir); err != nil {
		result.Errors = append(result.Errors, ValidationError{Field: field, Value: dir, Message: err.Error()})
		return
	}
	info, err := os.Stat(dir)
	switch {
	case err != nil:
		result.Warnings = append(result.Warnings, ValidationError{
			Field:       field,
			Value:       dir,
			Message:     "directory does not exist",
			Suggestions: []string{"create it with: mkdir -p " + dir},
		})
	case !info.IsDir():
		result.Errors = append(result.Errors, ValidationError{Field: field, Value: dir, Message: "not a directory"})
	}
}

// validatePath validates a file path for security
func validatePath(path string) error {
	clean := filepath.ToSlash(filepath.Clean(path))
	for _, part := range strings.Split(clean, "/") {
		if part == ".." {
			return fmt.Errorf("path contains traversal: %s", path)
		}
	}

	dangerousChars := []string{";", "&", "|", "$", "`", "<", ">", "\"", "'", "\x00"}
	for _, char := range dangerousChars {
		if strings.Contains(clean, char) {
			return fmt.Errorf("path contains dangerous character: %q", char)
		}
	}
	return nil
}
