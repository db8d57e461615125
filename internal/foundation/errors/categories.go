package errors

// ErrorCategory routes an error to an exit code, an HTTP status and a log
// level.
type ErrorCategory string

const (
	// Raised before a build starts; the command aborts.
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"
	CategoryNotFound   ErrorCategory = "not_found"

	// Raised while processing one item and recorded in the build log.
	CategoryContent  ErrorCategory = "content"
	CategoryConflict ErrorCategory = "conflict"
	CategoryIO       ErrorCategory = "io"
	CategoryFatal    ErrorCategory = "fatal"

	CategoryRuntime  ErrorCategory = "runtime"
	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity indicates the impact level of an error.
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // aborts the command
	SeverityError   ErrorSeverity = "error"   // fails the item; the build reports failure
	SeverityWarning ErrorSeverity = "warning" // logged only
	SeverityInfo    ErrorSeverity = "info"
)

// ErrorContext holds the key/value pairs rendered after the message, such
// as url, path or layout.
type ErrorContext map[string]any

// Set writes key into c, allocating c when nil, and returns it.
func (c ErrorContext) Set(key string, value any) ErrorContext {
	if c == nil {
		c = make(ErrorContext)
	}
	c[key] = value
	return c
}

func (c ErrorContext) Get(key string) (any, bool) {
	if c == nil {
		return nil, false
	}
	value, exists := c[key]
	return value, exists
}

// GetString is Get restricted to string values.
func (c ErrorContext) GetString(key string) (string, bool) {
	if value, exists := c.Get(key); exists {
		if str, ok := value.(string); ok {
			return str, true
		}
	}
	return "", false
}
