package errors

// ErrorBuilder assembles a ClassifiedError step by step.
type ErrorBuilder struct {
	category ErrorCategory
	severity ErrorSeverity
	message  string
	cause    error
	context  ErrorContext
}

// NewError starts a builder for category with severity SeverityError.
func NewError(category ErrorCategory, message string) *ErrorBuilder {
	return &ErrorBuilder{
		category: category,
		severity: SeverityError,
		message:  message,
		context:  make(ErrorContext),
	}
}

// WrapError is NewError with err as the cause.
func WrapError(err error, category ErrorCategory, message string) *ErrorBuilder {
	return NewError(category, message).WithCause(err)
}

func (b *ErrorBuilder) WithSeverity(severity ErrorSeverity) *ErrorBuilder {
	b.severity = severity
	return b
}

func (b *ErrorBuilder) WithCause(err error) *ErrorBuilder {
	b.cause = err
	return b
}

// WithContext attaches key=value; later calls for the same key win.
func (b *ErrorBuilder) WithContext(key string, value any) *ErrorBuilder {
	b.context = b.context.Set(key, value)
	return b
}

func (b *ErrorBuilder) Fatal() *ErrorBuilder {
	return b.WithSeverity(SeverityFatal)
}

// Warning marks the error as soft: it is logged but does not fail the build.
func (b *ErrorBuilder) Warning() *ErrorBuilder {
	return b.WithSeverity(SeverityWarning)
}

func (b *ErrorBuilder) Build() *ClassifiedError {
	return &ClassifiedError{
		category: b.category,
		severity: b.severity,
		message:  b.message,
		cause:    b.cause,
		context:  b.context,
	}
}

// ConfigError aborts the setup of the plugin or command that raised it.
func ConfigError(message string) *ErrorBuilder {
	return NewError(CategoryConfig, message).Fatal()
}

func ValidationError(message string) *ErrorBuilder {
	return NewError(CategoryValidation, message).Fatal()
}

// ContentError fails a single item; the rest of the build carries on.
func ContentError(message string) *ErrorBuilder {
	return NewError(CategoryContent, message)
}

// ConflictError reports two live items claiming the same output URL.
func ConflictError(message string) *ErrorBuilder {
	return NewError(CategoryConflict, message)
}

// IOError reports a filesystem failure. Missing layouts are downgraded with
// Warning(); unreadable sources stay errors.
func IOError(message string) *ErrorBuilder {
	return NewError(CategoryIO, message)
}

// FatalError reports a broken pipeline, such as a processor that never
// reaches a fixed point.
func FatalError(message string) *ErrorBuilder {
	return NewError(CategoryFatal, message).Fatal()
}

func RuntimeError(message string) *ErrorBuilder {
	return NewError(CategoryRuntime, message).Fatal()
}

func InternalError(message string) *ErrorBuilder {
	return NewError(CategoryInternal, message).Fatal()
}
