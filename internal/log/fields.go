package log

// Common field names for structured logging
const (
	FieldComponent       = "component"
	FieldRequestID       = "request_id"
	FieldClientIP        = "client_ip"
	FieldMethod          = "method"
	FieldPath            = "path"
	FieldQuery           = "query"
	FieldStatusCode      = "status_code"
	FieldDuration        = "duration_ms"
	FieldUserAgent       = "user_agent"
	FieldReferer         = "referer"
	FieldSuccess         = "success"
	FieldError           = "error"
	FieldErrorType       = "error_type"
	FieldOperation       = "operation"
	FieldTransactionID   = "transaction_id"
	FieldTransactionType = "transaction_type"
	FieldAmount          = "amount"
	FieldCategory        = "category"
	FieldDate            = "date"
	FieldBudget          = "budget"
	FieldSessionID       = "session_id"
	FieldEvent           = "event"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentStore     = "store"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentSheets    = "sheets"
	ComponentCache     = "cache"
	ComponentAdvisor   = "advisor"
	ComponentCharts    = "charts"
	ComponentSecurity  = "security"
	ComponentRateLimit = "rate_limit"
	ComponentTrace     = "trace"
	ComponentBackend   = "backend"
	ComponentReport    = "report"
)

// Operations defines standard operation names
const (
	OpCreate    = "create"
	OpRead      = "read"
	OpDelete    = "delete"
	OpList      = "list"
	OpSetBudget = "set_budget"
	OpExport    = "export"
	OpMirror    = "mirror"
	OpPublish   = "publish"
	OpValidate  = "validate"
	OpRender    = "render"
	OpChat      = "chat"
	OpShutdown  = "shutdown"
	OpStartup   = "startup"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeStorage       = "storage_error"
	ErrorTypeNetwork       = "network_error"
	ErrorTypeTimeout       = "timeout_error"
	ErrorTypeNotFound      = "not_found_error"
	ErrorTypeUpstream      = "upstream_error"
	ErrorTypeInternal      = "internal_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithRequestID adds request ID field
func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

// WithClientIP adds client IP field
func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError adds the error and its category
func (f LogFields) WithError(err error, errorType string) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
		if errorType != "" {
			f[FieldErrorType] = errorType
		}
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithTransaction adds the identifying fields of a transaction. Descriptions
// are free text and are left out.
func (f LogFields) WithTransaction(id int64, txType, amount, category, date string) LogFields {
	f[FieldTransactionID] = id
	f[FieldTransactionType] = txType
	f[FieldAmount] = amount
	f[FieldCategory] = category
	f[FieldDate] = date
	return f
}

// WithHTTPRequest adds HTTP request fields
func (f LogFields) WithHTTPRequest(method, path, query, userAgent, referer string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	if userAgent != "" {
		f[FieldUserAgent] = userAgent
	}
	if referer != "" {
		f[FieldReferer] = referer
	}
	return f
}

// WithHTTPResponse adds HTTP response fields
func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = statusCode < 400
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
