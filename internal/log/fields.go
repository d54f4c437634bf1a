package log

// Common field names for structured logging
const (
	FieldComponent = "component"
	FieldOperation = "operation"
	FieldError     = "error"
	FieldDuration  = "duration_ms"
	FieldEntryID   = "entry_id"
	FieldParentID  = "parent_id"
	FieldItem      = "item"
	FieldAmount    = "amount"
	FieldCategory  = "category"
	FieldKeyword   = "keyword"
	FieldYearMonth = "year_month"
	FieldYear      = "year"
	FieldCount     = "count"
	FieldBackend   = "backend"
)

// Components
const (
	ComponentApp     = "app"
	ComponentRules   = "rules"
	ComponentLedger  = "ledger"
	ComponentReport  = "report"
	ComponentStorage = "storage"
	ComponentBackend = "backend"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentSheets  = "sheets"
	ComponentExport  = "export"
	ComponentCache   = "cache"
)

// Operations
const (
	OpInsert   = "insert"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpLoad     = "load"
	OpCommit   = "commit"
	OpReload   = "reload"
	OpClassify = "classify"
	OpExport   = "export"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)

// LogFields is a small builder for structured log attributes.
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithError adds the error text; nil errors are skipped.
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithEntry(id, item string, amount int64) LogFields {
	f[FieldEntryID] = id
	f[FieldItem] = item
	f[FieldAmount] = amount
	return f
}

func (f LogFields) WithKeyword(category, keyword, yearMonth string) LogFields {
	f[FieldCategory] = category
	f[FieldKeyword] = keyword
	if yearMonth != "" {
		f[FieldYearMonth] = yearMonth
	}
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
