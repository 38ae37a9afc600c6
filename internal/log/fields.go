package log

// Common field names for structured logging.
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldOwnerID    = "owner_id"
	FieldEntryID    = "entry_id"
	FieldAccountID  = "account_id"
	FieldCategoryID = "category_id"
	FieldAmount     = "amount"
	FieldBalance    = "balance"
	FieldCount      = "count"
)

// Components defines standard component names.
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentLedger  = "ledger"
	ComponentStorage = "storage"
	ComponentEvents  = "events"
	ComponentWorker  = "worker"
	ComponentExport  = "export"
	ComponentSeed    = "seed"
	ComponentAuth    = "auth"
)

// Operations defines standard operation names.
const (
	OpCreate    = "create"
	OpRead      = "read"
	OpUpdate    = "update"
	OpDelete    = "delete"
	OpList      = "list"
	OpRecompute = "recompute"
	OpPublish   = "publish"
	OpExport    = "export"
	OpSeed      = "seed"
	OpStartup   = "startup"
	OpShutdown  = "shutdown"
)
