package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldClientIP    = "client_ip"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldPersonID    = "person_id"
	FieldActivityID  = "activity_id"
	FieldWorkLogID   = "work_log_id"
	FieldSeconds     = "elapsed_seconds"
	FieldMinutes     = "duration_minutes"
	FieldEarnings    = "earnings"
	FieldDeduction   = "deduction"
	FieldAmount      = "amount"
	FieldCurrency    = "currency"
	FieldOffset      = "offset_by_earnings"
	FieldFund        = "deduction_fund"
	FieldDebtID      = "debt_id"
	FieldTimerStatus = "timer_status"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentTimer   = "timer"
	ComponentLedger  = "ledger"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
)

// Operations defines standard operation names
const (
	OpStart    = "start"
	OpPause    = "pause"
	OpResume   = "resume"
	OpStop     = "stop"
	OpSettle   = "settle"
	OpIncome   = "income"
	OpExpense  = "expense"
	OpDebt     = "debt"
	OpPayment  = "payment"
	OpArchive  = "archive"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)
