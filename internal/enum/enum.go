package enum

// ── Upstream POS codes ──

const (
	TransactionTypeSale = "00"
)

const (
	LineTypeProduct = "00"
	LineTypeSummary = "07"
	LineTypeOverlay = "11"
)

// ── Request modes, in dispatch priority order ──

const (
	ModePing   = "ping"
	ModeEnv    = "env"
	ModePeriod = "period"
	ModeDemo   = "demo"
	ModeSales  = "sales"
)

// ── Payload modes (reported back to the dashboards) ──

const (
	PayloadLive   = "live"
	PayloadCached = "cached"
	PayloadDemo   = "demo"
	PayloadPeriod = "period"
)

// ── Ranking metrics ──

const (
	MetricRevenue = "revenue"
	MetricQty     = "qty"
)

// ── Error codes returned in {error, message} bodies ──

const (
	ErrCodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	ErrCodeInvalidDate      = "INVALID_DATE"
	ErrCodeMissingDates     = "MISSING_DATES"
	ErrCodeMissingPeriod    = "MISSING_PERIOD"
	ErrCodeInvalidAccount   = "INVALID_ACCOUNT"
	ErrCodeConfigMissing    = "CONFIG_MISSING"
	ErrCodeUpstream         = "UPSTREAM_FAIL"
	ErrCodeUnexpected       = "UNEXPECTED"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
)
