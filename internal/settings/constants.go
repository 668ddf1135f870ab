package settings

// Runtime setting keys stored in the settings table.
const (
	// EligibilityRetentionDaysKey overrides eligibility.retention_days.
	// Zero disables pruning.
	EligibilityRetentionDaysKey = "ELIGIBILITY_RETENTION_DAYS"
)
