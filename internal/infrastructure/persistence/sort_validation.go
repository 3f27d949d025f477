package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	if strings.ToUpper(strings.TrimSpace(orderDir)) == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" || !allowedFields[trimmed] {
		return defaultField
	}
	return trimmed
}

// orderClause builds a safe ORDER BY expression. The id tiebreaker keeps pages stable.
func orderClause(sortField, orderDir string, allowedFields map[string]bool, defaultField string) string {
	return ValidateSortField(sortField, allowedFields, defaultField) + " " + ValidateSortOrder(orderDir) + ", id ASC"
}

// ClientSortFields contains allowed sort fields for clients
var ClientSortFields = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"code":       true,
	"name":       true,
	"status":     true,
}

// ReadingSortFields contains allowed sort fields for readings
var ReadingSortFields = map[string]bool{
	"created_at": true,
	"read_on":    true,
	"current":    true,
}

// InvoiceSortFields contains allowed sort fields for invoices
var InvoiceSortFields = map[string]bool{
	"created_at":   true,
	"number":       true,
	"issue_date":   true,
	"due_date":     true,
	"total_amount": true,
	"status":       true,
}

// ActivityLogSortFields contains allowed sort fields for the activity log
var ActivityLogSortFields = map[string]bool{
	"occurred_at": true,
	"action":      true,
	"entity_type": true,
}
