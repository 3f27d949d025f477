package billing

// InvoiceStatus is the persisted state of an invoice.
// Overdue is never stored; see DisplayStatus.
type InvoiceStatus string

const (
	InvoiceStatusPending InvoiceStatus = "PENDING"
	InvoiceStatusPaid    InvoiceStatus = "PAID"
	InvoiceStatusVoided  InvoiceStatus = "VOIDED"
)

// IsValid checks if the status is one of the persisted states
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusPending, InvoiceStatusPaid, InvoiceStatusVoided:
		return true
	}
	return false
}

// IsTerminal returns true once protected invoice fields are frozen
func (s InvoiceStatus) IsTerminal() bool {
	return s == InvoiceStatusPaid || s == InvoiceStatusVoided
}

// String returns the string representation of InvoiceStatus
func (s InvoiceStatus) String() string {
	return string(s)
}

// DisplayStatus is the status shown to users, including the derived overdue label
type DisplayStatus string

const (
	DisplayStatusPending DisplayStatus = "PENDING"
	DisplayStatusOverdue DisplayStatus = "OVERDUE"
	DisplayStatusPaid    DisplayStatus = "PAID"
	DisplayStatusVoided  DisplayStatus = "VOIDED"
)

// IsValid checks if the display status is known
func (s DisplayStatus) IsValid() bool {
	switch s {
	case DisplayStatusPending, DisplayStatusOverdue, DisplayStatusPaid, DisplayStatusVoided:
		return true
	}
	return false
}

// DeriveDisplayStatus combines a stored status with a mora assessment
func DeriveDisplayStatus(status InvoiceStatus, assessment LateFeeAssessment) DisplayStatus {
	if status == InvoiceStatusPending && assessment.DaysOverdue > 0 {
		return DisplayStatusOverdue
	}
	return DisplayStatus(status)
}
