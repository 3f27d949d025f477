package billing

import (
	"strings"
	"time"
	"unicode"

	"github.com/agualoti/backend/internal/domain/shared"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ClientStatus represents whether a client is still served
type ClientStatus string

const (
	ClientStatusActive   ClientStatus = "ACTIVE"
	ClientStatusInactive ClientStatus = "INACTIVE"
)

// IsValid checks if the status is known
func (s ClientStatus) IsValid() bool {
	return s == ClientStatusActive || s == ClientStatusInactive
}

// Client is a household or business connected to the network
type Client struct {
	shared.BaseAggregateRoot
	Code        string
	Name        string
	Address     string
	Phone       string
	MeterNumber string
	Status      ClientStatus
	// SearchKey is code and name folded for accent-insensitive lookup
	SearchKey string
}

// FoldSearch lower-cases s and strips diacritics, so "Peña" becomes "pena"
func FoldSearch(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.TrimSpace(folded))
}

// NewClient creates an active client
func NewClient(code, name, address, phone, meterNumber string, at time.Time) (*Client, error) {
	code = strings.TrimSpace(code)
	name = strings.TrimSpace(name)
	if code == "" {
		return nil, shared.NewFieldError("INVALID_CLIENT_CODE", "code", "Client code cannot be empty")
	}
	if len(code) > 50 {
		return nil, shared.NewFieldError("INVALID_CLIENT_CODE", "code", "Client code cannot exceed 50 characters")
	}
	if name == "" {
		return nil, shared.NewFieldError("INVALID_CLIENT_NAME", "name", "Client name cannot be empty")
	}
	if len(name) > 200 {
		return nil, shared.NewFieldError("INVALID_CLIENT_NAME", "name", "Client name cannot exceed 200 characters")
	}

	c := &Client{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(at),
		Code:              code,
		Name:              name,
		Address:           strings.TrimSpace(address),
		Phone:             strings.TrimSpace(phone),
		MeterNumber:       strings.TrimSpace(meterNumber),
		Status:            ClientStatusActive,
		SearchKey:         FoldSearch(code + " " + name),
	}

	c.AddDomainEvent(NewClientRegisteredEvent(c))

	return c, nil
}

// IsActive returns true if the client can be billed
func (c *Client) IsActive() bool {
	return c.Status == ClientStatusActive
}

// Deactivate stops billing the client. Existing invoices are untouched.
func (c *Client) Deactivate(at time.Time) error {
	if !c.IsActive() {
		return shared.NewDomainError(shared.ErrInvalidState.Code, "Client is already inactive")
	}
	c.Status = ClientStatusInactive
	c.Touch(at)
	return nil
}
