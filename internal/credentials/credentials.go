// Package credentials holds the Notion token and the two database ids the
// dashboard reads from, and persists them in a key-value store.
package credentials

import (
	"fmt"
	"strings"
)

// StorageKey is the key the credential record is stored under.
const StorageKey = "notion_dashboard_config"

// MinDatabaseIDLength is the shortest database id accepted by Save.
const MinDatabaseIDLength = 10

// TokenPrefixes lists the accepted Notion secret-key prefixes.
var TokenPrefixes = []string{"ntn_", "secret_"}

// Credentials is the persisted record. JSON keys are part of the stored format.
type Credentials struct {
	Token              string `json:"token"`
	IncomeDatabaseID   string `json:"incomeDatabaseId"`
	ExpensesDatabaseID string `json:"expensesDatabaseId"`
}

// IsComplete reports whether the credentials are usable for a load cycle.
func (c Credentials) IsComplete() bool {
	return HasTokenPrefix(c.Token) &&
		len(c.IncomeDatabaseID) >= MinDatabaseIDLength &&
		len(c.ExpensesDatabaseID) >= MinDatabaseIDLength
}

// MaskedToken returns the token with everything past the prefix hidden.
func (c Credentials) MaskedToken() string {
	if c.Token == "" {
		return ""
	}
	for _, p := range TokenPrefixes {
		if strings.HasPrefix(c.Token, p) {
			tail := ""
			if len(c.Token) > len(p)+4 {
				tail = c.Token[len(c.Token)-4:]
			}
			return p + "****" + tail
		}
	}
	return "****"
}

// HasTokenPrefix reports whether token starts with a known secret-key prefix.
func HasTokenPrefix(token string) bool {
	for _, p := range TokenPrefixes {
		if strings.HasPrefix(token, p) && len(token) > len(p) {
			return true
		}
	}
	return false
}

// ValidationError is returned by Save when an input is rejected.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Validate checks already-trimmed credentials and returns the first problem.
func Validate(c Credentials) error {
	if c.Token == "" {
		return &ValidationError{Field: "token", Reason: "must not be empty"}
	}
	if !HasTokenPrefix(c.Token) {
		return &ValidationError{Field: "token", Reason: fmt.Sprintf("must start with one of %s", strings.Join(TokenPrefixes, ", "))}
	}
	if err := validateDatabaseID("incomeDatabaseId", c.IncomeDatabaseID); err != nil {
		return err
	}
	return validateDatabaseID("expensesDatabaseId", c.ExpensesDatabaseID)
}

func validateDatabaseID(field, id string) error {
	if id == "" {
		return &ValidationError{Field: field, Reason: "must not be empty"}
	}
	if len(id) < MinDatabaseIDLength {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("must be at least %d characters", MinDatabaseIDLength)}
	}
	return nil
}
