package services

import (
	"context"
	"errors"
	"strconv"

	"finboard/internal/credentials"
	"finboard/internal/notion"
)

// Error kinds reported to the presentation layer.
const (
	KindIncomplete    = "incomplete_credentials"
	KindValidation    = "validation"
	KindNotConfigured = "not_configured"
	KindMissingID     = "missing_database_id"
	KindUnauthorized  = "unauthorized"
	KindForbidden     = "forbidden"
	KindNotFound      = "not_found"
	KindUpstream      = "upstream"
	KindTransport     = "transport"
	KindTimeout       = "timeout"
	KindInternal      = "internal"
)

// ErrorKind classifies err into one of the Kind constants.
func ErrorKind(err error) string {
	var verr *credentials.ValidationError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrIncompleteCredentials):
		return KindIncomplete
	case errors.As(err, &verr):
		return KindValidation
	case errors.Is(err, notion.ErrNotConfigured):
		return KindNotConfigured
	case errors.Is(err, notion.ErrMissingDatabaseID):
		return KindMissingID
	case errors.Is(err, notion.ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, notion.ErrForbidden):
		return KindForbidden
	case errors.Is(err, notion.ErrNotFound):
		return KindNotFound
	case errors.Is(err, notion.ErrUpstream):
		return KindUpstream
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, notion.ErrTransport):
		return KindTransport
	default:
		return KindInternal
	}
}

// UserMessage maps err to the one sentence shown to the user.
func UserMessage(err error) string {
	var verr *credentials.ValidationError
	if errors.As(err, &verr) {
		return "Invalid configuration: " + verr.Error() + "."
	}
	switch ErrorKind(err) {
	case "":
		return ""
	case KindIncomplete:
		return "Configure your Notion token and both database ids first."
	case KindNotConfigured:
		return "The Notion token is not configured."
	case KindMissingID:
		return "A database id is missing."
	case KindUnauthorized:
		return "The Notion token is invalid or has expired."
	case KindForbidden:
		return "The integration has no access to this database. Share the database with the integration in Notion."
	case KindNotFound:
		return "Database not found. Check the database id."
	case KindUpstream:
		var se *notion.StatusError
		if errors.As(err, &se) {
			return "Notion returned an error (status " + strconv.Itoa(se.StatusCode) + ")."
		}
		return "Notion returned an error."
	case KindTimeout:
		return "Notion took too long to answer. Try again."
	case KindTransport:
		return "Could not reach Notion. Check your connection."
	default:
		return "Something went wrong while loading the dashboard."
	}
}
