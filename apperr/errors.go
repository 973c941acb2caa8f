// Package apperr defines the error kinds the API distinguishes and how each
// one is rendered to a client.
package apperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	log "github.com/sirupsen/logrus"
)

// ValidationError reports malformed or missing input. The operation that
// returned it wrote nothing.
type ValidationError struct {
	Field    string
	Message  string
	Conflict bool
	Err      error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Validation builds a ValidationError for field.
func Validation(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// StoreError wraps a failed record store call.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Store wraps err as a StoreError. A nil err stays nil.
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// NotFoundError is returned when a record addressed by id does not exist.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// NotFound builds a NotFoundError.
func NotFound(kind, id string) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: id}
}

// DataShapeError marks a stored field that could not be interpreted. It is
// logged and the record is left out of whatever computation needed the field.
type DataShapeError struct {
	Collection string
	ID         string
	Field      string
	Value      interface{}
}

func (e *DataShapeError) Error() string {
	return fmt.Sprintf("%s/%s: unparseable %s (%v)", e.Collection, e.ID, e.Field, e.Value)
}

const genericStoreMessage = "Service temporarily unavailable. Please try again."

// Status returns the HTTP status for err.
func Status(err error) int {
	var (
		ve *ValidationError
		ae *AuthError
		nf *NotFoundError
		se *StoreError
	)
	switch {
	case errors.As(err, &ve):
		if ve.Conflict {
			return http.StatusConflict
		}
		return http.StatusBadRequest
	case errors.As(err, &ae):
		return ae.Status()
	case errors.As(err, &nf):
		return http.StatusNotFound
	case errors.As(err, &se):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Write renders err as a JSON body of the form {"error": "..."} with the
// status from Status. Internal details of store failures are logged, not sent.
func Write(w http.ResponseWriter, err error) {
	body := map[string]string{}

	var (
		ve *ValidationError
		ae *AuthError
		nf *NotFoundError
		se *StoreError
	)
	switch {
	case errors.As(err, &ve):
		body["error"] = ve.Message
		if ve.Field != "" {
			body["field"] = ve.Field
		}
	case errors.As(err, &ae):
		body["error"] = ae.Message()
		body["code"] = ae.Code
	case errors.As(err, &nf):
		body["error"] = nf.Error()
	case errors.As(err, &se):
		log.WithError(se.Err).WithField("op", se.Op).Error("record store call failed")
		body["error"] = genericStoreMessage
	default:
		log.WithError(err).Error("unhandled error")
		body["error"] = "Internal server error"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(Status(err))
	json.NewEncoder(w).Encode(body)
}
