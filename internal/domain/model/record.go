// Package model defines the core data types shared by the clinic booking service.
package model

import (
	"errors"
	"time"
)

// DateLayout is the serialized appointment date format. It is fixed width and
// zero padded, so lexical ordering of formatted dates equals chronological ordering.
const DateLayout = "2006-01-02 15:04:05"

var (
	// ErrRecordNotFound is returned when no completed record exists for an id.
	ErrRecordNotFound = errors.New("record not found")
	// ErrRecordExists is returned when a record for the id was already written.
	ErrRecordExists = errors.New("record already exists")
	// ErrDoctorRequired is returned when a submission carries no doctor.
	ErrDoctorRequired = errors.New("doctor is required")
)

// SubmitRequest is the payload of POST /records.
type SubmitRequest struct {
	Doctor *string `json:"doctor"`
}

// Validate checks that the doctor field is present. Any string, including an empty one, is accepted.
func (r *SubmitRequest) Validate() error {
	if r == nil || r.Doctor == nil {
		return ErrDoctorRequired
	}
	return nil
}

// SubmitResponse is returned once the booking task is enqueued.
type SubmitResponse struct {
	RecordID string `json:"record_id"`
}

// StatusResponse reports the current phase of a booking task.
// Doctor is nil until the worker has reported a phase.
type StatusResponse struct {
	RecordID     string  `json:"record_id"`
	Doctor       *string `json:"doctor"`
	RecordStatus string  `json:"record_status"`
}

// AppointmentResult is the value persisted for a completed booking.
type AppointmentResult struct {
	Doctor string `json:"doctor"`
	Date   string `json:"date"`
}

// Record is a completed booking together with the task id it is keyed by.
type Record struct {
	ID     string `json:"record_id"`
	Doctor string `json:"doctor"`
	Date   string `json:"date"`
}

// NewRecord joins a stored result with its key.
func NewRecord(id string, res AppointmentResult) Record {
	return Record{ID: id, Doctor: res.Doctor, Date: res.Date}
}

// FormatDate renders t in DateLayout, dropping sub-second precision.
func FormatDate(t time.Time) string {
	return t.Truncate(time.Second).Format(DateLayout)
}
