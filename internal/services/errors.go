// Package services defines the business logic for consultations, doctors,
// and the escalation coordinator. This file centralizes common service-level
// error values so that they can be consistently returned by service methods
// and checked by callers.
//
// These errors are intended for internal use by the service layer; mapping to
// user-facing messages or HTTP status codes happens at the handler layer.
package services

import "errors"

var (
	// ErrConsultationNotFound indicates the referenced escalation thread
	// does not exist.
	ErrConsultationNotFound = errors.New("consultation not found")

	// ErrConsultationClosed is returned when a relay or state change targets
	// a thread that already reached the terminal completed status.
	ErrConsultationClosed = errors.New("consultation closed")

	// ErrNotAssigned is returned when a relay targets a thread still waiting
	// for a doctor.
	ErrNotAssigned = errors.New("consultation has no doctor yet")

	// ErrDoctorNotFound indicates the doctor identity is unknown.
	ErrDoctorNotFound = errors.New("doctor not found")

	// ErrDoctorNotEligible is returned when an unapproved or paused doctor
	// tries to claim or be assigned a consultation.
	ErrDoctorNotEligible = errors.New("doctor not approved or not active")

	// ErrDoctorBusy is returned when a doctor who already holds an open
	// consultation tries to claim another one.
	ErrDoctorBusy = errors.New("doctor already has an open consultation")

	// ErrSameDoctor is returned by Reassign when the target doctor is the
	// one already assigned.
	ErrSameDoctor = errors.New("doctor already assigned to this consultation")

	// ErrEmptyMessage is returned when a message or question is blank.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrQuestionTooLong is returned when a question exceeds the configured
	// length limit.
	ErrQuestionTooLong = errors.New("question too long")

	// ErrNameTooShort rejects doctor registration names that are too short
	// to be a real full name.
	ErrNameTooShort = errors.New("full name too short")

	// ErrNoRegistration is returned when a registration step arrives without
	// an in-progress session.
	ErrNoRegistration = errors.New("no registration in progress")

	// ErrAlreadyRegistered is returned when a registered doctor tries to
	// register again.
	ErrAlreadyRegistered = errors.New("doctor already registered")
)
