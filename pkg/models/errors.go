package models

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("not found")

type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

func NewNotFoundError(resource string) error {
	return &NotFoundError{Resource: resource}
}

var ErrBadRequest = errors.New("bad request")

type BadRequestError struct {
	Message string
}

func (e *BadRequestError) Error() string {
	return fmt.Sprintf("bad request: %s", e.Message)
}

func (e *BadRequestError) Unwrap() error {
	return ErrBadRequest
}

func NewBadRequestError(message string) error {
	return &BadRequestError{Message: message}
}

var ErrLockAcquisitionFailed = errors.New("failed to acquire advisory lock")

type AdvisoryLockError struct {
	OriginalError error
}

func (e *AdvisoryLockError) Error() string {
	return fmt.Sprintf("advisory lock error: %v", e.OriginalError)
}

func (e *AdvisoryLockError) Unwrap() error {
	return ErrLockAcquisitionFailed
}

func NewAdvisoryLockError(originalError error) *AdvisoryLockError {
	return &AdvisoryLockError{OriginalError: originalError}
}
