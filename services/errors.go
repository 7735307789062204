package services

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration marks missing or unusable startup configuration.
	ErrConfiguration = errors.New("configuration error")
	// ErrAuthentication marks a rejected credential.
	ErrAuthentication = errors.New("authentication error")
	// ErrPersistence matches every *PersistenceError.
	ErrPersistence = errors.New("persistence error")
	// ErrPushDelivery matches every *PushDeliveryError.
	ErrPushDelivery = errors.New("push delivery error")
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")

	// ErrPushDisabled is returned by a dispatcher built without credentials.
	ErrPushDisabled = errors.New("push dispatch disabled")
	// ErrNoPushToken is returned when the destination token is empty.
	ErrNoPushToken = errors.New("no push token")
)

// PersistenceError wraps a storage failure with the operation that hit it.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence error during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

func persistenceError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}

// PushDeliveryError reports a provider rejection for one token.
type PushDeliveryError struct {
	Token        string
	Unregistered bool
	Err          error
}

func (e *PushDeliveryError) Error() string {
	return fmt.Sprintf("push delivery to %s failed: %v", maskToken(e.Token), e.Err)
}

func (e *PushDeliveryError) Unwrap() error { return e.Err }

func (e *PushDeliveryError) Is(target error) bool { return target == ErrPushDelivery }

// maskToken keeps device tokens out of logs.
func maskToken(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "…" + token[len(token)-4:]
}
