package api

import (
	"errors"
	"fmt"
)

// ErrNilHandler is returned by Subscribe for a subscription without a handler.
var ErrNilHandler = errors.New("subscription has no handler")

// ErrEmptyTopicName is returned by Subscribe for a subscription without a topic.
var ErrEmptyTopicName = errors.New("subscription has no topic name")

// DuplicateTopicError is returned by Subscribe when a subscription for the
// same topic name is already registered. The registry is left unchanged.
type DuplicateTopicError struct {
	TopicName string
}

func (e *DuplicateTopicError) Error() string {
	return fmt.Sprintf("topic %q is already subscribed", e.TopicName)
}

// IsDuplicateTopic reports whether err is a DuplicateTopicError.
func IsDuplicateTopic(err error) bool {
	var d *DuplicateTopicError
	return errors.As(err, &d)
}
