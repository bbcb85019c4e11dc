package orders

import "errors"

var (
	ErrOrderNotFound  = errors.New("order not found")
	ErrPersistence    = errors.New("order persistence failed")
	ErrDuplicateOrder = errors.New("order already exists")
)

const (
	msgItemsRequired    = "Items required!"
	msgTotalRequired    = "Total amount required!"
	msgLocationRequired = "Location required!"
)

// ValidationError reports a malformed order request. Message is shown to the
// customer as is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
