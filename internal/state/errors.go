package state

import "errors"

// ErrUnknownVariable indicates a Var lookup used a name that is not a
// SystemState field.
var ErrUnknownVariable = errors.New("state: unknown variable")
