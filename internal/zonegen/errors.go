package zonegen

import "errors"

// ErrUnresolvableHost is returned when the controller's own hostname
// cannot be resolved to any address. A generation run fails outright on
// this condition; retrying is the caller's decision.
var ErrUnresolvableHost = errors.New("unable to resolve controller address")
