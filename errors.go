package navrouter

import "errors"

// ErrInvalidRoutes is returned synchronously from New for an empty
// route tree or duplicate route ids.
var ErrInvalidRoutes = errors.New("navrouter: invalid routes")
