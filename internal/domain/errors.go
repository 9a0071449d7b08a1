package domain

import "errors"

// ErrInvalidRequest marks caller mistakes: an unsupported horizon, an empty
// or unmappable variable list, a malformed query. It is the only error the
// forecast surface returns to clients; backend trouble degrades the answer
// instead of failing it.
var ErrInvalidRequest = errors.New("invalid request")
