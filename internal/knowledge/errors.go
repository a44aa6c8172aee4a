package knowledge

import "errors"

// ErrConfig indicates a malformed knowledge base definition. It is fatal at
// startup and rejected on reload.
var ErrConfig = errors.New("knowledge: invalid configuration")
