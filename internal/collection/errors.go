package collection

import "errors"

// ErrSchemaConflict is wrapped when an existing collection's schema differs
// incompatibly from the configured one.
var ErrSchemaConflict = errors.New("schema conflict")

// ErrValidation is wrapped when a record or query does not conform to the
// active schema. Validation failures reject the whole batch before anything
// is sent to the database.
var ErrValidation = errors.New("validation failed")
