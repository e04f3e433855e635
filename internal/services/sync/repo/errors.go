package repo

import "errors"

var errUnknownAppendOnlyEntity = errors.New("sync: entity type has no append-only table")
