package errors

import "net/http"

// ErrOptimisticLock means the card's version moved between read and write.
var ErrOptimisticLock = &Exception{
	Message:    "card was modified concurrently",
	StatusCode: http.StatusConflict,
}
