package errors

import "net/http"

var ErrInvalidJSON = &Exception{
	Message:    "invalid JSON payload",
	StatusCode: http.StatusBadRequest,
}

var ErrUserRequired = &Exception{
	Message:    "user identity is required",
	StatusCode: http.StatusUnauthorized,
}
