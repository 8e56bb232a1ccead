package errors

import "net/http"

var ErrCardNotFound = &Exception{
	Message:    "card not found",
	StatusCode: http.StatusNotFound,
}

var ErrCardIDRequired = &Exception{
	Message:    "card id is required",
	StatusCode: http.StatusBadRequest,
}

var ErrCardExists = &Exception{
	Message:    "card already exists",
	StatusCode: http.StatusConflict,
}
