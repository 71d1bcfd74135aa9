package faceapi

import "errors"

var (
	ErrServiceUnavailable = errors.New("faceapi service unavailable")
	ErrInvalidResponse    = errors.New("invalid response from faceapi")
	ErrModelLoad          = errors.New("faceapi could not load models")
)
