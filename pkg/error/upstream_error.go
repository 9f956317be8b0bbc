package error

import (
	"errors"
	"net/http"
)

// Classified failures from the image-matcher upstream. RateLimitedError and
// UpstreamNetworkError are the only retryable classes.

type RateLimitedError string

func (err RateLimitedError) Error() string {
	return string(err)
}

func (err RateLimitedError) ErrCode() string {
	return "RATE_LIMITED"
}

func (err RateLimitedError) StatusCode() int {
	return http.StatusTooManyRequests
}

type UpstreamNetworkError string

func (err UpstreamNetworkError) Error() string {
	return string(err)
}

func (err UpstreamNetworkError) ErrCode() string {
	return "NETWORK_ERROR"
}

func (err UpstreamNetworkError) StatusCode() int {
	return http.StatusBadGateway
}

type InvalidParamsError string

func (err InvalidParamsError) Error() string {
	return string(err)
}

func (err InvalidParamsError) ErrCode() string {
	return "INVALID_PARAMS"
}

func (err InvalidParamsError) StatusCode() int {
	return http.StatusBadRequest
}

// EmptyResultError means the upstream answered successfully but returned zero
// usable image URLs. Never retried.
type EmptyResultError string

func (err EmptyResultError) Error() string {
	return string(err)
}

func (err EmptyResultError) ErrCode() string {
	return "NO_IMAGES"
}

func (err EmptyResultError) StatusCode() int {
	return http.StatusNotFound
}

type UnknownUpstreamError string

func (err UnknownUpstreamError) Error() string {
	return string(err)
}

func (err UnknownUpstreamError) ErrCode() string {
	return "UNKNOWN_ERROR"
}

func (err UnknownUpstreamError) StatusCode() int {
	return http.StatusInternalServerError
}

// IsRetryable reports whether a classified upstream error is worth another
// attempt with backoff.
func IsRetryable(err error) bool {
	var rl RateLimitedError
	var nw UpstreamNetworkError
	return errors.As(err, &rl) || errors.As(err, &nw)
}
