package error

// GenericError is implemented by every classified error in this package so the
// REST recovery middleware can map a panic to a proper HTTP response.
type GenericError interface {
	Error() string
	ErrCode() string
	StatusCode() int
}
