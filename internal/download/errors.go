package download

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrRequestsClosed the producer of tile requests has gone away
	ErrRequestsClosed = errors.New("tile request channel closed")
	// ErrShutdown is the cancel cause of a deliberate stop of the host
	ErrShutdown = errors.New("shutdown")
)

// TransportError the connection to the tile server failed
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error on '%s': %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ResponseError the tile server answered with a non success status
type ResponseError struct {
	URL    string
	Status int
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("response error on '%s': status %d", e.URL, e.Status)
}

// DecodeError the tile data is not a supported image
type DecodeError struct {
	URL string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode error on '%s': %v", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Classify names the failure class of a download error, used for logging and metrics
func Classify(err error) string {
	var te *TransportError
	var re *ResponseError
	var de *DecodeError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &te):
		return "transport"
	case errors.As(err, &re):
		return "response"
	case errors.As(err, &de):
		return "decode"
	}
	return "unknown"
}
