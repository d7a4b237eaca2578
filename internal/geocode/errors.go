package geocode

import (
	"errors"
	"fmt"
)

var (
	// ErrNoCityAtLocation means the coordinate resolved to no identifiable city.
	ErrNoCityAtLocation = errors.New("there seems not to be any city on this location, please drop a pin somewhere else")
	// ErrTransport covers network failures and malformed responses.
	ErrTransport = errors.New("could not reach the geocoding service, please try again")
	// ErrInvalidCoordinate is returned before any request for non-finite input.
	ErrInvalidCoordinate = errors.New("coordinate must be a finite number")
)

// Error is returned by ReverseGeocode. Kind is ErrNoCityAtLocation or
// ErrTransport and carries the user-facing message.
type Error struct {
	Kind error
	Lat  float64
	Lng  float64
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("reverse geocode %.4f,%.4f: %v", e.Lat, e.Lng, e.Kind)
	}
	return fmt.Sprintf("reverse geocode %.4f,%.4f: %v: %v", e.Lat, e.Lng, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Message returns the text to show the user for err.
func Message(err error) string {
	var gerr *Error
	if errors.As(err, &gerr) {
		return capitalize(gerr.Kind.Error())
	}
	return capitalize(err.Error())
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	if s[0] >= 'a' && s[0] <= 'z' {
		return string(s[0]-'a'+'A') + s[1:]
	}
	return s
}
