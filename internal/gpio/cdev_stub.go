//go:build !linux

package gpio

import "errors"

// CdevFacility is not available on non-Linux platforms.
type CdevFacility struct{}

// NewCdev returns an error on non-Linux platforms.
func NewCdev(chip, consumer string) (*CdevFacility, error) {
	return nil, errors.New("gpio: character device not supported on this platform (requires Linux)")
}

// Output is not implemented on non-Linux platforms.
func (f *CdevFacility) Output(channel int, high bool) (Output, error) {
	return nil, errors.New("gpio: not supported")
}

// Input is not implemented on non-Linux platforms.
func (f *CdevFacility) Input(channel int, pull Pull, onEdge EdgeHandler) (Input, error) {
	return nil, errors.New("gpio: not supported")
}

// Close is a no-op on non-Linux platforms.
func (f *CdevFacility) Close() error {
	return nil
}
