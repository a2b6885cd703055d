package common

import "errors"

var (
	ErrShareNotFound          = errors.New("file does not exist")
	ErrShareIsDirectory       = errors.New("you cannot share a directory")
	ErrDestinationIsDirectory = errors.New("output file is a directory")
	ErrNoNetwork              = errors.New("you are not connected to a network")
	ErrMalformedOffer         = errors.New("malformed discovery offer")
	ErrUnexpectedStatus       = errors.New("unexpected response status")
	ErrRangeMismatch          = errors.New("response range does not match resume offset")
)
