package backend

import "errors"

var (
	errUnknownHandle = errors.New("unknown storage handle")
	errNotADirectory = errors.New("destination is not a directory")
)
