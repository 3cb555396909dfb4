package controller

import "errors"

// Precondition errors returned by the controller. None of them changes state.
var (
	ErrClosed             = errors.New("controller closed")
	ErrMissingReference   = errors.New("missing identifier")
	ErrMissingDestination = errors.New("missing destination")
	ErrBusy               = errors.New("a download is already in progress")
	ErrInvalidRange       = errors.New("start time must be before end time")
	ErrDependencyMissing  = errors.New("ffmpeg is not installed")
	ErrInstalling         = errors.New("ffmpeg install already in progress")
	ErrUnknownQuality     = errors.New("unknown quality")
)
