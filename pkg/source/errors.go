package source

import "errors"

var (
	ErrUnknownType  = errors.New("unknown source type")
	ErrNoPath       = errors.New("file source needs a path")
	ErrEmptyReply   = errors.New("empty reply from agent list service")
	ErrRemoteFailed = errors.New("agent list service returned an error")
)
