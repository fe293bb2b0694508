package router

import "errors"

// ErrDuplicateTopic is returned when an exact topic is registered twice.
var ErrDuplicateTopic = errors.New("router: topic already registered")

// ErrPrefixConflict is returned when two registered prefixes overlap.
var ErrPrefixConflict = errors.New("router: conflicting prefix registration")
