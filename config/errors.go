package config

import "errors"

// ErrInvalidConfig matches every configuration error.
var ErrInvalidConfig = errors.New("config: invalid config")
