package client

import "errors"

var ErrUnavailable = errors.New("device unavailable")
