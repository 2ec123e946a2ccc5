package match

import "errors"

// ErrBusy is returned when a lookup is requested while another is running.
var ErrBusy = errors.New("color lookup already in progress")
