package main

import "errors"

var errPendingSave = errors.New("ticket document has unsaved changes")
