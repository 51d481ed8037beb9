// Package repository contains the persistence layer: one repository per
// table over database/sql, plus the Gateway that groups them into the
// transactional surface the workflow engine runs against. Sentinel
// errors defined here let higher layers distinguish failure scenarios
// without string matching.
package repository

import "errors"

// ErrUsernameExists is returned by UserRepo.Create when the username
// or email collides with an existing account. Handlers translate it
// into an HTTP 409 response.
var ErrUsernameExists = errors.New("username or email already exists")
