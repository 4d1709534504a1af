// Package validate provides input validation, sanitization, and limits for
// the postplan package.
package validate
