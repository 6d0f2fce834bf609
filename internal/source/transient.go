// SPDX-License-Identifier: MPL-2.0

package source

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/transport"
)

// transientMessages are error fragments of network failures worth retrying.
var transientMessages = []string{
	"Temporary failure resolving",
	"Could not resolve host",
	"connection timed out",
	"connection refused",
	"connection reset by peer",
	"i/o timeout",
	"TLS handshake timeout",
	"unexpected EOF",
	"502 Bad Gateway",
	"503 Service Unavailable",
}

// IsTransientError reports whether a clone error may succeed on retry.
// Cancellation and authentication or lookup failures are never transient.
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	if errors.Is(err, transport.ErrRepositoryNotFound) ||
		errors.Is(err, transport.ErrAuthenticationRequired) ||
		errors.Is(err, transport.ErrAuthorizationFailed) ||
		errors.Is(err, transport.ErrInvalidAuthMethod) ||
		errors.Is(err, transport.ErrEmptyRemoteRepository) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	errStr := err.Error()
	for _, msg := range transientMessages {
		if strings.Contains(errStr, msg) {
			return true
		}
	}
	return false
}
