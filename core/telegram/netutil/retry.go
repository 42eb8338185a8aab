package netutil

import (
	"errors"
	"net"
)

// ShouldRetry reports whether a failed Bot API call is safe to repeat.
// Only dial failures qualify: the request never left the process, so a retry
// cannot deliver the same message twice.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTemporary || dnsErr.IsTimeout
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Op == "dial"
	}
	return false
}
