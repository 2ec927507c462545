// Package metrics declares the observability interfaces the connection and
// session layers report through. Implementations are optional — passing nil
// disables collection at zero overhead, matching the nil-receiver pattern
// used throughout this interface.
package metrics

import "time"

// ConnectionMetrics observes the DSI transport: requests sent, replies
// received, tickles, and bytes moved in each direction.
type ConnectionMetrics interface {
	// RecordRequest records a completed round trip for one command type.
	RecordRequest(command string, duration time.Duration, resultCode int32)

	// RecordTickle records an outbound DSI_TICKLE.
	RecordTickle()

	// RecordAttention records an unsolicited DSI_ATTENTION from the server.
	RecordAttention()

	// RecordBytesTransferred records bytes moved on the wire, DSI header
	// included.
	// direction is "read" or "write".
	RecordBytesTransferred(direction string, bytes uint64)

	// SetPendingRequests updates the current outstanding-request gauge.
	SetPendingRequests(count int)

	// RecordConnectionClosed records the connection's terminal reason
	// ("eof", "timeout", "closed_by_caller", "protocol_error").
	RecordConnectionClosed(reason string)
}

// SessionMetrics observes login and version negotiation.
type SessionMetrics interface {
	// RecordLoginAttempt records one login attempt outcome. uam is
	// "DHCAST128" or "No User Authent"; outcome is "success" or "denied".
	RecordLoginAttempt(uam string, outcome string)

	// RecordNegotiatedVersion records the AFP version string the server
	// and client agreed on.
	RecordNegotiatedVersion(version string)
}
