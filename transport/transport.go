// Package transport defines the blocking request-reply primitives the
// channel core is built on.  Implementations live in the tcp and inproc
// subpackages; the core consumes only these interfaces.
//
// Both sides enforce the request-reply discipline structurally: a Conn
// must alternate Send and Recv starting with Send, a Listener must
// alternate Recv and Send starting with Recv.  Calls out of order fail
// with ErrProtoState rather than corrupting the stream.
package transport

import "errors"

var (
	// ErrClosed is returned once the endpoint, or the peer it talks to,
	// has been closed.
	ErrClosed = errors.New("transport closed")

	// ErrProtoState marks a call that violates the strict send/receive
	// alternation.  This is a usage error, not a wire failure.
	ErrProtoState = errors.New("incorrect protocol state")

	// ErrConnRefused is returned by a dial when nothing is bound at the
	// requested address.
	ErrConnRefused = errors.New("connection refused")

	// ErrAddrInUse is returned by a bind when the address already has a
	// listener.
	ErrAddrInUse = errors.New("address in use")
)

// Conn is the requester half: exactly one Recv per Send, in that order.
// A Conn is owned by a single logical caller; it is not safe for
// concurrent use.
type Conn interface {
	// Send transmits one request frame.  Blocks until the frame has been
	// handed to the peer's transport.
	Send(p []byte) error

	// Recv blocks until the reply frame for the last Send arrives.
	Recv() ([]byte, error)

	Close() error
}

// Listener is the responder half: it accepts any number of Conns on one
// address and interleaves their requests into a single serial stream.
// Each Recv must be answered with one Send before the next Recv; the
// reply goes to whichever peer produced the last received request.
// Like Conn, a Listener is driven by one caller at a time.
type Listener interface {
	// Recv blocks until a request frame arrives from any connected peer.
	Recv() ([]byte, error)

	// Send transmits the reply frame for the last received request.
	Send(p []byte) error

	// Addr reports the bound address.
	Addr() string

	Close() error
}
