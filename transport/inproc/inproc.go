// Package inproc implements the request-reply transport over in-process
// channels.  Useful for tests and for wiring a Source and Sink that live
// in the same process without touching the network.
package inproc

import (
	"sync"

	"github.com/SentimensRG/ctx"
	"github.com/jjpe/ipc-chan/transport"
)

type request struct {
	payload []byte
	rep     chan []byte
}

// binding is one bound address.  Its Doner fires when the listener closes,
// releasing every dialer blocked on it.
type binding struct {
	ctx.Doner
	addr string
	reqs chan request
}

// Registry maps addresses to bindings.  Each channel Context owns one, so
// inproc names are scoped to the Context rather than to the process.
type Registry struct {
	sync.RWMutex
	bindings map[string]*binding
}

func NewRegistry() *Registry {
	return &Registry{bindings: make(map[string]*binding)}
}

// Listen binds addr.  Fails with ErrAddrInUse on collision; the slot is
// released when the returned listener closes.
func (r *Registry) Listen(addr string) (transport.Listener, error) {
	r.Lock()
	defer r.Unlock()

	if _, exists := r.bindings[addr]; exists {
		return nil, transport.ErrAddrInUse
	}

	done := make(chan struct{})
	b := &binding{
		Doner: ctx.C(done),
		addr:  addr,
		reqs:  make(chan request),
	}
	r.bindings[addr] = b

	ctx.Defer(b, func() {
		r.Lock()
		delete(r.bindings, addr)
		r.Unlock()
	})

	return &listener{b: b, done: done}, nil
}

// Dial connects to a bound addr, or fails with ErrConnRefused.
func (r *Registry) Dial(addr string) (transport.Conn, error) {
	r.RLock()
	b, ok := r.bindings[addr]
	r.RUnlock()

	if !ok {
		return nil, transport.ErrConnRefused
	}
	return &conn{b: b, rep: make(chan []byte, 1)}, nil
}

type conn struct {
	b      *binding
	rep    chan []byte
	await  bool // a reply is owed for the last request
	closed bool
}

func (c *conn) Send(p []byte) error {
	if c.closed {
		return transport.ErrClosed
	}
	if c.await {
		return transport.ErrProtoState
	}

	select {
	case c.b.reqs <- request{payload: append([]byte(nil), p...), rep: c.rep}:
		c.await = true
		return nil
	case <-c.b.Done():
		return transport.ErrClosed
	}
}

func (c *conn) Recv() ([]byte, error) {
	if c.closed {
		return nil, transport.ErrClosed
	}
	if !c.await {
		return nil, transport.ErrProtoState
	}

	// A reply handed off before the listener closed must still be
	// delivered, so the reply slot wins over teardown.
	select {
	case p := <-c.rep:
		c.await = false
		return p, nil
	default:
	}

	select {
	case p := <-c.rep:
		c.await = false
		return p, nil
	case <-c.b.Done():
		return nil, transport.ErrClosed
	}
}

func (c *conn) Close() error {
	c.closed = true
	return nil
}

type listener struct {
	b       *binding
	done    chan struct{}
	pending chan []byte // reply slot of the last received request
	once    sync.Once
}

func (l *listener) Recv() ([]byte, error) {
	if l.pending != nil {
		return nil, transport.ErrProtoState
	}

	select {
	case q := <-l.b.reqs:
		l.pending = q.rep
		return q.payload, nil
	case <-l.done:
		return nil, transport.ErrClosed
	}
}

func (l *listener) Send(p []byte) error {
	if l.pending == nil {
		return transport.ErrProtoState
	}

	// The slot is buffered; handing off the reply never blocks.
	l.pending <- append([]byte(nil), p...)
	l.pending = nil
	return nil
}

func (l *listener) Addr() string { return l.b.addr }

func (l *listener) Close() error {
	l.once.Do(func() { close(l.done) })
	return nil
}
