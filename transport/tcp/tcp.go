// Package tcp implements the request-reply transport over TCP with
// length-prefixed frames.
package tcp

import (
	"net"
	"sync"

	"github.com/jjpe/ipc-chan/transport"
	"github.com/pkg/errors"
)

// Dial opens the requester half of a channel to addr ("host:port").
func Dial(addr string) (transport.Conn, error) {
	c, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", addr)
	}
	return &conn{c: c}, nil
}

// Listen binds the responder half to addr (":port" binds the wildcard
// host).  Requests from all connected peers are interleaved into the
// returned Listener in arrival order.
func Listen(addr string) (transport.Listener, error) {
	nl, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "bind %s", addr)
	}

	l := &listener{
		nl:   nl,
		reqs: make(chan request),
		done: make(chan struct{}),
	}
	go l.acceptLoop()
	return l, nil
}

type conn struct {
	c     net.Conn
	await bool
}

func (c *conn) Send(p []byte) error {
	if c.await {
		return transport.ErrProtoState
	}
	if err := writeFrame(c.c, p); err != nil {
		return errors.Wrap(err, "send request")
	}
	c.await = true
	return nil
}

func (c *conn) Recv() ([]byte, error) {
	if !c.await {
		return nil, transport.ErrProtoState
	}
	p, err := readFrame(c.c)
	if err != nil {
		return nil, errors.Wrap(err, "receive reply")
	}
	c.await = false
	return p, nil
}

func (c *conn) Close() error { return c.c.Close() }

type request struct {
	payload []byte
	rep     chan []byte
}

type listener struct {
	nl   net.Listener
	reqs chan request
	done chan struct{}
	once sync.Once

	pending chan []byte
}

func (l *listener) acceptLoop() {
	for {
		c, err := l.nl.Accept()
		if err != nil {
			return // listener closed
		}
		go l.serve(c)
	}
}

// serve pumps one peer.  The peer cannot legally pipeline requests, so the
// read-deliver-reply cycle is strictly serial per connection; fairness
// across peers falls out of the shared request channel.
func (l *listener) serve(c net.Conn) {
	defer c.Close()

	for {
		p, err := readFrame(c)
		if err != nil {
			return // peer gone
		}

		q := request{payload: p, rep: make(chan []byte, 1)}

		select {
		case l.reqs <- q:
		case <-l.done:
			return
		}

		select {
		case rep := <-q.rep:
			if err = writeFrame(c, rep); err != nil {
				return
			}
		case <-l.done:
			return
		}
	}
}

func (l *listener) Recv() ([]byte, error) {
	if l.pending != nil {
		return nil, transport.ErrProtoState
	}

	select {
	case q := <-l.reqs:
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

	l.pending <- p
	l.pending = nil
	return nil
}

func (l *listener) Addr() string { return l.nl.Addr().String() }

func (l *listener) Close() error {
	var err error
	l.once.Do(func() {
		close(l.done)
		err = l.nl.Close()
	})
	return err
}
