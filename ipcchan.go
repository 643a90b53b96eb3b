// Package ipcchan provides typed, synchronous inter-process channels.
//
// A Source sends values and blocks until the receiving Sink acknowledges
// each one; a Sink receives values and acknowledges each before accepting
// the next.  Values are JSON-encoded, one frame per value, over a strict
// request-reply transport (TCP, or in-process channels for endpoints
// sharing a Context).  Any number of Sources may feed one Sink.
package ipcchan

import (
	"encoding/json"
	"sync"
	"unicode/utf8"

	"github.com/jjpe/ipc-chan/config"
	"github.com/jjpe/ipc-chan/ipcerr"
	"github.com/jjpe/ipc-chan/transport"
	"github.com/jjpe/ipc-chan/transport/inproc"
	"github.com/jjpe/ipc-chan/transport/tcp"
	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"
)

// ack is the fixed handshake token a Sink replies with after a successful
// receive.  It's a little passive-aggressive, but it'll work.
const ack = "K"

// Context owns the transport state shared by the endpoints created from
// it.  Endpoints must not outlive their Context: Close tears down every
// Source and Sink still open.  A Context is safe to share across
// goroutines; individual endpoints are not.
type Context struct {
	inproc *inproc.Registry

	mu     sync.Mutex
	eps    map[uuid.UUID]endpoint
	closed bool
}

// endpoint is the teardown hook a Source or Sink registers with its
// Context.  shutdown must not call back into the Context.
type endpoint interface {
	shutdown() error
}

// NewContext creates an empty Context.
func NewContext() *Context {
	return &Context{
		inproc: inproc.NewRegistry(),
		eps:    make(map[uuid.UUID]endpoint),
	}
}

// NewSource connects a Source to cfg's host and port over TCP.
func (c *Context) NewSource(cfg config.Config) (*Source, error) {
	s, err := c.DialSource(cfg.SourceAddr())
	if err != nil {
		return nil, err
	}
	s.cfg = cfg
	return s, nil
}

// NewSink binds a Sink to cfg's port on the wildcard host over TCP.
func (c *Context) NewSink(cfg config.Config) (*Sink, error) {
	k, err := c.BindSink(cfg.SinkAddr())
	if err != nil {
		return nil, err
	}
	k.cfg = cfg
	return k, nil
}

// DialSource connects a Source to an explicit address ("tcp://host:port"
// or "inproc://name").  Something must already be bound there: the
// request-reply pattern needs a listener before a requester.
func (c *Context) DialSource(address string) (*Source, error) {
	conn, err := c.dial(address)
	if err != nil {
		return nil, err
	}

	s := &Source{id: uuid.NewV4(), ctx: c, conn: conn}
	if err = c.track(s.id, s); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// BindSink binds a Sink to an explicit address ("tcp://*:port", ":0" for
// an ephemeral port, or "inproc://name").
func (c *Context) BindSink(address string) (*Sink, error) {
	l, err := c.listen(address)
	if err != nil {
		return nil, err
	}

	k := &Sink{id: uuid.NewV4(), ctx: c, l: l}
	if err = c.track(k.id, k); err != nil {
		l.Close()
		return nil, err
	}
	return k, nil
}

// Channel establishes both halves of a channel on cfg.  The Sink is bound
// before the Source connects; the reverse order would be refused by the
// transport.
func (c *Context) Channel(cfg config.Config) (*Source, *Sink, error) {
	k, err := c.NewSink(cfg)
	if err != nil {
		return nil, nil, err
	}

	s, err := c.NewSource(cfg)
	if err != nil {
		k.Close()
		return nil, nil, err
	}
	return s, k, nil
}

// Close tears down the Context and every endpoint created from it.
func (c *Context) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	var first error
	for id, ep := range c.eps {
		if err := ep.shutdown(); err != nil && first == nil {
			first = err
		}
		delete(c.eps, id)
	}
	return first
}

func (c *Context) dial(address string) (transport.Conn, error) {
	a, err := parseAddr(address)
	if err != nil {
		return nil, ipcerr.Wrap(ipcerr.CodeTransport, err, "connect")
	}

	var conn transport.Conn
	switch a.scheme {
	case schemeTCP:
		conn, err = tcp.Dial(a.target)
	case schemeInproc:
		conn, err = c.inproc.Dial(a.target)
	}
	if err != nil {
		return nil, ipcerr.Wrap(ipcerr.CodeTransport, err, "connect")
	}
	return conn, nil
}

func (c *Context) listen(address string) (transport.Listener, error) {
	a, err := parseAddr(address)
	if err != nil {
		return nil, ipcerr.Wrap(ipcerr.CodeTransport, err, "bind")
	}

	var l transport.Listener
	switch a.scheme {
	case schemeTCP:
		l, err = tcp.Listen(a.target)
	case schemeInproc:
		l, err = c.inproc.Listen(a.target)
	}
	if err != nil {
		return nil, ipcerr.Wrap(ipcerr.CodeTransport, err, "bind")
	}
	return l, nil
}

func (c *Context) track(id uuid.UUID, ep endpoint) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errors.New("context closed")
	}
	c.eps[id] = ep
	return nil
}

func (c *Context) forget(id uuid.UUID) {
	c.mu.Lock()
	delete(c.eps, id)
	c.mu.Unlock()
}

// encodeValue runs the payload codec: one value, one text frame.
func encodeValue(v interface{}) ([]byte, error) {
	p, err := json.Marshal(v)
	if err != nil {
		return nil, ipcerr.Wrap(ipcerr.CodeEncode, err, "encode value")
	}
	return p, nil
}

// decodeText validates a frame as UTF-8 text before handing it to the
// codec.  Raw non-text bytes are retained in the error.
func decodeText(p []byte, v interface{}) error {
	if !utf8.Valid(p) {
		return ipcerr.NotUTF8(p)
	}
	if err := json.Unmarshal(p, v); err != nil {
		return ipcerr.Wrap(ipcerr.CodeDecode, err, "decode value")
	}
	return nil
}
