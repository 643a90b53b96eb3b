package ipcchan

import (
	"fmt"
	"sync"

	"github.com/jjpe/ipc-chan/config"
	"github.com/jjpe/ipc-chan/ipcerr"
	"github.com/jjpe/ipc-chan/transport"
	uuid "github.com/satori/go.uuid"
)

// Source is the sending endpoint of a channel.  Each Send blocks for one
// full round-trip: the value goes out as a request frame and the call
// returns only once the Sink's acknowledgment has been received and
// verified.  A Source must be driven by one caller at a time.
type Source struct {
	id   uuid.UUID
	ctx  *Context
	conn transport.Conn
	cfg  config.Config
	own  bool // ctx is private to this endpoint
	once sync.Once
}

// NewSource connects a Source using cfg, with a Context private to the
// endpoint.  Prefer creating endpoints from a shared Context when the
// process opens more than one.
func NewSource(cfg config.Config) (*Source, error) {
	c := NewContext()
	s, err := c.NewSource(cfg)
	if err != nil {
		c.Close()
		return nil, err
	}
	s.own = true
	return s, nil
}

// SourceFromFile loads (or defaults) the config at path and connects a
// Source with it.
func SourceFromFile(path string) (*Source, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return NewSource(cfg)
}

// Send encodes value, transmits it as a single request frame and blocks
// until the Sink's reply arrives.  The reply must decode to the
// acknowledgment token; anything else fails the call.  The handshake is
// verified on every build.
func (s *Source) Send(value interface{}) error {
	p, err := encodeValue(value)
	if err != nil {
		return err
	}

	if err = s.conn.Send(p); err != nil {
		return ipcerr.Wrap(ipcerr.CodeTransport, err, "send")
	}

	rep, err := s.conn.Recv()
	if err != nil {
		return ipcerr.Wrap(ipcerr.CodeTransport, err, "receive ack")
	}

	var token string
	if err = decodeText(rep, &token); err != nil {
		return err
	}
	if token != ack {
		return ipcerr.New(ipcerr.CodeTransport, fmt.Sprintf("unexpected acknowledgment %q", token))
	}
	return nil
}

// Sendf formats its arguments and sends the resulting string.
func (s *Source) Sendf(format string, args ...interface{}) error {
	return s.Send(fmt.Sprintf(format, args...))
}

// ID identifies this endpoint.
func (s *Source) ID() uuid.UUID { return s.id }

// Config reports the settings the Source was built from.  Zero for
// Sources dialed by explicit address.
func (s *Source) Config() config.Config { return s.cfg }

// Close releases the underlying transport connection.
func (s *Source) Close() error {
	s.ctx.forget(s.id)
	err := s.shutdown()
	if s.own {
		s.ctx.Close()
	}
	return err
}

func (s *Source) shutdown() (err error) {
	s.once.Do(func() { err = s.conn.Close() })
	return
}
