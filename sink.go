package ipcchan

import (
	"sync"

	"github.com/jjpe/ipc-chan/config"
	"github.com/jjpe/ipc-chan/ipcerr"
	"github.com/jjpe/ipc-chan/transport"
	uuid "github.com/satori/go.uuid"
)

// Sink is the receiving endpoint of a channel.  It accepts requests from
// any number of connected Sources; each receive acknowledges exactly one
// request before the next is accepted.  A Sink must be driven by one
// caller at a time.
type Sink struct {
	id   uuid.UUID
	ctx  *Context
	l    transport.Listener
	cfg  config.Config
	own  bool
	once sync.Once
}

// NewSink binds a Sink using cfg, with a Context private to the endpoint.
func NewSink(cfg config.Config) (*Sink, error) {
	c := NewContext()
	k, err := c.NewSink(cfg)
	if err != nil {
		c.Close()
		return nil, err
	}
	k.own = true
	return k, nil
}

// SinkFromFile loads (or defaults) the config at path and binds a Sink
// with it.
func SinkFromFile(path string) (*Sink, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return NewSink(cfg)
}

// RecvInto blocks until a value arrives, decodes it into v (which must be
// a pointer) and acknowledges it.
//
// The acknowledgment is sent even when decoding fails: the request has
// already been consumed from the transport, and withholding the reply
// would leave the paired Source blocked forever.  The decode error is
// then returned to the caller.
func (k *Sink) RecvInto(v interface{}) error {
	p, err := k.l.Recv()
	if err != nil {
		return ipcerr.Wrap(ipcerr.CodeTransport, err, "receive")
	}

	decodeErr := decodeText(p, v)

	rep, err := encodeValue(ack)
	if err != nil {
		return err
	}
	if err = k.l.Send(rep); err != nil {
		return ipcerr.Wrap(ipcerr.CodeTransport, err, "send ack")
	}

	return decodeErr
}

// Recv receives one value of type V from snk.
func Recv[V any](snk *Sink) (V, error) {
	var v V
	err := snk.RecvInto(&v)
	return v, err
}

// ID identifies this endpoint.
func (k *Sink) ID() uuid.UUID { return k.id }

// Config reports the settings the Sink was built from.  Zero for Sinks
// bound by explicit address.
func (k *Sink) Config() config.Config { return k.cfg }

// Addr reports the bound address, useful with ephemeral ports.
func (k *Sink) Addr() string { return k.l.Addr() }

// Close releases the underlying listener and disconnects its Sources.
func (k *Sink) Close() error {
	k.ctx.forget(k.id)
	err := k.shutdown()
	if k.own {
		k.ctx.Close()
	}
	return err
}

func (k *Sink) shutdown() (err error) {
	k.once.Do(func() { err = k.l.Close() })
	return
}
