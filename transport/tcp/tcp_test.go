package tcp

import (
	"bytes"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/jjpe/ipc-chan/transport"
	"golang.org/x/sync/errgroup"
)

func TestFrameRoundTrip(t *testing.T) {
	for _, payload := range [][]byte{
		[]byte("hello"),
		{},
		bytes.Repeat([]byte{0xAB}, 4096),
	} {
		var buf bytes.Buffer
		if err := writeFrame(&buf, payload); err != nil {
			t.Fatalf("write failed: %s", err)
		}

		got, err := readFrame(&buf)
		if err != nil {
			t.Fatalf("read failed: %s", err)
		}
		if !bytes.Equal(got, payload) {
			t.Errorf("payload mismatch: sent %d bytes, got %d", len(payload), len(got))
		}
	}
}

func TestFrameTooLarge(t *testing.T) {
	var buf bytes.Buffer
	if err := writeFrame(&buf, make([]byte, 8)); err != nil {
		t.Fatal(err)
	}

	// Corrupt the length prefix to claim an oversized payload.
	raw := buf.Bytes()
	raw[0], raw[1], raw[2], raw[3] = 0xFF, 0xFF, 0xFF, 0xFF

	if _, err := readFrame(bytes.NewReader(raw)); err == nil {
		t.Error("oversized frame not rejected")
	}
}

// dialSelf binds an ephemeral listener and dials it over loopback.
func dialSelf(t *testing.T) (transport.Listener, transport.Conn) {
	t.Helper()

	l, err := Listen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to bind: %s", err)
	}
	t.Cleanup(func() { l.Close() })

	_, port, err := net.SplitHostPort(l.Addr())
	if err != nil {
		t.Fatal(err)
	}

	c, err := Dial("127.0.0.1:" + port)
	if err != nil {
		t.Fatalf("failed to dial: %s", err)
	}
	t.Cleanup(func() { c.Close() })

	return l, c
}

func TestRequestReply(t *testing.T) {
	l, c := dialSelf(t)

	var g errgroup.Group
	g.Go(func() error {
		p, err := l.Recv()
		if err != nil {
			return err
		}
		if string(p) != "ping" {
			t.Errorf("unexpected request %q", p)
		}
		return l.Send([]byte("pong"))
	})

	if err := c.Send([]byte("ping")); err != nil {
		t.Fatalf("send failed: %s", err)
	}
	p, err := c.Recv()
	if err != nil {
		t.Fatalf("recv failed: %s", err)
	}
	if string(p) != "pong" {
		t.Errorf("unexpected reply %q", p)
	}

	if err = g.Wait(); err != nil {
		t.Fatal(err)
	}
}

func TestProtoState(t *testing.T) {
	l, c := dialSelf(t)

	if _, err := c.Recv(); err != transport.ErrProtoState {
		t.Errorf("expected ErrProtoState on recv-before-send, got %v", err)
	}
	if err := l.Send([]byte("x")); err != transport.ErrProtoState {
		t.Errorf("expected ErrProtoState on send-before-recv, got %v", err)
	}
}

func TestFanIn(t *testing.T) {
	l, err := Listen("127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	_, port, err := net.SplitHostPort(l.Addr())
	if err != nil {
		t.Fatal(err)
	}

	const peers, rounds = 3, 5

	var g errgroup.Group
	for i := 0; i < peers; i++ {
		id := i
		g.Go(func() error {
			c, err := Dial("127.0.0.1:" + port)
			if err != nil {
				return err
			}
			defer c.Close()

			for n := 0; n < rounds; n++ {
				msg := fmt.Sprintf("peer-%d-%d", id, n)
				if err = c.Send([]byte(msg)); err != nil {
					return err
				}
				rep, err := c.Recv()
				if err != nil {
					return err
				}
				if string(rep) != msg {
					return fmt.Errorf("reply %q routed to wrong peer (wanted %q)", rep, msg)
				}
			}
			return nil
		})
	}

	// Echo server: replies each request to whichever peer sent it.
	seen := make(map[string]bool)
	for i := 0; i < peers*rounds; i++ {
		p, err := l.Recv()
		if err != nil {
			t.Fatal(err)
		}
		if seen[string(p)] {
			t.Errorf("duplicate request %q", p)
		}
		seen[string(p)] = true
		if err = l.Send(p); err != nil {
			t.Fatal(err)
		}
	}

	if err = g.Wait(); err != nil {
		t.Fatal(err)
	}
	if len(seen) != peers*rounds {
		t.Errorf("expected %d distinct requests, saw %d", peers*rounds, len(seen))
	}
}

func TestListenerCloseUnblocksRecv(t *testing.T) {
	l, err := Listen("127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	errs := make(chan error, 1)
	go func() {
		_, err := l.Recv()
		errs <- err
	}()

	time.Sleep(10 * time.Millisecond)
	l.Close()

	select {
	case err := <-errs:
		if err != transport.ErrClosed {
			t.Errorf("expected ErrClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Error("recv not released by close")
	}
}
