package ipcchan

import "testing"

func TestParseAddr(t *testing.T) {
	for _, tt := range []struct {
		in     string
		want   addr
		failed bool
	}{
		{in: "tcp://127.0.0.1:10001", want: addr{scheme: "tcp", target: "127.0.0.1:10001"}},
		{in: "tcp://*:10001", want: addr{scheme: "tcp", target: ":10001"}},
		{in: "inproc://worker", want: addr{scheme: "inproc", target: "worker"}},
		{in: "inproc://", failed: true},
		{in: "127.0.0.1:10001", failed: true},
		{in: "ipc:///tmp/sock", failed: true},
	} {
		got, err := parseAddr(tt.in)
		if tt.failed {
			if err == nil {
				t.Errorf("%q: expected parse failure", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: unexpected error %s", tt.in, err)
		} else if got != tt.want {
			t.Errorf("%q: expected %+v, got %+v", tt.in, tt.want, got)
		}
	}
}
