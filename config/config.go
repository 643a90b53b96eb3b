// Package config holds the channel settings and the logic that locates,
// reads and writes the TOML file they live in.
package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/jjpe/ipc-chan/ipcerr"
)

const (
	// DefaultHost is where a Source connects when no config file is found.
	DefaultHost = "127.0.0.1"

	// DefaultPort is the port a Sink binds to when no config file is found.
	DefaultPort = 10001
)

// Config names the rendezvous point of one channel: Sinks bind to Port on
// the wildcard host, Sources connect to Host:Port.  A Config is immutable
// once loaded; reconstruct it explicitly to change settings.
type Config struct {
	Host string `toml:"host"`
	Port uint16 `toml:"port"`
}

// Default returns the out-of-the-box settings.
func Default() Config {
	return Config{Host: DefaultHost, Port: DefaultPort}
}

// SourceAddr is the address a Source connects to.
func (c Config) SourceAddr() string {
	return fmt.Sprintf("tcp://%s:%d", c.Host, c.Port)
}

// SinkAddr is the wildcard-host address a Sink binds to.
func (c Config) SinkAddr() string {
	return fmt.Sprintf("tcp://*:%d", c.Port)
}

// Load resolves path (see Resolve), reads the file and decodes it.  A
// missing or unopenable file is the common case and yields Default();
// only a file that exists but does not parse is an error.
func Load(path string) (Config, error) {
	resolved, err := Resolve(path)
	if err != nil {
		return Default(), nil
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return Default(), nil
	}

	var c Config
	if err = toml.Unmarshal(data, &c); err != nil {
		return Config{}, ipcerr.Wrap(ipcerr.CodeConfigDecode, err, resolved)
	}
	return c, nil
}

// OverwritePolicy controls whether Write may replace an existing file.
type OverwritePolicy int

const (
	// DontOverwrite writes the file only if it does not already exist.
	DontOverwrite OverwritePolicy = iota

	// Overwrite writes the file unconditionally.
	Overwrite
)

// Write encodes c to a TOML file at path.  Under DontOverwrite a
// pre-existing file is left untouched: the call returns nil without
// opening the destination at all.
func (c Config) Write(path string, policy OverwritePolicy) error {
	if policy == DontOverwrite {
		if _, err := os.Stat(path); err == nil {
			return nil
		} else if !os.IsNotExist(err) {
			return ipcerr.Wrap(ipcerr.CodeIO, err, path)
		}
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return ipcerr.Wrap(ipcerr.CodeConfigEncode, err, path)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return ipcerr.Wrap(ipcerr.CodeIO, err, path)
	}
	return nil
}
