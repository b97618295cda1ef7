// Package config holds the CLI configuration types.
package config

import (
	"time"

	"github.com/pkg/errors"
)

// Role represents the user's chosen role.
type Role string

const (
	RoleSend  Role = "send"  // transmit one message to a server
	RoleServe Role = "serve" // receive messages from any number of peers
	RoleDemo  Role = "demo"  // run both roles in-process over a pipe
)

// Transport selects the channel binding.
type Transport string

const (
	TransportUDP Transport = "udp"
	TransportWS  Transport = "ws"
)

// Config stores all parameters gathered from flags or the interactive
// prompts. The impairment parameters apply to both directions; each side
// of a real deployment injects its own.
type Config struct {
	Role      Role
	Transport Transport
	Addr      string // send: server address; serve: listen address
	Message   string // send/demo: the message to transmit

	Loss       float64 // packet loss probability, 0..1
	Corruption float64 // packet corruption probability, 0..1
	DelayMin   time.Duration
	DelayMax   time.Duration

	Timeout     time.Duration // ACK wait per attempt
	MaxAttempts int           // consumed attempts per chunk before giving up
	ChunkSize   int           // bytes per chunk (last chunk may be short)

	Duration time.Duration // serve: optional run bound, 0 = until interrupted
	IdleTTL  time.Duration // serve: evict peer state idle longer than this

	Seed uint64 // impairment RNG seed, 0 = time-based
}

// Default returns the baseline configuration, mirroring the defaults of
// the interactive demo.
func Default() Config {
	return Config{
		Role:        RoleDemo,
		Transport:   TransportUDP,
		Addr:        "127.0.0.1:5000",
		Message:     "Hello, RUDP! This is a test of reliable communication.",
		Loss:        0.2,
		Corruption:  0.1,
		DelayMin:    50 * time.Millisecond,
		DelayMax:    200 * time.Millisecond,
		Timeout:     time.Second,
		MaxAttempts: 3,
		ChunkSize:   5,
		IdleTTL:     5 * time.Minute,
	}
}

// Validate rejects parameter combinations the engines cannot honor.
func (c *Config) Validate() error {
	if c.Loss < 0 || c.Loss > 1 {
		return errors.Errorf("loss probability %v outside [0,1]", c.Loss)
	}
	if c.Corruption < 0 || c.Corruption > 1 {
		return errors.Errorf("corruption probability %v outside [0,1]", c.Corruption)
	}
	if c.DelayMin < 0 || c.DelayMax < c.DelayMin {
		return errors.Errorf("invalid delay range %v..%v", c.DelayMin, c.DelayMax)
	}
	if c.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	if c.MaxAttempts < 1 {
		return errors.New("max attempts must be at least 1")
	}
	if c.ChunkSize < 1 {
		return errors.New("chunk size must be at least 1")
	}
	return nil
}
