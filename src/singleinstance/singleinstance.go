package singleinstance

// Single-instance ownership and activation delegation over a loopback TCP line
// protocol:
//
//	PING\n                 -> PONG\n
//	CLIPBOARD\n | STDOUT\n -> SUCCESS\n<text> | ERROR\n<message>
//
// The resident instance answers once the delegated selection session ends.

import (
	"context"
	"errors"
	"time"
)

const (
	residentHost = "127.0.0.1"

	pingRequest      = "PING\n"
	pongResponse     = "PONG\n"
	clipboardRequest = "CLIPBOARD\n"
	stdoutRequest    = "STDOUT\n"
	successStatus    = "SUCCESS\n"
	errorStatus      = "ERROR\n"
)

var ErrUnknownRequest = errors.New("unknown request")

// Server owns the TCP endpoint and answers activation requests.
type Server interface {
	// Start begins listening on the first port of the configured range.
	Start(ctx context.Context) error
	// Port returns the bound TCP port, or 0 if not started.
	Port() int
	// Next returns the next accepted connection as a Conn, or ctx error.
	Next(ctx context.Context) (Conn, error)
	// Close releases ownership and stops accepting clients.
	Close() error
}

// Conn represents one client connection and exposes request + response API.
type Conn interface {
	Request() Request
	// RespondSuccess sends success. For stdout mode, send text; for clipboard mode, send empty text.
	RespondSuccess(text string) error
	RespondError(msg string) error
	Close() error
}

// Request is a single activation request.
type Request struct {
	OutputToStdout bool
	Received       time.Time
}

// Client delegates an activation to a resident instance.
type Client interface {
	// TryActivate scans the port range, performs the handshake and waits for
	// the resident to finish the session. If no resident is found it returns
	// delegated=false, err=nil.
	TryActivate(ctx context.Context, outputToStdout bool) (delegated bool, text string, err error)
}

// RemoteError carries the message of an ERROR response.
type RemoteError struct {
	Msg string
}

func (e *RemoteError) Error() string { return e.Msg }

// NewServer returns TCP implementation.
func NewServer() Server { return newTCPServer() }

// NewClient returns TCP implementation.
func NewClient() Client { return newTCPClient() }

func parseRequest(line string) (Request, error) {
	switch line {
	case clipboardRequest:
		return Request{Received: time.Now()}, nil
	case stdoutRequest:
		return Request{OutputToStdout: true, Received: time.Now()}, nil
	}
	return Request{}, ErrUnknownRequest
}

func requestLine(outputToStdout bool) string {
	if outputToStdout {
		return stdoutRequest
	}
	return clipboardRequest
}

func modeName(r Request) string {
	if r.OutputToStdout {
		return "STDOUT"
	}
	return "CLIPBOARD"
}
