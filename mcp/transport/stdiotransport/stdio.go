// Package stdiotransport serves the JSON-RPC channel over standard input and
// output, one message per line. This is the channel MCP clients spawn the
// server with as a subprocess.
package stdiotransport

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/mlziade/librarian/mcp/transport"
)

const maxLineSize = 4 * 1024 * 1024

// StdioTransport reads line-delimited JSON-RPC messages from its reader and
// writes replies to its writer. Messages are handled one at a time in arrival
// order.
type StdioTransport struct {
	reader io.Reader
	writer io.Writer

	mu             sync.RWMutex
	writeMu        sync.Mutex
	closed         bool
	messageHandler func(ctx context.Context, message *transport.BaseJsonRpcMessage)
	errorHandler   func(error)
	closeHandler   func()
}

// New creates a transport bound to os.Stdin and os.Stdout.
func New() *StdioTransport {
	return &StdioTransport{
		reader: os.Stdin,
		writer: os.Stdout,
	}
}

// WithIO overrides the reader and writer, for tests.
func (t *StdioTransport) WithIO(r io.Reader, w io.Writer) *StdioTransport {
	t.reader = r
	t.writer = w
	return t
}

// Start reads messages until EOF or context cancellation. A line that fails
// to decode produces a parse error reply on stdout; the loop continues with
// the next line.
func (t *StdioTransport) Start(ctx context.Context) error {
	scanner := bufio.NewScanner(t.reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		if ctx.Err() != nil {
			break
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		message, err := transport.DecodeMessage(line)
		if err != nil {
			if sendErr := t.Send(ctx, transport.ParseErrorMessage(err)); sendErr != nil {
				t.reportError(sendErr)
			}
			continue
		}

		t.mu.RLock()
		handler := t.messageHandler
		t.mu.RUnlock()
		if handler != nil {
			handler(ctx, message)
		}
	}

	t.mu.Lock()
	alreadyClosed := t.closed
	t.closed = true
	handler := t.closeHandler
	t.mu.Unlock()
	if !alreadyClosed && handler != nil {
		handler()
	}

	// A read error provoked by Close tearing down the reader is a clean
	// shutdown, not a failure.
	if err := scanner.Err(); err != nil && !alreadyClosed {
		return errors.Wrap(err, "stdio transport")
	}
	return nil
}

// Send writes one message followed by a newline.
func (t *StdioTransport) Send(ctx context.Context, message *transport.BaseJsonRpcMessage) error {
	data, err := json.Marshal(message)
	if err != nil {
		return errors.Wrap(err, "failed to marshal message")
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if _, err := t.writer.Write(append(data, '\n')); err != nil {
		return errors.Wrap(err, "failed to write message")
	}
	return nil
}

// Close marks the transport closed and closes the reader when it supports
// that, which unblocks a Start loop waiting on input.
func (t *StdioTransport) Close() error {
	t.mu.Lock()
	alreadyClosed := t.closed
	t.closed = true
	handler := t.closeHandler
	t.mu.Unlock()
	if !alreadyClosed {
		if c, ok := t.reader.(io.Closer); ok {
			_ = c.Close()
		}
		if handler != nil {
			handler()
		}
	}
	return nil
}

func (t *StdioTransport) SetMessageHandler(handler func(ctx context.Context, message *transport.BaseJsonRpcMessage)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messageHandler = handler
}

func (t *StdioTransport) SetErrorHandler(handler func(error)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.errorHandler = handler
}

func (t *StdioTransport) SetCloseHandler(handler func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closeHandler = handler
}

func (t *StdioTransport) reportError(err error) {
	t.mu.RLock()
	handler := t.errorHandler
	t.mu.RUnlock()
	if handler != nil {
		handler(err)
	}
}
