package greetd

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net"

	"github.com/ubuntu/decorate"
)

// Client talks the length-prefixed JSON protocol to the session daemon over
// a UNIX stream socket: a native-endian u32 byte count, followed by the JSON
// payload. The codec performs no retries; any short read or write is fatal
// to the conversation.
type Client struct {
	conn net.Conn
}

// Dial connects to the daemon socket at addr.
func Dial(addr string) (*Client, error) {
	conn, err := net.Dial("unix", addr)
	if err != nil {
		return nil, fmt.Errorf("connect greetd socket: %w", err)
	}
	return NewClientConn(conn), nil
}

// NewClientConn wraps an already-established connection as a Client. Used
// directly by tests that exercise the codec over an in-memory pipe.
func NewClientConn(conn net.Conn) *Client {
	return &Client{conn: conn}
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Send marshals req and writes it as one length-prefixed frame. If req
// carries a secret (PostAuthMessageResponse.Response), the marshalled
// payload buffer is zero-overwritten once the write returns, regardless of
// outcome.
func (c *Client) Send(req Request) (err error) {
	defer decorate.OnError(&err, "write greetd request")

	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	defer func() {
		if req.Type == RequestPostAuthMessageResponse && req.Response != nil {
			zero(payload)
		}
	}()

	if len(payload) > math.MaxUint32 {
		return fmt.Errorf("payload too large: %d bytes", len(payload))
	}

	var lenBuf [4]byte
	binary.NativeEndian.PutUint32(lenBuf[:], uint32(len(payload)))

	if _, err := c.conn.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("write length: %w", err)
	}
	if _, err := c.conn.Write(payload); err != nil {
		return fmt.Errorf("write payload: %w", err)
	}
	return nil
}

// Recv reads and decodes one length-prefixed response frame.
func (c *Client) Recv() (resp Response, err error) {
	defer decorate.OnError(&err, "read greetd response")

	var lenBuf [4]byte
	if _, err := io.ReadFull(c.conn, lenBuf[:]); err != nil {
		return Response{}, fmt.Errorf("read length: %w", err)
	}
	n := binary.NativeEndian.Uint32(lenBuf[:])

	payload := make([]byte, n)
	if _, err := io.ReadFull(c.conn, payload); err != nil {
		return Response{}, fmt.Errorf("read payload: %w", err)
	}

	if err := json.Unmarshal(payload, &resp); err != nil {
		return Response{}, fmt.Errorf("decode: %w", err)
	}
	return resp, nil
}

// zero overwrites b in place. Used to scrub the serialised copy of a
// credential string once it has been handed to the kernel.
func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
