// Package protocol implements the binary control protocol spoken between the
// runner and a worker process.
//
// Messages are gob-encoded envelopes written back-to-back on a byte stream and
// flushed individually. A gob stream is self-delimiting, so no extra framing is
// needed. Decoding has three outcomes: a message, io.EOF when the peer closed
// the stream on a message boundary, or any other error for malformed or
// truncated input.
package protocol

import (
	"bufio"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
)

// ErrMalformed is wrapped by decode errors for well-framed but invalid envelopes.
var ErrMalformed = errors.New("malformed message")

// ErrNotInitialized is reported when Run or Bench arrives before Initialize.
var ErrNotInitialized = errors.New("worker was not sent an initialization message")

// Encoder writes envelopes to a stream, flushing after each one.
type Encoder struct {
	w   *bufio.Writer
	enc *gob.Encoder
}

// NewEncoder returns an Encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	bw := bufio.NewWriter(w)
	return &Encoder{w: bw, enc: gob.NewEncoder(bw)}
}

// EncodeRequest writes one request and flushes it.
func (e *Encoder) EncodeRequest(req *Request) error {
	return e.encode("request", req)
}

// EncodeResponse writes one response and flushes it.
func (e *Encoder) EncodeResponse(resp *Response) error {
	return e.encode("response", resp)
}

func (e *Encoder) encode(what string, v any) error {
	if err := e.enc.Encode(v); err != nil {
		return fmt.Errorf("encode %s: %w", what, err)
	}
	if err := e.w.Flush(); err != nil {
		return fmt.Errorf("flush %s: %w", what, err)
	}
	return nil
}

// Decoder reads envelopes from a stream.
type Decoder struct {
	dec *gob.Decoder
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{dec: gob.NewDecoder(bufio.NewReader(r))}
}

// DecodeRequest reads the next request. It returns io.EOF, unwrapped, when the
// stream ended cleanly before any byte of a new message.
func (d *Decoder) DecodeRequest() (*Request, error) {
	var req Request
	if err := d.dec.Decode(&req); err != nil {
		return nil, decodeError("request", err)
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("decode request: %w: %v", ErrMalformed, err)
	}
	return &req, nil
}

// DecodeResponse reads the next response. It returns io.EOF, unwrapped, when
// the stream ended cleanly before any byte of a new message.
func (d *Decoder) DecodeResponse() (*Response, error) {
	var resp Response
	if err := d.dec.Decode(&resp); err != nil {
		return nil, decodeError("response", err)
	}
	if err := resp.Validate(); err != nil {
		return nil, fmt.Errorf("decode response: %w: %v", ErrMalformed, err)
	}
	return &resp, nil
}

// IsEndOfStream reports whether err signals a graceful end of the stream.
func IsEndOfStream(err error) bool {
	return err == io.EOF
}

func decodeError(what string, err error) error {
	if err == io.EOF {
		return io.EOF
	}
	return fmt.Errorf("decode %s: %w", what, err)
}
