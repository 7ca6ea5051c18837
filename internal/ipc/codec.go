package ipc

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

var (
	// ErrMalformedMessage reports a record that is not valid JSON or does not
	// match the expected union.
	ErrMalformedMessage = errors.New("malformed message")
	// ErrConnectionClosed reports a stream that ended before a full record.
	ErrConnectionClosed = errors.New("connection closed before message was complete")
	// ErrNoMessage reports a stream that ended before its first byte. It
	// matches ErrConnectionClosed.
	ErrNoMessage = fmt.Errorf("%w: no data received", ErrConnectionClosed)
)

// WriteMessage encodes v as one JSON record terminated by a newline.
func WriteMessage(w io.Writer, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	payload = append(payload, '\n')
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}

// ReadMessage consumes one newline-terminated record from r and decodes it.
func ReadMessage[T any](r io.Reader) (T, error) {
	var out T

	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}

	line, err := br.ReadBytes('\n')
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			if len(line) == 0 {
				return out, ErrNoMessage
			}
			return out, ErrConnectionClosed
		}
		return out, fmt.Errorf("read message: %w", err)
	}

	if err := json.Unmarshal(line, &out); err != nil {
		return out, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}
	return out, nil
}
