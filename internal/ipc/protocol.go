package ipc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownTag is returned when a message names a variant outside the union.
var ErrUnknownTag = errors.New("unknown message tag")

type CommandKind string

const (
	CommandGetStatus    CommandKind = "GetStatus"
	CommandStop         CommandKind = "Stop"
	CommandEcho         CommandKind = "Echo"
	CommandDatabaseTest CommandKind = "DatabaseTest"
)

// Command is one client request. Text is only meaningful for CommandEcho.
type Command struct {
	Kind CommandKind
	Text string
}

func GetStatus() Command { return Command{Kind: CommandGetStatus} }
func Stop() Command { return Command{Kind: CommandStop} }
func Echo(text string) Command { return Command{Kind: CommandEcho, Text: text} }
func DatabaseTest() Command { return Command{Kind: CommandDatabaseTest} }
func (c Command) String() string { return string(c.Kind) }

// MarshalJSON encodes the externally tagged form, e.g. {"Echo":"hi"}.
func (c Command) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case CommandGetStatus, CommandStop, CommandDatabaseTest:
		return marshalTagged(string(c.Kind), nil)
	case CommandEcho:
		return marshalTagged(string(c.Kind), c.Text)
	default:
		return nil, fmt.Errorf("%w: command %q", ErrUnknownTag, c.Kind)
	}
}

func (c *Command) UnmarshalJSON(data []byte) error {
	tag, payload, err := unmarshalTagged(data)
	if err != nil {
		return err
	}

	switch kind := CommandKind(tag); kind {
	case CommandGetStatus, CommandStop, CommandDatabaseTest:
		if err := expectNull(tag, payload); err != nil {
			return err
		}
		*c = Command{Kind: kind}
	case CommandEcho:
		text, err := decodeText(tag, payload)
		if err != nil {
			return err
		}
		*c = Command{Kind: kind, Text: text}
	default:
		return fmt.Errorf("%w: command %q", ErrUnknownTag, tag)
	}
	return nil
}

type ResponseKind string

const (
	ResponseStatus               ResponseKind = "Status"
	ResponseStoppingServer       ResponseKind = "StoppingServer"
	ResponseEcho                 ResponseKind = "Echo"
	ResponseDatabaseTestResponse ResponseKind = "DatabaseTestResponse"
)

// Response is the single reply to a Command. Text is set for ResponseEcho and
// ElapsedMS for ResponseDatabaseTestResponse.
type Response struct {
	Kind      ResponseKind
	Text      string
	ElapsedMS uint64
}

func StatusResponse() Response { return Response{Kind: ResponseStatus} }
func StoppingServerResponse() Response { return Response{Kind: ResponseStoppingServer} }
func EchoResponse(text string) Response { return Response{Kind: ResponseEcho, Text: text} }
func DatabaseTestResult(ms uint64) Response { return Response{Kind: ResponseDatabaseTestResponse, ElapsedMS: ms} }
func (r Response) String() string { return string(r.Kind) }

func (r Response) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case ResponseStatus, ResponseStoppingServer:
		return marshalTagged(string(r.Kind), nil)
	case ResponseEcho:
		return marshalTagged(string(r.Kind), r.Text)
	case ResponseDatabaseTestResponse:
		return marshalTagged(string(r.Kind), r.ElapsedMS)
	default:
		return nil, fmt.Errorf("%w: response %q", ErrUnknownTag, r.Kind)
	}
}

func (r *Response) UnmarshalJSON(data []byte) error {
	tag, payload, err := unmarshalTagged(data)
	if err != nil {
		return err
	}

	switch kind := ResponseKind(tag); kind {
	case ResponseStatus, ResponseStoppingServer:
		if err := expectNull(tag, payload); err != nil {
			return err
		}
		*r = Response{Kind: kind}
	case ResponseEcho:
		text, err := decodeText(tag, payload)
		if err != nil {
			return err
		}
		*r = Response{Kind: kind, Text: text}
	case ResponseDatabaseTestResponse:
		var ms uint64
		if err := json.Unmarshal(payload, &ms); err != nil {
			return fmt.Errorf("decode %s payload: %w", tag, err)
		}
		*r = Response{Kind: kind, ElapsedMS: ms}
	default:
		return fmt.Errorf("%w: response %q", ErrUnknownTag, tag)
	}
	return nil
}

func marshalTagged(tag string, payload any) ([]byte, error) {
	return json.Marshal(map[string]any{tag: payload})
}

// unmarshalTagged accepts {"Tag":payload} and, for unit variants, the bare
// "Tag" string form.
func unmarshalTagged(data []byte) (string, json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var tag string
		if err := json.Unmarshal(trimmed, &tag); err != nil {
			return "", nil, err
		}
		return tag, json.RawMessage("null"), nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return "", nil, err
	}
	if len(obj) != 1 {
		return "", nil, fmt.Errorf("expected exactly one tag, got %d", len(obj))
	}
	var tag string
	var payload json.RawMessage
	for k, v := range obj {
		tag, payload = k, v
	}
	return tag, payload, nil
}

func expectNull(tag string, payload json.RawMessage) error {
	if p := bytes.TrimSpace(payload); len(p) != 0 && !bytes.Equal(p, []byte("null")) {
		return fmt.Errorf("%s takes no payload", tag)
	}
	return nil
}

func decodeText(tag string, payload json.RawMessage) (string, error) {
	if p := bytes.TrimSpace(payload); len(p) == 0 || bytes.Equal(p, []byte("null")) {
		return "", fmt.Errorf("%s requires a string payload", tag)
	}
	var text string
	if err := json.Unmarshal(payload, &text); err != nil {
		return "", fmt.Errorf("decode %s payload: %w", tag, err)
	}
	return text, nil
}
