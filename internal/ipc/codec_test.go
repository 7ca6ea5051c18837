package ipc

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCommandRoundTrip(t *testing.T) {
	commands := []Command{
		GetStatus(),
		Stop(),
		DatabaseTest(),
		Echo(""),
		Echo("hello"),
		Echo(`quote " backslash \ tab 	 brace {"x":1}`),
		Echo("ünïcödé ✓ <html> & ok"),
	}

	for _, cmd := range commands {
		var buf bytes.Buffer
		require.NoError(t, WriteMessage(&buf, cmd))
		require.Equal(t, 1, strings.Count(buf.String(), "\n"), cmd.String())

		got, err := ReadMessage[Command](&buf)
		require.NoError(t, err)
		require.Equal(t, cmd, got)
	}
}

func TestResponseRoundTrip(t *testing.T) {
	responses := []Response{
		StatusResponse(),
		StoppingServerResponse(),
		EchoResponse(""),
		EchoResponse("foo"),
		DatabaseTestResult(0),
		DatabaseTestResult(18446744073709551615),
	}

	for _, resp := range responses {
		var buf bytes.Buffer
		require.NoError(t, WriteMessage(&buf, resp))

		got, err := ReadMessage[Response](&buf)
		require.NoError(t, err)
		require.Equal(t, resp, got)
	}
}

func TestWireShapes(t *testing.T) {
	tests := []struct {
		value any
		want  string
	}{
		{GetStatus(), `{"GetStatus":null}`},
		{Stop(), `{"Stop":null}`},
		{Echo("x"), `{"Echo":"x"}`},
		{DatabaseTest(), `{"DatabaseTest":null}`},
		{StatusResponse(), `{"Status":null}`},
		{StoppingServerResponse(), `{"StoppingServer":null}`},
		{EchoResponse("x"), `{"Echo":"x"}`},
		{DatabaseTestResult(42), `{"DatabaseTestResponse":42}`},
	}

	for _, tc := range tests {
		got, err := json.Marshal(tc.value)
		require.NoError(t, err)
		require.JSONEq(t, tc.want, string(got))
	}
}

func TestReadMessageAcceptsBareUnitTag(t *testing.T) {
	got, err := ReadMessage[Command](strings.NewReader("\"GetStatus\"\n"))
	require.NoError(t, err)
	require.Equal(t, GetStatus(), got)
}

func TestReadMessageMalformed(t *testing.T) {
	inputs := []string{
		"not-json\n",
		"\n",
		`{"Launch":null}` + "\n",
		`{"Echo":42}` + "\n",
		`{"Echo":null}` + "\n",
		`{"Stop":"now"}` + "\n",
		`{"Stop":null,"GetStatus":null}` + "\n",
		`{}` + "\n",
		"null\n",
	}

	for _, in := range inputs {
		_, err := ReadMessage[Command](strings.NewReader(in))
		require.ErrorIs(t, err, ErrMalformedMessage, in)
	}
}

func TestReadMessageUnknownTag(t *testing.T) {
	_, err := ReadMessage[Command](strings.NewReader(`{"Launch":null}` + "\n"))
	require.ErrorIs(t, err, ErrMalformedMessage)
	require.ErrorIs(t, err, ErrUnknownTag)
}

func TestReadMessageConnectionClosed(t *testing.T) {
	for _, in := range []string{"", `{"GetStatus":null}`} {
		_, err := ReadMessage[Command](strings.NewReader(in))
		require.ErrorIs(t, err, ErrConnectionClosed)
	}
}

func TestReadMessageNoMessageOnlyBeforeFirstByte(t *testing.T) {
	_, err := ReadMessage[Command](strings.NewReader(""))
	require.ErrorIs(t, err, ErrNoMessage)
	require.ErrorIs(t, err, ErrConnectionClosed)

	_, err = ReadMessage[Command](strings.NewReader(`{"Get`))
	require.ErrorIs(t, err, ErrConnectionClosed)
	require.NotErrorIs(t, err, ErrNoMessage)
}

func TestWriteMessageRejectsUnknownKind(t *testing.T) {
	var buf bytes.Buffer
	err := WriteMessage(&buf, Command{Kind: "Launch"})
	require.Error(t, err)
	require.ErrorIs(t, err, ErrUnknownTag)
	require.Zero(t, buf.Len())
}
