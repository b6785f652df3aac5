package comm

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// envelope is the wire format of SocketComm. Socket transports deliver
// opaque frames, so source and tag travel with the body.
type envelope struct {
	Src  int    `msgpack:"s"`
	Tag  Tag    `msgpack:"t"`
	Body []byte `msgpack:"b"`
}

func encodeEnvelope(src int, tag Tag, body []byte) ([]byte, error) {
	b, err := msgpack.Marshal(&envelope{Src: src, Tag: tag, Body: body})
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return b, nil
}

func decodeEnvelope(frame []byte) (envelope, error) {
	var env envelope
	if err := msgpack.Unmarshal(frame, &env); err != nil {
		return env, fmt.Errorf("decode envelope: %w", err)
	}
	return env, nil
}
