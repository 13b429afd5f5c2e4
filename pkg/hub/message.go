// Package hub provides a thread-safe websocket broadcast hub
// using the idiomatic Go channel-based fan-out pattern.
package hub

import "encoding/json"

// Kind selects the websocket frame a message is written as.
type Kind uint8

const (
	KindJSON   Kind = iota // text frame holding one JSON document
	KindBinary             // binary frame, e.g. an opus packet
)

func (k Kind) String() string {
	if k == KindBinary {
		return "binary"
	}
	return "json"
}

// Message is one frame queued for every client of a hub.
type Message struct {
	Kind Kind
	Data []byte
}

// JSON encodes v into a text message.
func JSON(v any) (Message, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Message{}, err
	}
	return Message{Kind: KindJSON, Data: data}, nil
}

// Binary wraps data in a binary message. data is not copied.
func Binary(data []byte) Message {
	return Message{Kind: KindBinary, Data: data}
}
