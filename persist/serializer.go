package persist

import "github.com/zoobzio/reflux"

// Serializer converts states and messages to and from bytes. It must
// round-trip exactly for a restore to reproduce the persisted state.
type Serializer[S, M any] interface {
	SerializeState(state S) ([]byte, error)
	SerializeMessage(msg M) ([]byte, error)
	DeserializeState(data []byte) (S, error)
	DeserializeMessage(data []byte) (M, error)
}

// UseCodec returns a Serializer backed by codec.
func UseCodec[S, M any](codec reflux.Codec) Serializer[S, M] {
	return codecSerializer[S, M]{codec: codec}
}

type codecSerializer[S, M any] struct {
	codec reflux.Codec
}

func (c codecSerializer[S, M]) SerializeState(state S) ([]byte, error) {
	return c.codec.Marshal(state)
}

func (c codecSerializer[S, M]) SerializeMessage(msg M) ([]byte, error) {
	return c.codec.Marshal(msg)
}

func (c codecSerializer[S, M]) DeserializeState(data []byte) (S, error) {
	var s S
	err := c.codec.Unmarshal(data, &s)
	return s, err
}

func (c codecSerializer[S, M]) DeserializeMessage(data []byte) (M, error) {
	var m M
	err := c.codec.Unmarshal(data, &m)
	return m, err
}
