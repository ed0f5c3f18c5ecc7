package grpc

import (
	"encoding/json"
	"fmt"
)

const codecName = "json"

// jsonCodec exchanges plain JSON frames. The service contract is
// hand-maintained in app/types; there are no generated protobuf messages.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("json codec: %w", err)
	}
	return nil
}

func (jsonCodec) Name() string {
	return codecName
}

// Codec is passed to grpc.ForceServerCodec by the serve command.
func Codec() jsonCodec {
	return jsonCodec{}
}
