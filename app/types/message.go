package types

import (
	"encoding/json"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// DecodeStruct fills dst, one of the request types, from a generic protobuf
// message. Field names follow the JSON tags.
func DecodeStruct(src *structpb.Struct, dst any) error {
	if src == nil {
		src = &structpb.Struct{}
	}
	raw, err := protojson.Marshal(src)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

// EncodeStruct renders one of the response types as a generic protobuf
// message.
func EncodeStruct(src any) (*structpb.Struct, error) {
	raw, err := json.Marshal(src)
	if err != nil {
		return nil, err
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(raw, out); err != nil {
		return nil, err
	}
	return out, nil
}
