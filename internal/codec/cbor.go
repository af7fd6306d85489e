// Package codec encodes checkpoints for persistence.
//
// Checkpoints are written as CBOR with core deterministic encoding, so the same
// checkpoint always produces the same bytes and stores can compare them directly.
package codec

import (
	"fmt"

	"github.com/aretw0/epochlik/pkg/domain"
	"github.com/fxamacker/cbor/v2"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}
	// Unknown fields are ignored so that older binaries can read newer checkpoints.
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v to CBOR.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR data into v.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// EncodeCheckpoint serialises a checkpoint.
func EncodeCheckpoint(cp *domain.Checkpoint) ([]byte, error) {
	data, err := Marshal(cp)
	if err != nil {
		return nil, fmt.Errorf("failed to encode checkpoint %q: %w", cp.ID, err)
	}
	return data, nil
}

// DecodeCheckpoint parses a checkpoint written by EncodeCheckpoint.
func DecodeCheckpoint(data []byte) (*domain.Checkpoint, error) {
	var cp domain.Checkpoint
	if err := Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	return &cp, nil
}
