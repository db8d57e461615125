package state

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Edge is a persisted dependency. Item edges are stored by target Url since
// item ids do not survive a process restart.
type Edge struct {
	Kind        string `cbor:"k"`
	Ref         string `cbor:"r"`
	Fingerprint string `cbor:"f,omitempty"`
}

const (
	EdgeFile = "file"
	EdgeItem = "item"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("state: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("state: CBOR decoder initialization failed: " + err.Error())
	}
}

func encodeEdges(edges []Edge) ([]byte, error) {
	if len(edges) == 0 {
		return nil, nil
	}
	b, err := encMode.Marshal(edges)
	if err != nil {
		return nil, fmt.Errorf("encode edges: %w", err)
	}
	return b, nil
}

func decodeEdges(b []byte) ([]Edge, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var edges []Edge
	if err := decMode.Unmarshal(b, &edges); err != nil {
		return nil, fmt.Errorf("decode edges: %w", err)
	}
	return edges, nil
}
