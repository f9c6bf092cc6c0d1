package recordstore

import (
	"github.com/fxamacker/cbor/v2"
)

// encMode uses Core Deterministic Encoding (RFC 8949 §4.2) so the same
// logical record always produces identical bytes. Times are written as
// RFC 3339 text with nanoseconds so they survive a round trip unchanged.
var encMode cbor.EncMode

// decMode rejects duplicate map keys; records are written by this package
// only, so anything else is corruption.
var decMode cbor.DecMode

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	encOptions.Time = cbor.TimeRFC3339Nano
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("recordstore: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DupMapKey: cbor.DupMapKeyEnforcedAPF,
	}.DecMode()
	if err != nil {
		panic("recordstore: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes a record value.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes a record value into v.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}
