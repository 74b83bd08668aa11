package protocol

import (
	"testing"

	"pgregory.net/rapid"
)

func TestEncodeDecodeRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		kind := rapid.SampledFrom([]Kind{KindTXAsync, KindTX, KindTXRX}).Draw(t, "kind")
		h := Header{
			Kind:        kind,
			Endpoint:    uint8(rapid.IntRange(0, 255).Draw(t, "endpoint")),
			ID:          rapid.Uint64().Draw(t, "id"),
			PayloadSize: rapid.Uint32().Draw(t, "payload_size"),
		}

		buf, err := Encode(h)
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		if len(buf) != HeaderSize {
			t.Fatalf("encoded header has length %d, want %d", len(buf), HeaderSize)
		}

		got := Decode(buf)
		if got != h {
			t.Fatalf("round trip mismatch: got %+v, want %+v", got, h)
		}
	})
}

func TestRegistryRecordRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 6).Draw(t, "n")
		names := make([]string, n)
		ids := make([]uint8, n)
		var buf []byte
		for i := 0; i < n; i++ {
			names[i] = rapid.StringMatching(`[A-Za-z]{1,16}`).Draw(t, "name")
			ids[i] = uint8(rapid.IntRange(0, 255).Draw(t, "id"))
			buf = WriteRegistryRecord(buf, names[i], ids[i])
		}

		var gotNames []string
		var gotIDs []uint8
		ReadRegistryRecords(buf, func(name string, id uint8) {
			gotNames = append(gotNames, name)
			gotIDs = append(gotIDs, id)
		})

		if len(gotNames) != n {
			t.Fatalf("got %d records, want %d", len(gotNames), n)
		}
		for i := 0; i < n; i++ {
			if gotNames[i] != names[i] || gotIDs[i] != ids[i] {
				t.Fatalf("record %d mismatch: got (%s,%d), want (%s,%d)", i, gotNames[i], gotIDs[i], names[i], ids[i])
			}
		}
	})
}
