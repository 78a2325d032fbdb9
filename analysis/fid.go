package analysis

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net"
)

// FidSize is the on-disk width of a flow identifier: four bytes source
// IP followed by four bytes destination IP, both in network order.
const FidSize = 8

// Fid is a fixed width flow identifier. The zero value marks an unused
// cell and is never emitted in any decoded output.
type Fid [FidSize]byte

// NewFid assembles a Fid from source and destination IPv4 addresses.
func NewFid(src, dst net.IP) Fid {
	var f Fid
	copy(f[0:4], src.To4())
	copy(f[4:8], dst.To4())
	return f
}

// FidFromWords assembles a Fid from the two little-endian register words
// holding the source and destination address. The data plane stores each
// address with its bytes reversed, so the word bytes are taken in
// reverse order to recover network order.
func FidFromWords(src, dst uint32) Fid {
	var f Fid
	binary.BigEndian.PutUint32(f[0:4], src)
	binary.BigEndian.PutUint32(f[4:8], dst)
	return f
}

// FidFromHex parses the 16-character hex form used in interchange files.
func FidFromHex(s string) (Fid, error) {
	var f Fid
	b, err := hex.DecodeString(s)
	if err != nil {
		return f, err
	}
	if len(b) != FidSize {
		return f, fmt.Errorf("%w: fid hex must be %d bytes", ErrMalformedInput, FidSize)
	}
	copy(f[:], b)
	return f, nil
}

// MarshalJSON encodes the fid in its canonical hex form.
func (f Fid) MarshalJSON() ([]byte, error) {
	return []byte(`"` + f.String() + `"`), nil
}

// UnmarshalJSON decodes the canonical hex form.
func (f *Fid) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := FidFromHex(s)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// IsZero reports whether the cell holding this fid was never written.
func (f Fid) IsZero() bool { return f == Fid{} }

// String returns the canonical 16-character hex form.
func (f Fid) String() string { return hex.EncodeToString(f[:]) }

// SrcIP returns the source address half of the identifier.
func (f Fid) SrcIP() net.IP { return net.IP(f[0:4]) }

// DstIP returns the destination address half of the identifier.
func (f Fid) DstIP() net.IP { return net.IP(f[4:8]) }

// Uint64 returns the identifier as a big-endian integer, used by the
// FlowRadar XOR cells.
func (f Fid) Uint64() uint64 { return binary.BigEndian.Uint64(f[:]) }

// FidFromUint64 is the inverse of Uint64.
func FidFromUint64(v uint64) Fid {
	var f Fid
	binary.BigEndian.PutUint64(f[:], v)
	return f
}
