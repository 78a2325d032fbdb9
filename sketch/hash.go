// Package sketch provides reference implementations of the baseline
// flow measurement structures used by the comparison harness: Count-Min,
// HashPipe, and FlowRadar, all driven by the same family of CRC-16 row
// hashes the data plane hardware provides.
package sketch

// crc16Spec parameterizes one CRC-16 variant. Init is the raw starting
// register value; reflected variants process bits LSB-first with the
// reversed polynomial.
type crc16Spec struct {
	name      string
	poly      uint16
	init      uint16
	xorOut    uint16
	reflected bool
}

// The eight variants implemented by the switch CRC units, in row order.
var crc16Specs = [...]crc16Spec{
	{"arc", 0x8005, 0x0000, 0x0000, true},
	{"usb", 0x8005, 0xFFFF, 0xFFFF, true},
	{"genibus", 0x1021, 0xFFFF, 0xFFFF, false},
	{"buypass", 0x8005, 0x0000, 0x0000, false},
	{"dect-r", 0x0589, 0x0000, 0x0001, false},
	{"dnp", 0x3D65, 0x0000, 0xFFFF, true},
	{"maxim", 0x8005, 0x0000, 0xFFFF, true},
	{"dds-110", 0x8005, 0x800D, 0x0000, false},
}

// NumHashRows is the number of distinct row hashes available.
const NumHashRows = len(crc16Specs)

type crc16 struct {
	spec  crc16Spec
	table [256]uint16
}

func reverse16(v uint16) uint16 {
	var r uint16
	for i := 0; i < 16; i++ {
		r = r<<1 | v&1
		v >>= 1
	}
	return r
}

func newCRC16(spec crc16Spec) *crc16 {
	c := &crc16{spec: spec}
	if spec.reflected {
		poly := reverse16(spec.poly)
		for i := 0; i < 256; i++ {
			crc := uint16(i)
			for b := 0; b < 8; b++ {
				if crc&1 != 0 {
					crc = crc>>1 ^ poly
				} else {
					crc >>= 1
				}
			}
			c.table[i] = crc
		}
	} else {
		for i := 0; i < 256; i++ {
			crc := uint16(i) << 8
			for b := 0; b < 8; b++ {
				if crc&0x8000 != 0 {
					crc = crc<<1 ^ spec.poly
				} else {
					crc <<= 1
				}
			}
			c.table[i] = crc
		}
	}
	return c
}

func (c *crc16) sum(data []byte) uint16 {
	crc := c.spec.init
	if c.spec.reflected {
		for _, b := range data {
			crc = crc>>8 ^ c.table[byte(crc)^b]
		}
	} else {
		for _, b := range data {
			crc = crc<<8 ^ c.table[byte(crc>>8)^b]
		}
	}
	return crc ^ c.spec.xorOut
}

// HashRows is the family of row hashes. Rows are selected by index, the
// way the data plane assigns one CRC unit per sketch row.
type HashRows struct {
	rows []*crc16
}

// NewHashRows builds the full family.
func NewHashRows() *HashRows {
	h := &HashRows{rows: make([]*crc16, len(crc16Specs))}
	for i, spec := range crc16Specs {
		h.rows[i] = newCRC16(spec)
	}
	return h
}

// Sum computes row i's hash of data.
func (h *HashRows) Sum(i int, data []byte) uint16 {
	return h.rows[i].sum(data)
}
