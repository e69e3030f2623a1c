package bxcan

// Maximum payload of a classical CAN frame
const MaxDataLength = 8

// Data is a frame payload of 0 to 8 bytes.
// It is stored inline and copied by value, the zero value is an empty payload.
type Data struct {
	bytes [MaxDataLength]byte
	len   uint8
}

// NewData copies b, it returns false if b is longer than 8 bytes.
func NewData(b []byte) (Data, bool) {
	if len(b) > MaxDataLength {
		return Data{}, false
	}
	d := Data{len: uint8(len(b))}
	copy(d.bytes[:], b)
	return d, true
}

func (d Data) Len() int {
	return int(d.len)
}

func (d Data) IsEmpty() bool {
	return d.len == 0
}

// Bytes returns a copy of the payload.
func (d Data) Bytes() []byte {
	b := make([]byte, d.len)
	copy(b, d.bytes[:d.len])
	return b
}
