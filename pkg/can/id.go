package can

import "fmt"

const (
	// Largest raw value of an 11-bit identifier
	StandardIDMax uint16 = 0x7FF
	// Largest raw value of a 29-bit identifier
	ExtendedIDMax uint32 = 0x1FFFFFFF
)

// ID is either a StandardID or an ExtendedID.
// The set of implementations is closed, use a type switch to tell them apart.
type ID interface {
	IsExtended() bool
	// Raw numeric value of the identifier, without any flag
	Raw() uint32
	String() string
	sealed()
}

// StandardID is an 11-bit identifier (CAN 2.0A).
// The zero value is the identifier 0.
type StandardID struct {
	raw uint16
}

// NewStandardID returns false if raw does not fit in 11 bits.
func NewStandardID(raw uint16) (StandardID, bool) {
	if raw > StandardIDMax {
		return StandardID{}, false
	}
	return StandardID{raw: raw}, true
}

func (id StandardID) AsRaw() uint16    { return id.raw }
func (id StandardID) Raw() uint32      { return uint32(id.raw) }
func (id StandardID) IsExtended() bool { return false }
func (id StandardID) String() string   { return fmt.Sprintf("%03X", id.raw) }
func (StandardID) sealed()             {}

// ExtendedID is a 29-bit identifier (CAN 2.0B).
// The zero value is the identifier 0.
type ExtendedID struct {
	raw uint32
}

// NewExtendedID returns false if raw does not fit in 29 bits.
func NewExtendedID(raw uint32) (ExtendedID, bool) {
	if raw > ExtendedIDMax {
		return ExtendedID{}, false
	}
	return ExtendedID{raw: raw}, true
}

func (id ExtendedID) AsRaw() uint32    { return id.raw }
func (id ExtendedID) Raw() uint32      { return id.raw }
func (id ExtendedID) IsExtended() bool { return true }
func (id ExtendedID) String() string   { return fmt.Sprintf("%08X", id.raw) }
func (ExtendedID) sealed()             {}

// StandardID returns the 11 most significant bits (the base ID).
func (id ExtendedID) StandardID() StandardID {
	return StandardID{raw: uint16(id.raw >> 18)}
}
