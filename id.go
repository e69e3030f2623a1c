package bxcan

import (
	"fmt"

	"github.com/samsamfire/gobxcan/pkg/can"
)

// IDKind selects the identifier format.
type IDKind uint8

const (
	Standard IDKind = iota // 11-bit
	Extended               // 29-bit
)

// ID is a StandardID or an ExtendedID, as handled by the controller.
// Two IDs are equal if they have the same format and value.
type ID interface {
	IsExtended() bool
	Raw() uint32
	String() string
	sealed()
}

// StandardID is an 11-bit identifier. The zero value is identifier 0.
type StandardID struct {
	raw uint16
}

// ExtendedID is a 29-bit identifier. The zero value is identifier 0.
type ExtendedID struct {
	raw uint32
}

// IDFromRaw validates raw against the bit width of kind.
// It is the only place where an identifier is built from an unchecked integer.
func IDFromRaw(kind IDKind, raw uint32) (ID, bool) {
	switch kind {
	case Standard:
		if raw > uint32(can.StandardIDMax) {
			return nil, false
		}
		return StandardID{raw: uint16(raw)}, true
	case Extended:
		if raw > can.ExtendedIDMax {
			return nil, false
		}
		return ExtendedID{raw: raw}, true
	}
	return nil, false
}

func NewStandardID(raw uint16) (StandardID, bool) {
	id, ok := IDFromRaw(Standard, uint32(raw))
	if !ok {
		return StandardID{}, false
	}
	std, ok := id.(StandardID)
	return std, ok
}

func NewExtendedID(raw uint32) (ExtendedID, bool) {
	id, ok := IDFromRaw(Extended, raw)
	if !ok {
		return ExtendedID{}, false
	}
	ext, ok := id.(ExtendedID)
	return ext, ok
}

func (id StandardID) AsRaw() uint16    { return id.raw }
func (id StandardID) Raw() uint32      { return uint32(id.raw) }
func (id StandardID) IsExtended() bool { return false }
func (id StandardID) String() string   { return fmt.Sprintf("%03X", id.raw) }
func (StandardID) sealed()             {}

func (id ExtendedID) AsRaw() uint32    { return id.raw }
func (id ExtendedID) Raw() uint32      { return id.raw }
func (id ExtendedID) IsExtended() bool { return true }
func (id ExtendedID) String() string   { return fmt.Sprintf("%08X", id.raw) }
func (ExtendedID) sealed()             {}

// StandardID returns the base ID, i.e. the 11 most significant bits.
func (id ExtendedID) StandardID() StandardID {
	return StandardID{raw: uint16(id.raw >> 18)}
}

// ToGenericID converts id to the controller independent representation.
// Both sides share the same bounds so the conversion cannot fail.
// A nil id is treated as the zero standard identifier, like the zero Frame.
func ToGenericID(id ID) can.ID {
	switch id := id.(type) {
	case StandardID:
		g, _ := can.NewStandardID(id.raw)
		return g
	case ExtendedID:
		g, _ := can.NewExtendedID(id.raw)
		return g
	}
	return can.StandardID{}
}

// IDFromGeneric converts an identifier coming from protocol code.
// The value is checked again through IDFromRaw, false is only returned for
// a nil id.
func IDFromGeneric(id can.ID) (ID, bool) {
	switch id := id.(type) {
	case can.StandardID:
		return IDFromRaw(Standard, id.Raw())
	case can.ExtendedID:
		return IDFromRaw(Extended, id.Raw())
	}
	return nil, false
}
