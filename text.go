package bxcan

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// ParseFrame reads the cansend notation:
//
//	123#DEADBEEF     standard data frame
//	1ABCDEFF#11.22   extended data frame, '.' separators are ignored
//	123#R            remote frame with DLC 0
//	123#R4           remote frame requesting 4 bytes
//
// Three hex digits select a standard identifier, eight an extended one.
func ParseFrame(s string) (Frame, error) {
	idPart, dataPart, found := strings.Cut(strings.TrimSpace(s), "#")
	if !found {
		return Frame{}, fmt.Errorf("%w : missing '#' in %q", ErrInvalidFormat, s)
	}
	raw, err := strconv.ParseUint(idPart, 16, 32)
	if err != nil {
		return Frame{}, fmt.Errorf("%w : identifier %q : %v", ErrInvalidFormat, idPart, err)
	}
	var kind IDKind
	switch len(idPart) {
	case 3:
		kind = Standard
	case 8:
		kind = Extended
	default:
		return Frame{}, fmt.Errorf("%w : identifier %q must have 3 or 8 digits", ErrInvalidFormat, idPart)
	}
	id, ok := IDFromRaw(kind, uint32(raw))
	if !ok {
		return Frame{}, fmt.Errorf("%w : identifier %q out of range", ErrInvalidFormat, idPart)
	}

	if strings.HasPrefix(dataPart, "R") || strings.HasPrefix(dataPart, "r") {
		dlc := uint64(0)
		if len(dataPart) > 1 {
			dlc, err = strconv.ParseUint(dataPart[1:], 10, 8)
			if err != nil {
				return Frame{}, fmt.Errorf("%w : remote length %q : %v", ErrInvalidFormat, dataPart[1:], err)
			}
		}
		frame, ok := NewRemoteFrame(id, uint8(dlc))
		if !ok {
			return Frame{}, fmt.Errorf("%w : %v", ErrInvalidLength, dlc)
		}
		return frame, nil
	}

	b, err := hex.DecodeString(strings.ReplaceAll(dataPart, ".", ""))
	if err != nil {
		return Frame{}, fmt.Errorf("%w : data %q : %v", ErrInvalidFormat, dataPart, err)
	}
	data, ok := NewData(b)
	if !ok {
		return Frame{}, fmt.Errorf("%w : %v", ErrInvalidLength, len(b))
	}
	return NewDataFrame(id, data), nil
}
