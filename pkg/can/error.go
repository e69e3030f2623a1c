package can

import "errors"

// ErrorKind is the controller independent classification of CAN errors.
type ErrorKind uint8

const (
	// Received data was lost because the consumer did not keep up
	ErrorKindOverrun ErrorKind = iota
	ErrorKindBit
	ErrorKindStuff
	ErrorKindCRC
	ErrorKindForm
	ErrorKindAcknowledge
	// Anything a driver cannot classify
	ErrorKindOther
)

var errorKindNames = map[ErrorKind]string{
	ErrorKindOverrun:     "overrun",
	ErrorKindBit:         "bit error",
	ErrorKindStuff:       "stuff error",
	ErrorKindCRC:         "crc error",
	ErrorKindForm:        "form error",
	ErrorKindAcknowledge: "acknowledge error",
	ErrorKindOther:       "other",
}

func (k ErrorKind) String() string {
	name, ok := errorKindNames[k]
	if ok {
		return name
	}
	return "unknown"
}

// Error is implemented by driver errors that can be classified.
type Error interface {
	error
	Kind() ErrorKind
}

// KindOf returns the kind of the first Error found in err's chain,
// or ErrorKindOther.
func KindOf(err error) ErrorKind {
	var canErr Error
	if errors.As(err, &canErr) {
		return canErr.Kind()
	}
	return ErrorKindOther
}
