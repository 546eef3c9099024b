package storage

// Fault identifies which step of the settings lifecycle failed. The value is
// the blink count shown after the settings fault kind.
type Fault int

const (
	FaultCreate Fault = iota + 1
	FaultRead
	FaultWrite
	FaultRemove
	FaultParse
	FaultTag
)

// FaultKind tells settings faults apart from other subsystems on the
// indicator.
const FaultKind = 2

// Indicator is the out-of-band fault signal, a status LED on real hardware.
type Indicator interface {
	Signal(f Fault)
}

type IndicatorFunc func(f Fault)

func (fn IndicatorFunc) Signal(f Fault) { fn(f) }
