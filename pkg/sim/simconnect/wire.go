package simconnect

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"simbridge/pkg/sim"
)

// Data types
const (
	DATATYPE_INVALID   uint32 = 0
	DATATYPE_INT32     uint32 = 1
	DATATYPE_INT64     uint32 = 2
	DATATYPE_FLOAT32   uint32 = 3
	DATATYPE_FLOAT64   uint32 = 4
	DATATYPE_STRING8   uint32 = 5
	DATATYPE_STRING32  uint32 = 6
	DATATYPE_STRING64  uint32 = 7
	DATATYPE_STRING128 uint32 = 8
	DATATYPE_STRING256 uint32 = 9
)

// Periods
const (
	PERIOD_NEVER        uint32 = 0
	PERIOD_ONCE         uint32 = 1
	PERIOD_VISUAL_FRAME uint32 = 2
	PERIOD_SIM_FRAME    uint32 = 3
	PERIOD_SECOND       uint32 = 4
)

// Data request flags
const (
	DATA_REQUEST_FLAG_DEFAULT uint32 = 0
	DATA_REQUEST_FLAG_CHANGED uint32 = 1
)

// Recv IDs
const (
	RECV_ID_NULL           uint32 = 0
	RECV_ID_EXCEPTION      uint32 = 1
	RECV_ID_OPEN           uint32 = 2
	RECV_ID_QUIT           uint32 = 3
	RECV_ID_EVENT          uint32 = 4
	RECV_ID_SIMOBJECT_DATA uint32 = 8
)

// Event transmission
const (
	OBJECT_ID_USER                 uint32 = 0
	GROUP_PRIORITY_HIGHEST         uint32 = 1
	EVENT_FLAG_GROUPID_IS_PRIORITY uint32 = 0x10
	UNUSED                         uint32 = 0xFFFFFFFF
	string256Size                         = 256
	simobjectDataHeaderSize               = 40
)

// cStringToGo converts a null-terminated C string byte array to a Go string.
func cStringToGo(b []byte) string {
	if idx := bytes.IndexByte(b, 0); idx >= 0 {
		return string(b[:idx])
	}
	return string(b)
}

func wireDataType(d sim.DataType) uint32 {
	switch d {
	case sim.DataInt32:
		return DATATYPE_INT32
	case sim.DataInt64:
		return DATATYPE_INT64
	case sim.DataString:
		return DATATYPE_STRING256
	default:
		return DATATYPE_FLOAT64
	}
}

func wirePeriod(p sim.Period) uint32 {
	switch p {
	case sim.PeriodOnce:
		return PERIOD_ONCE
	case sim.PeriodVisualFrame:
		return PERIOD_VISUAL_FRAME
	case sim.PeriodSimFrame:
		return PERIOD_SIM_FRAME
	case sim.PeriodSecond:
		return PERIOD_SECOND
	default:
		return PERIOD_NEVER
	}
}

// datumName returns the name SimConnect expects for a variable kind.
// Calculator code has no data definition equivalent.
func datumName(def sim.VariableDef) (string, error) {
	switch def.Kind {
	case 0, 'A':
		return def.Name, nil
	case 'L', 'E':
		return string(def.Kind) + ":" + def.Name, nil
	default:
		return "", fmt.Errorf("%w: variable kind %q", sim.ErrUnsupported, def.Kind)
	}
}

// decodeValue reads a single datum of the given type. SimConnect sends
// little-endian packed data.
func decodeValue(b []byte, d sim.DataType) (any, error) {
	need := 8
	switch d {
	case sim.DataInt32:
		need = 4
	case sim.DataString:
		need = 1
	}
	if len(b) < need {
		return nil, fmt.Errorf("short datum: %d bytes for %s", len(b), d)
	}
	switch d {
	case sim.DataInt32:
		return int32(binary.LittleEndian.Uint32(b)), nil
	case sim.DataInt64:
		return int64(binary.LittleEndian.Uint64(b)), nil
	case sim.DataString:
		if len(b) > string256Size {
			b = b[:string256Size]
		}
		return cStringToGo(b), nil
	default:
		return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
	}
}
