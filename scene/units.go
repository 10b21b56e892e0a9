package scene

import (
	"fmt"
	"strconv"
	"strings"
)

// This file defines unit-safe helpers for lengths written in scene files.
// Scene geometry is stored in points; the canvas library works in millimetres.

// Unit represents the original unit of a length value.
type Unit int

const (
	UnitPT Unit = iota // points, the scene's native unit
	UnitMM             // millimeters
	UnitCM             // centimeters
	UnitIN             // inches
	UnitPX             // CSS pixels (1/96 in)
)

// Conversion constants between pt and mm.
const (
	MmToPt = 72.0 / 25.4
	PtToMm = 25.4 / 72.0
)

// String returns the short suffix used for u.
func (u Unit) String() string {
	switch u {
	case UnitMM:
		return "mm"
	case UnitCM:
		return "cm"
	case UnitIN:
		return "in"
	case UnitPX:
		return "px"
	default:
		return "pt"
	}
}

// Length preserves a numeric value with its unit.
type Length struct {
	Value float64
	Unit  Unit
}

// Points converts the length to points.
func (l Length) Points() float64 {
	switch l.Unit {
	case UnitMM:
		return l.Value * MmToPt
	case UnitCM:
		return l.Value * 10 * MmToPt
	case UnitIN:
		return l.Value * 72
	case UnitPX:
		return l.Value * 0.75
	default:
		return l.Value
	}
}

func (l Length) String() string {
	return strconv.FormatFloat(l.Value, 'f', -1, 64) + l.Unit.String()
}

// ParseLength parses a length such as "12", "12pt", "4.2mm" or "-3in".
// A bare number is taken as points.
func ParseLength(value string) (Length, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return Length{}, fmt.Errorf("长度为空")
	}
	unit := UnitPT
	num := v
	for _, suf := range []struct {
		s string
		u Unit
	}{{"pt", UnitPT}, {"mm", UnitMM}, {"cm", UnitCM}, {"in", UnitIN}, {"px", UnitPX}} {
		if strings.HasSuffix(v, suf.s) {
			unit = suf.u
			num = strings.TrimSpace(strings.TrimSuffix(v, suf.s))
			break
		}
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return Length{}, fmt.Errorf("无法解析长度 %q: %w", value, err)
	}
	return Length{Value: f, Unit: unit}, nil
}
