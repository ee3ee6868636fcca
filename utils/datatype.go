package utils

import (
	"fmt"
	"math"

	"github.com/airbusgeo/godal"
)

var dataTypes = map[string]godal.DataType{
	"Byte":    godal.Byte,
	"UInt16":  godal.UInt16,
	"Int16":   godal.Int16,
	"UInt32":  godal.UInt32,
	"Int32":   godal.Int32,
	"Float32": godal.Float32,
	"Float64": godal.Float64,
}

// GetDataType returns the name of a supported GDAL data type, or "" for
// complex and unknown types.
func GetDataType(dt godal.DataType) string {
	for name, t := range dataTypes {
		if t == dt {
			return name
		}
	}
	return ""
}

// ParseDataType maps a GDAL data type name to its godal value.
func ParseDataType(name string) (godal.DataType, error) {
	dt, ok := dataTypes[name]
	if !ok {
		return godal.Unknown, fmt.Errorf("gdal data type not implemented: %q", name)
	}
	return dt, nil
}

// TypeRange returns the representable value range of an integer data type.
// Float types report ±Inf.
func TypeRange(dt godal.DataType) (float64, float64) {
	switch dt {
	case godal.Byte:
		return 0, math.MaxUint8
	case godal.UInt16:
		return 0, math.MaxUint16
	case godal.Int16:
		return math.MinInt16, math.MaxInt16
	case godal.UInt32:
		return 0, math.MaxUint32
	case godal.Int32:
		return math.MinInt32, math.MaxInt32
	}
	return math.Inf(-1), math.Inf(1)
}
