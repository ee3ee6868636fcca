package vector

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/airbusgeo/godal"
)

var ErrUnsupportedValue = errors.New("value cannot be stored in field")

// dateLayouts are tried in order when a string lands in a date or time field.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006/01/02 15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"15:04:05",
}

// fieldValue converts a feature property to the Go type godal expects for
// a field of type ft. Layers merged from different schemas carry values of
// any scalar type, so numbers and strings convert both ways.
func fieldValue(v any, ft godal.FieldType) (any, error) {
	switch ft {
	case godal.FTInt:
		n, err := toInt64(v)
		return int(n), err
	case godal.FTInt64:
		return toInt64(v)
	case godal.FTReal:
		return toFloat(v)
	case godal.FTString:
		return toString(v), nil
	case godal.FTDate, godal.FTTime, godal.FTDateTime:
		return toTime(v)
	case godal.FTIntList:
		l, err := toInt64List(v)
		if err != nil {
			return nil, err
		}
		out := make([]int, len(l))
		for i, n := range l {
			out[i] = int(n)
		}
		return out, nil
	case godal.FTInt64List:
		return toInt64List(v)
	case godal.FTRealList:
		if l, ok := v.([]float64); ok {
			return l, nil
		}
	case godal.FTStringList:
		if l, ok := v.([]string); ok {
			return l, nil
		}
	case godal.FTBinary:
		if b, ok := v.([]byte); ok {
			return b, nil
		}
	}
	return nil, fmt.Errorf("%T: %w", v, ErrUnsupportedValue)
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case float32:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	case string:
		s := strings.TrimSpace(n)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("%q: %w", n, ErrUnsupportedValue)
		}
		return int64(f), nil
	}
	return 0, fmt.Errorf("%T: %w", v, ErrUnsupportedValue)
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("%q: %w", n, ErrUnsupportedValue)
		}
		return f, nil
	}
	return 0, fmt.Errorf("%T: %w", v, ErrUnsupportedValue)
}

func toString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case time.Time:
		return s.Format(time.RFC3339)
	case *time.Time:
		if s != nil {
			return s.Format(time.RFC3339)
		}
		return ""
	}
	return fmt.Sprint(v)
}

func toTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case *time.Time:
		if t != nil {
			return *t, nil
		}
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range dateLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed, nil
			}
		}
		return time.Time{}, fmt.Errorf("%q: %w", t, ErrUnsupportedValue)
	}
	return time.Time{}, fmt.Errorf("%T: %w", v, ErrUnsupportedValue)
}

func toInt64List(v any) ([]int64, error) {
	switch l := v.(type) {
	case []int64:
		return l, nil
	case []int:
		out := make([]int64, len(l))
		for i, n := range l {
			out[i] = int64(n)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%T: %w", v, ErrUnsupportedValue)
}
