package binding

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

type segment struct {
	key     string
	bracket bool
}

// splitPath splits "a.b[1].c" into segments. Brackets may nest; an unclosed
// bracket makes the whole path invalid.
func splitPath(path string) ([]segment, bool) {
	var segs []segment
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			segs = append(segs, segment{key: cur.String()})
			cur.Reset()
		}
	}

	for i := 0; i < len(path); i++ {
		switch path[i] {
		case '.':
			flush()
		case '[':
			flush()
			depth := 1
			j := i + 1
			for ; j < len(path); j++ {
				if path[j] == '[' {
					depth++
				} else if path[j] == ']' {
					depth--
					if depth == 0 {
						break
					}
				}
			}
			if depth != 0 {
				return nil, false
			}
			segs = append(segs, segment{key: strings.TrimSpace(path[i+1 : j]), bracket: true})
			i = j
		default:
			cur.WriteByte(path[i])
		}
	}
	flush()
	return segs, true
}

// ResolvePath walks path through root. Objects are stepped into by key and
// lists by index; JSON text and raw JSON bytes are decoded on the way. It
// returns nil when any step fails and never panics.
func ResolvePath(root any, path string) any {
	path = strings.TrimSpace(path)
	if path == "" {
		return root
	}
	segs, ok := splitPath(path)
	if !ok {
		return nil
	}
	current := root
	for _, seg := range segs {
		current = step(current, seg)
		if current == nil {
			return nil
		}
	}
	return current
}

func step(current any, seg segment) any {
	switch v := current.(type) {
	case nil:
		return nil
	case map[string]any:
		return v[seg.mapKey()]
	case []any:
		return indexList(len(v), seg, func(i int) any { return v[i] })
	case json.RawMessage:
		return step(decodeJSON(v), seg)
	case []byte:
		return step(decodeJSON(v), seg)
	case string:
		t := strings.TrimSpace(v)
		if strings.HasPrefix(t, "{") || strings.HasPrefix(t, "[") {
			return step(decodeJSON([]byte(t)), seg)
		}
		return nil
	}
	return stepReflect(reflect.ValueOf(current), seg)
}

// stepReflect covers typed maps and slices such as map[string]string or
// []map[string]any.
func stepReflect(rv reflect.Value, seg segment) any {
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil
		}
		key := reflect.ValueOf(seg.mapKey()).Convert(rv.Type().Key())
		val := rv.MapIndex(key)
		if !val.IsValid() || !val.CanInterface() {
			return nil
		}
		return val.Interface()
	case reflect.Slice, reflect.Array:
		return indexList(rv.Len(), seg, func(i int) any {
			el := rv.Index(i)
			if !el.CanInterface() {
				return nil
			}
			return el.Interface()
		})
	}
	return nil
}

func indexList(n int, seg segment, at func(int) any) any {
	i, err := strconv.Atoi(seg.key)
	if err != nil || i < 0 || i >= n {
		return nil
	}
	return at(i)
}

func decodeJSON(data []byte) any {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil
	}
	return v
}

// mapKey returns the lookup key; bracketed keys may be quoted, as in ["a b"].
func (s segment) mapKey() string {
	key := s.key
	if s.bracket && len(key) >= 2 {
		if (key[0] == '"' && key[len(key)-1] == '"') || (key[0] == '\'' && key[len(key)-1] == '\'') {
			return key[1 : len(key)-1]
		}
	}
	return key
}

// Stringify renders a resolved value as substitution text. Integral floats
// print without a fraction and objects and lists print as JSON. A nil value
// is not substitutable.
func Stringify(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case float64:
		return formatFloat(t), true
	case float32:
		return formatFloat(float64(t)), true
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(t), true
	case json.Number:
		return t.String(), true
	case json.RawMessage:
		return string(t), true
	case fmt.Stringer:
		return t.String(), true
	}

	switch reflect.ValueOf(v).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		data, err := json.Marshal(v)
		if err != nil {
			return "", false
		}
		return string(data), true
	}
	return fmt.Sprint(v), true
}

func formatFloat(f float64) string {
	if f == math.Trunc(f) && !math.IsInf(f, 0) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// toInt converts a resolved value to an int. Strings are parsed; floats must
// be integral. Other integer and float kinds are read through reflection.
func toInt(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case json.Number:
		n, err := t.Int64()
		return int(n), err == nil
	case string:
		s := strings.TrimSpace(t)
		if n, err := strconv.Atoi(s); err == nil {
			return n, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return floatToInt(f)
		}
		return 0, false
	case nil:
		return 0, false
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n := rv.Int()
		if n < math.MinInt || n > math.MaxInt {
			return 0, false
		}
		return int(n), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		n := rv.Uint()
		if n > math.MaxInt {
			return 0, false
		}
		return int(n), true
	case reflect.Float32, reflect.Float64:
		return floatToInt(rv.Float())
	}
	return 0, false
}

func floatToInt(f float64) (int, bool) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return int(f), true
}
