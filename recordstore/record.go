package recordstore

import (
	"fmt"
	"strconv"
)

// Record is one row returned by a Querier, keyed by column name.
type Record map[string]interface{}

// String returns the named field as a string; missing or NULL fields are "".
func (r Record) String(field string) string {
	switch v := r[field].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

// Int returns the named field as an int64; missing or non-numeric fields are 0.
func (r Record) Int(field string) int64 {
	switch v := r[field].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case float64:
		return int64(v)
	case bool:
		if v {
			return 1
		}
		return 0
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	case []byte:
		n, _ := strconv.ParseInt(string(v), 10, 64)
		return n
	default:
		return 0
	}
}

// Bool returns the named field as a bool. SQLite stores booleans as integers.
func (r Record) Bool(field string) bool {
	switch v := r[field].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	default:
		return r.Int(field) != 0
	}
}
