// Package attrs reads values back out of slog-style key/value slices.
package attrs

import (
	"fmt"
	"log/slog"
)

// ExtractString finds key in a [key1, value1, key2, value2, ...] slice.
// slog.Attr elements are matched too. Values implementing fmt.Stringer are
// rendered; anything else that is not a string yields "".
func ExtractString(attrs []any, key string) string {
	for i := 0; i < len(attrs); i++ {
		if a, ok := attrs[i].(slog.Attr); ok {
			if a.Key == key {
				return a.Value.String()
			}
			continue
		}
		if i+1 >= len(attrs) {
			break
		}
		k, ok := attrs[i].(string)
		i++
		if !ok || k != key {
			continue
		}
		switch v := attrs[i].(type) {
		case string:
			return v
		case fmt.Stringer:
			return v.String()
		}
	}
	return ""
}
