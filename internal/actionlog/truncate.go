package actionlog

import (
	"encoding/json"
	"fmt"
	"strings"
)

// TruncationSentinel marks values that were cut to fit a budget.
const TruncationSentinel = "...<truncated>"

// Size budgets used across the log. Stack traces get a longer budget since
// they carry most of the diagnostic value of a failure.
const (
	ArgLimit   = 2000
	TraceLimit = 4000
)

// Truncate bounds value to at most limit characters, appending the sentinel
// when it had to cut. Non-string values are serialized to JSON first, falling
// back to their default textual form if serialization fails. It never fails.
//
// Truncate is idempotent: feeding it its own output at the same limit returns
// that output unchanged.
func Truncate(value any, limit int) string {
	s, ok := value.(string)
	if !ok {
		data, err := json.Marshal(value)
		if err != nil {
			s = fmt.Sprintf("%v", value)
		} else {
			s = string(data)
		}
	}

	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	sentinelLen := len([]rune(TruncationSentinel))
	if len(runes) == limit+sentinelLen && strings.HasSuffix(s, TruncationSentinel) {
		// Already an exact truncation result.
		return s
	}
	return string(runes[:limit]) + TruncationSentinel
}
