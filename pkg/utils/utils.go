package utils

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"strings"

	"github.com/shopspring/decimal"
)

// GoSafe runs the given function in a new goroutine and recovers from any panic.
func GoSafe(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[Panic Recovered] %v\n%s", r, debug.Stack())
			}
		}()
		fn()
	}()
}

// ShouldContinue reports whether ctx is still live.
func ShouldContinue(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	default:
		return true
	}
}

// FormatPercentage renders a ratio such as 0.0512 as "+5.12%".
func FormatPercentage(ratio decimal.Decimal) string {
	return fmt.Sprintf("%s%%", signed(ratio.Mul(decimal.NewFromInt(100)).StringFixedBank(2)))
}

func signed(s string) string {
	if strings.HasPrefix(s, "-") {
		return s
	}
	return "+" + s
}

// IntRange returns from, from+step, ... up to and including to.
func IntRange(from, to, step int) []int {
	if step <= 0 || to < from {
		return nil
	}
	out := make([]int, 0, (to-from)/step+1)
	for v := from; v <= to; v += step {
		out = append(out, v)
	}
	return out
}
