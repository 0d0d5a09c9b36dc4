package stats

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const barBlocks = 10

// Percent returns progress toward a target as a whole percentage, capped at
// 100. The second return is false when no target is set (target <= 0), which
// callers must render differently from 0% progress.
func Percent(current, target int) (int, bool) {
	if target <= 0 {
		return 0, false
	}
	pct := decimal.NewFromInt(int64(current)).
		Div(decimal.NewFromInt(int64(target))).
		Mul(decimal.NewFromInt(100)).
		Round(0)
	if pct.GreaterThanOrEqual(decimal.NewFromInt(100)) {
		return 100, true
	}
	return int(pct.IntPart()), true
}

// Bar renders a ten-block progress bar like "▰▰▰▰▰▰▰═══ 70%". With no
// target set it renders a single "─" so unset goals never read as failed
// ones.
func Bar(current, target int) string {
	pct, ok := Percent(current, target)
	if !ok {
		return "─"
	}
	filled := pct / barBlocks
	var b strings.Builder
	b.WriteString(strings.Repeat("▰", filled))
	b.WriteString(strings.Repeat("═", barBlocks-filled))
	b.WriteString(" ")
	b.WriteString(strconv.Itoa(pct))
	b.WriteString("%")
	return b.String()
}
