package telegram

import (
	"fmt"
	"strings"

	"github.com/solvewatch/solvewatch/internal/models"
	"github.com/solvewatch/solvewatch/internal/stats"
)

// Telegram rejects messages longer than this, so oversized solution code
// falls back to a document upload.
const maxMessageLength = 4096

const sectionDivider = "━━━━━━━━━━━━━━━"

// FormatSolveAlert renders the per-solve notification. The second return
// reports whether the solution code was inlined; callers send it as a
// document when it was not.
func FormatSolveAlert(event models.SolveEvent) (string, bool) {
	var b strings.Builder
	b.WriteString("👾 *New Solve*\n\n")
	fmt.Fprintf(&b, "⚔️ *Platform:* %s\n", platformTitle(event.Platform))
	fmt.Fprintf(&b, "📘 *Problem:* [%s](%s)\n", event.Title, event.URL)
	fmt.Fprintf(&b, "🏷️ *Difficulty:* %s\n", difficultyLabel(event.Rating))
	fmt.Fprintf(&b, "💻 *Language:* %s\n", event.Language)

	if event.Detail != nil {
		if event.Detail.Runtime != "" {
			fmt.Fprintf(&b, "⚡ *Runtime:* %s\n", event.Detail.Runtime)
		}
		if event.Detail.Memory != "" {
			fmt.Fprintf(&b, "🧠 *Memory:* %s\n", event.Detail.Memory)
		}
	}

	inlined := false
	if event.Detail != nil && event.Detail.Code != "" {
		block := fmt.Sprintf("\n💡 *Solution:*\n```%s\n%s\n```", langFileExt(event.Language), event.Detail.Code)
		if b.Len()+len(block) <= maxMessageLength {
			b.WriteString(block)
			inlined = true
		}
	}

	return b.String(), inlined
}

// FormatSummary renders a period report. A zero-total report produces a
// distinct short message instead of an all-zero table; when targets exist it
// still shows the zeroed progress bars so the goal stays visible.
func FormatSummary(report models.Report, target models.Target) string {
	if report.Total == 0 {
		if !target.IsZero() {
			return zeroProgressSummary(report, target)
		}
		return zeroTotalLine(report.Period)
	}

	var sections []string
	if s := leetcodeSection(report, target); s != "" {
		sections = append(sections, s)
	}
	if s := codeforcesSection(report); s != "" {
		sections = append(sections, s)
	}

	return summaryHeader(report) + "\n🚀 *Progress Overview*\n\n" +
		sectionDivider + "\n\n" +
		strings.Join(sections, "\n\n"+sectionDivider+"\n\n") + "\n\n" +
		sectionDivider + "\n\n" +
		fmt.Sprintf("🎯 *%s:* %d", grandTotalLabel(report.Period), report.Total)
}

func summaryHeader(report models.Report) string {
	switch report.Period {
	case models.PeriodWeekly:
		lastDay := report.End.AddDate(0, 0, -1)
		return "📊 *Weekly Progress Report*\n🗓️ *Period:* " +
			report.Start.Format("Jan 2") + " - " + lastDay.Format("Jan 2, 2006")
	case models.PeriodMonthly:
		return "📊 *Monthly Progress Report*\n🗓️ *Period:* " + report.Start.Format("January 2006")
	default:
		return "📊 *Daily Coding Report*\n🗓️ *Date:* " + report.Start.Format("January 2, 2006")
	}
}

func grandTotalLabel(period models.Period) string {
	switch period {
	case models.PeriodWeekly:
		return "Grand Total Solved This Week"
	case models.PeriodMonthly:
		return "Grand Total Solved This Month"
	default:
		return "Grand Total Solved Today"
	}
}

func zeroTotalLine(period models.Period) string {
	switch period {
	case models.PeriodWeekly:
		return "You haven't solved any new problems this week yet. Let's get started! 💪"
	case models.PeriodMonthly:
		return "You haven't solved any new problems this month yet. Let's get started! 💪"
	default:
		return "yet another uneventful day."
	}
}

func zeroProgressSummary(report models.Report, target models.Target) string {
	return summaryHeader(report) + "\n" +
		fmt.Sprintf("🎯 *%s Targets:*\n", periodTitle(report.Period)) +
		"🟢 Easy: " + stats.Bar(0, target.Easy) + "\n" +
		"🟡 Medium: " + stats.Bar(0, target.Medium) + "\n" +
		"🔴 Hard: " + stats.Bar(0, target.Hard) + "\n\n" +
		zeroTotalLine(report.Period)
}

// leetcodeSection renders the LeetCode block: progress bars when targets are
// set, plain counts otherwise. It is omitted only when there is nothing
// solved and no target to show.
func leetcodeSection(report models.Report, target models.Target) string {
	ps := platformStats(report, models.PlatformLeetCode)
	if ps.Total == 0 && target.IsZero() {
		return ""
	}

	var b strings.Builder
	b.WriteString("💻 *LeetCode Summary*\n")
	if !target.IsZero() {
		fmt.Fprintf(&b, "↦ 🟢 *Easy:* %s\n", stats.Bar(ps.Count(models.BucketEasy), target.Easy))
		fmt.Fprintf(&b, "↦ 🟡 *Medium:* %s\n", stats.Bar(ps.Count(models.BucketMedium), target.Medium))
		fmt.Fprintf(&b, "↦ 🔴 *Hard:* %s\n", stats.Bar(ps.Count(models.BucketHard), target.Hard))
	} else {
		fmt.Fprintf(&b, "↦ 🟢 *Easy:* %d\n", ps.Count(models.BucketEasy))
		fmt.Fprintf(&b, "↦ 🟡 *Medium:* %d\n", ps.Count(models.BucketMedium))
		fmt.Fprintf(&b, "↦ 🔴 *Hard:* %d\n", ps.Count(models.BucketHard))
	}
	fmt.Fprintf(&b, "↦ ❓ *Other/Unrated:* %d\n", ps.Count(models.BucketOther))
	fmt.Fprintf(&b, "✅ *Total LeetCode:* %d problems", ps.Total)
	return b.String()
}

func codeforcesSection(report models.Report) string {
	ps := platformStats(report, models.PlatformCodeforces)
	if ps.Total == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("⚔️ *Codeforces Summary*\n")
	fmt.Fprintf(&b, "↦ 🥉 *800–1000:* %d\n", ps.Count(models.BucketCF800to1000))
	fmt.Fprintf(&b, "↦ 🥈 *1100–1300:* %d\n", ps.Count(models.BucketCF1100to1300))
	fmt.Fprintf(&b, "↦ 🥇 *1400–1600:* %d\n", ps.Count(models.BucketCF1400to1600))
	fmt.Fprintf(&b, "↦ 🏆 *1700+:* %d\n", ps.Count(models.BucketCF1700plus))
	fmt.Fprintf(&b, "↦ ❓ *Unrated/Other:* %d\n", ps.Count(models.BucketOther))
	fmt.Fprintf(&b, "✅ *Total Codeforces:* %d problems", ps.Total)
	return b.String()
}

// FormatTargetConfirmation renders the reply after a target command.
func FormatTargetConfirmation(target models.Target) string {
	unit := periodUnit(target.Period)
	return fmt.Sprintf("✅ *%s LeetCode Target Set!*\n\n"+
		"🟢 *Easy:* %d problems/%s\n"+
		"🟡 *Medium:* %d problems/%s\n"+
		"🔴 *Hard:* %d problems/%s\n\n%s",
		periodTitle(target.Period),
		target.Easy, unit,
		target.Medium, unit,
		target.Hard, unit,
		targetFlourish(target.Period))
}

func targetFlourish(period models.Period) string {
	switch period {
	case models.PeriodWeekly:
		return "Time to dominate this week! 🔥"
	case models.PeriodMonthly:
		return "Ready to conquer this month! 🏆"
	default:
		return "Good luck crushing your daily goals! 💪"
	}
}

func periodTitle(period models.Period) string {
	switch period {
	case models.PeriodWeekly:
		return "Weekly"
	case models.PeriodMonthly:
		return "Monthly"
	default:
		return "Daily"
	}
}

func periodUnit(period models.Period) string {
	switch period {
	case models.PeriodWeekly:
		return "week"
	case models.PeriodMonthly:
		return "month"
	default:
		return "day"
	}
}

func platformStats(report models.Report, p models.Platform) models.PlatformStats {
	for _, ps := range report.Platforms {
		if ps.Platform == p {
			return ps
		}
	}
	return models.PlatformStats{Platform: p}
}

func platformTitle(p models.Platform) string {
	switch p {
	case models.PlatformCodeforces:
		return "Codeforces"
	case models.PlatformLeetCode:
		return "LeetCode"
	default:
		return string(p)
	}
}

func difficultyLabel(rating string) string {
	if rating == "" {
		return "N/A"
	}
	return rating
}

// langFileExt maps a platform language name to a file extension for inline
// code fences and document filenames. Codeforces names arrive verbose
// ("GNU C++20 (64)"), LeetCode names terse ("cpp"), so this matches on
// substrings.
func langFileExt(lang string) string {
	l := strings.ToLower(lang)
	switch {
	case strings.Contains(l, "c++") || strings.Contains(l, "cpp"):
		return "cpp"
	case strings.Contains(l, "python") || strings.Contains(l, "pypy"):
		return "py"
	case l == "go" || l == "golang":
		return "go"
	case strings.Contains(l, "javascript") || l == "node.js":
		return "js"
	case strings.Contains(l, "typescript"):
		return "ts"
	case strings.Contains(l, "java"):
		return "java"
	case strings.Contains(l, "rust"):
		return "rs"
	case strings.Contains(l, "kotlin"):
		return "kt"
	case strings.Contains(l, "c#") || l == "csharp":
		return "cs"
	case strings.Contains(l, "ruby"):
		return "rb"
	case strings.Contains(l, "swift"):
		return "swift"
	case strings.Contains(l, "scala"):
		return "scala"
	case l == "c" || strings.HasPrefix(l, "gnu gcc"):
		return "c"
	default:
		return "txt"
	}
}
