package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Platform identifies one of the watched competitive-programming sites.
type Platform string

const (
	PlatformCodeforces Platform = "codeforces"
	PlatformLeetCode   Platform = "leetcode"
)

// AllPlatforms returns the watched platforms in stable display order.
func AllPlatforms() []Platform {
	return []Platform{PlatformCodeforces, PlatformLeetCode}
}

// Valid reports whether p is a known platform.
func (p Platform) Valid() bool {
	return p == PlatformCodeforces || p == PlatformLeetCode
}

// RawSubmission is one entry of a platform's recent-submission window.
// SequenceValue is the platform-native ordering key: the submission id on
// Codeforces, the accepted-at epoch seconds on LeetCode. It is what the
// cursor stores, so it must be strictly comparable within a platform.
type RawSubmission struct {
	Platform      Platform  `json:"platform"`
	ExternalID    string    `json:"external_id"`
	SequenceValue int64     `json:"sequence_value"`
	ProblemKey    string    `json:"problem_key"`
	Accepted      bool      `json:"accepted"`
	Title         string    `json:"title"`
	Rating        string    `json:"rating"`
	Language      string    `json:"language,omitempty"`
	URL           string    `json:"url,omitempty"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

// SolveEvent is emitted exactly once per problem, the first time the account
// ever gets it accepted. Later accepted submissions of the same problem are
// examined but produce no event.
type SolveEvent struct {
	ID         string          `json:"id"`
	Platform   Platform        `json:"platform"`
	ProblemKey string          `json:"problem_key"`
	Title      string          `json:"title"`
	URL        string          `json:"url,omitempty"`
	Rating     string          `json:"rating"`
	Language   string          `json:"language,omitempty"`
	SolvedOn   time.Time       `json:"solved_on"`
	Detail     *SolutionDetail `json:"detail,omitempty"`
}

// SolutionDetail carries the optional extra submission metadata fetched when
// detailed notifications are enabled. Only LeetCode exposes it.
type SolutionDetail struct {
	Runtime           string          `json:"runtime,omitempty"`
	Memory            string          `json:"memory,omitempty"`
	RuntimePercentile decimal.Decimal `json:"runtime_percentile"`
	MemoryPercentile  decimal.Decimal `json:"memory_percentile"`
	Code              string          `json:"-"`
}

// SolvedProblem is one dedup-store row: a problem credited as solved for the
// first time. Immutable once written.
type SolvedProblem struct {
	Platform       Platform  `json:"platform"`
	ProblemID      string    `json:"problem_id"`
	FirstSolveDate time.Time `json:"first_solve_date"`
	Rating         string    `json:"rating"`
}

// Period is a report/target window type.
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

// AllPeriods returns the period types in ascending span order.
func AllPeriods() []Period {
	return []Period{PeriodDaily, PeriodWeekly, PeriodMonthly}
}

// Valid reports whether p is a known period type.
func (p Period) Valid() bool {
	return p == PeriodDaily || p == PeriodWeekly || p == PeriodMonthly
}

// Target holds the per-bucket goal thresholds for one period type. A missing
// row and an all-zero row mean the same thing: no target set.
type Target struct {
	Period    Period    `json:"period"`
	Easy      int       `json:"easy"`
	Medium    int       `json:"medium"`
	Hard      int       `json:"hard"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// IsZero reports whether no threshold is set on any bucket.
func (t Target) IsZero() bool {
	return t.Easy == 0 && t.Medium == 0 && t.Hard == 0
}

// BucketCount is one bucket's solve count within a report.
type BucketCount struct {
	Bucket Bucket `json:"bucket"`
	Count  int    `json:"count"`
}

// PlatformStats is one platform's bucketed counts within a report. Buckets
// are always fully enumerated in display order, including zero counts.
type PlatformStats struct {
	Platform Platform      `json:"platform"`
	Buckets  []BucketCount `json:"buckets"`
	Total    int           `json:"total"`
}

// Count returns the count recorded for one bucket, or zero when the bucket
// is not part of this platform's enumeration.
func (s PlatformStats) Count(b Bucket) int {
	for _, bc := range s.Buckets {
		if bc.Bucket == b {
			return bc.Count
		}
	}
	return 0
}

// Report is a period-windowed aggregation over the dedup store. A report
// whose Total is zero is still fully populated: every platform appears with
// every bucket at count zero, which keeps "nothing solved" distinct from
// "nothing aggregated".
type Report struct {
	Period    Period          `json:"period"`
	Start     time.Time       `json:"start"`
	End       time.Time       `json:"end"`
	Platforms []PlatformStats `json:"platforms"`
	Total     int             `json:"total"`
}

// PlatformTotal returns the report's total for one platform.
func (r Report) PlatformTotal(p Platform) int {
	for _, ps := range r.Platforms {
		if ps.Platform == p {
			return ps.Total
		}
	}
	return 0
}
