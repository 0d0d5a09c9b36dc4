package leetcode

import "encoding/json"

// graphqlRequest is the POST body every LeetCode GraphQL call sends.
type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

// graphqlResponse is the envelope; Data stays raw so each call can decode
// into its own shape. A response can carry both Data and Errors.
type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphqlError  `json:"errors,omitempty"`
}

type graphqlError struct {
	Message string `json:"message"`
}

const recentAcSubmissionsQuery = `
	query recentAcSubmissions($username: String!, $limit: Int!) {
	  recentAcSubmissionList(username: $username, limit: $limit) {
	    id
	    title
	    titleSlug
	    timestamp
	    lang
	  }
	}`

const questionDifficultyQuery = `
	query questionDifficulty($titleSlug: String!) {
	  question(titleSlug: $titleSlug) {
	    difficulty
	  }
	}`

const submissionDetailsQuery = `
	query submissionDetails($submissionId: Int!) {
	  submissionDetails(submissionId: $submissionId) {
	    runtime
	    memory
	    runtimePercentile
	    memoryPercentile
	    code
	  }
	}`

// acSubmission is one row of recentAcSubmissionList. Timestamp arrives as a
// decimal string of epoch seconds.
type acSubmission struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	TitleSlug string `json:"titleSlug"`
	Timestamp string `json:"timestamp"`
	Lang      string `json:"lang"`
}

type recentAcData struct {
	RecentAcSubmissionList []acSubmission `json:"recentAcSubmissionList"`
}

type questionData struct {
	Question *struct {
		Difficulty string `json:"difficulty"`
	} `json:"question"`
}

// submissionDetailsData is only non-nil for the session owner's own
// submissions; runtime is milliseconds and memory is bytes.
type submissionDetailsData struct {
	SubmissionDetails *struct {
		Runtime           int     `json:"runtime"`
		Memory            int     `json:"memory"`
		RuntimePercentile float64 `json:"runtimePercentile"`
		MemoryPercentile  float64 `json:"memoryPercentile"`
		Code              string  `json:"code"`
	} `json:"submissionDetails"`
}
