package codeforces

// Submission is one row of a user.status response.
type Submission struct {
	ID                  int64   `json:"id"`
	CreationTimeSeconds int64   `json:"creationTimeSeconds"`
	Verdict             string  `json:"verdict"`
	ProgrammingLanguage string  `json:"programmingLanguage"`
	TimeConsumedMillis  int64   `json:"timeConsumedMillis"`
	MemoryConsumedBytes int64   `json:"memoryConsumedBytes"`
	Problem             Problem `json:"problem"`
}

// Problem identifies the task a submission was made against. Rating is zero
// for unrated problems.
type Problem struct {
	ContestID int    `json:"contestId"`
	Index     string `json:"index"`
	Name      string `json:"name"`
	Rating    int    `json:"rating"`
}

// statusResponse is the envelope every Codeforces API method answers with.
// Comment is only set when Status is "FAILED".
type statusResponse struct {
	Status  string       `json:"status"`
	Comment string       `json:"comment,omitempty"`
	Result  []Submission `json:"result,omitempty"`
}
