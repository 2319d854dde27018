package historical

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrNoURLs is returned for a job results document without any URL.
var ErrNoURLs = errors.New("historical: job results contain no urlList")

// JobResults is the results document of a delivered historical job.
type JobResults struct {
	URLCount           int      `json:"urlCount"`
	URLList            []string `json:"urlList"`
	ExpiresAt          string   `json:"expiresAt"`
	SuspectMinutesURL  string   `json:"suspectMinutesUrl"`
	TotalFileSizeBytes int64    `json:"totalFileSizeBytes"`
}

// ReadJobResults parses the job results file at path.
func ReadJobResults(path string) (JobResults, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return JobResults{}, fmt.Errorf("read job results: %w", err)
	}
	var jr JobResults
	if err := json.Unmarshal(data, &jr); err != nil {
		return JobResults{}, fmt.Errorf("parse job results %s: %w", path, err)
	}
	if len(jr.URLList) == 0 {
		return JobResults{}, ErrNoURLs
	}
	return jr, nil
}
