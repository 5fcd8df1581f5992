package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/3leaps/eae-utils/pkg/defines"
)

// JobParams carries the algorithm-specific parameters of a job.
type JobParams struct {
	StartDate     time.Time      `json:"startDate" bson:"startDate"`
	EndDate       time.Time      `json:"endDate" bson:"endDate"`
	Params        map[string]any `json:"params" bson:"params"`
	AlgorithmName string         `json:"algorithmName" bson:"algorithmName"`
	Sample        float64        `json:"sample" bson:"sample"`
	Resolution    string         `json:"resolution" bson:"resolution"`
	KeySelector   *string        `json:"keySelector" bson:"keySelector"`
}

// Job is the record other services clone into concrete jobs.
//
// Status is an append-only history; the most recent label is last.
// An EndDate equal to the Unix epoch means the job has not finished.
type Job struct {
	ID           string    `json:"_id,omitempty" bson:"_id,omitempty"`
	Type         string    `json:"type" bson:"type"`
	Status       []string  `json:"status" bson:"status"`
	StartDate    time.Time `json:"startDate" bson:"startDate"`
	EndDate      time.Time `json:"endDate" bson:"endDate"`
	Requester    string    `json:"requester" bson:"requester"`
	Main         string    `json:"main" bson:"main"`
	Params       JobParams `json:"params" bson:"params"`
	Input        []string  `json:"input" bson:"input"`
	Output       []string  `json:"output" bson:"output"`
	ExitCode     int       `json:"exitCode" bson:"exitCode"`
	Stdout       *string   `json:"stdout" bson:"stdout"`
	Stderr       *string   `json:"stderr" bson:"stderr"`
	Message      *string   `json:"message" bson:"message"`
	StatusLock   LockState `json:"statusLock" bson:"statusLock"`
	ExecutorIP   string    `json:"executorIP" bson:"executorIP"`
	ExecutorPort string    `json:"executorPort" bson:"executorPort"`
}

// Epoch is the zero date used for unset job timestamps.
var Epoch = time.Unix(0, 0).UTC()

// DefaultJob returns a fresh copy of the job template.
func DefaultJob() Job {
	return Job{
		Type:      defines.DefaultJobType,
		Status:    []string{defines.JobStatusCreated},
		StartDate: time.Now().UTC(),
		EndDate:   Epoch,
		Requester: "Raijin",
		Main:      "main.py",
		Params: JobParams{
			StartDate:     Epoch,
			EndDate:       Epoch,
			Params:        map[string]any{},
			AlgorithmName: "density",
			Sample:        1,
			Resolution:    "location_level_2",
		},
		Input:        []string{},
		Output:       []string{},
		ExitCode:     -1,
		StatusLock:   Unlocked,
		ExecutorIP:   "127.0.0.1",
		ExecutorPort: "9000",
	}
}

// NewJob returns the template with a fresh id, type and requester.
func NewJob(jobType, requester string) Job {
	j := DefaultJob()
	j.ID = uuid.NewString()
	if jobType != "" {
		j.Type = jobType
	}
	if requester != "" {
		j.Requester = requester
	}
	return j
}

// PushStatus appends label to the status history unless the job is locked.
func (j *Job) PushStatus(label string) bool {
	if j.StatusLock.IsLocked() {
		return false
	}
	j.Status = append(j.Status, label)
	return true
}

// CurrentStatus returns the most recent status label, or "" for an empty history.
func (j Job) CurrentStatus() string {
	if len(j.Status) == 0 {
		return ""
	}
	return j.Status[len(j.Status)-1]
}

func (j Job) Finished() bool {
	return j.EndDate.After(Epoch)
}
