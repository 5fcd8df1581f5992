package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultJob(t *testing.T) {
	j := DefaultJob()

	assert.Equal(t, "eae-job-type", j.Type)
	assert.Equal(t, []string{"eae_job_created"}, j.Status)
	assert.Equal(t, "Raijin", j.Requester)
	assert.Equal(t, "main.py", j.Main)
	assert.Equal(t, -1, j.ExitCode)
	assert.Equal(t, Unlocked, j.StatusLock)
	assert.Equal(t, "127.0.0.1", j.ExecutorIP)
	assert.Equal(t, "9000", j.ExecutorPort)
	assert.Equal(t, "density", j.Params.AlgorithmName)
	assert.Equal(t, "location_level_2", j.Params.Resolution)
	assert.Nil(t, j.Params.KeySelector)
	assert.False(t, j.Finished())
	assert.WithinDuration(t, time.Now(), j.StartDate, time.Minute)
}

func TestDefaultJob_ReturnsIndependentCopies(t *testing.T) {
	a := DefaultJob()
	b := DefaultJob()

	a.Status = append(a.Status, "running")
	a.Params.Params["k"] = "v"

	assert.Equal(t, []string{"eae_job_created"}, b.Status)
	assert.Empty(t, b.Params.Params)
}

func TestNewJob(t *testing.T) {
	j := NewJob("compute", "alice")

	_, err := uuid.Parse(j.ID)
	require.NoError(t, err)
	assert.Equal(t, "compute", j.Type)
	assert.Equal(t, "alice", j.Requester)

	other := NewJob("", "")
	assert.NotEqual(t, j.ID, other.ID)
	assert.Equal(t, "eae-job-type", other.Type)
	assert.Equal(t, "Raijin", other.Requester)
}

func TestJob_PushStatusRespectsLock(t *testing.T) {
	j := DefaultJob()

	assert.True(t, j.PushStatus("eae_job_queued"))
	assert.Equal(t, "eae_job_queued", j.CurrentStatus())

	j.StatusLock = Locked
	assert.False(t, j.PushStatus("eae_job_running"))
	assert.Equal(t, "eae_job_queued", j.CurrentStatus())
	assert.Len(t, j.Status, 2)
}

func TestJob_CurrentStatusEmpty(t *testing.T) {
	var j Job
	assert.Equal(t, "", j.CurrentStatus())
}

func TestJob_Finished(t *testing.T) {
	j := DefaultJob()
	j.EndDate = time.Date(2026, 1, 19, 12, 0, 0, 0, time.UTC)
	assert.True(t, j.Finished())
}

func TestDefaultStatus(t *testing.T) {
	s := DefaultStatus()

	assert.Equal(t, "eae-service", s.Type)
	assert.Equal(t, "eae_service_idle", s.Status)
	assert.Equal(t, Unlocked, s.StatusLock)
	assert.Equal(t, 8080, s.Port)
	assert.Equal(t, Key{IP: "localhost", Port: 8080}, s.Key())
	assert.Empty(t, s.CPU.Cores)
	assert.Equal(t, [3]float64{0, 0, 0}, s.CPU.LoadAvg)
	assert.Nil(t, s.LastUpdate)
	assert.Nil(t, s.Version)
}

func TestStatus_CloneIsDeep(t *testing.T) {
	v := "1.0.0"
	now := time.Now()
	s := DefaultStatus()
	s.Version = &v
	s.LastUpdate = &now
	s.ComputeType = []string{"python"}
	s.CPU.Cores = []Core{{Model: "x", MHz: 2400}}

	c := s.Clone()
	c.ComputeType[0] = "r"
	c.CPU.Cores[0].Model = "y"
	*c.Version = "2.0.0"

	assert.Equal(t, "python", s.ComputeType[0])
	assert.Equal(t, "x", s.CPU.Cores[0].Model)
	assert.Equal(t, "1.0.0", *s.Version)
	assert.NotNil(t, DefaultStatus().Clone().ComputeType)
}

func TestStatus_JSONFieldNames(t *testing.T) {
	s := DefaultStatus()
	s.StatusLock = Locked

	b, err := json.Marshal(s)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(b, &doc))

	assert.Equal(t, true, doc["statusLock"])
	assert.Contains(t, doc, "computeType")
	assert.Contains(t, doc, "lastUpdate")
	assert.Contains(t, doc["cpu"], "loadavg")
}

func TestLockState_String(t *testing.T) {
	assert.Equal(t, "locked", Locked.String())
	assert.Equal(t, "unlocked", Unlocked.String())
	assert.True(t, Locked.IsLocked())
	assert.False(t, Unlocked.IsLocked())
}
