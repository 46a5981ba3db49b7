package model_test

import (
	"testing"
	"time"

	"codearena/internal/domain/model"

	"github.com/stretchr/testify/assert"
)

func TestContestAcceptingWindow(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	c := &model.Contest{State: model.ContestLive, StartTime: start, EndTime: start.Add(time.Hour)}

	assert.True(t, c.Accepting(start))
	assert.True(t, c.Accepting(start.Add(30*time.Minute)))
	assert.False(t, c.Accepting(start.Add(time.Hour)), "end is exclusive")
	assert.False(t, c.Accepting(start.Add(-time.Minute)))

	// stored state gates the window: a lagging sweep must not open a
	// scheduled contest early
	c.State = model.ContestScheduled
	assert.False(t, c.Accepting(start.Add(30*time.Minute)))
}

func TestContestEnded(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	c := &model.Contest{State: model.ContestLive, StartTime: start, EndTime: start.Add(time.Hour)}

	assert.False(t, c.Ended(start.Add(30*time.Minute)))
	assert.True(t, c.Ended(start.Add(time.Hour)), "past end time counts even before the sweep")

	c.State = model.ContestEnded
	assert.True(t, c.Ended(start))
}

func TestContestIsManager(t *testing.T) {
	c := &model.Contest{CreatedByID: "creator", ManagerIDs: []string{"m1", "m2"}}
	assert.True(t, c.IsManager("creator"))
	assert.True(t, c.IsManager("m1"))
	assert.False(t, c.IsManager("stranger"))
}

func TestItemRefColumns(t *testing.T) {
	p, c := model.ProblemRef("prob-1").Columns()
	assert.NotNil(t, p)
	assert.Nil(t, c)

	p, c = model.ChallengeRef("chal-1").Columns()
	assert.Nil(t, p)
	assert.NotNil(t, c)

	assert.True(t, model.ItemRef{}.IsZero())
	p, c = model.ItemRef{}.Columns()
	assert.Nil(t, p)
	assert.Nil(t, c)
}
