package model_test

import (
	"testing"

	"codearena/internal/common"
	"codearena/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmissionTargetExactlyOne(t *testing.T) {
	problemID := "prob-1"
	itemID := "item-1"

	target, err := model.NewSubmissionTarget(&problemID, nil)
	require.NoError(t, err)
	id, ok := target.ProblemID()
	assert.True(t, ok)
	assert.Equal(t, "prob-1", id)
	_, ok = target.ContestItemID()
	assert.False(t, ok)

	target, err = model.NewSubmissionTarget(nil, &itemID)
	require.NoError(t, err)
	id, ok = target.ContestItemID()
	assert.True(t, ok)
	assert.Equal(t, "item-1", id)

	_, err = model.NewSubmissionTarget(nil, nil)
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = model.NewSubmissionTarget(&problemID, &itemID)
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestSubmissionTargetColumnsRoundTrip(t *testing.T) {
	p, c := model.ProblemTarget("prob-1").Columns()
	require.NotNil(t, p)
	assert.Equal(t, "prob-1", *p)
	assert.Nil(t, c)

	p, c = model.ContestItemTarget("item-1").Columns()
	assert.Nil(t, p)
	require.NotNil(t, c)
	assert.Equal(t, "item-1", *c)

	assert.True(t, model.SubmissionTarget{}.IsZero())
}

func TestSubmissionValidate(t *testing.T) {
	contestID := "contest-1"

	sub := &model.Submission{Target: model.ProblemTarget("prob-1")}
	assert.NoError(t, sub.Validate())

	sub = &model.Submission{Target: model.ProblemTarget("prob-1"), ContestID: &contestID}
	assert.ErrorIs(t, sub.Validate(), common.ErrValidation)

	sub = &model.Submission{Target: model.ContestItemTarget("item-1")}
	assert.ErrorIs(t, sub.Validate(), common.ErrValidation)

	sub = &model.Submission{Target: model.ContestItemTarget("item-1"), ContestID: &contestID}
	assert.NoError(t, sub.Validate())

	sub = &model.Submission{}
	assert.ErrorIs(t, sub.Validate(), common.ErrValidation)
}

func TestSubmissionValidateAgainstItem(t *testing.T) {
	contestID := "contest-1"
	otherID := "contest-2"
	item := &model.ContestItem{ID: "item-1", ContestID: contestID}

	sub := &model.Submission{Target: model.ContestItemTarget("item-1"), ContestID: &contestID}
	assert.NoError(t, sub.ValidateAgainstItem(item))

	sub = &model.Submission{Target: model.ContestItemTarget("item-1"), ContestID: &otherID}
	assert.ErrorIs(t, sub.ValidateAgainstItem(item), common.ErrValidation)

	sub = &model.Submission{Target: model.ContestItemTarget("item-2"), ContestID: &contestID}
	assert.ErrorIs(t, sub.ValidateAgainstItem(item), common.ErrValidation)
}

func TestVerdictOrdering(t *testing.T) {
	assert.True(t, model.VerdictWA.WorseThan(model.VerdictAC))
	assert.True(t, model.VerdictTLE.WorseThan(model.VerdictWA))
	assert.True(t, model.VerdictMLE.WorseThan(model.VerdictTLE))
	assert.True(t, model.VerdictRE.WorseThan(model.VerdictMLE))
	assert.True(t, model.VerdictCE.WorseThan(model.VerdictRE))
	assert.True(t, model.VerdictError.WorseThan(model.VerdictCE))
	assert.False(t, model.VerdictAC.WorseThan(model.VerdictError))
}

func TestVerdictTerminal(t *testing.T) {
	terminal := []model.Verdict{
		model.VerdictAC, model.VerdictWA, model.VerdictTLE, model.VerdictMLE,
		model.VerdictRE, model.VerdictCE, model.VerdictError,
	}
	for _, v := range terminal {
		assert.True(t, v.Terminal(), "%s", v)
	}
	assert.False(t, model.VerdictPending.Terminal())
	assert.False(t, model.VerdictRunning.Terminal())
}
