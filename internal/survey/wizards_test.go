package survey

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/roi-insights/internal/models"
	"github.com/terra-clan/roi-insights/internal/wizard"
)

func wizardTaxonomy() *models.Taxonomy {
	return &models.Taxonomy{Sections: []models.Section{
		{Name: "Basics", Questions: []models.Question{
			{ID: "company", Type: models.QuestionText, Label: "Company", Required: true},
			{ID: "budget", Type: models.QuestionText, Label: "Budget", Category: models.CategoryInitialBudget},
		}},
		{Name: "Costs", Questions: []models.Question{
			{ID: "licence", Type: models.QuestionText, Label: "Licence", Category: models.CategoryCost},
		}},
	}}
}

func TestWizardSessionFlow(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, wizardTaxonomy(), nil)

	view, err := svc.StartWizard(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 0, view.ActiveSection)
	assert.Equal(t, "Basics", view.SectionName)
	assert.Equal(t, 2, view.SectionCount)
	assert.False(t, view.Dirty)

	// required field blocks advancing; reported as state, not as an error
	view, err = svc.AdvanceWizard(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, view.ActiveSection)
	assert.False(t, view.Valid)
	assert.Equal(t, wizard.MsgRequired, view.FieldErrors["company"])

	view, err = svc.SetWizardAnswer(ctx, view.ID, "company", models.Text("Acme"))
	require.NoError(t, err)
	assert.True(t, view.Dirty)
	assert.Empty(t, view.FieldErrors)

	view, err = svc.AdvanceWizard(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, view.ActiveSection)
	assert.Equal(t, "Costs", view.SectionName)

	view, err = svc.RetreatWizard(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, view.ActiveSection)

	view, err = svc.JumpWizard(ctx, view.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, view.ActiveSection)

	_, err = svc.JumpWizard(ctx, view.ID, 5)
	assert.ErrorIs(t, err, wizard.ErrSectionOutOfRange)

	_, err = svc.SetWizardAnswer(ctx, view.ID, "nope", models.Text("x"))
	assert.ErrorIs(t, err, wizard.ErrUnknownQuestion)

	view, err = svc.FinalizeWizard(ctx, view.ID, "pilot")
	require.NoError(t, err)
	assert.True(t, view.Submitted)
	assert.False(t, view.Dirty)
	assert.Equal(t, "pilot", view.SurveyName)

	saved, err := svc.GetSurvey(ctx, "pilot")
	require.NoError(t, err)
	assert.Equal(t, "Acme", saved.Responses["company"].String())

	require.NoError(t, svc.DiscardWizard(ctx, view.ID))
	_, err = svc.GetWizard(ctx, view.ID)
	assert.ErrorIs(t, err, ErrWizardNotFound)
	assert.ErrorIs(t, svc.DiscardWizard(ctx, view.ID), ErrWizardNotFound)
}

func TestWizardFromSavedSurvey(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, wizardTaxonomy(), nil)

	_, err := svc.SaveSurvey(ctx, "pilot", models.AnswerSet{"company": models.Text("Acme")})
	require.NoError(t, err)

	view, err := svc.StartWizard(ctx, "pilot")
	require.NoError(t, err)
	assert.Equal(t, "pilot", view.SurveyName)
	assert.Equal(t, "Acme", view.Answers["company"].String())

	view, err = svc.SetWizardAnswer(ctx, view.ID, "company", models.Text("Globex"))
	require.NoError(t, err)
	assert.True(t, view.Dirty)

	// restoring the baseline value clears the unsaved flag
	view, err = svc.SetWizardAnswer(ctx, view.ID, "company", models.Text("Acme"))
	require.NoError(t, err)
	assert.False(t, view.Dirty)

	view, err = svc.SetWizardAnswer(ctx, view.ID, "budget", models.Text("1000"))
	require.NoError(t, err)

	// saves under the session's survey when no name is given
	view, err = svc.SaveWizardProgress(ctx, view.ID, "")
	require.NoError(t, err)
	assert.True(t, view.Submitted)

	saved, err := svc.GetSurvey(ctx, "pilot")
	require.NoError(t, err)
	assert.Equal(t, "1000", saved.Responses["budget"].String())

	_, err = svc.StartWizard(ctx, "missing")
	assert.ErrorIs(t, err, ErrSurveyNotFound)
}

func TestWizardSaveProgressSkipsValidation(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, wizardTaxonomy(), nil)

	view, err := svc.StartWizard(ctx, "")
	require.NoError(t, err)

	view, err = svc.SaveWizardProgress(ctx, view.ID, "draft")
	require.NoError(t, err)
	assert.True(t, view.Submitted)
	assert.Empty(t, view.FieldErrors)

	_, err = svc.GetSurvey(ctx, "draft")
	require.NoError(t, err)
}

func TestWizardCommitNeedsName(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, wizardTaxonomy(), nil)

	view, err := svc.StartWizard(ctx, "")
	require.NoError(t, err)
	_, err = svc.SetWizardAnswer(ctx, view.ID, "company", models.Text("Acme"))
	require.NoError(t, err)

	_, err = svc.FinalizeWizard(ctx, view.ID, "  ")
	assert.ErrorIs(t, err, ErrInvalidName)

	// the failed commit left the session as it was
	got, err := svc.GetWizard(ctx, view.ID)
	require.NoError(t, err)
	assert.True(t, got.Dirty)
	assert.False(t, got.Submitted)
}

func TestWizardFinalizeInvalidDoesNotSave(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, wizardTaxonomy(), nil)

	view, err := svc.StartWizard(ctx, "")
	require.NoError(t, err)

	view, err = svc.FinalizeWizard(ctx, view.ID, "pilot")
	require.NoError(t, err)
	assert.False(t, view.Valid)
	assert.False(t, view.Submitted)

	_, err = svc.GetSurvey(ctx, "pilot")
	assert.ErrorIs(t, err, ErrSurveyNotFound)
}

func TestWizardLocksReleased(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, wizardTaxonomy(), nil)

	for i := 0; i < 100; i++ {
		_, err := svc.AdvanceWizard(ctx, fmt.Sprintf("missing-%d", i))
		assert.ErrorIs(t, err, ErrWizardNotFound)
	}

	view, err := svc.StartWizard(ctx, "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.SetWizardAnswer(ctx, view.ID, "company", models.Text("Acme"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	require.NoError(t, svc.DiscardWizard(ctx, view.ID))

	svc.mu.Lock()
	defer svc.mu.Unlock()
	assert.Empty(t, svc.locks)
}
