package survey

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/terra-clan/roi-insights/internal/models"
	"github.com/terra-clan/roi-insights/internal/wizard"
)

// StartWizard opens a wizard session, seeded from a saved survey when a
// name is given
func (s *Service) StartWizard(ctx context.Context, surveyName string) (*models.WizardView, error) {
	var baseline models.AnswerSet
	if surveyName != "" {
		survey, err := s.GetSurvey(ctx, surveyName)
		if err != nil {
			return nil, err
		}
		surveyName = survey.Name
		baseline = survey.Responses
	}
	if baseline == nil {
		baseline = models.AnswerSet{}
	}

	now := s.now().UTC()
	w := wizard.New(s.taxonomy, baseline)
	session := &models.WizardSession{
		ID:         uuid.New().String(),
		SurveyName: surveyName,
		Baseline:   baseline.Clone(),
		State:      w.State(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.drafts.Put(ctx, session); err != nil {
		return nil, err
	}

	slog.Info("wizard started", "wizard_id", session.ID, "survey", surveyName)
	return s.view(session), nil
}

// GetWizard returns the current view of a wizard session
func (s *Service) GetWizard(ctx context.Context, id string) (*models.WizardView, error) {
	session, err := s.loadWizard(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(session), nil
}

// SetWizardAnswer records one answer
func (s *Service) SetWizardAnswer(ctx context.Context, id, questionID string, value models.Answer) (*models.WizardView, error) {
	return s.updateWizard(ctx, id, false, "", func(w *wizard.Wizard) error {
		return w.SetAnswer(questionID, value)
	})
}

// AdvanceWizard validates the active section and moves forward. Validation
// failures are reported through the view, not as an error.
func (s *Service) AdvanceWizard(ctx context.Context, id string) (*models.WizardView, error) {
	return s.updateWizard(ctx, id, false, "", func(w *wizard.Wizard) error {
		w.Advance()
		return nil
	})
}

// RetreatWizard moves to the previous section
func (s *Service) RetreatWizard(ctx context.Context, id string) (*models.WizardView, error) {
	return s.updateWizard(ctx, id, false, "", func(w *wizard.Wizard) error {
		w.Retreat()
		return nil
	})
}

// JumpWizard moves to any section
func (s *Service) JumpWizard(ctx context.Context, id string, section int) (*models.WizardView, error) {
	return s.updateWizard(ctx, id, false, "", func(w *wizard.Wizard) error {
		return w.JumpTo(section)
	})
}

// FinalizeWizard validates the active section and saves the survey under
// name, or under the survey the session was started from
func (s *Service) FinalizeWizard(ctx context.Context, id, name string) (*models.WizardView, error) {
	return s.updateWizard(ctx, id, true, name, func(w *wizard.Wizard) error {
		w.Finalize()
		return nil
	})
}

// SaveWizardProgress saves the survey without validation
func (s *Service) SaveWizardProgress(ctx context.Context, id, name string) (*models.WizardView, error) {
	return s.updateWizard(ctx, id, true, name, func(w *wizard.Wizard) error {
		w.SaveProgress()
		return nil
	})
}

// DiscardWizard drops a wizard session
func (s *Service) DiscardWizard(ctx context.Context, id string) error {
	unlock := s.lockWizard(id)
	defer unlock()

	if _, err := s.loadWizard(ctx, id); err != nil {
		return err
	}
	if err := s.drafts.Delete(ctx, id); err != nil {
		return err
	}

	slog.Info("wizard discarded", "wizard_id", id)
	return nil
}

func (s *Service) loadWizard(ctx context.Context, id string) (*models.WizardSession, error) {
	session, err := s.drafts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrWizardNotFound
	}
	return session, nil
}

// updateWizard replays one operation on the stored session. For commits a
// submit from the wizard saves the survey under saveAs (or the session's
// survey name) and resets the baseline.
func (s *Service) updateWizard(ctx context.Context, id string, commit bool, saveAs string, op func(*wizard.Wizard) error) (*models.WizardView, error) {
	unlock := s.lockWizard(id)
	defer unlock()

	session, err := s.loadWizard(ctx, id)
	if err != nil {
		return nil, err
	}

	if commit {
		if saveAs == "" {
			saveAs = session.SurveyName
		}
		// checked before the wizard runs so a bad name leaves the session untouched
		if saveAs, err = NormalizeName(saveAs); err != nil {
			return nil, err
		}
	}

	var submitted models.AnswerSet
	w := wizard.Resume(s.taxonomy, session.State,
		wizard.WithOnChange(func(answers models.AnswerSet) {
			session.Dirty = !answers.Equal(session.Baseline)
		}),
		wizard.WithOnSubmit(func(answers models.AnswerSet) {
			submitted = answers
		}),
	)

	if err := op(w); err != nil {
		return nil, err
	}

	if submitted != nil && saveAs == "" {
		saveAs = session.SurveyName
	}
	// an unnamed session finishing through Advance keeps its answers as a draft
	if submitted != nil && saveAs != "" {
		survey, err := s.SaveSurvey(ctx, saveAs, submitted)
		if err != nil {
			return nil, err
		}
		session.SurveyName = survey.Name
		session.Baseline = submitted
		session.Dirty = false
		session.Submitted = true
	}

	session.State = w.State()
	session.UpdatedAt = s.now().UTC()
	if err := s.drafts.Put(ctx, session); err != nil {
		return nil, err
	}

	return s.view(session), nil
}

func (s *Service) lockWizard(id string) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &wizardLock{}
		s.locks[id] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, id)
		}
		s.mu.Unlock()
	}
}

func (s *Service) view(session *models.WizardSession) *models.WizardView {
	active := session.State.ActiveSection
	var sectionName string
	if active >= 0 && active < s.taxonomy.SectionCount() {
		sectionName = s.taxonomy.Sections[active].Name
	}

	errs := session.State.FieldErrors
	if errs == nil {
		errs = map[string]string{}
	}
	answers := session.State.Answers
	if answers == nil {
		answers = models.AnswerSet{}
	}

	return &models.WizardView{
		ID:            session.ID,
		SurveyName:    session.SurveyName,
		ActiveSection: active,
		SectionName:   sectionName,
		SectionCount:  s.taxonomy.SectionCount(),
		Answers:       answers,
		FieldErrors:   errs,
		Dirty:         session.Dirty,
		Valid:         len(errs) == 0,
		Submitted:     session.Submitted,
		UpdatedAt:     session.UpdatedAt,
	}
}
