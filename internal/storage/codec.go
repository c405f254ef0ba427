package storage

import (
	"encoding/json"
	"fmt"

	"github.com/terra-clan/roi-insights/internal/models"
)

// JSON column helpers shared by both backends

func encodeResponses(responses models.AnswerSet) ([]byte, error) {
	if responses == nil {
		responses = models.AnswerSet{}
	}
	data, err := json.Marshal(responses)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal responses: %w", err)
	}
	return data, nil
}

func decodeResponses(data []byte, s *models.Survey) error {
	s.Responses = models.AnswerSet{}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, &s.Responses); err != nil {
		return fmt.Errorf("failed to unmarshal responses: %w", err)
	}
	if s.Responses == nil {
		s.Responses = models.AnswerSet{}
	}
	return nil
}

func encodeReport(r *models.Report) (analysis, forms []byte, err error) {
	analysis, err = json.Marshal(r.Analysis)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal analysis: %w", err)
	}

	f := r.Forms
	if f == nil {
		f = []models.Form{}
	}
	forms, err = json.Marshal(f)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal forms: %w", err)
	}
	return analysis, forms, nil
}

func decodeReport(analysis, forms []byte, r *models.Report) error {
	if err := json.Unmarshal(analysis, &r.Analysis); err != nil {
		return fmt.Errorf("failed to unmarshal analysis: %w", err)
	}
	if len(forms) > 0 {
		if err := json.Unmarshal(forms, &r.Forms); err != nil {
			return fmt.Errorf("failed to unmarshal forms: %w", err)
		}
	}
	return nil
}

func encodeClient(c *models.ApiClient) (permissions, metadata []byte, err error) {
	perms := c.Permissions
	if perms == nil {
		perms = []string{}
	}
	permissions, err = json.Marshal(perms)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal permissions: %w", err)
	}

	if c.Metadata != nil {
		metadata, err = json.Marshal(c.Metadata)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal metadata: %w", err)
		}
	}
	return permissions, metadata, nil
}

func decodeClient(permissions, metadata []byte, c *models.ApiClient) error {
	// Parse permissions JSON array
	if permissions != nil {
		if err := json.Unmarshal(permissions, &c.Permissions); err != nil {
			return fmt.Errorf("failed to unmarshal permissions: %w", err)
		}
	}

	// Parse metadata JSON object
	if metadata != nil {
		if err := json.Unmarshal(metadata, &c.Metadata); err != nil {
			return fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	return nil
}

// pruneReportsQuery builds the retention delete with the given placeholders
// for the cutoff and the keep count.
func pruneReportsQuery(before, keep string) string {
	return `
		DELETE FROM reports
		WHERE created_at < ` + before + `
		AND id NOT IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (PARTITION BY survey_name ORDER BY version DESC) AS rn
				FROM reports
			) ranked
			WHERE rn <= ` + keep + `
		)
	`
}
