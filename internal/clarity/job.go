package clarity

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/clarityhire/clarity/internal/errs"
	"go.uber.org/zap"
)

const (
	jobsPath        = "/jobs/"
	DefaultLocation = "Remote"
)

type Job struct {
	ID                 string         `json:"id" yaml:"id"`
	Title              string         `json:"title" yaml:"title"`
	Company            string         `json:"company" yaml:"company"`
	Location           string         `json:"location,omitempty" yaml:"location,omitempty"`
	Description        string         `json:"description,omitempty" yaml:"description,omitempty"`
	PostedBy           string         `json:"posted_by,omitempty" yaml:"posted_by,omitempty"`
	ParsedRequirements map[string]any `json:"parsed_requirements,omitempty" yaml:"-"`
}

// Requirements is the server's analysis of a posting. When the analysis
// failed, Error is set and the lists are empty.
type Requirements struct {
	RequiredSkills      []string `json:"required_skills,omitempty" yaml:"required_skills,omitempty"`
	PreferredSkills     []string `json:"preferred_skills,omitempty" yaml:"preferred_skills,omitempty"`
	ExperienceYears     float64  `json:"experience_years,omitempty" yaml:"experience_years,omitempty"`
	EducationLevel      string   `json:"education_level,omitempty" yaml:"education_level,omitempty"`
	KeyResponsibilities []string `json:"key_responsibilities,omitempty" yaml:"key_responsibilities,omitempty"`
	Error               string   `json:"error,omitempty" yaml:"error,omitempty"`
}

// Requirements never fails: a malformed analysis yields empty requirements.
func (j *Job) Requirements() Requirements {
	var req Requirements
	if j == nil || j.ParsedRequirements == nil {
		return req
	}
	if err := decodeLenient(j.ParsedRequirements, &req); err != nil {
		return Requirements{Error: err.Error()}
	}
	return req
}

// NewJob is the payload for creating a posting.
type NewJob struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	Description string `json:"description"`
}

func (n *NewJob) Validate() error {
	var missing []string
	if strings.TrimSpace(n.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(n.Company) == "" {
		missing = append(missing, "company")
	}
	if strings.TrimSpace(n.Description) == "" {
		missing = append(missing, "description")
	}
	if len(missing) > 0 {
		return errs.Validation(fmt.Sprintf("missing required fields: %s", strings.Join(missing, ", ")), nil)
	}
	return nil
}

// ListJobs returns every posting, following skip/limit pages until a short page.
func (c *Client) ListJobs(ctx context.Context) ([]*Job, error) {
	var jobs []*Job

	for page := 0; page < maxPages; page++ {
		q := url.Values{}
		q.Set("skip", strconv.Itoa(page*perPage))
		q.Set("limit", strconv.Itoa(perPage))

		var items []*Job
		if err := c.getJSON(ctx, jobsPath, q, &items); err != nil {
			return nil, err
		}

		jobs = append(jobs, items...)

		if len(items) < perPage {
			return jobs, nil
		}

		c.logger.Debug("additional request needed",
			zap.String("reason", fmt.Sprintf("page %d returned a full page of %d", page+1, perPage)),
		)
	}

	c.logger.Warn("job listing truncated", zap.Int("pages", maxPages), zap.Int("jobs", len(jobs)))
	return jobs, nil
}

func (c *Client) GetJob(ctx context.Context, id string) (*Job, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errs.Validation("job id is required", nil)
	}

	var job Job
	if err := c.getJSON(ctx, jobsPath+url.PathEscape(id), nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (c *Client) CreateJob(ctx context.Context, in NewJob) (*Job, error) {
	if strings.TrimSpace(in.Location) == "" {
		in.Location = DefaultLocation
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := c.session.Require(); err != nil {
		return nil, err
	}

	var job Job
	if err := c.sendJSON(ctx, c.HTTPClient, http.MethodPost, jobsPath, in, &job); err != nil {
		return nil, err
	}
	return &job, nil
}
