package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/clarityhire/clarity/internal/board"
	"github.com/clarityhire/clarity/internal/clarity"
	"github.com/clarityhire/clarity/internal/utils"
)

func printResume(out io.Writer, r *clarity.Resume) error {
	fmt.Fprintf(out, "Document: %s\n", r.OriginalFilename)
	fmt.Fprintf(out, "ID:       %s\n", r.ID)
	fmt.Fprintf(out, "Status:   %s\n", strings.ToUpper(string(r.State())))

	switch r.State() {
	case clarity.StatusFailed:
		if r.ErrorMessage != "" {
			fmt.Fprintf(out, "Error:    %s\n", r.ErrorMessage)
		}
	case clarity.StatusParsed:
		profile, err := r.Profile()
		if err != nil {
			return err
		}
		if profile == nil {
			return nil
		}
		if profile.Summary != "" {
			fmt.Fprintf(out, "Summary:  %s\n", utils.TruncateForLog(profile.Summary, 200))
		}
		if len(profile.Skills) > 0 {
			fmt.Fprintf(out, "Skills:   %s\n", strings.Join(profile.Skills, ", "))
		}
		for _, exp := range profile.Experience {
			fmt.Fprintf(out, "  - %s at %s\n", exp.Role, exp.Company)
		}
	}
	return nil
}

func printJob(out io.Writer, j *clarity.Job) {
	fmt.Fprintf(out, "%s at %s (%s)\n", j.Title, j.Company, j.Location)
	fmt.Fprintf(out, "ID: %s\n", j.ID)
	if j.Description != "" {
		fmt.Fprintf(out, "\n%s\n", j.Description)
	}

	req := j.Requirements()
	if req.Error != "" {
		fmt.Fprintf(out, "\nRequirements could not be analyzed: %s\n", req.Error)
		return
	}
	if len(req.RequiredSkills) > 0 {
		skills, more := utils.Preview(req.RequiredSkills, board.SkillsPreviewSize)
		line := strings.Join(skills, ", ")
		if more > 0 {
			line = fmt.Sprintf("%s +%d more", line, more)
		}
		fmt.Fprintf(out, "\nRequired skills: %s\n", line)
	}
	if len(req.PreferredSkills) > 0 {
		fmt.Fprintf(out, "Preferred skills: %s\n", strings.Join(req.PreferredSkills, ", "))
	}
	if req.ExperienceYears > 0 {
		fmt.Fprintf(out, "Experience: %g years\n", req.ExperienceYears)
	}
	if req.EducationLevel != "" {
		fmt.Fprintf(out, "Education: %s\n", req.EducationLevel)
	}
}
