// Package board merges postings with the scores computed for the caller's
// latest document into a banded, display-ready view.
package board

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/clarityhire/clarity/internal/clarity"
	"github.com/clarityhire/clarity/internal/utils"
)

// SkillsPreviewSize is how many required skills an entry shows.
const SkillsPreviewSize = 5

// ScoreBoard maps a job id to its score for one document.
type ScoreBoard map[string]int

type Entry struct {
	Job    *clarity.Job `json:"job" yaml:"job"`
	Score  int          `json:"score" yaml:"score"`
	Scored bool         `json:"scored" yaml:"scored"`
	Tier   Tier         `json:"tier" yaml:"tier"`
	Skills []string     `json:"skills,omitempty" yaml:"skills,omitempty"`
	// MoreSkills counts required skills left out of Skills.
	MoreSkills int `json:"more_skills,omitempty" yaml:"more_skills,omitempty"`
}

// SkillsPreview renders the shown skills followed by "+N more".
func (e *Entry) SkillsPreview() string {
	out := strings.Join(e.Skills, ", ")
	if e.MoreSkills > 0 {
		out = strings.TrimSpace(fmt.Sprintf("%s +%d more", out, e.MoreSkills))
	}
	return out
}

// HasSkill reports whether the posting requires skill, ignoring case.
func (e *Entry) HasSkill(skill string) bool {
	for _, s := range e.Job.Requirements().RequiredSkills {
		if strings.EqualFold(strings.TrimSpace(s), strings.TrimSpace(skill)) {
			return true
		}
	}
	return false
}

type Board struct {
	Seq      uint64     `json:"seq" yaml:"seq"`
	ResumeID string     `json:"resume_id,omitempty" yaml:"resume_id,omitempty"`
	Scores   ScoreBoard `json:"scores" yaml:"scores"`
	Entries  []*Entry   `json:"entries" yaml:"entries"`
	BuiltAt  time.Time  `json:"built_at" yaml:"built_at"`
}

// Build derives one entry per posting in the order the postings were given.
func Build(jobs []*clarity.Job, scores ScoreBoard) []*Entry {
	entries := make([]*Entry, 0, len(jobs))
	for _, job := range jobs {
		if job == nil {
			continue
		}
		score, ok := scores[job.ID]
		skills, more := utils.Preview(job.Requirements().RequiredSkills, SkillsPreviewSize)
		entries = append(entries, &Entry{
			Job:        job,
			Score:      score,
			Scored:     ok,
			Tier:       Classify(score, ok),
			Skills:     skills,
			MoreSkills: more,
		})
	}
	return entries
}

func (b *Board) Len() int {
	return len(b.Entries)
}

// Clone copies the board so filters can drop entries without touching the
// applied board. Entries themselves are shared.
func (b *Board) Clone() *Board {
	out := *b
	out.Entries = append([]*Entry(nil), b.Entries...)
	return &out
}

func (b *Board) FindByID(id string) *Entry {
	for _, e := range b.Entries {
		if e.Job.ID == id {
			return e
		}
	}
	return nil
}

// Retain keeps entries for which keep is true and returns the dropped job ids.
func (b *Board) Retain(keep func(*Entry) bool) []string {
	var dropped []string
	kept := b.Entries[:0]
	for _, e := range b.Entries {
		if keep(e) {
			kept = append(kept, e)
			continue
		}
		dropped = append(dropped, e.Job.ID)
	}
	b.Entries = kept
	return dropped
}

// Count returns the number of entries per tier.
func (b *Board) Count() map[Tier]int {
	counts := make(map[Tier]int, 4)
	for _, e := range b.Entries {
		counts[e.Tier]++
	}
	return counts
}

// Sort orders entries by score descending. Unscored postings go last, ties
// are broken by title.
func (b *Board) Sort() {
	sort.SliceStable(b.Entries, func(i, j int) bool {
		a, c := b.Entries[i], b.Entries[j]
		if a.Scored != c.Scored {
			return a.Scored
		}
		if a.Score != c.Score {
			return a.Score > c.Score
		}
		return a.Job.Title < c.Job.Title
	})
}

func (b *Board) ReportByCompany() map[string][]map[string]string {
	report := make(map[string][]map[string]string)
	for _, e := range b.Entries {
		key := e.Job.Company
		if key == "" {
			key = "(unknown)"
		}
		score := "-"
		if e.Scored {
			score = fmt.Sprintf("%d", e.Score)
		}
		report[key] = append(report[key], map[string]string{
			"id":       e.Job.ID,
			"title":    e.Job.Title,
			"location": e.Job.Location,
			"score":    score,
			"tier":     string(e.Tier),
			"skills":   e.SkillsPreview(),
		})
	}
	return report
}

func (b *Board) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "board_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(b); err != nil {
		return "", err
	}
	return file.Name(), nil
}
