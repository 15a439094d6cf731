package clarity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/clarityhire/clarity/internal/errs"
	"github.com/gabriel-vasile/mimetype"
	"github.com/mitchellh/mapstructure"
)

const (
	resumesPath      = "/resumes"
	latestResumePath = resumesPath + "/mine/latest"
	uploadResumePath = resumesPath + "/upload"
	uploadFieldName  = "file"

	// DocumentSizeHint is advisory. The client does not enforce it.
	DocumentSizeHint = "5MB"
	DocumentTypeHint = "application/pdf"
)

type Status string

const (
	StatusNone    Status = "none"
	StatusPending Status = "pending"
	StatusParsing Status = "parsing"
	StatusParsed  Status = "parsed"
	StatusFailed  Status = "failed"
)

func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = Status(strings.ToLower(strings.TrimSpace(raw)))
	return nil
}

// Active reports whether the server is still working on the document.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusParsing
}

func (s Status) Terminal() bool {
	return s == StatusParsed || s == StatusFailed
}

type Resume struct {
	ID               string         `json:"id"`
	Status           Status         `json:"status"`
	OriginalFilename string         `json:"original_filename,omitempty"`
	ParsedJSON       map[string]any `json:"parsed_json,omitempty"`
	ErrorMessage     string         `json:"error_message,omitempty"`
	CreatedAt        *time.Time     `json:"created_at,omitempty"`
	ParsedAt         *time.Time     `json:"parsed_at,omitempty"`
}

// State is the lifecycle state of r, NONE for a missing record.
func (r *Resume) State() Status {
	if r == nil || r.ID == "" {
		return StatusNone
	}
	if r.Status == "" {
		return StatusPending
	}
	return r.Status
}

type Experience struct {
	Role    string `json:"role" yaml:"role"`
	Company string `json:"company" yaml:"company"`
}

type Profile struct {
	Summary    string       `json:"summary,omitempty" yaml:"summary,omitempty"`
	Skills     []string     `json:"skills,omitempty" yaml:"skills,omitempty"`
	Experience []Experience `json:"experience,omitempty" yaml:"experience,omitempty"`
}

// Profile decodes the parsed document. It is nil unless the record is PARSED.
func (r *Resume) Profile() (*Profile, error) {
	if r == nil || r.State() != StatusParsed || r.ParsedJSON == nil {
		return nil, nil
	}

	var profile Profile
	if err := decodeLenient(r.ParsedJSON, &profile); err != nil {
		return nil, fmt.Errorf("decoding parsed profile: %w", err)
	}
	return &profile, nil
}

// Document is a file to submit for analysis.
type Document struct {
	Name    string
	Content []byte
}

func OpenDocument(path string) (*Document, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errs.Validation("document path is required", nil)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Validation(fmt.Sprintf("reading document %q", path), err)
	}

	return &Document{Name: filepath.Base(path), Content: content}, nil
}

func (d *Document) Validate() error {
	if d == nil {
		return errs.Validation("document is required", nil)
	}
	if strings.TrimSpace(d.Name) == "" {
		return errs.Validation("document file name is required", nil)
	}
	if len(d.Content) == 0 {
		return errs.Validation("document is empty", nil)
	}
	return nil
}

// ContentType sniffs the document body.
func (d *Document) ContentType() string {
	return mimetype.Detect(d.Content).String()
}

func (d *Document) IsPDF() bool {
	return mimetype.Detect(d.Content).Is(DocumentTypeHint)
}

// LatestResume returns the caller's most recent document. A server answer of
// {"id": null} is reported as a NOT_FOUND error.
func (c *Client) LatestResume(ctx context.Context) (*Resume, error) {
	var resume Resume
	if err := c.getJSON(ctx, latestResumePath, nil, &resume); err != nil {
		return nil, err
	}

	if resume.ID == "" {
		return nil, errs.NotFound("no document submitted yet", nil)
	}

	return &resume, nil
}

func (c *Client) GetResume(ctx context.Context, id string) (*Resume, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errs.Validation("resume id is required", nil)
	}

	var resume Resume
	if err := c.getJSON(ctx, resumesPath+"/"+url.PathEscape(id), nil, &resume); err != nil {
		return nil, err
	}
	return &resume, nil
}

// UploadResume submits doc as a multipart form and returns the initial record.
func (c *Client) UploadResume(ctx context.Context, doc *Document) (*Resume, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	if err := c.session.Require(); err != nil {
		return nil, err
	}

	var b bytes.Buffer
	w := multipart.NewWriter(&b)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="%s"; filename="%s"`, uploadFieldName, quoteEscaper.Replace(doc.Name)))
	header.Set("Content-Type", doc.ContentType())

	part, err := w.CreatePart(header)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(doc.Content); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(uploadResumePath), &b)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Accept", contentType)

	// The upload endpoint answers with a short form using "filename".
	var created struct {
		Resume
		Filename string `json:"filename"`
	}
	if err := c.do(c.HTTPClient, req, &created); err != nil {
		return nil, err
	}

	resume := created.Resume
	if resume.OriginalFilename == "" {
		resume.OriginalFilename = created.Filename
	}
	if resume.ID == "" {
		return nil, errs.Transient("upload response has no document id", nil)
	}

	return &resume, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// decodeLenient maps a free-form JSON object onto target, converting scalar
// types where the server is inconsistent.
func decodeLenient(input map[string]any, target any) error {
	cfg := &mapstructure.DecoderConfig{
		Metadata:         nil,
		Result:           target,
		TagName:          "json",
		WeaklyTypedInput: true,
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}
