package jobsletter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"time"

	"github.com/jobbsy/jobsletter/internal/domain"
	"github.com/jobbsy/jobsletter/internal/mailing"
	"github.com/jobbsy/jobsletter/internal/mailjet"
	"github.com/jobbsy/jobsletter/internal/pkg/logger"
	"github.com/jobbsy/jobsletter/internal/sentry"
)

// Fixed campaign attributes.
const (
	Locale      = "en_US"
	SenderEmail = "hello@jobbsy.dev"
	SenderName  = "Quentin from Jobbsy"
	Title       = "Weekly Symfony jobs 🚀"
)

// ErrInvalidRecipient is returned when the test recipient is not a single
// email address.
var ErrInvalidRecipient = errors.New("invalid test recipient")

// Outcome is the binary result of a run.
type Outcome int

const (
	// Success covers a sent letter, a test send and an empty week.
	Success Outcome = iota
	// Failure means the letter could not be prepared or test sent.
	Failure
)

// ExitCode maps the outcome to a process exit status.
func (o Outcome) ExitCode() int { return int(o) }

func (o Outcome) String() string {
	if o == Success {
		return "success"
	}
	return "failure"
}

// JobFinder supplies the jobs of the letter.
type JobFinder interface {
	FindLastWeekJobs(ctx context.Context, now time.Time) ([]domain.Job, error)
}

// Renderer renders a named template.
type Renderer interface {
	Render(name string, bindings map[string]interface{}) (string, error)
}

// CampaignAPI is the campaign draft lifecycle of the email provider.
type CampaignAPI interface {
	CreateCampaignDraft(ctx context.Context, r mailjet.CreateCampaignDraftRequest) (*mailjet.Response, error)
	CreateCampaignDraftContent(ctx context.Context, r mailjet.CreateCampaignDraftContentRequest) (*mailjet.Response, error)
	TestCampaignDraft(ctx context.Context, r mailjet.TestCampaignDraftRequest) (*mailjet.Response, error)
	SendCampaignDraft(ctx context.Context, r mailjet.SendCampaignDraftRequest) (*mailjet.Response, error)
}

// LinkContext is the request context links are generated against.
type LinkContext interface {
	SetHost(host string)
	SetScheme(scheme string)
}

// Archiver keeps a copy of each rendered letter.
type Archiver interface {
	Archive(ctx context.Context, name, html string) error
}

// Settings are the environment-provided campaign parameters.
type Settings struct {
	ContactListID int
	SenderID      string
	RouterHost    string
	RouterScheme  string
}

// Deps groups the collaborators of a Sender. Archive, Monitor, Clock and
// Out are optional.
type Deps struct {
	Jobs     JobFinder
	Renderer Renderer
	Campaign CampaignAPI
	Links    LinkContext
	Archive  Archiver
	Monitor  sentry.Monitor
	Clock    func() time.Time
	Out      io.Writer
}

// Options are the per-run inputs.
type Options struct {
	// TestMode sends the draft to TestRecipient instead of the list.
	TestMode      bool
	TestRecipient string
}

// Sender runs the weekly letter workflow.
type Sender struct {
	deps     Deps
	settings Settings
}

// NewSender wires a Sender.
func NewSender(deps Deps, settings Settings) *Sender {
	if deps.Monitor == nil {
		deps.Monitor = sentry.Nop{}
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Out == nil {
		deps.Out = io.Discard
	}
	return &Sender{deps: deps, settings: settings}
}

// Subject is the subject line of the letter sent at now.
func Subject(now time.Time) string {
	_, week := now.ISOWeek()
	return fmt.Sprintf("[%02d] Weekly jobs letter", week)
}

// Execute runs the workflow. Errors never escape: they are logged, handed
// to the monitor and folded into the outcome.
func (s *Sender) Execute(ctx context.Context, opts Options) Outcome {
	outcome, err := s.run(ctx, opts)
	if err != nil {
		logger.Error("jobsletter: run error", "outcome", outcome, "error", err)
		if captureErr := s.deps.Monitor.CaptureError(ctx, err); captureErr != nil {
			logger.Warn("jobsletter: could not report error", "error", captureErr)
		}
	}
	return outcome
}

func (s *Sender) run(ctx context.Context, opts Options) (Outcome, error) {
	now := s.deps.Clock()

	jobs, err := s.deps.Jobs.FindLastWeekJobs(ctx, now)
	if err != nil {
		return Failure, fmt.Errorf("find jobs: %w", err)
	}
	if len(jobs) == 0 {
		fmt.Fprintln(s.deps.Out, "No jobs found")
		return Success, nil
	}

	s.deps.Links.SetHost(s.settings.RouterHost)
	s.deps.Links.SetScheme(s.settings.RouterScheme)

	draft, err := s.deps.Campaign.CreateCampaignDraft(ctx, mailjet.CreateCampaignDraftRequest{
		Subject:        Subject(now),
		ContactsListID: s.settings.ContactListID,
		Locale:         Locale,
		SenderEmail:    SenderEmail,
		SenderName:     SenderName,
		Title:          Title,
		Sender:         s.settings.SenderID,
	})
	if err != nil {
		return Failure, fmt.Errorf("create campaign draft: %w", err)
	}
	id, err := draft.DraftID()
	if err != nil {
		return Failure, fmt.Errorf("create campaign draft: %w", err)
	}
	logger.Info("jobsletter: draft created", "draft_id", id, "jobs", len(jobs))

	year, week := now.ISOWeek()
	bindings := make([]map[string]interface{}, len(jobs))
	for i, j := range jobs {
		bindings[i] = j.Bindings()
	}
	html, err := s.deps.Renderer.Render(mailing.WeeklyJobsLetter, map[string]interface{}{
		"jobs": bindings,
		"week": week,
		"year": year,
	})
	if err != nil {
		return Failure, fmt.Errorf("render letter for draft %d: %w", id, err)
	}

	if s.deps.Archive != nil {
		name := fmt.Sprintf("%d-W%02d.html", year, week)
		if err := s.deps.Archive.Archive(ctx, name, html); err != nil {
			logger.Warn("jobsletter: archive failed", "name", name, "error", err)
		}
	}

	if _, err := s.deps.Campaign.CreateCampaignDraftContent(ctx, mailjet.CreateCampaignDraftContentRequest{
		DraftID:  id,
		HTMLPart: html,
	}); err != nil {
		return Failure, fmt.Errorf("attach content to draft %d: %w", id, err)
	}

	if !opts.TestMode {
		// The dispatch answer is not inspected; the campaign is considered sent.
		if _, err := s.deps.Campaign.SendCampaignDraft(ctx, mailjet.SendCampaignDraftRequest{DraftID: id}); err != nil {
			return Success, fmt.Errorf("send draft %d: %w", id, err)
		}
		logger.Info("jobsletter: campaign dispatched", "draft_id", id)
		return Success, nil
	}

	recipient, err := parseRecipient(opts.TestRecipient)
	if err != nil {
		return Failure, err
	}

	resp, err := s.deps.Campaign.TestCampaignDraft(ctx, mailjet.TestCampaignDraftRequest{
		DraftID:    id,
		Recipients: []mailjet.Recipient{{Email: recipient}},
	})
	if err != nil {
		return Failure, fmt.Errorf("test send draft %d: %w", id, err)
	}

	logger.Info("jobsletter: test sent", "draft_id", id, "recipient", recipient, "status", resp.Status())
	fmt.Fprintf(s.deps.Out, "[INFO] Test send. Campaign status : %s\n", resp.Status())
	return Success, nil
}

// parseRecipient accepts exactly one bare email address.
func parseRecipient(raw string) (string, error) {
	addr, err := mail.ParseAddress(raw)
	if err != nil {
		return "", fmt.Errorf("%w %q: %v", ErrInvalidRecipient, raw, err)
	}
	if addr.Name != "" {
		return "", fmt.Errorf("%w %q: display names are not accepted", ErrInvalidRecipient, raw)
	}
	return addr.Address, nil
}
