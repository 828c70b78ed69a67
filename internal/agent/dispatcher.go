// Package agent hosts the dispatcher: the state machine that takes one user
// message from classification through acquisition and aggregation to a
// terminal report. Every request gets a report, even on timeout or failure.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/redinsight/agent/internal/conversation"
	"github.com/redinsight/agent/internal/handlers"
	"github.com/redinsight/agent/internal/intent"
	"github.com/redinsight/agent/internal/models"
)

// Dispatcher routes classified intents to capability handlers and records
// the conversation.
type Dispatcher struct {
	classifier     *intent.Classifier
	registry       map[models.Capability]handlers.Handler
	store          *conversation.Store
	windowTurns    int
	requestTimeout time.Duration
}

func New(classifier *intent.Classifier, registry map[models.Capability]handlers.Handler,
	store *conversation.Store, windowTurns int, requestTimeout time.Duration) *Dispatcher {
	return &Dispatcher{
		classifier:     classifier,
		registry:       registry,
		store:          store,
		windowTurns:    windowTurns,
		requestTimeout: requestTimeout,
	}
}

// trace accumulates the execution steps shown to the user with the report.
type trace struct {
	steps []models.Step
}

func (t *trace) add(action, description, status string) {
	t.steps = append(t.steps, models.Step{
		Seq:         len(t.steps) + 1,
		Action:      action,
		Description: description,
		Status:      status,
		At:          time.Now(),
	})
}

// HandleMessage processes one free-text message in a session and returns
// the terminal report. The per-request deadline bounds classification,
// acquisition and generation together.
func (d *Dispatcher) HandleMessage(ctx context.Context, sessionID, message string) *models.Report {
	ctx, cancel := context.WithTimeout(ctx, d.requestTimeout)
	defer cancel()

	t := &trace{}
	t.add("received", "Request received", "done")

	history := d.store.Window(sessionID, d.windowTurns)
	d.store.Append(sessionID, models.ConversationTurn{Role: "user", Text: message})

	t.add("classify", "Classifying intent", "running")
	in := d.classifier.Classify(ctx, message, history)
	t.steps[len(t.steps)-1].Status = "done"
	t.steps[len(t.steps)-1].Description = fmt.Sprintf("Classified as %s (confidence %.1f)", in.Capability, in.Confidence)

	var report *models.Report
	switch {
	case in.LowConfidence:
		report = d.confirmReport(in, message)
		t.add("confirm", "Asking the user to confirm the guessed intent", "done")
	case in.Capability == models.CapabilityChat:
		report = d.chatReport(in)
		t.add("chat", "Answered conversationally", "done")
	default:
		report = d.execute(ctx, in, t)
	}

	d.finalize(sessionID, in, report, t)
	return report
}

// RunCapability executes one capability directly, bypassing classification.
// Used by the per-capability endpoints.
func (d *Dispatcher) RunCapability(ctx context.Context, sessionID string, capability models.Capability, params models.Params) *models.Report {
	ctx, cancel := context.WithTimeout(ctx, d.requestTimeout)
	defer cancel()

	t := &trace{}
	t.add("received", fmt.Sprintf("Direct %s request", capability), "done")

	in := models.Intent{Capability: capability, Params: params, Confidence: 1}
	report := d.execute(ctx, in, t)
	d.finalize(sessionID, in, report, t)
	return report
}

func (d *Dispatcher) execute(ctx context.Context, in models.Intent, t *trace) *models.Report {
	handler, ok := d.registry[in.Capability]
	if !ok {
		t.add("dispatch", fmt.Sprintf("No handler for %s", in.Capability), "failed")
		return &models.Report{
			Capability: in.Capability,
			Status:     models.StatusFailed,
			Summary:    fmt.Sprintf("Capability %q is not supported.", in.Capability),
		}
	}

	t.add("dispatch", fmt.Sprintf("Dispatched to %s handler", in.Capability), "done")
	t.add("acquire", "Fetching and aggregating platform content", "running")

	report, err := handler.Handle(ctx, in.Params)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = models.ErrRequestTimeout
		}
		t.steps[len(t.steps)-1].Status = "failed"
		return d.failureReport(in, err, t)
	}
	t.steps[len(t.steps)-1].Status = "done"
	t.add("report", "Report assembled", "done")
	return report
}

// failureReport maps the error taxonomy to a user-facing terminal report.
// Timeouts degrade, auth failures carry remediation, everything else fails
// with the reason.
func (d *Dispatcher) failureReport(in models.Intent, err error, t *trace) *models.Report {
	report := &models.Report{Capability: in.Capability}

	var authErr *models.AuthError
	var acqErr *models.AcquisitionError
	switch {
	case errors.Is(err, models.ErrRequestTimeout):
		report.Status = models.StatusDegraded
		report.Summary = "The request took too long and was stopped. Partial data was discarded; try a narrower query."
		t.add("timeout", "Deadline exceeded, returning degraded report", "done")
	case errors.As(err, &authErr):
		report.Status = models.StatusFailed
		report.Summary = "The platform session is no longer valid. Update the configured cookies and retry."
		t.add("auth", authErr.Reason, "failed")
	case errors.As(err, &acqErr):
		report.Status = models.StatusFailed
		report.Summary = fmt.Sprintf("Could not fetch platform content after %d attempts. The platform may be throttling; retry later.", acqErr.Attempts)
		t.add("acquire", "Acquisition exhausted retries", "failed")
	default:
		report.Status = models.StatusFailed
		report.Summary = "The request could not be completed: " + err.Error()
	}

	slog.Error("capability execution failed", "capability", in.Capability, "error", err)
	return report
}

// confirmReport asks the user to confirm a low-confidence guess instead of
// spending acquisition budget on it.
func (d *Dispatcher) confirmReport(in models.Intent, message string) *models.Report {
	keyword := ""
	if len(in.Params.Keywords) > 0 {
		keyword = in.Params.Keywords[0]
	}
	return &models.Report{
		Capability: in.Capability,
		Status:     models.StatusOK,
		Summary:    fmt.Sprintf("I read %q as a %s request about %q, but I am not sure. Reply to confirm or rephrase.", message, in.Capability, keyword),
		FollowUp: []string{
			fmt.Sprintf("搜索 %s", keyword),
			fmt.Sprintf("%s 数据统计", keyword),
			"查看热门榜单",
		},
	}
}

func (d *Dispatcher) chatReport(in models.Intent) *models.Report {
	summary := in.Message
	if summary == "" {
		summary = "I can search posts, build rankings, city reports, statistics, guides and comparisons. What would you like?"
	}
	return &models.Report{
		Capability: models.CapabilityChat,
		Status:     models.StatusOK,
		Summary:    summary,
		FollowUp:   in.FollowUp,
	}
}

// finalize stamps identity and trace onto the report and records the agent
// turn in the session history.
func (d *Dispatcher) finalize(sessionID string, in models.Intent, report *models.Report, t *trace) {
	report.ID = uuid.NewString()
	report.CreatedAt = time.Now()
	report.Steps = t.steps
	if report.Capability == "" {
		report.Capability = in.Capability
	}
	if len(report.FollowUp) == 0 {
		report.FollowUp = defaultFollowUps(in)
	}

	d.store.Append(sessionID, models.ConversationTurn{
		Role:     "agent",
		Text:     report.Summary,
		ReportID: report.ID,
	})
}

func defaultFollowUps(in models.Intent) []string {
	keyword := ""
	if len(in.Params.Keywords) > 0 {
		keyword = in.Params.Keywords[0]
	}
	switch in.Capability {
	case models.CapabilitySearch:
		return []string{
			strings.TrimSpace(keyword + " 数据统计"),
			strings.TrimSpace(keyword + " 攻略"),
		}
	case models.CapabilityRanking:
		return []string{"看看美妆热榜", "看看旅行热榜"}
	case models.CapabilityRegional:
		return []string{in.Params.City + "旅游攻略", in.Params.City + "美食推荐"}
	case models.CapabilityAnalytics:
		return []string{strings.TrimSpace("搜索 " + keyword)}
	default:
		return nil
	}
}
