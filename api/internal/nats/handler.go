package nats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/telhawk-systems/fwlens/analytics"
	"github.com/telhawk-systems/fwlens/api/internal/service"
	"github.com/telhawk-systems/fwlens/common/logging"
	"github.com/telhawk-systems/fwlens/common/messaging"
)

// replyTimeout bounds the reply publish, which must still go out after the
// request context has expired.
const replyTimeout = 5 * time.Second

// Handler answers analyze requests received on the bus.
type Handler struct {
	client messaging.Client
	svc    *service.AnalysisService
	subs   []messaging.Subscription
	logger *slog.Logger
}

// NewHandler creates a new NATS handler for analysis requests.
func NewHandler(client messaging.Client, svc *service.AnalysisService) *Handler {
	return &Handler{
		client: client,
		svc:    svc,
		subs:   make([]messaging.Subscription, 0),
		logger: slog.Default().With(slog.String("component", "nats-handler")),
	}
}

// Start joins the analyze worker queue group.
func (h *Handler) Start(ctx context.Context) error {
	sub, err := h.client.QueueSubscribe(
		messaging.SubjectAnalyzeRequest,
		messaging.QueueAnalyzeWorkers,
		h.handleAnalyzeJob,
	)
	if err != nil {
		return fmt.Errorf("failed to subscribe to analyze requests: %w", err)
	}
	h.subs = append(h.subs, sub)

	h.logger.InfoContext(ctx, "NATS handler started",
		slog.String("subject", messaging.SubjectAnalyzeRequest),
		slog.String("queue_group", messaging.QueueAnalyzeWorkers))
	return nil
}

// Stop unsubscribes from all subjects.
func (h *Handler) Stop() error {
	h.logger.Info("Stopping NATS handler")
	for _, sub := range h.subs {
		if err := sub.Unsubscribe(); err != nil {
			h.logger.Warn("Failed to unsubscribe", logging.Error(err))
		}
	}
	h.subs = nil
	return nil
}

func (h *Handler) handleAnalyzeJob(ctx context.Context, msg *messaging.Message) error {
	var req AnalyzeJobRequest
	if err := msg.Decode(&req); err != nil {
		h.logger.ErrorContext(ctx, "Failed to decode analyze request", logging.Error(err))
		return h.reply(ctx, msg.Reply, AnalyzeJobResponse{Error: err.Error()})
	}

	start := time.Now()
	report, err := h.svc.Analyze(ctx, req.SearchRequest(), service.SourceBus)

	resp := AnalyzeJobResponse{
		JobID:  req.JobID,
		TookMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		resp.Error = err.Error()
	} else {
		resp.Success = true
		resp.Report = report
	}

	return h.reply(ctx, msg.Reply, resp)
}

// reply is a no-op for fire-and-forget requests.
func (h *Handler) reply(ctx context.Context, subject string, resp AnalyzeJobResponse) error {
	if subject == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), replyTimeout)
	defer cancel()
	if err := h.client.PublishJSON(ctx, subject, resp); err != nil {
		h.logger.ErrorContext(ctx, "Failed to reply to analyze request",
			slog.String("job_id", resp.JobID),
			logging.Error(err))
		return err
	}
	return nil
}

// Publisher fans findings out to the bus. It satisfies
// service.FindingsPublisher.
type Publisher struct {
	client messaging.Publisher
}

// NewPublisher creates a findings publisher.
func NewPublisher(client messaging.Publisher) *Publisher {
	return &Publisher{client: client}
}

// PublishFindings sends one FindingsEvent on fwlens.findings and one on each
// category subject that fired.
func (p *Publisher) PublishFindings(ctx context.Context, report *analytics.Report) error {
	event := NewFindingsEvent(report)
	if err := p.client.PublishJSON(ctx, messaging.SubjectFindings, event); err != nil {
		return fmt.Errorf("publish findings: %w", err)
	}
	for _, f := range report.Findings {
		subject := messaging.FindingsSubject(string(f.Category))
		if err := p.client.PublishJSON(ctx, subject, event); err != nil {
			return fmt.Errorf("publish findings to %s: %w", subject, err)
		}
	}
	return nil
}
