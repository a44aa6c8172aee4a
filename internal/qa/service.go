// Package qa answers student questions: it decodes an optional image,
// matches the question against the topic catalog and falls back to the
// course's forum and site links when nothing matches.
package qa

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"

	"github.com/flemzord/tdsta/internal/ingest"
	"github.com/flemzord/tdsta/internal/knowledge"
	"github.com/flemzord/tdsta/internal/match"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ServiceName is the registry name of the question service.
const ServiceName = "qa.service"

// DefaultAnswer is returned when no topic matches.
const DefaultAnswer = "I don't have specific information about this question in my current knowledge base. Please refer to the course materials or ask on the Discourse forum for clarification."

// Question outcomes reported to Metrics.
const (
	outcomeMatched  = "matched"
	outcomeFallback = "fallback"
	outcomeFault    = "fault"
)

// logQuestionLimit caps how much of a question is logged.
const logQuestionLimit = 100

// Answer is the response to a question.
type Answer struct {
	Answer string           `json:"answer"`
	Links  []knowledge.Link `json:"links"`
}

// KnowledgeSource yields the current topic catalog.
type KnowledgeSource interface {
	Store() *knowledge.Store
}

// RootsSource yields the fallback source roots.
type RootsSource interface {
	SourceRoots() ingest.SourceRoots
}

// Metrics receives per-question outcomes. Outcome is "matched", "fallback"
// or "fault".
type Metrics interface {
	ObserveQuestion(outcome, topicID string)
	ObserveImage(decoded bool)
}

// Config configures a Service.
type Config struct {
	Knowledge KnowledgeSource
	Roots     RootsSource
	Logger    *slog.Logger
	Metrics   Metrics
	Tracer    trace.Tracer
}

// Service answers questions. It is safe for concurrent use.
type Service struct {
	knowledge KnowledgeSource
	roots     RootsSource
	logger    *slog.Logger
	metrics   Metrics
	tracer    trace.Tracer
}

// NewService creates a Service. A nil Knowledge source uses the built-in
// catalog and a nil Roots source the default forum and site roots.
func NewService(cfg Config) *Service {
	s := &Service{
		knowledge: cfg.Knowledge,
		roots:     cfg.Roots,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
		tracer:    cfg.Tracer,
	}
	if s.knowledge == nil {
		s.knowledge = knowledge.NewHolder(knowledge.DefaultStore())
	}
	if s.roots == nil {
		s.roots = defaultRoots{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.metrics == nil {
		s.metrics = nopMetrics{}
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer("github.com/flemzord/tdsta/internal/qa")
	}
	return s
}

// Process answers question. The image, if any, is decoded best-effort and
// otherwise ignored. Process never fails: internal faults are logged and
// answered like an unmatched question.
func (s *Service) Process(ctx context.Context, question string, image *string) (ans Answer) {
	ctx, span := s.tracer.Start(ctx, "qa.process", trace.WithAttributes(
		attribute.Int("qa.question_length", len(question)),
		attribute.Bool("qa.has_image", image != nil),
	))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("qa: panic: %v", r)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			s.logger.ErrorContext(ctx, "question processing failed",
				"error", err,
				"stack", string(debug.Stack()),
			)
			s.metrics.ObserveQuestion(outcomeFault, "")
			ans = s.fallback()
		}
	}()

	s.logger.InfoContext(ctx, "processing question", "question", truncate(question, logQuestionLimit))

	if image != nil {
		s.decodeImage(ctx, *image)
	}

	res, err := match.Match(&question, s.knowledge.Store())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.ErrorContext(ctx, "question matching failed", "error", err)
		s.metrics.ObserveQuestion(outcomeFault, "")
		return s.fallback()
	}

	if !res.Matched {
		span.SetAttributes(attribute.Bool("qa.matched", false))
		s.metrics.ObserveQuestion(outcomeFallback, "")
		return s.fallback()
	}

	span.SetAttributes(
		attribute.Bool("qa.matched", true),
		attribute.String("qa.topic", res.TopicID),
	)
	s.logger.DebugContext(ctx, "question matched", "topic", res.TopicID, "pattern", res.Pattern)
	s.metrics.ObserveQuestion(outcomeMatched, res.TopicID)

	links := res.Links
	if links == nil {
		links = []knowledge.Link{}
	}
	return Answer{Answer: res.Answer, Links: links}
}

func (s *Service) decodeImage(ctx context.Context, image string) {
	data, err := base64.StdEncoding.DecodeString(image)
	if err != nil {
		s.logger.WarnContext(ctx, "ignoring undecodable image", "error", err)
		s.metrics.ObserveImage(false)
		return
	}
	s.logger.InfoContext(ctx, "image attached", "bytes", len(data))
	s.metrics.ObserveImage(true)
}

// fallback answers with the known source roots. A faulty RootsSource falls
// back to the built-in roots so Process still returns.
func (s *Service) fallback() (ans Answer) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("source roots unavailable, using built-in roots", "error", fmt.Sprint(r))
			ans = Answer{Answer: DefaultAnswer, Links: ingest.DefaultRoots().Links()}
		}
	}()
	return Answer{Answer: DefaultAnswer, Links: s.roots.SourceRoots().Links()}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	// Cut on a rune boundary.
	cut := strings.ToValidUTF8(s[:n], "")
	return cut + "..."
}

type defaultRoots struct{}

func (defaultRoots) SourceRoots() ingest.SourceRoots { return ingest.DefaultRoots() }

type nopMetrics struct{}

func (nopMetrics) ObserveQuestion(string, string) {}
func (nopMetrics) ObserveImage(bool)              {}
