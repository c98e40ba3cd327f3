// Package generator turns repository facts into a generated website by
// driving the completion model through a draft pass and a bounded
// refinement loop.
package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pagewright/pagewright/internal/llm"
	"github.com/pagewright/pagewright/internal/logging"
	"github.com/pagewright/pagewright/internal/normalize"
	"github.com/pagewright/pagewright/internal/refine"
	"github.com/pagewright/pagewright/internal/trigger"
)

// Sampling temperatures. Drafting and rewriting want variety; scoring
// wants stability.
const (
	draftTemperature    = 0.7
	evaluateTemperature = 0.2
)

// excerptLen bounds raw model output quoted in error messages.
const excerptLen = 200

// Request carries everything one generation needs.
type Request struct {
	Owner        string
	Repo         string
	Description  string
	Homepage     string
	Language     string
	Topics       []string
	Readme       string
	Requirements string
	Generation   trigger.GenerationType
	Refinement   refine.Config
}

// Site is a finished generation.
type Site struct {
	HTML       string
	Evaluation refine.Evaluation
	Iterations int
	Improved   bool
}

// MalformedResponseError is a model response the pipeline could not use:
// empty output where HTML was expected, or an evaluation payload that did
// not decode. It is fatal for the run and keeps an excerpt of the raw text
// for diagnosis.
type MalformedResponseError struct {
	Stage string
	Raw   string
	Err   error
}

// Error implements error.
func (e *MalformedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed %s response: %v (raw: %q)", e.Stage, e.Err, e.Raw)
	}
	return fmt.Sprintf("malformed %s response (raw: %q)", e.Stage, e.Raw)
}

// Unwrap exposes the decode error, if any.
func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// Generator drives the model.
type Generator struct {
	client llm.Client
	engine *refine.Engine
	log    *logging.Logger
}

// New creates a Generator. A nil logger uses the package default.
func New(client llm.Client, log *logging.Logger) *Generator {
	if log == nil {
		log = logging.Default()
	}
	return &Generator{
		client: client,
		engine: refine.NewEngine(log),
		log:    log,
	}
}

// Generate drafts a site for the request and refines it within the
// request's bounds. Model transport errors and malformed responses abort
// the run with no partial result.
func (g *Generator) Generate(ctx context.Context, req Request) (*Site, error) {
	g.log.Info("drafting site",
		"repo", req.Owner+"/"+req.Repo, "type", req.Generation.String())

	raw, err := g.client.Complete(ctx, draftPrompt(req), draftTemperature)
	if err != nil {
		return nil, fmt.Errorf("draft completion: %w", err)
	}

	html := normalize.StripFence(raw, normalize.FenceHTML)
	if html == "" {
		return nil, &MalformedResponseError{Stage: "draft", Raw: excerpt(raw)}
	}

	result, err := g.engine.Run(ctx, html, req.Refinement, g.evaluate(req), g.improve(req))
	if err != nil {
		return nil, err
	}

	return &Site{
		HTML:       result.Artifact,
		Evaluation: result.Evaluation,
		Iterations: result.Iterations,
		Improved:   result.Improved,
	}, nil
}

// evaluate returns the scoring hook for the refinement loop.
func (g *Generator) evaluate(req Request) refine.EvaluateFunc {
	return func(ctx context.Context, artifact string) (refine.Evaluation, error) {
		raw, err := g.client.Complete(ctx, evaluatePrompt(req, artifact), evaluateTemperature)
		if err != nil {
			return refine.Evaluation{}, fmt.Errorf("evaluation completion: %w", err)
		}
		return parseEvaluation(raw)
	}
}

// improve returns the rewrite hook for the refinement loop.
func (g *Generator) improve(req Request) refine.ImproveFunc {
	return func(ctx context.Context, artifact string, eval refine.Evaluation) (string, error) {
		raw, err := g.client.Complete(ctx, improvePrompt(req, artifact, eval), draftTemperature)
		if err != nil {
			return "", fmt.Errorf("improvement completion: %w", err)
		}

		html := normalize.StripFence(raw, normalize.FenceHTML)
		if html == "" {
			return "", &MalformedResponseError{Stage: "improvement", Raw: excerpt(raw)}
		}
		return html, nil
	}
}

// evaluationPayload mirrors the JSON the rubric prompt asks for. Score is
// declared loose because models return it as a number or a string.
type evaluationPayload struct {
	Score        interface{} `json:"score"`
	Feedback     string      `json:"feedback"`
	Strengths    []string    `json:"strengths"`
	Improvements []string    `json:"improvements"`
}

// parseEvaluation decodes an evaluation response. The score passes through
// normalization, so a decodable payload always yields a usable evaluation;
// only undecodable JSON is an error.
func parseEvaluation(raw string) (refine.Evaluation, error) {
	cleaned := normalize.StripFence(raw, normalize.FenceJSON)

	var payload evaluationPayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return refine.Evaluation{}, &MalformedResponseError{
			Stage: "evaluation",
			Raw:   excerpt(cleaned),
			Err:   err,
		}
	}

	return refine.Evaluation{
		Score:        normalize.Score(payload.Score),
		Feedback:     payload.Feedback,
		Strengths:    payload.Strengths,
		Improvements: payload.Improvements,
	}, nil
}

func excerpt(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > excerptLen {
		return s[:excerptLen] + "..."
	}
	return s
}
