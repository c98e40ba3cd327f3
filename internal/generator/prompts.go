package generator

import (
	"fmt"
	"strings"

	"github.com/pagewright/pagewright/internal/refine"
	"github.com/pagewright/pagewright/internal/trigger"
)

// readmeLimit truncates enormous READMEs before they reach the prompt.
const readmeLimit = 4000

const draftInstructions = `# Website Draft

You are a web designer generating a single-page website for a software
project. Using the repository facts below, produce a complete, modern,
responsive HTML document.

## Rules

- Respond with ONE complete HTML document: <!DOCTYPE html> through </html>
- Inline all CSS in a <style> block; no external assets
- No JavaScript frameworks; small inline scripts are acceptable
- Content must come from the repository facts; do not invent features
`

const evaluateInstructions = `# Website Evaluation

You are a strict design reviewer. Score the website below for how well it
presents the repository described in the facts.

## Rubric

- Visual design and layout quality
- Content accuracy against the repository facts
- Responsiveness and semantic HTML
- Clarity of the project's purpose to a first-time visitor

## Response Format

Respond with JSON only:

` + "```json" + `
{
  "score": 7,
  "feedback": "one paragraph overall assessment",
  "strengths": ["..."],
  "improvements": ["concrete change to make", "..."]
}
` + "```" + `

Score is an integer from 1 (unusable) to 10 (excellent).
`

const improveInstructions = `# Website Revision

You are a web designer revising a website based on review feedback. Apply
every improvement listed while keeping the strengths intact.

## Rules

- Respond with ONE complete revised HTML document, nothing else
- Address each listed improvement concretely
- Keep all content grounded in the repository facts
`

// draftPrompt builds the initial generation prompt.
func draftPrompt(req Request) string {
	var sb strings.Builder
	sb.WriteString(draftInstructions)
	sb.WriteString("\n")
	writeFacts(&sb, req)
	if req.Generation == trigger.GenerationPreview {
		sb.WriteString("\nThis is a preview build; a visible \"preview\" badge in a corner is welcome.\n")
	}
	return sb.String()
}

// evaluatePrompt builds the scoring prompt for one artifact.
func evaluatePrompt(req Request, artifact string) string {
	var sb strings.Builder
	sb.WriteString(evaluateInstructions)
	sb.WriteString("\n")
	writeFacts(&sb, req)
	sb.WriteString("\n## Website\n\n")
	sb.WriteString(artifact)
	sb.WriteString("\n")
	return sb.String()
}

// improvePrompt builds the rewrite prompt from the current artifact and
// its evaluation.
func improvePrompt(req Request, artifact string, eval refine.Evaluation) string {
	var sb strings.Builder
	sb.WriteString(improveInstructions)
	sb.WriteString("\n")
	writeFacts(&sb, req)

	sb.WriteString("\n## Review\n\n")
	fmt.Fprintf(&sb, "Score: %d/10\n\n", eval.Score)
	if eval.Feedback != "" {
		sb.WriteString(eval.Feedback)
		sb.WriteString("\n")
	}
	if len(eval.Improvements) > 0 {
		sb.WriteString("\nImprovements to apply:\n")
		for _, item := range eval.Improvements {
			sb.WriteString("- ")
			sb.WriteString(item)
			sb.WriteString("\n")
		}
	}

	sb.WriteString("\n## Current Website\n\n")
	sb.WriteString(artifact)
	sb.WriteString("\n")
	return sb.String()
}

// writeFacts appends the repository facts section shared by all prompts.
func writeFacts(sb *strings.Builder, req Request) {
	sb.WriteString("## Repository Facts\n\n")
	fmt.Fprintf(sb, "- Name: %s/%s\n", req.Owner, req.Repo)
	if req.Description != "" {
		fmt.Fprintf(sb, "- Description: %s\n", req.Description)
	}
	if req.Homepage != "" {
		fmt.Fprintf(sb, "- Homepage: %s\n", req.Homepage)
	}
	if req.Language != "" {
		fmt.Fprintf(sb, "- Primary language: %s\n", req.Language)
	}
	if len(req.Topics) > 0 {
		fmt.Fprintf(sb, "- Topics: %s\n", strings.Join(req.Topics, ", "))
	}
	if req.Requirements != "" {
		fmt.Fprintf(sb, "\n## Owner Requirements\n\n%s\n", req.Requirements)
	}
	if req.Readme != "" {
		sb.WriteString("\n## README\n\n")
		sb.WriteString(truncate(req.Readme, readmeLimit))
		sb.WriteString("\n")
	}
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "\n\n[truncated]"
}
