// Package github is the narrow GitHub surface pagewright needs: webhook
// payload parsing, repository metadata and content fetches, and the Pages
// build probe the concurrency guard polls.
package github

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pagewright/pagewright/internal/trigger"
)

// Repository identifies the repository a delivery belongs to.
type Repository struct {
	Name          string `json:"name"`
	FullName      string `json:"full_name"`
	Description   string `json:"description"`
	DefaultBranch string `json:"default_branch"`
}

// Owner returns the owner half of the full name.
func (r Repository) Owner() string {
	owner, _, _ := strings.Cut(r.FullName, "/")
	return owner
}

// PushCommit lists the files touched by one pushed commit.
type PushCommit struct {
	ID       string   `json:"id"`
	Message  string   `json:"message"`
	Added    []string `json:"added"`
	Modified []string `json:"modified"`
	Removed  []string `json:"removed"`
}

// PushEvent is the subset of a push delivery the trigger policy consumes.
type PushEvent struct {
	Ref        string       `json:"ref"`
	Repository Repository   `json:"repository"`
	Commits    []PushCommit `json:"commits"`
}

// Branch returns the branch the push targeted. Tag pushes return an empty
// branch, which never matches a target branch list.
func (e *PushEvent) Branch() string {
	if branch, found := strings.CutPrefix(e.Ref, "refs/heads/"); found {
		return branch
	}
	if strings.HasPrefix(e.Ref, "refs/tags/") {
		return ""
	}
	return e.Ref
}

// Changes converts the pushed commits into the policy's commit shape.
func (e *PushEvent) Changes() []trigger.CommitChange {
	changes := make([]trigger.CommitChange, len(e.Commits))
	for i, c := range e.Commits {
		changes[i] = trigger.CommitChange{
			Added:    c.Added,
			Modified: c.Modified,
			Removed:  c.Removed,
			Message:  c.Message,
		}
	}
	return changes
}

// TriggerEvent builds the policy engine's input from the delivery and the
// repository's trigger configuration.
func (e *PushEvent) TriggerEvent(cfg trigger.Config) trigger.Event {
	return trigger.Event{
		Branch:        e.Branch(),
		DefaultBranch: e.Repository.DefaultBranch,
		Commits:       e.Changes(),
		Config:        cfg,
	}
}

// IssueCommentEvent is the subset of an issue_comment delivery used for
// comment commands.
type IssueCommentEvent struct {
	Action     string     `json:"action"`
	Repository Repository `json:"repository"`
	Issue      struct {
		Number      int `json:"number"`
		PullRequest *struct {
			URL string `json:"url"`
		} `json:"pull_request,omitempty"`
	} `json:"issue"`
	Comment struct {
		Body string `json:"body"`
	} `json:"comment"`
}

// IsPullRequest reports whether the comment was left on a pull request.
func (e *IssueCommentEvent) IsPullRequest() bool {
	return e.Issue.PullRequest != nil
}

func parseEvent[T any](r io.Reader, kind string) (*T, error) {
	var event T
	if err := json.NewDecoder(r).Decode(&event); err != nil {
		return nil, fmt.Errorf("parsing %s event: %w", kind, err)
	}
	return &event, nil
}

// ParsePushEvent decodes a push delivery payload.
func ParsePushEvent(r io.Reader) (*PushEvent, error) {
	return parseEvent[PushEvent](r, "push")
}

// ParseIssueCommentEvent decodes an issue_comment delivery payload.
func ParseIssueCommentEvent(r io.Reader) (*IssueCommentEvent, error) {
	return parseEvent[IssueCommentEvent](r, "issue_comment")
}
