// Package trigger decides whether a repository event should start a
// generation run. The decision is pure: the same event and policy always
// produce the same verdict, and there is no failure mode. Malformed or
// unconfigured input degrades to a skip with a reason, never to an error.
package trigger

import (
	"fmt"
	"strings"
)

// CommitMarker tags commit messages written by pagewright itself. An event
// whose commits all carry the marker is rejected before the policy runs, so
// a push of generated output can never trigger another run.
const CommitMarker = "[pagewright]"

// Comment commands recognized on issues and pull requests.
const (
	commandGenerate = "/pagewright generate"
	commandPreview  = "/pagewright preview"
)

// Type distinguishes how a run was requested.
type Type int

const (
	// TypeAuto is a run started by a repository event matching the policy.
	TypeAuto Type = iota
	// TypeManual is a run requested explicitly, by comment command or CLI.
	TypeManual
)

// String returns a human-readable trigger type.
func (t Type) String() string {
	if t == TypeManual {
		return "manual"
	}
	return "auto"
}

// GenerationType selects the artifact a run produces.
type GenerationType int

const (
	// GenerationFull regenerates the published site.
	GenerationFull GenerationType = iota
	// GenerationPreview builds a preview without replacing the published site.
	GenerationPreview
)

// String returns a human-readable generation type.
func (g GenerationType) String() string {
	if g == GenerationPreview {
		return "preview"
	}
	return "full"
}

// CommitChange describes the files touched by one commit.
type CommitChange struct {
	Added    []string
	Modified []string
	Removed  []string
	Message  string
}

// Config is the push trigger policy, normally read from the target
// repository's .pagewright.yml.
type Config struct {
	// Enabled turns the push trigger on or off.
	Enabled bool
	// TargetBranches lists branches whose pushes may trigger generation.
	// Empty means the repository's default branch only.
	TargetBranches []string
	// IgnoredPathPrefixes skips pushes whose changes all live under these
	// prefixes, such as docs-only edits or the generated site itself.
	IgnoredPathPrefixes []string
}

// Event carries the facts about a push that the policy consumes.
type Event struct {
	Branch        string
	DefaultBranch string
	Commits       []CommitChange
	Config        Config
}

// Decision is the policy verdict. Reason is always populated so hosts can
// log why a run did or did not start.
type Decision struct {
	ShouldGenerate bool
	Trigger        Type
	Generation     GenerationType
	Reason         string
}

// Decide applies the push trigger policy to an event. Rules are checked in
// priority order and the first match wins: a disabled trigger beats branch
// matching, and branch matching beats path filtering. Pushes that report no
// commits (such as force pushes) pass the path filter and trigger a run.
func Decide(ev Event) Decision {
	if !ev.Config.Enabled {
		return skip("Push trigger disabled")
	}

	targets := ev.Config.TargetBranches
	if len(targets) == 0 {
		targets = []string{ev.DefaultBranch}
	}
	if !containsBranch(targets, ev.Branch) {
		return skip(fmt.Sprintf("Branch %s not in target branches: %s",
			ev.Branch, strings.Join(targets, ", ")))
	}

	if len(ev.Commits) > 0 && allChangesIgnored(ev.Commits, ev.Config.IgnoredPathPrefixes) {
		return skip(fmt.Sprintf("All changes in ignored paths: %s",
			strings.Join(ev.Config.IgnoredPathPrefixes, ", ")))
	}

	return Decision{
		ShouldGenerate: true,
		Trigger:        TypeAuto,
		Generation:     GenerationFull,
		Reason:         "Push trigger activated",
	}
}

// IsSelfGenerated reports whether every commit in the list was produced by
// pagewright, judged by the commit marker. An empty list is not
// self-generated, so pushes without commit data still reach the policy.
func IsSelfGenerated(commits []CommitChange) bool {
	if len(commits) == 0 {
		return false
	}
	for _, c := range commits {
		if !strings.Contains(c.Message, CommitMarker) {
			return false
		}
	}
	return true
}

// DecideComment interprets an issue or pull request comment as a manual
// trigger. Only comments whose body starts with a pagewright command count;
// mentions elsewhere in the body are ignored.
func DecideComment(body string) Decision {
	trimmed := strings.TrimSpace(body)
	switch {
	case strings.HasPrefix(trimmed, commandPreview):
		return Decision{
			ShouldGenerate: true,
			Trigger:        TypeManual,
			Generation:     GenerationPreview,
			Reason:         "Preview requested via comment command",
		}
	case strings.HasPrefix(trimmed, commandGenerate):
		return Decision{
			ShouldGenerate: true,
			Trigger:        TypeManual,
			Generation:     GenerationFull,
			Reason:         "Generation requested via comment command",
		}
	default:
		return skip("No pagewright command in comment")
	}
}

// ManualDecision is the verdict used when a host forces a run, bypassing
// the push policy entirely.
func ManualDecision() Decision {
	return Decision{
		ShouldGenerate: true,
		Trigger:        TypeManual,
		Generation:     GenerationFull,
		Reason:         "Manual trigger requested",
	}
}

func skip(reason string) Decision {
	return Decision{Reason: reason}
}

func containsBranch(branches []string, branch string) bool {
	for _, b := range branches {
		if b == branch {
			return true
		}
	}
	return false
}

// allChangesIgnored reports whether every changed path across all commits
// has one of the ignored prefixes. It is vacuously true when commits list
// no paths at all.
func allChangesIgnored(commits []CommitChange, prefixes []string) bool {
	for _, c := range commits {
		for _, path := range c.Added {
			if !hasIgnoredPrefix(path, prefixes) {
				return false
			}
		}
		for _, path := range c.Modified {
			if !hasIgnoredPrefix(path, prefixes) {
				return false
			}
		}
		for _, path := range c.Removed {
			if !hasIgnoredPrefix(path, prefixes) {
				return false
			}
		}
	}
	return true
}

func hasIgnoredPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
