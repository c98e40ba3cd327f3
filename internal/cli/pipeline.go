package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/pagewright/pagewright/internal/config"
	"github.com/pagewright/pagewright/internal/generator"
	"github.com/pagewright/pagewright/internal/github"
	"github.com/pagewright/pagewright/internal/guard"
	"github.com/pagewright/pagewright/internal/llm"
	"github.com/pagewright/pagewright/internal/logging"
	"github.com/pagewright/pagewright/internal/state"
	"github.com/pagewright/pagewright/internal/trigger"
)

// Pipeline wires the GitHub client, the completion model, the deployment
// guard, and the run store into one generation flow. It implements
// server.Dispatcher, so webhook deliveries take the same path the
// one-shot commands do.
type Pipeline struct {
	cfg    *config.Host
	github *github.Client
	model  llm.Client
	store  *state.Store
	log    *logging.Logger
}

// pipelineFactory builds the pipeline for commands.
// It can be overridden in tests.
var pipelineFactory = newPipeline

// newPipeline builds a Pipeline from host configuration. A non-empty
// outputDir overrides the configured output directory.
func newPipeline(outputDir string) (*Pipeline, error) {
	cfg, err := config.LoadHost()
	if err != nil {
		return nil, fmt.Errorf("failed to load host config: %w", err)
	}

	if !rootVerbose {
		logging.SetLevel(logging.ParseLevel(cfg.LogLevel))
	}

	if outputDir != "" {
		cfg.OutputDir = outputDir
	}
	if cfg.OutputDir == "" || cfg.OutputDir == "." {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		cfg.OutputDir = cwd
	}

	gh := github.NewClient(github.ClientConfig{
		BaseURL: cfg.GitHubBaseURL,
		Token:   cfg.GitHubToken,
	}, nil)

	chat := llm.NewChatClient(llm.ClientConfig{
		BaseURL: cfg.LLMBaseURL,
		APIKey:  cfg.LLMAPIKey,
		Model:   cfg.LLMModel,
	}, nil)

	return &Pipeline{
		cfg:    cfg,
		github: gh,
		model:  llm.NewRetryClient(chat, cfg.RetryAttempts, cfg.RetryDelay, nil),
		store:  state.NewStore(cfg.OutputDir),
		log:    logging.Default().With("component", "pipeline"),
	}, nil
}

// repoConfig fetches .pagewright.yml from the repository. A repository
// without one gets the defaults.
func (p *Pipeline) repoConfig(ctx context.Context, owner, repo string) (*config.RepoConfig, error) {
	data, err := p.github.FileContent(ctx, owner, repo, config.RepoConfigName)
	if errors.Is(err, github.ErrNotFound) {
		cfg := config.DefaultRepoConfig()
		return &cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", config.RepoConfigName, err)
	}
	return config.ParseRepoConfig(data)
}

// HandlePush implements server.Dispatcher for push deliveries.
func (p *Pipeline) HandlePush(ctx context.Context, event github.PushEvent) {
	log := p.log.WithFields(map[string]interface{}{
		"repo":   event.Repository.FullName,
		"branch": event.Branch(),
	})

	if trigger.IsSelfGenerated(event.Changes()) {
		log.Info("ignoring self-generated push")
		return
	}

	owner := event.Repository.Owner()
	cfg, err := p.repoConfig(ctx, owner, event.Repository.Name)
	if err != nil {
		log.Error("failed to load repository config", "error", err)
		return
	}

	decision := trigger.Decide(event.TriggerEvent(cfg.TriggerConfig()))
	log.Info("trigger decision",
		"generate", decision.ShouldGenerate, "reason", decision.Reason)

	if !decision.ShouldGenerate {
		p.recordSkip(event.Repository.FullName, event.Branch(), decision)
		return
	}

	if _, err := p.Run(ctx, owner, event.Repository.Name, event.Branch(), decision, cfg); err != nil {
		log.Error("generation run failed", "error", err)
	}
}

// HandleComment implements server.Dispatcher for issue_comment deliveries.
// Only pull request comments that start with a pagewright command run;
// everything else is dropped without a run record.
func (p *Pipeline) HandleComment(ctx context.Context, event github.IssueCommentEvent) {
	log := p.log.With("repo", event.Repository.FullName)

	decision := trigger.DecideComment(event.Comment.Body)
	if !decision.ShouldGenerate {
		log.Debug("comment is not a command", "reason", decision.Reason)
		return
	}
	if !event.IsPullRequest() {
		log.Info("ignoring command outside a pull request", "issue", event.Issue.Number)
		return
	}

	log.Info("trigger decision",
		"generation", decision.Generation.String(), "reason", decision.Reason)

	owner := event.Repository.Owner()
	cfg, err := p.repoConfig(ctx, owner, event.Repository.Name)
	if err != nil {
		log.Error("failed to load repository config", "error", err)
		return
	}

	branch := event.Repository.DefaultBranch
	if _, err := p.Run(ctx, owner, event.Repository.Name, branch, decision, cfg); err != nil {
		log.Error("generation run failed", "error", err)
	}
}

// recordSkip persists a run record for a push the policy turned down.
func (p *Pipeline) recordSkip(repo, branch string, decision trigger.Decision) {
	record := state.NewRunRecord(repo, branch)
	record.Trigger = decision.Trigger.String()
	record.Generation = decision.Generation.String()
	record.Skip(decision.Reason)
	if err := p.store.SaveRun(record); err != nil {
		p.log.Error("failed to save run record", "run", record.ID, "error", err)
	}
}

// Run executes one guarded generation and records the outcome. The
// returned record is saved regardless of how the run ends.
func (p *Pipeline) Run(ctx context.Context, owner, repo, branch string, decision trigger.Decision, cfg *config.RepoConfig) (*state.RunRecord, error) {
	record := state.NewRunRecord(owner+"/"+repo, branch)
	record.Trigger = decision.Trigger.String()
	record.Generation = decision.Generation.String()
	record.Reason = decision.Reason

	log := p.log.WithFields(map[string]interface{}{
		"run":  record.ID,
		"repo": record.Repo,
	})
	log.Info("starting run",
		"trigger", record.Trigger, "generation", record.Generation)

	site, path, err := p.generate(ctx, owner, repo, decision, cfg)
	if err != nil {
		record.Fail(err)
		p.saveRun(record)
		return record, err
	}

	record.Complete(site.Iterations, site.Evaluation.Score, site.Improved, path)
	p.saveRun(record)

	log.Info("run completed", "score", site.Evaluation.Score,
		"iterations", site.Iterations, "improved", site.Improved,
		"artifact", path)
	return record, nil
}

func (p *Pipeline) saveRun(record *state.RunRecord) {
	if err := p.store.SaveRun(record); err != nil {
		p.log.Error("failed to save run record", "run", record.ID, "error", err)
	}
}

// generate fetches repository facts and runs the guarded draft/refine
// flow, writing the artifact on success.
func (p *Pipeline) generate(ctx context.Context, owner, repo string, decision trigger.Decision, cfg *config.RepoConfig) (*generator.Site, string, error) {
	info, err := p.github.Repo(ctx, owner, repo)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch repository: %w", err)
	}

	readme, err := p.github.Readme(ctx, owner, repo)
	if err != nil && !errors.Is(err, github.ErrNotFound) {
		return nil, "", fmt.Errorf("failed to fetch readme: %w", err)
	}

	req := generator.Request{
		Owner:        owner,
		Repo:         repo,
		Description:  info.Description,
		Homepage:     info.Homepage,
		Language:     info.Language,
		Topics:       info.Topics,
		Readme:       readme,
		Requirements: cfg.Generation.Requirements,
		Generation:   decision.Generation,
		Refinement:   cfg.RefinementConfig(),
	}

	g := guard.New(p.github.DeploymentProbe(owner, repo),
		guard.WithInterval(p.cfg.PollInterval),
		guard.WithBudget(p.cfg.PollBudget),
		guard.WithLogger(p.log))

	gen := generator.New(p.model, p.log)

	var site *generator.Site
	err = g.Do(ctx, func(ctx context.Context) error {
		var genErr error
		site, genErr = gen.Generate(ctx, req)
		return genErr
	})
	if err != nil {
		return nil, "", err
	}

	path, err := p.store.WriteArtifact(site.HTML, decision.Generation.String())
	if err != nil {
		return nil, "", fmt.Errorf("failed to write artifact: %w", err)
	}

	return site, path, nil
}
