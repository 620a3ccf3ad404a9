// Command governor runs the governance workflow orchestrator: brief → issue
// → low-level design → implementation spec → tests, driven by the graphs
// in internal/workflows. This binary is a thin flag-parsing shell; all
// business logic lives in internal packages, per the teacher's
// cmd/<binary>/main.go convention.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/aldermoor/governor/internal/audit"
	"github.com/aldermoor/governor/internal/checkpoint"
	"github.com/aldermoor/governor/internal/config"
	"github.com/aldermoor/governor/internal/credential"
	"github.com/aldermoor/governor/internal/engine"
	"github.com/aldermoor/governor/internal/llm"
	"github.com/aldermoor/governor/internal/llm/cliadapter"
	"github.com/aldermoor/governor/internal/llm/httpadapter"
	"github.com/aldermoor/governor/internal/llm/mockadapter"
	"github.com/aldermoor/governor/internal/llm/rotatingadapter"
	"github.com/aldermoor/governor/internal/logutil"
	"github.com/aldermoor/governor/internal/nodes"
	"github.com/aldermoor/governor/internal/state"
	"github.com/aldermoor/governor/internal/workflows/issue"
	"github.com/aldermoor/governor/internal/workflows/lld"
	"github.com/aldermoor/governor/internal/workflows/testing"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var inputPath, dataDir, repoPath string

	root := &cobra.Command{
		Use:   "governor",
		Short: "Run a governance workflow against a brief",
	}

	runIssue := &cobra.Command{
		Use:   "issue",
		Short: "Run the brief-to-issue workflow",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIssueWorkflow(cmd.Context(), inputPath, dataDir)
		},
	}
	runIssue.Flags().StringVar(&inputPath, "input", "", "path to the brief file")
	runIssue.Flags().StringVar(&dataDir, "data-dir", "", "governance data directory (default: XDG data dir)")
	_ = runIssue.MarkFlagRequired("input")

	runLLD := &cobra.Command{
		Use:   "lld",
		Short: "Run the issue-to-low-level-design workflow",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLLDWorkflow(cmd.Context(), inputPath, repoPath, dataDir)
		},
	}
	runLLD.Flags().StringVar(&inputPath, "input", "", "path to the issue file")
	runLLD.Flags().StringVar(&repoPath, "repo", ".", "path to the target codebase to analyze")
	runLLD.Flags().StringVar(&dataDir, "data-dir", "", "governance data directory (default: XDG data dir)")
	_ = runLLD.MarkFlagRequired("input")

	runTesting := &cobra.Command{
		Use:   "testing",
		Short: "Run the implementation-spec-to-tests workflow",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTestingWorkflow(cmd.Context(), inputPath, repoPath, dataDir)
		},
	}
	runTesting.Flags().StringVar(&inputPath, "input", "", "path to the implementation spec file")
	runTesting.Flags().StringVar(&repoPath, "repo", ".", "path to the implementation under review")
	runTesting.Flags().StringVar(&dataDir, "data-dir", "", "governance data directory (default: XDG data dir)")
	_ = runTesting.MarkFlagRequired("input")

	root.AddCommand(runIssue, runLLD, runTesting)
	return root
}

// buildAdapter constructs an llm.Adapter for the named provider from the
// loaded tunables. "cli" shells out to a local binary, "http" talks to a
// raw messages-API endpoint with a .env-sourced key, "rotating" wraps an
// http call in a credential.Rotator sourced from
// GOVERNOR_<NAME>_CREDENTIALS (comma-separated secrets), and "mock" is a
// canned stand-in for local testing without network or subprocess access.
func buildAdapter(name string, tunables config.Tunables) (llm.Adapter, error) {
	spec, ok := tunables.Providers[name]
	if !ok {
		return mockadapter.New(name, "provider:model-a", "draft content"), nil
	}

	switch spec.Kind {
	case "cli":
		return cliadapter.New(spec.Binary, spec.Model, nil, tunables.PrimaryTimeout), nil
	case "http":
		envPath := filepath.Join(tunables.DataDir, ".env")
		key, err := httpadapter.LoadDotEnvKey(envPath, strings.ToUpper(name)+"_API_KEY")
		if err != nil {
			return nil, fmt.Errorf("governor: loading %s credentials: %w", name, err)
		}
		pricing := httpadapter.DefaultPricing(3.0, 15.0)
		return httpadapter.New(spec.Endpoint, spec.Model, key, pricing, tunables.PrimaryTimeout), nil
	case "rotating":
		secrets := strings.Split(os.Getenv("GOVERNOR_"+strings.ToUpper(name)+"_CREDENTIALS"), ",")
		creds := make([]credential.Credential, 0, len(secrets))
		for i, s := range secrets {
			if s == "" {
				continue
			}
			creds = append(creds, credential.Credential{Name: fmt.Sprintf("%s-%d", name, i), Secret: s})
		}
		if len(creds) == 0 {
			return nil, fmt.Errorf("governor: provider %q is kind=rotating but GOVERNOR_%s_CREDENTIALS is empty", name, strings.ToUpper(name))
		}
		store, err := credential.NewRotationStore(filepath.Join(tunables.DataDir, "credentials", name+".json"))
		if err != nil {
			return nil, fmt.Errorf("governor: opening rotation store for %s: %w", name, err)
		}
		rotator := credential.NewRotator(&credential.Set{Credentials: creds}, store, int(tunables.CallsPerSecond*60),
			tunables.BaseBackoff, tunables.MaxBackoff, tunables.MaxRetryAttempts)
		pricing := httpadapter.DefaultPricing(3.0, 15.0)
		inner := func(ctx context.Context, secret, systemPrompt, content string) (*llm.CallResult, error) {
			call := httpadapter.New(spec.Endpoint, spec.Model, secret, pricing, tunables.PrimaryTimeout)
			return call.Invoke(ctx, systemPrompt, content)
		}
		requiredModel := modelPrefixPredicate(tunables.ModelPolicy.RequiredModelPrefix)
		return rotatingadapter.New(rotator, name, spec.Model, tunables.ModelPolicy.ForbiddenModels, requiredModel, inner)
	case "mock", "":
		return mockadapter.New(name, spec.Model, "draft content"), nil
	default:
		return nil, fmt.Errorf("governor: unknown provider kind %q for %q", spec.Kind, name)
	}
}

// modelPrefixPredicate builds a rotatingadapter required-model check from a
// configured prefix; an empty prefix means no required-model constraint.
func modelPrefixPredicate(prefix string) func(string) bool {
	if prefix == "" {
		return nil
	}
	return func(model string) bool { return strings.HasPrefix(model, prefix) }
}

// walkCodebaseSummary is the default nodes.CodebaseAnalyzer: it lists
// source files under path (skipping vendor-ish and VCS directories) as a
// lightweight stand-in for a real repository summary.
func walkCodebaseSummary(ctx context.Context, path string) (string, error) {
	var sb strings.Builder
	err := filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			switch info.Name() {
			case ".git", "vendor", "node_modules", "_examples":
				return filepath.SkipDir
			}
			return nil
		}
		rel, relErr := filepath.Rel(path, p)
		if relErr != nil {
			rel = p
		}
		sb.WriteString(rel)
		sb.WriteString("\n")
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("governor: walking codebase: %w", err)
	}
	return sb.String(), nil
}

func runIssueWorkflow(ctx context.Context, inputPath, dataDir string) error {
	logger := logutil.NewSlogLogger(os.Stderr, slogLevel())
	ctx = logutil.WithCorrelationID(ctx)

	tunables := config.DefaultTunables()
	if dataDir != "" {
		tunables.DataDir = dataDir
	}

	dirs := audit.Dirs{Root: filepath.Join(tunables.DataDir, "issue")}
	if err := dirs.EnsureDirectories(); err != nil {
		return fmt.Errorf("governor: preparing data dir: %w", err)
	}

	store, err := checkpoint.Open(filepath.Join(tunables.DataDir, "checkpoints.db"))
	if err != nil {
		return fmt.Errorf("governor: opening checkpoint store: %w", err)
	}
	defer store.Close()

	repoRoot, err := audit.GetRepoRoot(".")
	if err != nil {
		repoRoot = "."
	}
	slug := audit.GenerateSlug(filepath.Base(inputPath))

	generator, err := buildAdapter("primary", tunables)
	if err != nil {
		return err
	}
	reviewer, err := buildAdapter("reviewer", tunables)
	if err != nil {
		return err
	}

	graph, err := issue.New(issue.Deps{
		Generator: generator,
		Reviewer:  reviewer,
		Resolve:   stdinHumanGate(logger),
		Dirs:      dirs,
		RepoRoot:  repoRoot,
		Slug:      slug,
		MaxIters:  tunables.WorkflowCaps.Issue,
	})
	if err != nil {
		return fmt.Errorf("governor: building issue graph: %w", err)
	}

	app := engine.NewApp(graph, store)
	threadID := uuid.NewString()

	initial := state.WorkflowState{
		ThreadID: threadID,
		Workflow: "issue",
		MaxIters: tunables.WorkflowCaps.Issue,
		Extra:    map[string]interface{}{"input_path": inputPath},
	}

	final, err := app.Run(ctx, threadID, initial)
	if err != nil {
		return fmt.Errorf("governor: running issue workflow: %w", err)
	}

	logger.Info("issue workflow finished: thread=%s filed=%v", threadID, final.Extra["filed"])
	return nil
}

func runLLDWorkflow(ctx context.Context, inputPath, repoPath, dataDir string) error {
	logger := logutil.NewSlogLogger(os.Stderr, slogLevel())
	ctx = logutil.WithCorrelationID(ctx)

	tunables := config.DefaultTunables()
	if dataDir != "" {
		tunables.DataDir = dataDir
	}

	dirs := audit.Dirs{Root: filepath.Join(tunables.DataDir, "lld")}
	if err := dirs.EnsureDirectories(); err != nil {
		return fmt.Errorf("governor: preparing data dir: %w", err)
	}

	store, err := checkpoint.Open(filepath.Join(tunables.DataDir, "checkpoints.db"))
	if err != nil {
		return fmt.Errorf("governor: opening checkpoint store: %w", err)
	}
	defer store.Close()

	repoRoot, err := audit.GetRepoRoot(repoPath)
	if err != nil {
		repoRoot = repoPath
	}
	slug := audit.GenerateSlug(filepath.Base(inputPath))

	generator, err := buildAdapter("primary", tunables)
	if err != nil {
		return err
	}
	reviewer, err := buildAdapter("reviewer", tunables)
	if err != nil {
		return err
	}

	graph, err := lld.New(lld.Deps{
		Generator: generator,
		Reviewer:  reviewer,
		Analyzer:  walkCodebaseSummary,
		Resolve:   stdinHumanGate(logger),
		Dirs:      dirs,
		RepoRoot:  repoRoot,
		Slug:      slug,
		MaxIters:  tunables.WorkflowCaps.LLD,
	})
	if err != nil {
		return fmt.Errorf("governor: building lld graph: %w", err)
	}

	app := engine.NewApp(graph, store)
	threadID := uuid.NewString()

	initial := state.WorkflowState{
		ThreadID: threadID,
		Workflow: "lld",
		MaxIters: tunables.WorkflowCaps.LLD,
		Extra: map[string]interface{}{
			"input_path": inputPath,
			"repo_path":  repoRoot,
		},
	}

	final, err := app.Run(ctx, threadID, initial)
	if err != nil {
		return fmt.Errorf("governor: running lld workflow: %w", err)
	}

	logger.Info("lld workflow finished: thread=%s filed=%v", threadID, final.Extra["filed"])
	return nil
}

func runTestingWorkflow(ctx context.Context, inputPath, repoPath, dataDir string) error {
	logger := logutil.NewSlogLogger(os.Stderr, slogLevel())
	ctx = logutil.WithCorrelationID(ctx)

	tunables := config.DefaultTunables()
	if dataDir != "" {
		tunables.DataDir = dataDir
	}

	dirs := audit.Dirs{Root: filepath.Join(tunables.DataDir, "testing")}
	if err := dirs.EnsureDirectories(); err != nil {
		return fmt.Errorf("governor: preparing data dir: %w", err)
	}

	store, err := checkpoint.Open(filepath.Join(tunables.DataDir, "checkpoints.db"))
	if err != nil {
		return fmt.Errorf("governor: opening checkpoint store: %w", err)
	}
	defer store.Close()

	repoRoot, err := audit.GetRepoRoot(repoPath)
	if err != nil {
		repoRoot = repoPath
	}
	slug := audit.GenerateSlug(filepath.Base(inputPath))

	generator, err := buildAdapter("primary", tunables)
	if err != nil {
		return err
	}

	graph, err := testing.New(testing.Deps{
		Generator:   generator,
		LoadSources: loadRepoSources(repoRoot),
		Resolve:     stdinHumanGate(logger),
		Dirs:        dirs,
		RepoRoot:    repoRoot,
		Slug:        slug,
		MaxIters:    tunables.WorkflowCaps.Testing,
	})
	if err != nil {
		return fmt.Errorf("governor: building testing graph: %w", err)
	}

	app := engine.NewApp(graph, store)
	threadID := uuid.NewString()

	initial := state.WorkflowState{
		ThreadID: threadID,
		Workflow: "testing",
		MaxIters: tunables.WorkflowCaps.Testing,
		Extra:    map[string]interface{}{"input_path": inputPath},
	}

	final, err := app.Run(ctx, threadID, initial)
	if err != nil {
		return fmt.Errorf("governor: running testing workflow: %w", err)
	}

	logger.Info("testing workflow finished: thread=%s filed=%v", threadID, final.Extra["filed"])
	return nil
}

// loadRepoSources returns a nodes.SourceLoader that reads every regular
// file under root into memory for the completeness gate to scan. Intended
// for modest-sized implementation trees; callers pointing it at a large
// repo should narrow repoRoot to the changed subtree.
func loadRepoSources(root string) nodes.SourceLoader {
	return func(ctx context.Context, st state.WorkflowState) (map[string]string, error) {
		sources := map[string]string{}
		err := filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				switch info.Name() {
				case ".git", "vendor", "node_modules", "_examples":
					return filepath.SkipDir
				}
				return nil
			}
			content, readErr := os.ReadFile(p)
			if readErr != nil {
				return readErr
			}
			rel, relErr := filepath.Rel(root, p)
			if relErr != nil {
				rel = p
			}
			sources[rel] = string(content)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("governor: loading sources: %w", err)
		}
		return sources, nil
	}
}

func stdinHumanGate(logger logutil.LoggerInterface) nodes.HumanGateResolver {
	return func(ctx context.Context, st state.WorkflowState) (nodes.HumanGateDecision, error) {
		logger.Info("draft ready for review:\n%s", st.Draft)
		fmt.Fprint(os.Stdout, "Approve? [y/N]: ")
		reader := bufio.NewReader(os.Stdin)
		line, _ := reader.ReadString('\n')
		approved := len(line) > 0 && (line[0] == 'y' || line[0] == 'Y')
		return nodes.HumanGateDecision{Approved: approved}, nil
	}
}

func slogLevel() slog.Level {
	if os.Getenv("GOVERNOR_DEBUG") != "" {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}
