package repo

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/google/go-github/v69/github"
	"golang.org/x/oauth2"

	"github.com/felixgeelhaar/auditor/pkg/application"
	"github.com/felixgeelhaar/auditor/pkg/domain/rubric"
)

// GitHubInvestigator runs the repository protocols through the GitHub REST
// API instead of a local clone.
type GitHubInvestigator struct {
	client   *github.Client
	maxFiles int
	logger   *slog.Logger
}

var _ application.Detective = (*GitHubInvestigator)(nil)

// NewGitHubInvestigator authenticates with token when one is given.
func NewGitHubInvestigator(token string, logger *slog.Logger) *GitHubInvestigator {
	var httpClient *http.Client
	if token != "" {
		httpClient = oauth2.NewClient(context.Background(), oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	}
	return NewGitHubInvestigatorWithClient(github.NewClient(httpClient), logger)
}

// NewGitHubInvestigatorWithClient uses a preconfigured client (for testing).
func NewGitHubInvestigatorWithClient(client *github.Client, logger *slog.Logger) *GitHubInvestigator {
	if logger == nil {
		logger = slog.Default()
	}
	return &GitHubInvestigator{client: client, maxFiles: DefaultMaxFiles, logger: logger}
}

func (g *GitHubInvestigator) Name() string { return "github_investigator" }

func (g *GitHubInvestigator) Criteria(r *rubric.Rubric) []string {
	return r.IDsFor(rubric.ArtifactRepo)
}

func (g *GitHubInvestigator) Investigate(ctx context.Context, in application.DetectiveInput) (application.Findings, error) {
	criteria := g.Criteria(in.Rubric)
	owner, name, err := ParseGitHubURL(in.RepoURL)
	if err != nil {
		return FailureFindings(criteria, in.RepoURL, err), nil
	}

	repository, _, err := g.client.Repositories.Get(ctx, owner, name)
	if err != nil {
		return FailureFindings(criteria, in.RepoURL, fmt.Errorf("repository lookup failed: %w", err)), nil
	}
	branch := repository.GetDefaultBranch()
	if branch == "" {
		branch = "HEAD"
	}

	tree, _, err := g.client.Git.GetTree(ctx, owner, name, branch, true)
	if err != nil {
		return FailureFindings(criteria, in.RepoURL, fmt.Errorf("tree listing failed: %w", err)), nil
	}
	var files []string
	for _, entry := range tree.Entries {
		if entry.GetType() != "blob" || !catalogExts[path.Ext(entry.GetPath())] || inSkippedDir(entry.GetPath()) {
			continue
		}
		files = append(files, entry.GetPath())
		if len(files) >= g.maxFiles {
			break
		}
	}
	sort.Strings(files)

	commits, err := g.history(ctx, owner, name)
	if err != nil {
		g.logger.Warn("github history unavailable", "repo", owner+"/"+name, "error", err)
	}

	src := &githubSource{ctx: ctx, client: g.client, owner: owner, repo: name, ref: branch, files: files, cache: map[string]string{}}
	return application.Findings{
		Evidence:    Analyze(criteria, src, AnalyzeHistory(commits), in.RepoURL),
		FileCatalog: files,
	}, nil
}

// history returns up to one page of 100 commits, oldest first.
func (g *GitHubInvestigator) history(ctx context.Context, owner, name string) ([]Commit, error) {
	list, _, err := g.client.Repositories.ListCommits(ctx, owner, name, &github.CommitsListOptions{
		ListOptions: github.ListOptions{PerPage: DefaultCloneDepth},
	})
	if err != nil {
		return nil, err
	}
	commits := make([]Commit, 0, len(list))
	for i := len(list) - 1; i >= 0; i-- {
		c := list[i]
		commits = append(commits, Commit{
			Hash:      c.GetSHA(),
			Message:   firstLine(c.GetCommit().GetMessage()),
			Timestamp: c.GetCommit().GetAuthor().GetDate().Time,
		})
	}
	return commits, nil
}

type githubSource struct {
	ctx    context.Context
	client *github.Client
	owner  string
	repo   string
	ref    string
	files  []string

	mu    sync.Mutex
	cache map[string]string
}

func (s *githubSource) Files() []string { return s.files }

func (s *githubSource) ReadFile(p string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if text, ok := s.cache[p]; ok {
		return text, nil
	}
	file, _, _, err := s.client.Repositories.GetContents(s.ctx, s.owner, s.repo, p, &github.RepositoryContentGetOptions{Ref: s.ref})
	if err != nil {
		return "", err
	}
	if file == nil {
		return "", fmt.Errorf("%s is a directory", p)
	}
	text, err := file.GetContent()
	if err != nil {
		return "", err
	}
	if len(text) > maxReadBytes {
		text = text[:maxReadBytes]
	}
	s.cache[p] = text
	return text, nil
}

func inSkippedDir(p string) bool {
	for _, seg := range strings.Split(path.Dir(p), "/") {
		if skipDirs[seg] {
			return true
		}
	}
	return false
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
