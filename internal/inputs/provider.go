// Package inputs provides task inputs: local files first, then the puzzle
// site when the main input is missing. It also extracts example inputs from
// the puzzle page.
package inputs

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"html"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/zeebo/blake3"

	"github.com/mattjoyce/aocrunner/internal/log"
	"github.com/mattjoyce/aocrunner/internal/report"
)

const (
	// DefaultBaseURL is the puzzle site.
	DefaultBaseURL = "https://adventofcode.com"

	// DefaultUserAgent identifies the runner to the puzzle site.
	DefaultUserAgent = "github.com/mattjoyce/aocrunner"

	// maxWait is the longest the provider sleeps for a puzzle to release.
	maxWait = time.Hour

	// releaseSlack is added after release before fetching.
	releaseSlack = 5 * time.Second

	// maxTestCases bounds the examples extracted from one page.
	maxTestCases = 255
)

var (
	// ErrNotReleased matches every *NotReleasedError.
	ErrNotReleased = errors.New("puzzle has not been released yet")

	// ErrNoSession is returned when a fetch is needed but no session is configured.
	ErrNoSession = errors.New("no session token configured")
)

// The puzzle site is on US Eastern time and releases at midnight.
var releaseZone = time.FixedZone("UTC-5", -5*60*60)

var codeBlock = regexp.MustCompile(`<pre>\s*<code>([^<]+)</code>\s*</pre>`)

// NotReleasedError reports a task whose input is more than an hour away.
type NotReleasedError struct {
	Task  int
	Until time.Duration
}

func (e *NotReleasedError) Error() string {
	return fmt.Sprintf("day %d has not been released yet, releases in %s", e.Task, report.ReadableTime(e.Until, 0))
}

func (e *NotReleasedError) Is(target error) bool {
	return target == ErrNotReleased
}

// ResponseError is a non-success status from the puzzle site.
type ResponseError struct {
	URL    string
	Status int
	Body   string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("GET %s: %d %s: %s", e.URL, e.Status, http.StatusText(e.Status), strings.TrimSpace(e.Body))
}

// Options configures a Provider.
type Options struct {
	Root        string // inputs directory
	Year        int
	BaseURL     string
	SessionFile string
	UserAgent   string
	Client      *http.Client
	Out         io.Writer // status lines; os.Stderr when nil

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// Provider loads inputs for tasks.
type Provider struct {
	Layout

	year        int
	baseURL     string
	sessionFile string
	userAgent   string
	client      *http.Client
	out         io.Writer
	now         func() time.Time
	sleep       func(context.Context, time.Duration) error
	logger      *slog.Logger
}

// New creates a Provider. The HTTP client is created once and reused.
func New(opts Options) *Provider {
	p := &Provider{
		Layout:      Layout{Root: opts.Root},
		year:        opts.Year,
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		sessionFile: opts.SessionFile,
		userAgent:   opts.UserAgent,
		client:      opts.Client,
		out:         opts.Out,
		now:         opts.now,
		sleep:       opts.sleep,
		logger:      log.WithComponent("inputs"),
	}
	if p.baseURL == "" {
		p.baseURL = DefaultBaseURL
	}
	if p.userAgent == "" {
		p.userAgent = DefaultUserAgent
	}
	if p.client == nil {
		p.client = &http.Client{Timeout: 30 * time.Second}
	}
	if p.out == nil {
		p.out = os.Stderr
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.sleep == nil {
		p.sleep = sleepContext
	}
	return p
}

// Get returns the input for task; test 0 is the main input. When the main
// input is missing it is fetched first, waiting for release if it is less
// than an hour away.
func (p *Provider) Get(ctx context.Context, task int, test uint8) ([]byte, error) {
	main := p.InputPath(task, 0)
	if _, err := os.Stat(main); errors.Is(err, fs.ErrNotExist) {
		if err := p.awaitRelease(ctx, task); err != nil {
			return nil, err
		}
		if err := p.Fetch(ctx, task); err != nil {
			return nil, err
		}
	}

	input, err := os.ReadFile(p.InputPath(task, test))
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return input, nil
}

// ReleaseTime returns when task of year unlocks.
func ReleaseTime(year, task int) time.Time {
	return time.Date(year, time.December, task, 0, 0, 0, 0, releaseZone)
}

func (p *Provider) awaitRelease(ctx context.Context, task int) error {
	until := ReleaseTime(p.year, task).Sub(p.now())
	if until > maxWait {
		return &NotReleasedError{Task: task, Until: until}
	}
	if until <= -releaseSlack {
		return nil
	}

	delay := until + releaseSlack
	fmt.Fprintf(p.out, "Puzzle releases in %s, waiting %s\n",
		report.ReadableTime(max(until, 0), 0), report.ReadableTime(delay, 0))
	return p.sleep(ctx, delay)
}

// Fetch downloads the main input of task and then its prompt, overwriting
// existing files.
func (p *Provider) Fetch(ctx context.Context, task int) error {
	session, err := p.session()
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/%d/day/%d/input", p.baseURL, p.year, task)
	fmt.Fprintf(p.out, "Fetching %s\n", url)
	body, err := p.get(ctx, url, session)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(p.DayDir(task), 0o755); err != nil {
		return fmt.Errorf("create input directory: %w", err)
	}
	if err := os.WriteFile(p.InputPath(task, 0), body, 0o644); err != nil {
		return fmt.Errorf("write input: %w", err)
	}

	_, err = p.fetchPrompt(ctx, task, session)
	return err
}

// FetchPrompt downloads the puzzle page of task, stores it and writes every
// example block as a numbered test input. It returns how many were written.
func (p *Provider) FetchPrompt(ctx context.Context, task int) (int, error) {
	session, err := p.session()
	if err != nil {
		return 0, err
	}
	return p.fetchPrompt(ctx, task, session)
}

func (p *Provider) fetchPrompt(ctx context.Context, task int, session string) (int, error) {
	url := fmt.Sprintf("%s/%d/day/%d", p.baseURL, p.year, task)
	p.logger.Info("fetching prompt", "url", url)
	page, err := p.get(ctx, url, session)
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(p.DayDir(task), 0o755); err != nil {
		return 0, fmt.Errorf("create input directory: %w", err)
	}
	if err := os.WriteFile(p.PromptPath(task), page, 0o644); err != nil {
		return 0, fmt.Errorf("write prompt: %w", err)
	}

	cases := ExtractTestCases(page)
	if len(cases) > maxTestCases {
		p.logger.Warn("too many test cases, skipping the rest", "found", len(cases))
		cases = cases[:maxTestCases]
	}
	for i, c := range cases {
		test := uint8(i + 1)
		p.logger.Debug("writing test input", "task", task, "test", test)
		if err := os.WriteFile(p.InputPath(task, test), []byte(c), 0o644); err != nil {
			return i, fmt.Errorf("write test input %d: %w", test, err)
		}
	}
	return len(cases), nil
}

// ExtractTestCases returns the unescaped contents of every <pre><code> block.
func ExtractTestCases(page []byte) []string {
	matches := codeBlock.FindAllSubmatch(page, -1)
	cases := make([]string, 0, len(matches))
	for _, m := range matches {
		cases = append(cases, html.UnescapeString(string(m[1])))
	}
	return cases
}

// Digest returns the hex BLAKE3 hash of input.
func Digest(input []byte) string {
	sum := blake3.Sum256(input)
	return hex.EncodeToString(sum[:])
}

func (p *Provider) session() (string, error) {
	if p.sessionFile == "" {
		return "", ErrNoSession
	}
	data, err := os.ReadFile(p.sessionFile)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s not found", ErrNoSession, p.sessionFile)
	}
	if err != nil {
		return "", fmt.Errorf("read session file: %w", err)
	}
	session := strings.TrimRightFunc(string(data), func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	if session == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrNoSession, p.sessionFile)
	}
	return session, nil
}

func (p *Provider) get(ctx context.Context, url, session string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.AddCookie(&http.Cookie{Name: "session", Value: session})

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ResponseError{URL: url, Status: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
