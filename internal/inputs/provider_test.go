package inputs

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/aocrunner/internal/log"
)

func TestMain(m *testing.M) {
	log.Setup("ERROR", "text") // Suppress logs in tests
	os.Exit(m.Run())
}

const promptPage = `<html><body>
<p>For example:</p>
<pre><code>1
2
3
</code></pre>
<p>Also:</p>
<pre>
  <code>a &lt; b &amp;&amp; c</code>
</pre>
<code>inline</code>
</body></html>`

type fakeSite struct {
	requests []string
	cookies  []string
	agents   []string
}

func (f *fakeSite) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/2025/day/3/input", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		_, _ = w.Write([]byte("puzzle input\n"))
	})
	mux.HandleFunc("/2025/day/3", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		_, _ = w.Write([]byte(promptPage))
	})
	mux.HandleFunc("/2025/day/4/input", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		http.Error(w, "Please log in", http.StatusBadRequest)
	})
	return mux
}

func (f *fakeSite) record(r *http.Request) {
	f.requests = append(f.requests, r.URL.Path)
	if c, err := r.Cookie("session"); err == nil {
		f.cookies = append(f.cookies, c.Value)
	}
	f.agents = append(f.agents, r.UserAgent())
}

func newProvider(t *testing.T, baseURL string) (*Provider, string) {
	t.Helper()
	dir := t.TempDir()
	session := filepath.Join(dir, "session")
	require.NoError(t, os.WriteFile(session, []byte("s3cret \n"), 0o600))

	p := New(Options{
		Root:        filepath.Join(dir, "inputs"),
		Year:        2025,
		BaseURL:     baseURL,
		SessionFile: session,
		Out:         &bytes.Buffer{},
		now:         func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) },
	})
	return p, dir
}

func TestLayout(t *testing.T) {
	l := Layout{Root: "inputs"}
	assert.Equal(t, filepath.Join("inputs", "day07"), l.DayDir(7))
	assert.Equal(t, filepath.Join("inputs", "day07", "input.txt"), l.InputPath(7, 0))
	assert.Equal(t, filepath.Join("inputs", "day07", "input03.txt"), l.InputPath(7, 3))
	assert.Equal(t, filepath.Join("inputs", "day12", "answer.txt"), l.AnswerPath(12, 0))
	assert.Equal(t, filepath.Join("inputs", "day12", "answer11.txt"), l.AnswerPath(12, 11))
	assert.Equal(t, filepath.Join("inputs", "day01", "prompt.html"), l.PromptPath(1))
}

func TestGetLocal(t *testing.T) {
	p, _ := newProvider(t, "http://127.0.0.1:0")
	require.NoError(t, os.MkdirAll(p.DayDir(1), 0o755))
	require.NoError(t, os.WriteFile(p.InputPath(1, 0), []byte("main"), 0o644))
	require.NoError(t, os.WriteFile(p.InputPath(1, 2), []byte("test two"), 0o644))

	got, err := p.Get(context.Background(), 1, 0)
	require.NoError(t, err)
	assert.Equal(t, "main", string(got))

	got, err = p.Get(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, "test two", string(got))

	_, err = p.Get(context.Background(), 1, 5)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestGetFetchesMissingInput(t *testing.T) {
	site := &fakeSite{}
	srv := httptest.NewServer(site.handler())
	defer srv.Close()

	p, _ := newProvider(t, srv.URL)

	got, err := p.Get(context.Background(), 3, 0)
	require.NoError(t, err)
	assert.Equal(t, "puzzle input\n", string(got))

	assert.Equal(t, []string{"/2025/day/3/input", "/2025/day/3"}, site.requests)
	assert.Equal(t, []string{"s3cret", "s3cret"}, site.cookies)
	assert.Equal(t, DefaultUserAgent, site.agents[0])

	prompt, err := os.ReadFile(p.PromptPath(3))
	require.NoError(t, err)
	assert.Equal(t, promptPage, string(prompt))

	test1, err := p.Get(context.Background(), 3, 1)
	require.NoError(t, err)
	assert.Equal(t, "1\n2\n3\n", string(test1))

	test2, err := p.Get(context.Background(), 3, 2)
	require.NoError(t, err)
	assert.Equal(t, "a < b && c", string(test2))

	// Present now, so no further requests.
	_, err = p.Get(context.Background(), 3, 0)
	require.NoError(t, err)
	assert.Len(t, site.requests, 2)
}

func TestFetchErrorStatus(t *testing.T) {
	site := &fakeSite{}
	srv := httptest.NewServer(site.handler())
	defer srv.Close()

	p, _ := newProvider(t, srv.URL)
	_, err := p.Get(context.Background(), 4, 0)

	var respErr *ResponseError
	require.ErrorAs(t, err, &respErr)
	assert.Equal(t, http.StatusBadRequest, respErr.Status)
	assert.Contains(t, err.Error(), "Please log in")
}

func TestFetchWithoutSession(t *testing.T) {
	p := New(Options{Root: t.TempDir(), Year: 2025, Out: &bytes.Buffer{}})
	p.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }

	_, err := p.Get(context.Background(), 1, 0)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestNotReleased(t *testing.T) {
	p, _ := newProvider(t, "http://127.0.0.1:0")
	p.now = func() time.Time { return time.Date(2025, 11, 20, 0, 0, 0, 0, time.UTC) }

	_, err := p.Get(context.Background(), 1, 0)
	assert.ErrorIs(t, err, ErrNotReleased)

	var nr *NotReleasedError
	require.ErrorAs(t, err, &nr)
	assert.Equal(t, 1, nr.Task)
}

func TestWaitsForImminentRelease(t *testing.T) {
	site := &fakeSite{}
	srv := httptest.NewServer(site.handler())
	defer srv.Close()

	p, _ := newProvider(t, srv.URL)
	release := ReleaseTime(2025, 3)
	p.now = func() time.Time { return release.Add(-10 * time.Minute) }

	var slept time.Duration
	p.sleep = func(_ context.Context, d time.Duration) error {
		slept = d
		return nil
	}

	_, err := p.Get(context.Background(), 3, 0)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute+releaseSlack, slept)
}

func TestReleaseTime(t *testing.T) {
	got := ReleaseTime(2025, 1)
	assert.Equal(t, time.Date(2025, 12, 1, 5, 0, 0, 0, time.UTC), got.UTC())
}

func TestExtractTestCases(t *testing.T) {
	cases := ExtractTestCases([]byte(promptPage))
	assert.Equal(t, []string{"1\n2\n3\n", "a < b && c"}, cases)
	assert.Empty(t, ExtractTestCases([]byte("<p>nothing</p>")))
}

func TestDigest(t *testing.T) {
	a := Digest([]byte("input"))
	assert.Len(t, a, 64)
	assert.Equal(t, a, Digest([]byte("input")))
	assert.NotEqual(t, a, Digest([]byte("input\n")))
}
