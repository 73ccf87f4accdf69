package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/ytcurate/internal/models"
	"github.com/desertthunder/ytcurate/internal/services"
	"github.com/desertthunder/ytcurate/internal/shared"
	tu "github.com/desertthunder/ytcurate/internal/testing"
)

var testNow = time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)

type fakeSecrets struct {
	puts map[string]string
	err  error
}

func (f *fakeSecrets) Put(ctx context.Context, name, value string) error {
	if f.err != nil {
		return f.err
	}
	if f.puts == nil {
		f.puts = map[string]string{}
	}
	f.puts[name] = value
	return nil
}

// testConfig points every path of the default configuration into dir.
func testConfig(dir string) *shared.Config {
	config := shared.DefaultConfig()
	config.Paths = shared.PathsConfig{
		Channels:    filepath.Join(dir, "data", "channels.json"),
		Playlists:   filepath.Join(dir, "data", "playlists.json"),
		AddOn:       filepath.Join(dir, "data", "add-on.json"),
		Stats:       filepath.Join(dir, "data", "stats.csv"),
		Archive:     filepath.Join(dir, "data", "archive.csv"),
		Ledger:      filepath.Join(dir, "data", "ledger.json"),
		TokensDir:   filepath.Join(dir, "tokens"),
		OAuthClient: filepath.Join(dir, "tokens", "oauth.json"),
		HistoryLog:  filepath.Join(dir, "log", "history.log"),
		LastExeLog:  filepath.Join(dir, "log", "last_exe.log"),
	}
	config.Database.Path = filepath.Join(dir, "ytcurate.db")
	return config
}

// writeTestConfig saves config as dir/config.toml and seeds the channel and playlist files.
func writeTestConfig(t *testing.T, dir string) (string, *shared.Config) {
	t.Helper()

	config := testConfig(dir)
	path := filepath.Join(dir, "config.toml")
	if err := shared.SaveConfig(path, config); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	if err := os.MkdirAll(filepath.Join(dir, "data"), 0755); err != nil {
		t.Fatalf("failed to create data dir: %v", err)
	}
	tu.MustWriteFile(t, config.Paths.Channels, `{"MUSIQUE": ["UCmusic"]}`)
	tu.MustWriteFile(t, config.Paths.Playlists, `{"release": {"id": "PLrelease", "name": "Release Radar"}}`)
	return path, config
}

func seedFake() *tu.FakeYouTube {
	fake := tu.NewFakeYouTube()
	fake.CreatePlaylist("PLrelease", models.UploadsPlaylistID("UCmusic"))

	released := testNow.Add(-3 * time.Hour)
	fake.AddItems(models.UploadsPlaylistID("UCmusic"), models.PlaylistItem{
		VideoID:     "rel1",
		ChannelID:   "UCmusic",
		Title:       "new single",
		ReleaseDate: released,
		Status:      models.PrivacyPublic,
	})

	views, likes, comments := int64(100), int64(10), int64(1)
	fake.AddVideos(models.Video{
		ID:          "rel1",
		ChannelID:   "UCmusic",
		Title:       "new single",
		ReleaseDate: released,
		Duration:    3 * time.Minute,
		LiveStatus:  models.LiveNone,
		Status:      models.PrivacyPublic,
		Stats:       models.Stats{Views: &views, Likes: &likes, Comments: &comments},
	})
	return fake
}

// newTestRunner builds a runner with a fixed clock. A nil fake leaves the client unset.
func newTestRunner(output io.Writer, fake *tu.FakeYouTube) *Runner {
	opts := RunnerOpts{
		Output:    output,
		LogOutput: io.Discard,
		Logger:    shared.NewLogger(io.Discard),
		Now:       func() time.Time { return testNow },
	}
	if fake != nil {
		opts.YouTube = fake
	}
	return NewRunner(opts)
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}
			youtube := tu.NewFakeYouTube()
			secrets := &fakeSecrets{}

			runner := NewRunner(RunnerOpts{
				Config:     config,
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
				YouTube:    youtube,
				Secrets:    secrets,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.youtube != youtube {
				t.Error("expected youtube to be set")
			}
			if runner.secrets != secrets {
				t.Error("expected secrets to be set")
			}
		})

		t.Run("with nil options uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
			if runner.logOutput != os.Stderr {
				t.Error("expected log output to default to os.Stderr")
			}
			if runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
			if runner.now == nil {
				t.Error("expected clock to be set")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if result := output.String(); result != expected {
				t.Errorf("expected %q, got %q", expected, result)
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil {
				t.Fatal("expected error for non-serializable data")
			}
			if !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil {
				t.Fatal("expected error writing newline")
			}
			if !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if result := output.String(); result != "hello world" {
				t.Errorf("expected 'hello world', got %q", result)
			}
		})

		t.Run("writePlainln surrounds text with newlines", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlainln("Next steps:"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if result := output.String(); result != "\nNext steps:\n" {
				t.Errorf("unexpected output %q", result)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		want := []string{"setup", "auth", "run", "stats", "radar", "ledger", "channels", "history"}
		if len(commands) != len(want) {
			t.Fatalf("expected %d commands, got %d", len(want), len(commands))
		}
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			if cmd.Name != want[i] {
				t.Errorf("expected command %q at index %d, got %q", want[i], i, cmd.Name)
			}
		}
	})
}

func TestRunCommand(t *testing.T) {
	ctx := context.Background()

	t.Run("curates new uploads and records the run", func(t *testing.T) {
		dir := t.TempDir()
		configPath, config := writeTestConfig(t, dir)
		t.Setenv("GITHUB_STEP_SUMMARY", "")

		output := &bytes.Buffer{}
		fake := seedFake()
		runner := newTestRunner(output, fake)

		err := runner.app().Run(ctx, []string{"ytcurate", "--config", configPath, "run", "--days", "2"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if got := fake.InsertedInto("PLrelease"); len(got) != 1 || got[0] != "rel1" {
			t.Errorf("expected rel1 to be added to the release playlist, got %v", got)
		}
		if !strings.Contains(output.String(), "Run complete") {
			t.Errorf("expected a run summary, got %q", output.String())
		}

		history := tu.MustReadFile(t, config.Paths.HistoryLog)
		if !strings.Contains(history, shared.StartMarker) || !strings.Contains(history, "process ended") {
			t.Errorf("expected start and end markers in history log, got %q", history)
		}
		lastExe := tu.MustReadFile(t, config.Paths.LastExeLog)
		if !strings.Contains(lastExe, shared.StartMarker) {
			t.Errorf("expected last execution log to start with the run, got %q", lastExe)
		}
		tu.AssertFileExists(t, config.Paths.Stats)

		output.Reset()
		err = runner.app().Run(ctx, []string{"ytcurate", "--config", configPath, "history", "list", "--format", "csv"})
		if err != nil {
			t.Fatalf("unexpected error listing history: %v", err)
		}
		lines := strings.Split(strings.TrimSpace(output.String()), "\n")
		if len(lines) != 2 {
			t.Fatalf("expected header and one run, got %q", output.String())
		}
		if !strings.Contains(lines[1], string(models.RunSucceeded)) {
			t.Errorf("expected a succeeded run, got %q", lines[1])
		}
	})

	t.Run("json summary", func(t *testing.T) {
		dir := t.TempDir()
		configPath, _ := writeTestConfig(t, dir)
		t.Setenv("GITHUB_STEP_SUMMARY", "")

		output := &bytes.Buffer{}
		runner := newTestRunner(output, seedFake())

		err := runner.app().Run(ctx, []string{"ytcurate", "--config", configPath, "run", "--days", "2", "--json"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(output.String(), `"discovered": 1`) {
			t.Errorf("expected JSON summary, got %q", output.String())
		}
	})

	t.Run("writes a markdown report", func(t *testing.T) {
		dir := t.TempDir()
		configPath, _ := writeTestConfig(t, dir)
		report := filepath.Join(dir, "summary.md")

		runner := newTestRunner(&bytes.Buffer{}, seedFake())
		err := runner.app().Run(ctx, []string{"ytcurate", "--config", configPath, "run", "--days", "2", "--report", report})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		tu.AssertFileExists(t, report)
	})

	t.Run("failed run is recorded", func(t *testing.T) {
		dir := t.TempDir()
		configPath, _ := writeTestConfig(t, dir)
		t.Setenv("GITHUB_STEP_SUMMARY", "")

		fake := seedFake()
		fake.Errors["videos"] = tu.ServerError()
		output := &bytes.Buffer{}
		runner := newTestRunner(output, fake)

		err := runner.app().Run(ctx, []string{"ytcurate", "--config", configPath, "run", "--days", "2"})
		if err == nil {
			t.Fatal("expected the run to fail")
		}

		output.Reset()
		if err := runner.app().Run(ctx, []string{"ytcurate", "--config", configPath, "history", "list"}); err != nil {
			t.Fatalf("unexpected error listing history: %v", err)
		}
		if !strings.Contains(output.String(), string(models.RunFailed)) {
			t.Errorf("expected a failed run, got %q", output.String())
		}
	})

	t.Run("first run uses the configured discovery window", func(t *testing.T) {
		dir := t.TempDir()
		configPath, _ := writeTestConfig(t, dir)
		t.Setenv("GITHUB_STEP_SUMMARY", "")

		fake := seedFake()
		runner := newTestRunner(&bytes.Buffer{}, fake)

		if err := runner.app().Run(ctx, []string{"ytcurate", "--config", configPath, "run"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := fake.InsertedInto("PLrelease"); len(got) != 1 || got[0] != "rel1" {
			t.Errorf("expected rel1 to be added to the release playlist, got %v", got)
		}
	})

	t.Run("refuses an unbounded first run", func(t *testing.T) {
		dir := t.TempDir()
		configPath, config := writeTestConfig(t, dir)
		config.Rules.DiscoveryDays = 0
		if err := shared.SaveConfig(configPath, config); err != nil {
			t.Fatalf("failed to save config: %v", err)
		}
		t.Setenv("GITHUB_STEP_SUMMARY", "")

		fake := seedFake()
		runner := newTestRunner(&bytes.Buffer{}, fake)

		err := runner.app().Run(ctx, []string{"ytcurate", "--config", configPath, "run"})
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got %v", err)
		}
		if len(fake.Inserted) != 0 {
			t.Errorf("expected no insertions, got %v", fake.Inserted)
		}
	})

	t.Run("rejects unknown mode", func(t *testing.T) {
		dir := t.TempDir()
		configPath, _ := writeTestConfig(t, dir)

		runner := newTestRunner(&bytes.Buffer{}, seedFake())
		err := runner.app().Run(ctx, []string{"ytcurate", "--config", configPath, "run", "--mode", "cloud"})
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestLedgerShow(t *testing.T) {
	dir := t.TempDir()
	configPath, config := writeTestConfig(t, dir)
	tu.MustWriteFile(t, config.Paths.Ledger, `{"PLwl": {"name": "Watch Later", "failure": ["vid1", "vid2"]}}`)

	tests := []struct {
		name   string
		format string
		want   []string
	}{
		{name: "text", format: "text", want: []string{"Watch Later (PLwl): 2 pending", "vid1", "vid2"}},
		{name: "csv", format: "csv", want: []string{"playlist_id,playlist_name,video_id", "PLwl,Watch Later,vid2"}},
		{name: "markdown", format: "md", want: []string{"# Failure ledger", "**Pending**: 2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := newTestRunner(output, nil)

			err := runner.app().Run(context.Background(), []string{"ytcurate", "--config", configPath, "ledger", "show", "--format", tt.format})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(output.String(), want) {
					t.Errorf("expected %q in output, got %q", want, output.String())
				}
			}
		})
	}

	t.Run("writes to a file", func(t *testing.T) {
		out := filepath.Join(dir, "exports", "ledger.json")
		runner := newTestRunner(&bytes.Buffer{}, nil)

		err := runner.app().Run(context.Background(), []string{"ytcurate", "--config", configPath, "ledger", "show", "--format", "json", "--output", out})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if content := tu.MustReadFile(t, out); !strings.Contains(content, `"vid1"`) {
			t.Errorf("expected exported ledger, got %q", content)
		}
	})

	t.Run("rejects unknown format", func(t *testing.T) {
		runner := newTestRunner(&bytes.Buffer{}, nil)
		err := runner.app().Run(context.Background(), []string{"ytcurate", "--config", configPath, "ledger", "show", "--format", "xml"})
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestLedgerReplay(t *testing.T) {
	dir := t.TempDir()
	configPath, config := writeTestConfig(t, dir)
	tu.MustWriteFile(t, config.Paths.Ledger, `{"PLrelease": {"name": "Release Radar", "failure": ["vid1"]}}`)

	fake := tu.NewFakeYouTube()
	fake.CreatePlaylist("PLrelease")
	output := &bytes.Buffer{}
	runner := newTestRunner(output, fake)

	err := runner.app().Run(context.Background(), []string{"ytcurate", "--config", configPath, "ledger", "replay"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := fake.InsertedInto("PLrelease"); len(got) != 1 || got[0] != "vid1" {
		t.Errorf("expected vid1 to be replayed, got %v", got)
	}
	if !strings.Contains(output.String(), "Replayed 1 insertion(s)") {
		t.Errorf("unexpected output %q", output.String())
	}
	if content := tu.MustReadFile(t, config.Paths.Ledger); strings.Contains(content, "vid1") {
		t.Errorf("expected the ledger to be cleared, got %q", content)
	}
}

func TestChannelsSort(t *testing.T) {
	dir := t.TempDir()
	configPath, config := writeTestConfig(t, dir)
	tu.MustWriteFile(t, config.Paths.Channels, `{"MUSIQUE": ["UCb", "UCa"]}`)

	fake := tu.NewFakeYouTube()
	fake.AddChannels(models.Channel{ID: "UCa", Title: "alpha"}, models.Channel{ID: "UCb", Title: "Beta"})

	t.Run("dry run prints without saving", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := newTestRunner(output, fake)

		err := runner.app().Run(context.Background(), []string{"ytcurate", "--config", configPath, "channels", "sort", "--dry-run"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(output.String(), `"UCa",`) {
			t.Errorf("expected sorted groups, got %q", output.String())
		}
		if content := tu.MustReadFile(t, config.Paths.Channels); content != `{"MUSIQUE": ["UCb", "UCa"]}` {
			t.Errorf("expected channels file untouched, got %q", content)
		}
	})

	t.Run("saves sorted groups", func(t *testing.T) {
		runner := newTestRunner(&bytes.Buffer{}, fake)

		err := runner.app().Run(context.Background(), []string{"ytcurate", "--config", configPath, "channels", "sort"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		content := tu.MustReadFile(t, config.Paths.Channels)
		if strings.Index(content, "UCa") > strings.Index(content, "UCb") {
			t.Errorf("expected UCa before UCb, got %q", content)
		}
	})
}

func TestHistoryShow(t *testing.T) {
	dir := t.TempDir()
	configPath, _ := writeTestConfig(t, dir)
	t.Setenv("GITHUB_STEP_SUMMARY", "")

	runner := newTestRunner(&bytes.Buffer{}, seedFake())
	if err := runner.app().Run(context.Background(), []string{"ytcurate", "--config", configPath, "run", "--days", "2"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := &bytes.Buffer{}
	runner.output = output
	if err := runner.app().Run(context.Background(), []string{"ytcurate", "--config", configPath, "history", "list", "--format", "json"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	start := strings.Index(output.String(), `"id": "`)
	if start < 0 {
		t.Fatalf("expected a run id in %q", output.String())
	}
	id := output.String()[start+len(`"id": "`):]
	id = id[:strings.Index(id, `"`)]

	t.Run("text", func(t *testing.T) {
		output.Reset()
		if err := runner.app().Run(context.Background(), []string{"ytcurate", "--config", configPath, "history", "show", id}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(output.String(), id) {
			t.Errorf("expected run %s in output, got %q", id, output.String())
		}
	})

	t.Run("json", func(t *testing.T) {
		output.Reset()
		if err := runner.app().Run(context.Background(), []string{"ytcurate", "--config", configPath, "history", "show", "--json", id}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(output.String(), `"status": "succeeded"`) {
			t.Errorf("expected run status in output, got %q", output.String())
		}
	})

	t.Run("missing id", func(t *testing.T) {
		err := runner.app().Run(context.Background(), []string{"ytcurate", "--config", configPath, "history", "show"})
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})
}

func TestSetup(t *testing.T) {
	t.Run("with existing config", func(t *testing.T) {
		dir := t.TempDir()
		config := testConfig(dir)
		configPath := filepath.Join(dir, "config.toml")
		if err := shared.SaveConfig(configPath, config); err != nil {
			t.Fatalf("failed to save config: %v", err)
		}

		runner := newTestRunner(&bytes.Buffer{}, nil)
		if err := runner.app().Run(context.Background(), []string{"ytcurate", "--config", configPath, "setup"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		tu.AssertFileExists(t, config.Database.Path)
		tu.AssertFileExists(t, config.Paths.TokensDir)
		tu.AssertFileExists(t, filepath.Dir(config.Paths.HistoryLog))
		tu.AssertFileExists(t, filepath.Dir(config.Paths.Stats))
	})

	t.Run("creates config from template", func(t *testing.T) {
		dir := t.TempDir()
		t.Chdir(dir)

		output := &bytes.Buffer{}
		runner := newTestRunner(output, nil)
		if err := runner.app().Run(context.Background(), []string{"ytcurate", "setup"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		tu.AssertFileExists(t, filepath.Join(dir, "config.toml"))
		tu.AssertFileExists(t, filepath.Join(dir, "ytcurate.db"))
		tu.AssertFileExists(t, filepath.Join(dir, "tokens"))
		if !strings.Contains(output.String(), "Next steps:") {
			t.Errorf("expected next steps, got %q", output.String())
		}
	})
}

func TestPersistCredentials(t *testing.T) {
	ctx := context.Background()
	creds := &services.Credentials{
		Token:        "access",
		RefreshToken: "refresh",
		TokenURI:     "https://oauth2.googleapis.com/token",
		ClientID:     "client",
		ClientSecret: "secret",
	}

	t.Run("remote mode updates the repository secret", func(t *testing.T) {
		secrets := &fakeSecrets{}
		runner := NewRunner(RunnerOpts{Secrets: secrets, Logger: shared.NewLogger(io.Discard)})

		if err := runner.persistCredentials(ctx, &session{mode: modeRemote, creds: creds}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		blob, ok := secrets.puts["CREDS_B64"]
		if !ok {
			t.Fatalf("expected CREDS_B64 to be written, got %v", secrets.puts)
		}
		decoded, err := services.DecodeCredentials(blob)
		if err != nil {
			t.Fatalf("failed to decode secret: %v", err)
		}
		if decoded.RefreshToken != "refresh" || decoded.ClientID != "client" {
			t.Errorf("unexpected credentials %+v", decoded)
		}
	})

	t.Run("remote mode reports store failures", func(t *testing.T) {
		secrets := &fakeSecrets{err: shared.ErrSecretUpdate}
		runner := NewRunner(RunnerOpts{Secrets: secrets, Logger: shared.NewLogger(io.Discard)})

		err := runner.persistCredentials(ctx, &session{mode: modeRemote, creds: creds})
		if !errors.Is(err, shared.ErrSecretUpdate) {
			t.Errorf("expected ErrSecretUpdate, got %v", err)
		}
	})

	t.Run("local mode writes the token and its base64 copy", func(t *testing.T) {
		dir := t.TempDir()
		runner := NewRunner(RunnerOpts{Config: testConfig(dir), Logger: shared.NewLogger(io.Discard)})

		if err := runner.persistCredentials(ctx, &session{mode: modeLocal, creds: creds}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		tu.AssertFileExists(t, filepath.Join(dir, "tokens", "credentials.json"))
		tu.AssertFileExists(t, filepath.Join(dir, "tokens", "credentials_b64.txt"))
	})

	t.Run("remote mode pushes a token refreshed during the run", func(t *testing.T) {
		tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"access_token":"refreshed-mid-run","token_type":"Bearer","expires_in":3600}`)
		}))
		defer tokenServer.Close()
		api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		defer api.Close()

		expiring := &services.Credentials{
			Token:        "access",
			RefreshToken: "refresh",
			TokenURI:     tokenServer.URL,
			ClientID:     "client",
			Expiry:       time.Now().Add(-time.Minute).UTC().Format(time.RFC3339),
		}
		resp, err := expiring.Client(ctx, nil).Get(api.URL)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()

		secrets := &fakeSecrets{}
		runner := NewRunner(RunnerOpts{Secrets: secrets, Logger: shared.NewLogger(io.Discard)})
		if err := runner.persistCredentials(ctx, &session{mode: modeRemote, creds: expiring}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		decoded, err := services.DecodeCredentials(secrets.puts["CREDS_B64"])
		if err != nil {
			t.Fatalf("failed to decode secret: %v", err)
		}
		if decoded.Token != "refreshed-mid-run" {
			t.Errorf("expected the refreshed token, got %q", decoded.Token)
		}
	})

	t.Run("injected client has nothing to persist", func(t *testing.T) {
		secrets := &fakeSecrets{}
		runner := NewRunner(RunnerOpts{Secrets: secrets})

		if err := runner.persistCredentials(ctx, &session{mode: modeRemote}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(secrets.puts) != 0 {
			t.Errorf("expected no secret writes, got %v", secrets.puts)
		}
	})
}

func TestRemoteCredentials(t *testing.T) {
	t.Run("missing environment variable fails authentication", func(t *testing.T) {
		t.Setenv("CREDS_B64", "")
		runner := NewRunner(RunnerOpts{Logger: shared.NewLogger(io.Discard)})

		_, err := runner.openSession(context.Background(), modeRemote)
		if !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
	})

	t.Run("valid token needs no refresh", func(t *testing.T) {
		creds := &services.Credentials{
			Token:        "access",
			RefreshToken: "refresh",
			ClientID:     "client",
			Expiry:       time.Now().Add(time.Hour).UTC().Format(time.RFC3339),
		}
		blob, err := creds.Encode()
		if err != nil {
			t.Fatalf("failed to encode: %v", err)
		}
		t.Setenv("CREDS_B64", blob)

		runner := NewRunner(RunnerOpts{Logger: shared.NewLogger(io.Discard)})
		s, err := runner.openSession(context.Background(), modeRemote)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s.creds == nil || s.api == nil {
			t.Errorf("expected an authorized session, got %+v", s)
		}
	})
}
