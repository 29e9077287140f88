package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/and161185/sehatin/internal/app"
	"github.com/and161185/sehatin/internal/errs"
	"github.com/and161185/sehatin/internal/model"
)

func newCLI(t *testing.T, stdin string) (*cli, *bytes.Buffer) {
	t.Helper()
	a, err := app.New(context.Background(), app.Config{Backend: app.BackendLocal, DataPath: app.MemoryPath}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	out := &bytes.Buffer{}
	return &cli{a: a, out: out, stdin: strings.NewReader(stdin)}, out
}

func mustRun(t *testing.T, c *cli, out *bytes.Buffer, cmd string, args ...string) string {
	t.Helper()
	out.Reset()
	if err := c.run(context.Background(), cmd, args); err != nil {
		t.Fatalf("%s %v: %v", cmd, args, err)
	}
	return out.String()
}

func Test_cfgDir_And_Paths(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	base := dir + "/sehatin"
	if got := cfgDir(); got != base {
		t.Fatalf("cfgDir=%q, want %q", got, base)
	}
	if !strings.HasPrefix(dataPath(), base) || !strings.HasSuffix(dataPath(), "client.db") {
		t.Fatalf("dataPath unexpected: %s", dataPath())
	}
}

func Test_readAll_Literal_And_Stdin(t *testing.T) {
	b, err := readAll("hello", strings.NewReader("ignored"))
	if err != nil || string(b) != "hello" {
		t.Fatalf("literal: %q %v", b, err)
	}
	b, err = readAll("-", strings.NewReader("from stdin"))
	if err != nil || string(b) != "from stdin" {
		t.Fatalf("stdin: %q %v", b, err)
	}
}

func Test_printJSON_WritesPretty(t *testing.T) {
	var buf bytes.Buffer
	printJSON(&buf, map[string]int{"a": 1})
	if !strings.Contains(buf.String(), "\n  \"a\": 1") {
		t.Fatalf("not indented: %q", buf.String())
	}
}

func Test_run_SignupChatHistory(t *testing.T) {
	c, out := newCLI(t, "from stdin\n")

	var u model.User
	if err := json.Unmarshal([]byte(mustRun(t, c, out, "signup", "-e", "a@x.com", "-p", "pw", "-name", "A")), &u); err != nil {
		t.Fatalf("decode user: %v", err)
	}
	if u.Email != "a@x.com" || u.Name != "A" || u.ID == "" {
		t.Fatalf("bad user: %+v", u)
	}

	mustRun(t, c, out, "chat", "-m", "first")
	mustRun(t, c, out, "chat", "-m", "-", "-sender", "ai")

	var rows []model.Record
	if err := json.Unmarshal([]byte(mustRun(t, c, out, "history")), &rows); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(rows) != 2 || rows[0]["message"] != "first" || rows[1]["message"] != "from stdin" {
		t.Fatalf("history: %+v", rows)
	}

	if err := json.Unmarshal([]byte(mustRun(t, c, out, "history", "-desc")), &rows); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if rows[0]["message"] != "from stdin" {
		t.Fatalf("want newest first: %+v", rows)
	}
}

func Test_run_HealthLogs(t *testing.T) {
	c, out := newCLI(t, "")
	mustRun(t, c, out, "signup", "-e", "a@x.com", "-p", "pw")
	mustRun(t, c, out, "log-health", "-camera", "pale", "-feedback", "drink water")

	var rows []model.Record
	if err := json.Unmarshal([]byte(mustRun(t, c, out, "logs")), &rows); err != nil {
		t.Fatalf("decode logs: %v", err)
	}
	if len(rows) != 1 || rows[0]["camera_result"] != "pale" {
		t.Fatalf("logs: %+v", rows)
	}
}

func Test_run_SessionLifecycle(t *testing.T) {
	c, out := newCLI(t, "")

	if got := mustRun(t, c, out, "session"); !strings.Contains(got, "no session") {
		t.Fatalf("want no session, got %q", got)
	}
	if err := c.run(context.Background(), "chat", []string{"-m", "hi"}); !errors.Is(err, errs.ErrNoSession) {
		t.Fatalf("want ErrNoSession, got %v", err)
	}

	mustRun(t, c, out, "signup", "-e", "a@x.com", "-p", "pw")
	mustRun(t, c, out, "signout")
	if err := c.run(context.Background(), "signin", []string{"-e", "a@x.com", "-p", "bad"}); !errors.Is(err, errs.ErrInvalidCredentials) {
		t.Fatalf("want ErrInvalidCredentials, got %v", err)
	}
	mustRun(t, c, out, "signin", "-e", "a@x.com", "-p", "pw")

	var s model.Session
	if err := json.Unmarshal([]byte(mustRun(t, c, out, "session")), &s); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if s.User.Email != "a@x.com" || s.AccessToken == "" {
		t.Fatalf("bad session: %+v", s)
	}
}

func Test_run_Profile(t *testing.T) {
	c, out := newCLI(t, "")
	mustRun(t, c, out, "signup", "-e", "a@x.com", "-p", "pw")

	var u model.User
	if err := json.Unmarshal([]byte(mustRun(t, c, out, "profile", "-age", "31", "-gender", "Female")), &u); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if u.Age != 31 || u.Gender != model.GenderFemale || u.Name != "a" {
		t.Fatalf("profile not updated: %+v", u)
	}

	if err := json.Unmarshal([]byte(mustRun(t, c, out, "profile")), &u); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if u.Age != 31 {
		t.Fatalf("profile read back: %+v", u)
	}

	if err := c.run(context.Background(), "profile", []string{"-gender", "robot"}); !errors.Is(err, errs.ErrInvalidInput) {
		t.Fatalf("want ErrInvalidInput, got %v", err)
	}
}

func Test_run_UnknownCommand(t *testing.T) {
	c, _ := newCLI(t, "")
	if err := c.run(context.Background(), "nope", nil); err == nil {
		t.Fatalf("want error")
	}
}
