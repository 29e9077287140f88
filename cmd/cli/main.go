// Command sehatin is a CLI client for the Sehatin data and auth layer.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/status"

	"github.com/and161185/sehatin/internal/app"
	"github.com/and161185/sehatin/internal/errs"
	"github.com/and161185/sehatin/internal/model"
	"github.com/and161185/sehatin/internal/schema"
)

// ---- config ----

func cfgDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "sehatin")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "sehatin")
}

func dataPath() string { return filepath.Join(cfgDir(), "client.db") }

// ---- utils ----

func readAll(p string, stdin io.Reader) ([]byte, error) {
	if p == "-" {
		return io.ReadAll(stdin)
	}
	return []byte(p), nil
}

func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func usage() {
	fmt.Fprintf(os.Stderr, `sehatin CLI
Usage:
  sehatin [-backend local|remote] [-data file] [-addr HOST:PORT [-cacert file | -insecure | -plaintext]] [-v] <cmd> [args]

Commands:
  version
  signup      -e <email> -p <password> [-name n] [-age n] [-gender Male|Female|Other]
  signin      -e <email> -p <password>
  signout
  session                                      (prints current session)
  profile     [-name n] [-age n] [-gender g]   (no flags prints the profile)
  chat        -m <message|-> [-sender user|ai]
  history     [-desc]
  log-health  -camera <result> -feedback <text|->
  logs        [-desc]
`)
	os.Exit(2)
}

// ---- commands ----

type cli struct {
	a     *app.App
	out   io.Writer
	stdin io.Reader
}

func (c *cli) currentUser(ctx context.Context) (model.User, error) {
	s := c.a.Auth.GetSession(ctx)
	if s == nil {
		return model.User{}, errs.ErrNoSession
	}
	return s.User, nil
}

func profileFlags(fs *flag.FlagSet) (name *string, age *int, gender *string) {
	return fs.String("name", "", "display name"),
		fs.Int("age", 0, "age in years"),
		fs.String("gender", "", "Male|Female|Other")
}

func (c *cli) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {

	case "signup":
		fs := flag.NewFlagSet("signup", flag.ContinueOnError)
		e := fs.String("e", "", "email")
		p := fs.String("p", "", "password")
		name, age, gender := profileFlags(fs)
		if err := fs.Parse(args); err != nil {
			return err
		}
		u, _, err := c.a.Auth.SignUp(ctx, *e, *p, model.ProfileDefaults{Name: *name, Age: *age, Gender: model.Gender(*gender)})
		if err != nil {
			return err
		}
		printJSON(c.out, u)

	case "signin":
		fs := flag.NewFlagSet("signin", flag.ContinueOnError)
		e := fs.String("e", "", "email")
		p := fs.String("p", "", "password")
		if err := fs.Parse(args); err != nil {
			return err
		}
		s, err := c.a.Auth.SignIn(ctx, *e, *p)
		if err != nil {
			return err
		}
		printJSON(c.out, s.User)

	case "signout":
		c.a.Auth.SignOut(ctx)
		fmt.Fprintln(c.out, "signed out")

	case "session":
		s := c.a.Auth.GetSession(ctx)
		if s == nil {
			fmt.Fprintln(c.out, "no session")
			return nil
		}
		printJSON(c.out, s)

	case "profile":
		fs := flag.NewFlagSet("profile", flag.ContinueOnError)
		name, age, gender := profileFlags(fs)
		if err := fs.Parse(args); err != nil {
			return err
		}
		var upd model.ProfileUpdate
		fs.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "name":
				upd.Name = name
			case "age":
				upd.Age = age
			case "gender":
				g := model.Gender(*gender)
				upd.Gender = &g
			}
		})
		if upd == (model.ProfileUpdate{}) {
			u, err := c.currentUser(ctx)
			if err != nil {
				return err
			}
			printJSON(c.out, u)
			return nil
		}
		s, err := c.a.Auth.UpdateProfile(ctx, upd)
		if err != nil {
			return err
		}
		printJSON(c.out, s.User)

	case "chat":
		fs := flag.NewFlagSet("chat", flag.ContinueOnError)
		m := fs.String("m", "", "message, or - for stdin")
		sender := fs.String("sender", schema.SenderUser, "user|ai")
		if err := fs.Parse(args); err != nil {
			return err
		}
		u, err := c.currentUser(ctx)
		if err != nil {
			return err
		}
		msg, err := readAll(*m, c.stdin)
		if err != nil {
			return err
		}
		rec, err := c.a.Records.Insert(ctx, schema.ChatHistory, model.Record{
			model.ColumnUserID: u.ID,
			"message":          strings.TrimSpace(string(msg)),
			"sender":           *sender,
		})
		if err != nil {
			return err
		}
		printJSON(c.out, rec)

	case "log-health":
		fs := flag.NewFlagSet("log-health", flag.ContinueOnError)
		camera := fs.String("camera", "", "camera analysis result")
		feedback := fs.String("feedback", "", "AI feedback, or - for stdin")
		if err := fs.Parse(args); err != nil {
			return err
		}
		u, err := c.currentUser(ctx)
		if err != nil {
			return err
		}
		fb, err := readAll(*feedback, c.stdin)
		if err != nil {
			return err
		}
		rec, err := c.a.Records.Insert(ctx, schema.HealthLogs, model.Record{
			model.ColumnUserID: u.ID,
			"camera_result":    *camera,
			"ai_feedback":      strings.TrimSpace(string(fb)),
		})
		if err != nil {
			return err
		}
		printJSON(c.out, rec)

	case "history", "logs":
		table := schema.ChatHistory
		if cmd == "logs" {
			table = schema.HealthLogs
		}
		fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
		desc := fs.Bool("desc", false, "newest first")
		if err := fs.Parse(args); err != nil {
			return err
		}
		u, err := c.currentUser(ctx)
		if err != nil {
			return err
		}
		rows := c.a.Records.SelectFiltered(ctx, table, model.Filter{
			EqualsColumn: model.ColumnUserID,
			EqualsValue:  u.ID,
			OrderColumn:  model.ColumnTimestamp,
			Ascending:    !*desc,
		})
		printJSON(c.out, rows)

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	return nil
}

// ---- main ----

var (
	version   = "dev"
	buildDate = "unknown"
)

// main builds the client from flags and environment and runs one command.
func main() {
	backend := flag.String("backend", "", "local|remote (default SEHATIN_BACKEND or local)")
	data := flag.String("data", "", "client store file, :memory: for none")
	addr := flag.String("addr", "", "server addr for -backend remote")
	caPath := flag.String("cacert", "", "CA cert (PEM)")
	insecure := flag.Bool("insecure", false, "skip cert verify (dev)")
	plaintext := flag.Bool("plaintext", false, "no TLS (dev)")
	verbose := flag.Bool("v", false, "log to stderr and print auth events")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}
	cmd := flag.Arg(0)
	if cmd == "version" {
		fmt.Printf("sehatin %s (%s)\n", version, buildDate)
		return
	}

	log := zap.NewNop()
	if *verbose {
		log, _ = zap.NewDevelopment()
	}
	defer func() { _ = log.Sync() }()

	cfg := app.FromEnv(app.Config{Backend: *backend, DataPath: *data})
	cfg.Remote.Plaintext = cfg.Remote.Plaintext || *plaintext
	cfg.Remote.SkipTLS = *insecure
	if *addr != "" {
		cfg.Remote.Addr = *addr
	}
	if *caPath != "" {
		cfg.Remote.CAFile = *caPath
	}
	if cfg.DataPath == "" {
		_ = os.MkdirAll(cfgDir(), 0o700)
		cfg.DataPath = dataPath()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		fail(err)
	}
	defer func() { _ = a.Close() }()

	if *verbose {
		a.Auth.OnAuthStateChange(func(e model.AuthEvent, s *model.Session) {
			uid := ""
			if s != nil {
				uid = s.User.ID
			}
			fmt.Fprintf(os.Stderr, "auth event: %s %s\n", e, uid)
		})
	}

	c := &cli{a: a, out: os.Stdout, stdin: os.Stdin}
	if err := c.run(ctx, cmd, flag.Args()[1:]); err != nil {
		_ = a.Close()
		fail(err)
	}
}

// ---- helpers ----

func fail(err error) {
	if s, ok := status.FromError(err); ok {
		fmt.Fprintf(os.Stderr, "rpc error: code=%s msg=%s\n", s.Code(), s.Message())
		os.Exit(1)
	}
	switch {
	case errors.Is(err, errs.ErrNoSession):
		fmt.Fprintln(os.Stderr, "not signed in (run signin first)")
	case errors.Is(err, errs.ErrInvalidCredentials):
		fmt.Fprintln(os.Stderr, "invalid email or password")
	default:
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(1)
}
