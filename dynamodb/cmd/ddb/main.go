// ddb copies DynamoDB table schemas from an AWS account to a local target.
//
// # Installation
//
//	go install github.com/acksell/ddbreplicate/dynamodb/cmd/ddb@latest
//
// # Commands
//
//	ddb replicate   Create every table listed in TABLES on SERVICE_URL
//	ddb schema      Print the YAML schema of the remote tables
//	ddb ls          List tables on the local target
//	ddb identity    Show which remote account the credentials belong to
//	ddb version     Print the version
//
// # Environment
//
//	AWS_ACCESS_KEY_ID       remote account credentials
//	AWS_SECRET_ACCESS_KEY
//	SERVICE_URL             http://localhost:8000, memory:// or badger://<dir>
//	TABLES                  table names separated by ';'
//
// # Quick Start
//
//	docker run -p 8000:8000 amazon/dynamodb-local
//	SERVICE_URL=http://localhost:8000 TABLES="Orders;Customers" ddb replicate
//
// Optional defaults are read from ddb.replicate.yaml:
//
//	remoteRegion: eu-west-1
//	localRegion: eu-west-1
//	wait: true
//	waitTimeout: 2m
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/acksell/ddbreplicate/dynamodb/ddbiface"
	"github.com/acksell/ddbreplicate/dynamodb/replicate"
	"github.com/alecthomas/kong"
	"go.uber.org/zap"
)

const version = "0.1.0"

type CLI struct {
	Config  string `name:"config" type:"path" help:"Path to ddb.replicate.yaml (default: search upwards from the working directory)"`
	Verbose bool   `short:"v" help:"Verbose logging"`

	Replicate ReplicateCmd `cmd:"" help:"Create the tables listed in TABLES on SERVICE_URL"`
	Schema    SchemaCmd    `cmd:"" help:"Print the YAML schema of the remote tables listed in TABLES"`
	Ls        LsCmd        `cmd:"" name:"ls" help:"List tables on SERVICE_URL"`
	Identity  IdentityCmd  `cmd:"" help:"Show the account and aliases of the remote credentials"`
	Version   VersionCmd   `cmd:"" help:"Print the version"`
}

type ReplicateCmd struct {
	Wait        bool          `name:"wait" help:"Wait until every created table is ACTIVE"`
	WaitTimeout time.Duration `name:"wait-timeout" help:"Maximum wait per table (default: 5m)"`
}

type SchemaCmd struct {
	Output string `name:"output" short:"o" type:"path" help:"Write the schema to a file instead of stdout"`
}

type LsCmd struct{}

type IdentityCmd struct{}

type VersionCmd struct{}

type kongExitCode int

type commandDeps struct {
	lookupEnv   replicate.LookupFunc
	getwd       func() (string, error)
	newRemote   func(ctx context.Context, cfg replicate.Config, region string) (ddbiface.TableDescriber, error)
	openTarget  func(ctx context.Context, serviceURL, region string, logger *zap.Logger) (*replicate.Target, error)
	newIdentity func(ctx context.Context, cfg replicate.Config, region string) (identityClients, error)
	out         io.Writer
	errOut      io.Writer
}

func main() {
	os.Exit(run(os.Args[1:], defaultDeps()))
}

func defaultDeps() commandDeps {
	return commandDeps{
		lookupEnv:   os.LookupEnv,
		getwd:       os.Getwd,
		newRemote:   newRemoteDescriber,
		openTarget:  replicate.OpenTarget,
		newIdentity: newIdentityClients,
		out:         os.Stdout,
		errOut:      os.Stderr,
	}
}

func newRemoteDescriber(ctx context.Context, cfg replicate.Config, region string) (ddbiface.TableDescriber, error) {
	return replicate.NewRemoteClient(ctx, cfg, region)
}

// env bundles what every command gets after parsing.
type env struct {
	deps   commandDeps
	cfg    replicate.Config
	file   FileConfig
	logger *zap.Logger
	out    io.Writer
	errOut io.Writer
}

func run(args []string, deps commandDeps) (exitCode int) {
	out := deps.out
	if out == nil {
		out = os.Stdout
	}
	errOut := deps.errOut
	if errOut == nil {
		errOut = os.Stderr
	}
	if deps.lookupEnv == nil {
		deps.lookupEnv = os.LookupEnv
	}
	if deps.getwd == nil {
		deps.getwd = os.Getwd
	}
	if deps.newRemote == nil {
		deps.newRemote = newRemoteDescriber
	}
	if deps.openTarget == nil {
		deps.openTarget = replicate.OpenTarget
	}
	if deps.newIdentity == nil {
		deps.newIdentity = newIdentityClients
	}

	cli := CLI{}
	parser, err := kong.New(
		&cli,
		kong.Name("ddb"),
		kong.Description("Replicate DynamoDB table schemas to a local target."),
		kong.Writers(out, errOut),
		kong.Exit(func(code int) {
			panic(kongExitCode(code))
		}),
	)
	if err != nil {
		_, _ = fmt.Fprintf(errOut, "Error: initialize command parser: %v\n", err)
		return 1
	}
	defer func() {
		recovered := recover()
		if recovered == nil {
			return
		}
		code, ok := recovered.(kongExitCode)
		if !ok {
			panic(recovered)
		}
		exitCode = int(code)
	}()
	kctx, err := parser.Parse(args)
	if err != nil {
		_, _ = fmt.Fprintf(errOut, "Error: %v\n", err)
		_, _ = fmt.Fprintln(errOut, "Hint: run `ddb --help` or `ddb <command> --help`.")
		return 1
	}

	if kctx.Command() == "version" {
		_, _ = fmt.Fprintf(out, "ddb version %s\n", version)
		return 0
	}

	dir, _ := deps.getwd()
	file, err := LoadFileConfig(cli.Config, dir)
	if err != nil {
		_, _ = fmt.Fprintf(errOut, "Error: %v\n", err)
		return 1
	}

	logger := newLogger(errOut, cli.Verbose)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e := &env{
		deps:   deps,
		cfg:    replicate.ReadConfig(deps.lookupEnv),
		file:   file,
		logger: logger.With(zap.String("command", kctx.Command())),
		out:    out,
		errOut: errOut,
	}

	switch kctx.Command() {
	case "replicate":
		err = runReplicate(ctx, cli.Replicate, e)
	case "schema":
		err = runSchema(ctx, cli.Schema, e)
	case "ls":
		err = runLs(ctx, e)
	case "identity":
		err = runIdentity(ctx, e)
	default:
		_, _ = fmt.Fprintf(errOut, "Error: unsupported command: %s\n", kctx.Command())
		_, _ = fmt.Fprintln(errOut, "Hint: run `ddb --help`.")
		return 1
	}
	if err != nil {
		reportError(errOut, err)
		return 1
	}
	return 0
}

// reportError prints one line per missing variable, or the full dump of a
// failed call.
func reportError(w io.Writer, err error) {
	var missing *replicate.MissingEnvError
	if errors.As(err, &missing) {
		for _, name := range missing.Names {
			_, _ = fmt.Fprintf(w, "missing environment variable: %s\n", name)
		}
		return
	}
	var tableErr *replicate.TableError
	if errors.As(err, &tableErr) {
		_, _ = fmt.Fprint(w, replicate.FormatError(err))
		return
	}
	_, _ = fmt.Fprintf(w, "Error: %v\n", err)
}

func (e *env) remoteRegion() string {
	if e.file.RemoteRegion != "" {
		return e.file.RemoteRegion
	}
	return replicate.DefaultRemoteRegion
}

func (e *env) localRegion() string {
	if e.file.LocalRegion != "" {
		return e.file.LocalRegion
	}
	return replicate.DefaultRemoteRegion
}

func (e *env) openTarget(ctx context.Context) (*replicate.Target, error) {
	target, err := e.deps.openTarget(ctx, e.cfg.ServiceURL, e.localRegion(), e.logger)
	if err != nil {
		return nil, fmt.Errorf("open local target: %w", err)
	}
	return target, nil
}

func runReplicate(ctx context.Context, cmd ReplicateCmd, e *env) error {
	if err := e.cfg.Validate(); err != nil {
		return err
	}

	remote, err := e.deps.newRemote(ctx, e.cfg, e.remoteRegion())
	if err != nil {
		return fmt.Errorf("create remote client: %w", err)
	}
	target, err := e.openTarget(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := target.Close(); err != nil {
			e.logger.Warn("close local target", zap.Error(err))
		}
	}()

	opts := replicate.Options{
		Wait:        cmd.Wait || e.file.Wait,
		WaitTimeout: cmd.WaitTimeout,
		Logger:      e.logger,
	}
	if opts.WaitTimeout == 0 {
		opts.WaitTimeout = e.file.WaitTimeout
	}

	e.logger.Debug("replicating tables",
		zap.Strings("tables", e.cfg.Tables),
		zap.String("remote_region", e.remoteRegion()),
		zap.Bool("embedded_target", target.Embedded),
		zap.Bool("wait", opts.Wait),
	)
	_, err = replicate.New(remote, target.Client, e.out, opts).Run(ctx, e.cfg.Tables)
	return err
}
