package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/ghanalytics/traffic-tracker/api"
	"github.com/ghanalytics/traffic-tracker/common"
	"github.com/ghanalytics/traffic-tracker/config"
	"github.com/ghanalytics/traffic-tracker/engine"
	"github.com/ghanalytics/traffic-tracker/factory"
	"github.com/multiversx/mx-chain-core-go/core/check"
	logger "github.com/multiversx/mx-chain-logger-go"
	"github.com/urfave/cli"
)

const (
	defaultLogsPath      = "logs"
	logFilePrefix        = "tracker"
	logFileLifeSpanInSec = 86400 // 24h
	logFileLifeSpanInMB  = 1024  // 1GB
	envFile              = "./.env"
	envTokenKey          = "GITHUB_TOKEN"
)

// appVersion should be populated at build time using ldflags
// Usage examples:
// Linux/macOS:
//
//	go build -v -ldflags="-X main.appVersion=$(git describe --all | cut -c7-32)
var appVersion = "undefined"
var fileLogging common.FileLoggingHandler

var (
	trackerHelpTemplate = `NAME:
   {{.Name}} - {{.Usage}}
USAGE:
   {{.HelpName}} {{if .VisibleFlags}}[global options]{{end}}
   {{if len .Authors}}
AUTHOR:
   {{range .Authors}}{{ . }}{{end}}
   {{end}}{{if .Commands}}
COMMANDS:
   {{range .Commands}}{{.Name}}{{with .ShortName}}, {{.}}{{end}}{{ "\t" }}{{.Usage}}
   {{end}}{{end}}{{if .VisibleFlags}}
GLOBAL OPTIONS:
   {{range .VisibleFlags}}{{.}}
   {{end}}{{end}}
VERSION:
   {{.Version}}
`

	log = logger.GetOrCreate("main")

	// logLevel defines the logger level
	logLevel = cli.StringFlag{
		Name: "log-level",
		Usage: "This flag specifies the logger `level(s)`. It can contain multiple comma-separated value. For example" +
			", if set to *:INFO the logs for all packages will have the INFO level. However, if set to *:INFO,engine:DEBUG" +
			" the logs for all packages will have the INFO level, excepting the engine package which will receive a DEBUG" +
			" log level.",
		Value: "*:" + logger.LogInfo.String(),
	}
	// logSaveFile is used when the log output needs to be logged in a file
	logSaveFile = cli.BoolFlag{
		Name:  "log-save",
		Usage: "Boolean option for enabling log saving. If set, it will automatically save all the logs into a file.",
	}
	// workingDirectory defines a flag for the path for the working directory.
	workingDirectory = cli.StringFlag{
		Name:  "working-directory",
		Usage: "This flag specifies the `directory` where the tracker will store logs.",
		Value: "",
	}
	// configFile defines a flag for the path to the main configuration file
	configFile = cli.StringFlag{
		Name:  "config",
		Usage: "The `path` for the main configuration file.",
		Value: "./config.toml",
	}
	// repositoriesFile defines a flag for the path to the repositories registry file
	repositoriesFile = cli.StringFlag{
		Name:  "repositories",
		Usage: "The `path` for the tracked repositories file.",
		Value: "./repositories.json",
	}
	// dataDir overrides the configured data directory when set
	dataDir = cli.StringFlag{
		Name:  "data-dir",
		Usage: "Optional `directory` override for the analytics data files.",
		Value: "",
	}
	// singleRepository restricts collection to one configured repository
	singleRepository = cli.StringFlag{
		Name:  "repository",
		Usage: "Collect data for a single configured repository, given as `owner/name`.",
		Value: "",
	}
	// validateOnly checks authentication and repository accessibility without collecting
	validateOnly = cli.BoolFlag{
		Name:  "validate-only",
		Usage: "Boolean option that only validates the configuration and the repository access.",
	}
	// includeHistorical forces the trailing 14-day backfill for all processed repositories
	includeHistorical = cli.BoolFlag{
		Name:  "include-historical",
		Usage: "Boolean option for collecting the trailing 14-day historical data for every repository.",
	}

	envFileContents = map[string]string{
		envTokenKey: "",
	}
)

func main() {
	app := cli.NewApp()
	cli.AppHelpTemplate = trackerHelpTemplate
	app.Name = "GitHub traffic analytics tracker"
	app.Version = fmt.Sprintf("%s/%s/%s-%s", appVersion, runtime.Version(), runtime.GOOS, runtime.GOARCH)
	app.Usage = "Collects repository traffic analytics from the GitHub API and stores them as date-keyed JSON documents"
	app.Flags = []cli.Flag{
		logLevel,
		logSaveFile,
		workingDirectory,
		configFile,
		repositoriesFile,
		dataDir,
		singleRepository,
		validateOnly,
		includeHistorical,
	}
	app.Commands = []cli.Command{
		{
			Name:   "serve",
			Usage:  "starts the read-only dashboard API over the stored analytics",
			Action: runServe,
		},
	}

	app.Action = runCollect

	defer func() {
		if fileLogging != nil {
			_ = fileLogging.Close()
		}
	}()

	err := app.Run(os.Args)
	if err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
}

func runCollect(ctx *cli.Context) error {
	handler, err := initComponents(ctx)
	if err != nil {
		return err
	}

	runCtx, cancel := signalAwareContext()
	defer cancel()

	login, err := handler.GetAPIClient().TestAuthentication(runCtx)
	if err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}
	log.Info("authentication successful", "login", login)

	collectionEngine := handler.GetEngine()
	err = collectionEngine.Validate(runCtx)
	if err != nil {
		return err
	}

	if ctx.GlobalBool(validateOnly.Name) {
		log.Info("validation completed successfully")
		return nil
	}

	withHistorical := ctx.GlobalBool(includeHistorical.Name)

	repoArg := ctx.GlobalString(singleRepository.Name)
	if len(repoArg) > 0 {
		return collectSingleRepository(runCtx, handler, repoArg, withHistorical)
	}

	report := collectionEngine.ProcessAll(runCtx, withHistorical)
	if report.FailedRepositories > 0 {
		return fmt.Errorf("%d of %d repositories failed", report.FailedRepositories, report.TotalRepositories)
	}

	return nil
}

func collectSingleRepository(ctx context.Context, handler componentsHolder, repoArg string, withHistorical bool) error {
	owner, name, err := splitRepositoryArg(repoArg)
	if err != nil {
		return err
	}

	repo, found := handler.GetRegistry().GetRepository(owner, name)
	if !found {
		return fmt.Errorf("repository %s not found in configuration", repoArg)
	}
	if !repo.Enabled {
		return fmt.Errorf("repository %s is disabled", repoArg)
	}

	return handler.GetEngine().ProcessRepository(ctx, repo, withHistorical)
}

func runServe(ctx *cli.Context) error {
	handler, err := initComponents(ctx)
	if err != nil {
		return err
	}

	server, err := api.NewServer(api.ArgsWebServer{
		ListenAddress: handler.GetConfig().Server.ListenAddress,
		Storage:       handler.GetStorage(),
	})
	if err != nil {
		return err
	}

	server.Start()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs

	log.Info("application closing, calling Close on the web server...")

	return server.Close()
}

type componentsHolder interface {
	GetEngine() factory.Engine
	GetAPIClient() factory.APIClient
	GetStorage() api.Storage
	GetRegistry() engine.Registry
	GetConfig() config.Config
}

func initComponents(ctx *cli.Context) (componentsHolder, error) {
	err := logger.SetLogLevel(ctx.GlobalString(logLevel.Name))
	if err != nil {
		return nil, err
	}

	saveLogFile := ctx.GlobalBool(logSaveFile.Name)
	workingDir := ctx.GlobalString(workingDirectory.Name)

	fileLogging, err = common.AttachFileLogger(log, defaultLogsPath, logFilePrefix, saveLogFile, workingDir)
	if err != nil {
		return nil, err
	}

	if !check.IfNil(fileLogging) {
		timeLogLifeSpan := time.Second * time.Duration(logFileLifeSpanInSec)
		sizeLogLifeSpanInMB := uint64(logFileLifeSpanInMB)
		err = fileLogging.ChangeFileLifeSpan(timeLogLifeSpan, sizeLogLifeSpanInMB)
		if err != nil {
			return nil, err
		}
	}

	log.Info("starting traffic tracker", "version", appVersion, "pid", os.Getpid())

	err = common.ReadEnvFile(envFile, envFileContents)
	if err != nil {
		return nil, err
	}

	cfg, err := config.LoadConfig(ctx.GlobalString(configFile.Name))
	if err != nil {
		return nil, err
	}

	dataDirOverride := ctx.GlobalString(dataDir.Name)
	if len(dataDirOverride) > 0 {
		cfg.DataDir = dataDirOverride
	}

	registry, err := config.NewRepositoriesRegistry(ctx.GlobalString(repositoriesFile.Name))
	if err != nil {
		return nil, err
	}

	return factory.NewComponentsHandler(envFileContents[envTokenKey], *cfg, registry)
}

func splitRepositoryArg(repoArg string) (string, string, error) {
	for i := 0; i < len(repoArg); i++ {
		if repoArg[i] == '/' && i > 0 && i < len(repoArg)-1 {
			return repoArg[:i], repoArg[i+1:], nil
		}
	}

	return "", "", fmt.Errorf("invalid repository format '%s', expected 'owner/name'", repoArg)
}

func signalAwareContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
