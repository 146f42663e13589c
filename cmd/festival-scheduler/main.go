package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/noah-isme/festival-scheduler-api/internal/models"
	"github.com/noah-isme/festival-scheduler-api/internal/registration"
	"github.com/noah-isme/festival-scheduler-api/internal/repository"
	"github.com/noah-isme/festival-scheduler-api/internal/scheduler"
	"github.com/noah-isme/festival-scheduler-api/internal/service"
	appErrors "github.com/noah-isme/festival-scheduler-api/pkg/errors"
	"github.com/noah-isme/festival-scheduler-api/pkg/logger"
	"github.com/noah-isme/festival-scheduler-api/pkg/storage"
)

const (
	competitionFlag = "competition"
	registrantsFlag = "registrants"
	teachersFlag    = "teachers"
	configFlag      = "config"
	outDirFlag      = "out-dir"
	htmlFlag        = "html"
	editableFlag    = "editable"
	logLevelFlag    = "log-level"

	exitFailure    = 1
	exitNotPlaced  = 2
	exitNotPersist = 3
)

var build string
var semanticVersion = "v1.0.0" + build

func main() {
	app := &cli.App{
		Name:    "festival-scheduler",
		Usage:   "Build music festival competition schedules from registration sheets",
		Version: semanticVersion,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: logLevelFlag, Value: "info", Usage: "debug, info, warn or error"},
			&cli.StringFlag{Name: outDirFlag, Value: "./uploads", Usage: "Directory holding stored schedules"},
		},
		Commands: []*cli.Command{
			{
				Name:  "schedule",
				Usage: "Place every registrant and store the schedule",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: competitionFlag, Aliases: []string{"n"}, Required: true, Usage: "Competition name"},
					&cli.StringFlag{Name: registrantsFlag, Aliases: []string{"r"}, Required: true, Usage: "CSV of registration form entries"},
					&cli.StringFlag{Name: configFlag, Aliases: []string{"c"}, Required: true, Usage: "YAML chairman configuration"},
					&cli.StringFlag{Name: teachersFlag, Aliases: []string{"t"}, Usage: "CSV of teacher sign-ups (judges and proctors)"},
					&cli.StringFlag{Name: htmlFlag, Usage: "Also write the rendered schedule to this file"},
					&cli.BoolFlag{Name: editableFlag, Usage: "Render the HTML with edit hooks"},
				},
				Action: scheduleAction,
			},
			{
				Name:  "render",
				Usage: "Render a stored schedule as HTML",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: competitionFlag, Aliases: []string{"n"}, Required: true, Usage: "Competition name"},
					&cli.StringFlag{Name: htmlFlag, Value: "-", Usage: "Output file, or \"-\" for stdout"},
					&cli.BoolFlag{Name: editableFlag, Usage: "Render the HTML with edit hooks"},
				},
				Action: renderAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func scheduleAction(cCtx *cli.Context) error {
	logr, err := logger.NewConsole(cCtx.String(logLevelFlag))
	if err != nil {
		return cli.Exit(fmt.Sprintf("init logger: %v", err), exitFailure)
	}
	defer logr.Sync() //nolint:errcheck

	competition := cCtx.String(competitionFlag)
	cfg, err := readConfig(cCtx.String(configFlag))
	if err != nil {
		return cli.Exit(err.Error(), exitFailure)
	}
	registrants, err := readRegistrants(cCtx.String(registrantsFlag), competition)
	if err != nil {
		return cli.Exit(err.Error(), exitFailure)
	}
	var teachers []models.Teacher
	if path := cCtx.String(teachersFlag); path != "" {
		if teachers, err = readTeachers(path, competition); err != nil {
			return cli.Exit(err.Error(), exitFailure)
		}
	}

	store, err := fileStore(cCtx.String(outDirFlag))
	if err != nil {
		return cli.Exit(err.Error(), exitFailure)
	}
	svc := service.NewSchedulingService(nil, nil, store, nil, nil, nil, logr)
	resp, err := svc.RunWithRecords(cCtx.Context, competition, cfg, registrants, teachers)
	if err != nil && resp == nil {
		return cli.Exit(err.Error(), exitCode(err))
	}

	if path := cCtx.String(htmlFlag); path != "" {
		if werr := os.WriteFile(path, []byte(resp.Schedule.ScheduleString(cCtx.Bool(editableFlag))), 0o644); werr != nil {
			logr.Warn("could not write html", zap.String("path", path), zap.Error(werr))
		}
	}

	enc := yaml.NewEncoder(cCtx.App.Writer)
	enc.SetIndent(2)
	if encErr := enc.Encode(resp.Summary); encErr != nil {
		return cli.Exit(fmt.Sprintf("encode summary: %v", encErr), exitFailure)
	}
	if encErr := enc.Close(); encErr != nil {
		return cli.Exit(fmt.Sprintf("encode summary: %v", encErr), exitFailure)
	}

	if err != nil {
		return cli.Exit(err.Error(), exitCode(err))
	}
	logr.Info("schedule stored", zap.String("file", repository.SnapshotFilename(competition)), zap.Int("version", resp.Version))
	return nil
}

func renderAction(cCtx *cli.Context) error {
	store, err := fileStore(cCtx.String(outDirFlag))
	if err != nil {
		return cli.Exit(err.Error(), exitFailure)
	}
	snap, err := store.Load(context.Background(), cCtx.String(competitionFlag))
	if err != nil {
		if errors.Is(err, repository.ErrScheduleNotFound) {
			return cli.Exit("no stored schedule for this competition; run the schedule command first", exitFailure)
		}
		return cli.Exit(err.Error(), exitFailure)
	}

	var out io.Writer = cCtx.App.Writer
	if path := cCtx.String(htmlFlag); path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return cli.Exit(err.Error(), exitFailure)
		}
		defer f.Close()
		out = f
	}
	_, err = io.WriteString(out, snap.Scheduler.ScheduleString(cCtx.Bool(editableFlag)))
	return err
}

func readConfig(path string) (scheduler.Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return scheduler.Config{}, fmt.Errorf("open chairman config: %w", err)
	}
	defer f.Close()
	return registration.ReadChairmanConfig(f, validator.New(), scheduler.DefaultSectionMinutes)
}

func readRegistrants(path, competition string) ([]models.Registrant, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open registrants: %w", err)
	}
	defer f.Close()
	return registration.ReadRegistrants(f, competition)
}

func readTeachers(path, competition string) ([]models.Teacher, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open teachers: %w", err)
	}
	defer f.Close()
	return registration.ReadTeachers(f, competition)
}

func fileStore(dir string) (*repository.FileScheduleStore, error) {
	files, err := storage.NewLocalStorage(dir)
	if err != nil {
		return nil, fmt.Errorf("prepare %s: %w", dir, err)
	}
	return repository.NewFileScheduleStore(files), nil
}

func exitCode(err error) int {
	switch appErrors.FromError(err).Code {
	case appErrors.ErrInfeasibleConfiguration.Code, appErrors.ErrPlacementExhausted.Code:
		return exitNotPlaced
	case appErrors.ErrPersistFailed.Code:
		return exitNotPersist
	default:
		return exitFailure
	}
}
