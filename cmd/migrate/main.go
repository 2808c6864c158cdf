package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/recruitment-backend/pkg/config"
	"github.com/angelmondragon/recruitment-backend/pkg/db"
	"github.com/angelmondragon/recruitment-backend/pkg/logger"
	"github.com/angelmondragon/recruitment-backend/pkg/migrate"
)

func main() {
	cmd := flag.String("cmd", "up", "up|down|status|version|to|create|validate")
	dir := flag.String("dir", "", "read migrations from this directory instead of the embedded set")
	name := flag.String("name", "", "migration name for -cmd=create")
	target := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=to")
	flag.Parse()

	_ = godotenv.Load()

	// create and validate work on files only and run without config.
	switch *cmd {
	case "create":
		out := *dir
		if out == "" {
			out = migrate.DefaultDir
		}
		path, err := migrate.CreateSQLMigration(out, *name)
		exitOn(err, "create migration")
		fmt.Println("created", path)
		return
	case "validate":
		var err error
		if *dir == "" {
			err = migrate.Validate(migrate.Embedded())
		} else {
			err = migrate.ValidateDir(*dir)
		}
		exitOn(err, "validate migrations")
		fmt.Println("migrations ok")
		return
	}

	cfg, err := config.Load()
	exitOn(err, "load config")

	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{"env": cfg.App.Env, "cmd": *cmd})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	exitOn(err, "connect database")
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	exitOn(err, "sql handle")

	var source fs.FS
	if *dir != "" {
		source = os.DirFS(*dir)
	}
	runner, err := migrate.NewRunner(sqlDB, source)
	exitOn(err, "migration runner")

	switch *cmd {
	case "up":
		applied, err := runner.Up(ctx)
		printSteps("applied", applied)
		exitOn(err, "migrate up")
	case "down":
		reverted, err := runner.Down(ctx)
		printSteps("reverted", reverted)
		exitOn(err, "migrate down")
	case "to":
		moved, err := runner.To(ctx, *target)
		printSteps("moved", moved)
		exitOn(err, "migrate to")
	case "version":
		v, err := runner.Version(ctx)
		exitOn(err, "read version")
		fmt.Println(v)
	case "status":
		v, err := runner.Version(ctx)
		exitOn(err, "read version")
		pending, err := runner.Pending(ctx)
		exitOn(err, "read status")
		fmt.Printf("current %d, %d pending %v\n", v, len(pending), pending)
	default:
		exitOn(fmt.Errorf("unknown -cmd %q", *cmd), "parse flags")
	}
	logg.Info(ctx, "migrate.done")
}

func printSteps(verb string, steps []migrate.Step) {
	for _, s := range steps {
		fmt.Printf("%s %d %s (%s)\n", verb, s.Version, s.Path, s.Duration)
	}
}

func exitOn(err error, what string) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "%s: %v\n", what, err)
	os.Exit(1)
}
