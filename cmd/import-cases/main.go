package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"debt_flow_app_go/config"
	"debt_flow_app_go/logger"
	"debt_flow_app_go/services"
	"debt_flow_app_go/services/backend"

	"go.uber.org/zap"
	"golang.org/x/term"
)

// cliSession keys the progress and toast state of this run
const cliSession = "cli"

func main() {
	os.Exit(run())
}

// run returns the process exit code so deferred cleanup always happens
func run() int {
	autoAssign := flag.Bool("auto-assign", false, "auto-assign eligible cases after the import")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [-auto-assign] <cases.csv|cases.xlsx>\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		return 2
	}
	path := flag.Arg(0)

	cfg := config.Load()
	zlog, err := logger.New(logger.Config{ServiceName: "import-cases", Environment: cfg.Environment, Level: cfg.LogLevel})
	if err != nil {
		log.Printf("Failed to create logger: %v", err)
		return 1
	}
	defer func() { _ = zlog.Sync() }()

	file, err := os.Open(path)
	if err != nil {
		zlog.Error("Failed to open file", zap.Error(err))
		return 1
	}
	defer file.Close()

	reader := bufio.NewReader(os.Stdin)

	fmt.Println("=== Import Cases ===")
	fmt.Println()

	fmt.Print("Email: ")
	email, _ := reader.ReadString('\n')
	email = strings.TrimSpace(email)

	// Get password securely
	fmt.Print("Password: ")
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		zlog.Error("Failed to read password", zap.Error(err))
		return 1
	}
	password := string(passwordBytes)
	fmt.Println()

	if email == "" || password == "" {
		zlog.Error("Email and password are required")
		return 2
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	client := backend.NewClient(cfg.APIBaseURL, cfg.APITimeout)
	login, err := backend.NewAPI(client).Auth.Login(ctx, email, password)
	if err != nil {
		zlog.Error("Login failed", zap.Error(err))
		return 1
	}
	api := backend.NewAPI(client.WithToken(login.Token))

	toasts := services.NewToastStore(time.Minute)
	progress := services.NewProgressStore(time.Minute)
	defer toasts.Close()
	defer progress.Close()

	importer := services.NewCaseImporter(api.Actions, progress, toasts)
	importer.Archive = services.NewArchiveStore(cfg)
	if *autoAssign {
		importer.Assigner = services.NewAutoAssigner(api.Cases, api.Agencies, cfg.AutoAssignThresholdHours, cfg.AutoAssignConcurrency)
	}

	outcome, err := importer.Import(ctx, services.ImportRequest{
		SessionID:  cliSession,
		Actor:      services.Actor{UserID: login.User.ID, UserName: login.User.Name, UserRole: string(login.User.Role)},
		FileName:   filepath.Base(path),
		File:       file,
		AutoAssign: *autoAssign,
	})
	if err != nil {
		if t, ok := toasts.Current(cliSession); ok {
			fmt.Println(t.Message)
		}
		return 1
	}

	mark := "✓"
	if outcome.Degraded() {
		mark = "!"
	}
	fmt.Println()
	fmt.Println(mark + " " + outcome.Message())
	if outcome.Archived != nil {
		fmt.Printf("  Archived as: %s\n", outcome.Archived.Key)
	}
	for _, rowErr := range outcome.Result.Errors {
		fmt.Printf("  ! %s\n", rowErr)
	}
	if outcome.Degraded() {
		return 3
	}
	return 0
}
