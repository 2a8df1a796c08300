package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/uabidotfun/antigravity-manager/internal/config"
	"github.com/uabidotfun/antigravity-manager/internal/events"
	"github.com/uabidotfun/antigravity-manager/internal/history"
	"github.com/uabidotfun/antigravity-manager/internal/invoke"
	"github.com/uabidotfun/antigravity-manager/internal/log"
	"github.com/uabidotfun/antigravity-manager/internal/session"
	"github.com/uabidotfun/antigravity-manager/internal/storage"
	"github.com/uabidotfun/antigravity-manager/internal/stubserver"
)

const version = "0.1.0"

const defaultConfigPath = "./config.yaml"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	// --- NOUNS ---
	case "account":
		os.Exit(runAccountNoun(args))
	case "auth":
		os.Exit(runAuthNoun(args))
	case "config":
		os.Exit(runConfigNoun(args))
	case "stub":
		os.Exit(runStubNoun(args))

	// --- ROOT ACTIONS ---
	case "dispatch":
		os.Exit(runDispatch(args))
	case "history":
		os.Exit(runHistory(args))
	case "version":
		fmt.Printf("abvctl version %s\n", version)
		os.Exit(0)
	case "help", "--help", "-h":
		printUsage()
		os.Exit(0)

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`abvctl - Antigravity account manager client

Usage:
  abvctl <noun> <action> [flags]

Core Resources (Nouns):
  account   Backend account pool operations
  auth      Admin API key management
  config    Client configuration and integrity
  stub      Local development backend

Account Commands:
  account list            List accounts in the pool
  account switch <id>     Make an account current
  account delete <id>     Remove an account
  account quota <id>      Show quota for an account

Auth Commands:
  auth set-key <value>    Store the admin API key
  auth show               Show whether a key is stored

Config Commands:
  config show             Print the resolved configuration
  config hash             Write the config integrity sidecar

Stub Commands:
  stub serve              Run the stub backend in the foreground

General:
  dispatch <command>      Dispatch a raw command by name
  history                 Show recent invocations
  version                 Show version information
  help                    Show this help message

Use 'abvctl <noun> help' for resource-specific flags.
`)
}

// --- NOUN DISPATCHERS ---

func runAccountNoun(args []string) int {
	if len(args) < 1 {
		printAccountNounHelp(os.Stderr)
		return 1
	}
	if isHelpToken(args[0]) {
		printAccountNounHelp(os.Stdout)
		return 0
	}

	action := args[0]
	actionArgs := args[1:]

	switch action {
	case "list":
		return runAccountList(actionArgs)
	case "switch":
		return runAccountSwitch(actionArgs)
	case "delete":
		return runAccountDelete(actionArgs)
	case "quota":
		return runAccountQuota(actionArgs)
	case "help":
		printAccountNounHelp(os.Stdout)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown account action: %s\n", action)
		return 1
	}
}

func runAuthNoun(args []string) int {
	if len(args) < 1 {
		printAuthNounHelp(os.Stderr)
		return 1
	}
	if isHelpToken(args[0]) {
		printAuthNounHelp(os.Stdout)
		return 0
	}

	action := args[0]
	actionArgs := args[1:]

	switch action {
	case "set-key":
		return runAuthSetKey(actionArgs)
	case "show":
		return runAuthShow(actionArgs)
	case "help":
		printAuthNounHelp(os.Stdout)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown auth action: %s\n", action)
		return 1
	}
}

func runConfigNoun(args []string) int {
	if len(args) < 1 {
		printConfigNounHelp(os.Stderr)
		return 1
	}
	if isHelpToken(args[0]) {
		printConfigNounHelp(os.Stdout)
		return 0
	}

	action := args[0]
	actionArgs := args[1:]

	switch action {
	case "show":
		return runConfigShow(actionArgs)
	case "hash":
		return runConfigHash(actionArgs)
	case "help":
		printConfigNounHelp(os.Stdout)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown config action: %s\n", action)
		return 1
	}
}

func runStubNoun(args []string) int {
	if len(args) < 1 {
		printStubNounHelp(os.Stderr)
		return 1
	}
	if isHelpToken(args[0]) {
		printStubNounHelp(os.Stdout)
		return 0
	}

	action := args[0]
	actionArgs := args[1:]

	switch action {
	case "serve":
		return runStubServe(actionArgs)
	case "help":
		printStubNounHelp(os.Stdout)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown stub action: %s\n", action)
		return 1
	}
}

func isHelpToken(token string) bool {
	return token == "help" || token == "--help" || token == "-h"
}

func printAccountNounHelp(w *os.File) {
	fmt.Fprintln(w, "Usage: abvctl account <action> [flags]")
	fmt.Fprintln(w, "Actions: list, switch, delete, quota")
}

func printAuthNounHelp(w *os.File) {
	fmt.Fprintln(w, "Usage: abvctl auth <action>")
	fmt.Fprintln(w, "Actions: set-key, show")
}

func printConfigNounHelp(w *os.File) {
	fmt.Fprintln(w, "Usage: abvctl config <action> [flags]")
	fmt.Fprintln(w, "Actions: show, hash")
}

func printStubNounHelp(w *os.File) {
	fmt.Fprintln(w, "Usage: abvctl stub serve [--config PATH]")
	fmt.Fprintln(w, "Actions: serve")
}

// --- SHARED PLUMBING ---

// app bundles the wired client: one dispatcher, its credential store, the
// unauthorized event hub, and the invocation log.
type app struct {
	cfg    *config.Config
	db     *sql.DB
	store  *session.Store
	hub    *events.Hub
	client *invoke.Client
	hist   *history.Log
	closer func()
}

func newApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log.Setup(cfg.Service.LogLevel, cfg.Service.LogFormat)

	db, err := storage.Open(ctx, cfg.State.Path)
	if err != nil {
		return nil, fmt.Errorf("open state database: %w", err)
	}

	store := session.NewStore(db)
	hub := events.NewHub(32)

	opts := invoke.Options{
		Creds: store,
		Hub:   hub,
	}
	switch cfg.Backend.Mode {
	case config.ModeNative:
		opts.Transport = invoke.TransportNative
		opts.Native = stubserver.New(stubserver.Config{}, nil).Invoker()
	default:
		opts.Transport = invoke.TransportHTTP
		opts.BaseURL = cfg.Backend.BaseURL
		opts.Client = &http.Client{Timeout: cfg.Backend.Timeout}
	}

	d, err := invoke.New(opts)
	if err != nil {
		db.Close()
		return nil, err
	}

	// Surface session-expired broadcasts on stderr; the debounce in the
	// dispatch layer keeps a burst of 401s to one line.
	ch, cancel := hub.Subscribe()
	go func() {
		for ev := range ch {
			if ev.Type == events.TypeUnauthorized {
				fmt.Fprintln(os.Stderr, "session expired: admin API key was rejected")
			}
		}
	}()

	return &app{
		cfg:    cfg,
		db:     db,
		store:  store,
		hub:    hub,
		client: invoke.NewClient(d),
		hist:   history.NewLog(db),
		closer: func() {
			cancel()
			db.Close()
		},
	}, nil
}

func (a *app) close() {
	a.closer()
}

// record appends an invocation log entry for a finished dispatch.
func (a *app) record(ctx context.Context, command string, started time.Time, dispatchErr error) {
	rec := history.Record{
		Command:   command,
		Transport: a.cfg.Backend.Mode,
		Status:    history.StatusOK,
		Duration:  time.Since(started),
	}
	if dispatchErr != nil {
		rec.Status = history.StatusFailed
		rec.Error = dispatchErr.Error()
	}
	if _, err := a.hist.Append(ctx, rec); err != nil {
		log.Warn("failed to record invocation", "command", command, "error", err)
	}
}

func printJSON(v any) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(data))
}

// argList collects repeated --arg key=value flags.
type argList []string

func (a *argList) String() string { return strings.Join(*a, ",") }

func (a *argList) Set(v string) error {
	if !strings.Contains(v, "=") {
		return fmt.Errorf("expected key=value, got %q", v)
	}
	*a = append(*a, v)
	return nil
}

// --- ACTION IMPLEMENTATIONS ---

func runDispatch(args []string) int {
	var configPath string
	var pairs argList

	fs := flag.NewFlagSet("dispatch", flag.ContinueOnError)
	fs.StringVar(&configPath, "config", defaultConfigPath, "Path to configuration")
	fs.Var(&pairs, "arg", "Command argument as key=value (repeatable)")

	// Filter out the positional command name so flags may follow it.
	var command string
	var remainingArgs []string
	for _, arg := range args {
		if !strings.HasPrefix(arg, "-") && command == "" {
			command = arg
		} else {
			remainingArgs = append(remainingArgs, arg)
		}
	}

	if err := fs.Parse(remainingArgs); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}
	if command == "" {
		fmt.Fprintf(os.Stderr, "Usage: abvctl dispatch <command> [--arg key=value]... [--config PATH]\n")
		return 1
	}

	ctx := context.Background()
	a, err := newApp(ctx, configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer a.close()

	bag := invoke.Args{}
	for _, pair := range pairs {
		parts := strings.SplitN(pair, "=", 2)
		bag[parts[0]] = parts[1]
	}
	if len(bag) == 0 {
		bag = nil
	}

	started := time.Now()
	result, err := a.client.Dispatcher().Dispatch(ctx, command, bag)
	a.record(ctx, command, started, err)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Dispatch failed: %v\n", err)
		return 1
	}

	if result == nil {
		fmt.Println("ok")
		return 0
	}
	printJSON(result)
	return 0
}

func runAccountList(args []string) int {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "Path to configuration")
	jsonOut := fs.Bool("json", false, "Output in structured JSON format")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	ctx := context.Background()
	a, err := newApp(ctx, *configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer a.close()

	started := time.Now()
	accounts, err := a.client.ListAccounts(ctx)
	a.record(ctx, invoke.CmdListAccounts, started, err)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if *jsonOut {
		printJSON(accounts)
		return 0
	}
	for _, acct := range accounts {
		marker := " "
		if acct.Current {
			marker = "*"
		}
		label := acct.Label
		if label == "" {
			label = "-"
		}
		fmt.Printf("%s %-36s  %-30s  %s\n", marker, acct.ID, acct.Email, label)
	}
	return 0
}

func runAccountSwitch(args []string) int {
	return runAccountAction(args, "switch", invoke.CmdSwitchAccount, func(ctx context.Context, a *app, id string) error {
		return a.client.SwitchAccount(ctx, id)
	})
}

func runAccountDelete(args []string) int {
	return runAccountAction(args, "delete", invoke.CmdDeleteAccount, func(ctx context.Context, a *app, id string) error {
		return a.client.DeleteAccount(ctx, id)
	})
}

// runAccountAction handles the switch and delete verbs, which share the
// same positional account ID shape.
func runAccountAction(args []string, verb, command string, do func(context.Context, *app, string) error) int {
	var configPath string

	fs := flag.NewFlagSet(verb, flag.ContinueOnError)
	fs.StringVar(&configPath, "config", defaultConfigPath, "Path to configuration")

	var accountID string
	var remainingArgs []string
	for _, arg := range args {
		if !strings.HasPrefix(arg, "-") && accountID == "" {
			accountID = arg
		} else {
			remainingArgs = append(remainingArgs, arg)
		}
	}

	if err := fs.Parse(remainingArgs); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}
	if accountID == "" {
		fmt.Fprintf(os.Stderr, "Usage: abvctl account %s <account_id> [--config PATH]\n", verb)
		return 1
	}

	ctx := context.Background()
	a, err := newApp(ctx, configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer a.close()

	started := time.Now()
	err = do(ctx, a, accountID)
	a.record(ctx, command, started, err)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Println("ok")
	return 0
}

func runAccountQuota(args []string) int {
	var configPath string

	fs := flag.NewFlagSet("quota", flag.ContinueOnError)
	fs.StringVar(&configPath, "config", defaultConfigPath, "Path to configuration")

	var accountID string
	var remainingArgs []string
	for _, arg := range args {
		if !strings.HasPrefix(arg, "-") && accountID == "" {
			accountID = arg
		} else {
			remainingArgs = append(remainingArgs, arg)
		}
	}

	if err := fs.Parse(remainingArgs); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}
	if accountID == "" {
		fmt.Fprintf(os.Stderr, "Usage: abvctl account quota <account_id> [--config PATH]\n")
		return 1
	}

	ctx := context.Background()
	a, err := newApp(ctx, configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer a.close()

	started := time.Now()
	quota, err := a.client.FetchAccountQuota(ctx, accountID)
	a.record(ctx, invoke.CmdFetchAccountQuota, started, err)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if quota.IsForbidden {
		fmt.Println("account is forbidden")
	}
	for _, m := range quota.Models {
		fmt.Printf("%-32s %3d%%  resets %s\n", m.Name, m.Percentage, m.ResetTime)
	}
	if quota.SubscriptionTier != "" {
		fmt.Printf("tier: %s\n", quota.SubscriptionTier)
	}
	return 0
}

func runAuthSetKey(args []string) int {
	var configPath string

	fs := flag.NewFlagSet("set-key", flag.ContinueOnError)
	fs.StringVar(&configPath, "config", defaultConfigPath, "Path to configuration")

	var key string
	var remainingArgs []string
	for _, arg := range args {
		if !strings.HasPrefix(arg, "-") && key == "" {
			key = arg
		} else {
			remainingArgs = append(remainingArgs, arg)
		}
	}

	if err := fs.Parse(remainingArgs); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}
	if key == "" {
		fmt.Fprintf(os.Stderr, "Usage: abvctl auth set-key <value> [--config PATH]\n")
		return 1
	}

	ctx := context.Background()
	a, err := newApp(ctx, configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer a.close()

	if err := a.store.Set(ctx, session.SlotAdminAPIKey, key); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Println("admin API key stored")
	return 0
}

func runAuthShow(args []string) int {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "Path to configuration")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	ctx := context.Background()
	a, err := newApp(ctx, *configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer a.close()

	key, err := a.store.Get(ctx, session.SlotAdminAPIKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if key == "" {
		fmt.Println("no admin API key stored")
		return 0
	}
	fmt.Printf("admin API key stored (%d characters)\n", len(key))
	return 0
}

func runHistory(args []string) int {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "Path to configuration")
	limit := fs.Int("limit", 20, "Maximum entries to show")
	jsonOut := fs.Bool("json", false, "Output in structured JSON format")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	ctx := context.Background()
	a, err := newApp(ctx, *configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer a.close()

	records, err := a.hist.Recent(ctx, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if *jsonOut {
		printJSON(records)
		return 0
	}
	for _, rec := range records {
		line := fmt.Sprintf("%s  %-8s %-28s %-6s %s",
			rec.CreatedAt.Format(time.RFC3339), rec.Transport, rec.Command, rec.Status, rec.Duration)
		if rec.Error != "" {
			line += "  " + rec.Error
		}
		fmt.Println(line)
	}
	return 0
}

func runConfigShow(args []string) int {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "Path to configuration")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Load error: %v\n", err)
		return 1
	}
	printJSON(cfg)
	return 0
}

func runConfigHash(args []string) int {
	fs := flag.NewFlagSet("hash", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "Path to configuration")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	sum, err := config.WriteChecksum(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Hash error: %v\n", err)
		return 1
	}
	fmt.Printf("wrote %s.checksum (%s)\n", *configPath, sum)
	return 0
}

func runStubServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "Path to configuration")
	listen := fs.String("listen", "", "Listen address (overrides config)")
	apiKey := fs.String("api-key", "", "Require this API key (overrides config)")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	log.Setup(cfg.Service.LogLevel, cfg.Service.LogFormat)
	logger := log.WithComponent("main")

	stubCfg := stubserver.Config{
		Listen: cfg.Stub.Listen,
		APIKey: cfg.Stub.APIKey,
	}
	if *listen != "" {
		stubCfg.Listen = *listen
	}
	if *apiKey != "" {
		stubCfg.APIKey = *apiKey
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	logger.Info("stub backend starting", "version", version, "listen", stubCfg.Listen)
	srv := stubserver.New(stubCfg, nil)
	if err := srv.Start(ctx); err != nil && err != context.Canceled {
		logger.Error("stub backend failed", "error", err)
		return 1
	}

	logger.Info("stub backend stopped")
	return 0
}
