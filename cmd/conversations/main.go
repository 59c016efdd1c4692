package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mailpane/conversations/internal/app"
	imapbackend "github.com/mailpane/conversations/internal/backend/imap"
	"github.com/mailpane/conversations/internal/credential"
	"github.com/mailpane/conversations/internal/enrich"
	"github.com/mailpane/conversations/internal/index"
	"github.com/mailpane/conversations/internal/logging"
	"github.com/mailpane/conversations/internal/model"
	"github.com/mailpane/conversations/internal/sync"
)

func main() {
	var (
		configPath string
		threadKey  string
		viewID     string
	)

	flag.StringVar(&configPath, "config", model.DefaultConfigPath(), "path to the config file")
	flag.StringVar(&threadKey, "thread", "", "Message-ID of the thread root to open")
	flag.StringVar(&viewID, "mailbox", "INBOX", "mailbox the conversation was opened from")
	flag.Parse()

	cfg, err := model.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "conversations: %v\n", err)
		os.Exit(2)
	}

	level := cfg.LogLevel
	if cfg.Display.LoggingEnabled {
		level = "debug"
	}
	logFile := filepath.Join(filepath.Dir(model.DefaultIndexPath()), "conversations.log")
	closer, err := logging.InitFile(logFile, level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "conversations: %v\n", err)
		os.Exit(2)
	}
	defer closer.Close()

	idx, err := index.Open(cfg.IndexDB)
	if err != nil {
		fmt.Fprintf(os.Stderr, "conversations: %v\n", err)
		os.Exit(2)
	}
	defer idx.Close()

	password := ""
	if cfg.Account.Username != "" {
		password, _ = credential.Get(credential.IMAPPasswordKey(cfg.Account.Username))
	}

	client := imapbackend.NewClient(
		cfg.Account.IMAPHost,
		cfg.Account.IMAPPort,
		cfg.Account.Username,
		password,
		cfg.Account.UseTLS,
	)
	adapter := imapbackend.NewAdapter(client, idx, logging.Component("imap"))

	enricher := enrich.New(adapter, logging.Component("enrich"))

	poller := sync.New(
		adapter,
		enricher,
		cfg.Prefs(),
		time.Duration(cfg.Account.PollIntervalSec)*time.Second,
		logging.Component("sync"),
	)

	root := app.New(app.Options{
		Config:          cfg,
		ConfigPath:      configPath,
		ConversationKey: threadKey,
		ViewID:          viewID,
		Poller:          poller,
		Log:             logging.Component("app"),
	})

	program := tea.NewProgram(root, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "conversations: %v\n", err)
		os.Exit(1)
	}
}
