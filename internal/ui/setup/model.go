// Package setup is the first-run and reconfiguration form for the mail
// account and display preferences.
package setup

import (
	"context"
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/mailpane/conversations/internal/backend/imap"
	"github.com/mailpane/conversations/internal/credential"
	"github.com/mailpane/conversations/internal/model"
	"github.com/mailpane/conversations/internal/theme"
)

// Mode represents the current state of the setup view.
type Mode int

const (
	ModeForm       Mode = iota // Account form is active
	ModeValidating             // Testing the connection
	ModeResult                 // Showing the validation result
)

// DoneMsg signals the setup view should close. Saved reports whether
// the configuration was written.
type DoneMsg struct {
	Saved  bool
	Config *model.AppConfig
}

// validateResultMsg carries the outcome of a connection test.
type validateResultMsg struct {
	err error
}

// savedMsg is sent after the configuration is persisted.
type savedMsg struct {
	cfg *model.AppConfig
	err error
}

// Model is the Bubble Tea model for the account setup UI.
type Model struct {
	mode       Mode
	configPath string
	base       *model.AppConfig

	form *huh.Form

	// Form field values (huh binds to these)
	formHost         string
	formPort         string
	formUsername     string
	formPassword     string
	formTLS          bool
	formPollSec      string
	formExpandWho    string
	formFriendlyDate bool
	formLogging      bool

	spinner    spinner.Model
	validError error
	statusMsg  string

	width, height int
}

// New creates a setup view seeded from the existing configuration.
func New(cfg *model.AppConfig, configPath string, width, height int) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		mode:             ModeForm,
		configPath:       configPath,
		base:             cfg,
		spinner:          sp,
		width:            width,
		height:           height,
		formHost:         cfg.Account.IMAPHost,
		formPort:         cfg.Account.IMAPPort,
		formUsername:     cfg.Account.Username,
		formTLS:          cfg.Account.UseTLS,
		formPollSec:      strconv.Itoa(cfg.Account.PollIntervalSec),
		formExpandWho:    cfg.Display.ExpandWho,
		formFriendlyDate: !cfg.Display.NoFriendlyDate,
		formLogging:      cfg.Display.LoggingEnabled,
	}
	if m.formPort == "" {
		m.formPort = "993"
	}
	if m.formExpandWho == "" {
		m.formExpandWho = string(model.ExpandAuto)
	}
	m.form = m.buildForm()

	return m
}

// buildForm constructs the huh form with bindings into the model.
func (m *Model) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("IMAP host").
				Value(&m.formHost).
				Validate(required("host")),
			huh.NewInput().
				Title("IMAP port").
				Value(&m.formPort).
				Validate(required("port")),
			huh.NewInput().
				Title("Username").
				Value(&m.formUsername).
				Validate(required("username")),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&m.formPassword),
			huh.NewConfirm().
				Title("Use TLS").
				Value(&m.formTLS),
			huh.NewInput().
				Title("Poll interval (seconds)").
				Value(&m.formPollSec),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Expand messages").
				Options(
					huh.NewOption("Automatic", string(model.ExpandAuto)),
					huh.NewOption("All", string(model.ExpandAll)),
					huh.NewOption("None", string(model.ExpandNone)),
				).
				Value(&m.formExpandWho),
			huh.NewConfirm().
				Title("Friendly dates").
				Value(&m.formFriendlyDate),
			huh.NewConfirm().
				Title("Debug logging").
				Value(&m.formLogging),
		),
	)
}

func required(name string) func(string) error {
	return func(s string) error {
		if s == "" {
			return fmt.Errorf("%s is required", name)
		}
		return nil
	}
}

// Init starts the form.
func (m Model) Init() tea.Cmd {
	return m.form.Init()
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// Update handles messages for the setup view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case validateResultMsg:
		if msg.err != nil {
			m.mode = ModeResult
			m.validError = msg.err
			m.statusMsg = "Connection failed: " + msg.err.Error()
			return m, nil
		}
		return m, m.save()

	case savedMsg:
		if msg.err != nil {
			m.mode = ModeResult
			m.validError = msg.err
			m.statusMsg = "Saving failed: " + msg.err.Error()
			return m, nil
		}
		return m, func() tea.Msg {
			return DoneMsg{Saved: true, Config: msg.cfg}
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "esc" {
			if m.mode == ModeResult {
				m.mode = ModeForm
				m.validError = nil
				m.form = m.buildForm()
				return m, m.form.Init()
			}
			return m, func() tea.Msg { return DoneMsg{Saved: false} }
		}
	}

	if m.mode != ModeForm {
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		m.mode = ModeValidating
		return m, tea.Batch(m.spinner.Tick, m.validate())
	}

	return m, cmd
}

// validate tests the IMAP credentials before saving.
func (m Model) validate() tea.Cmd {
	client := imap.NewClient(
		m.formHost, m.formPort, m.formUsername, m.formPassword, m.formTLS,
	)
	return func() tea.Msg {
		conn, err := client.Connect(context.Background())
		if err != nil {
			return validateResultMsg{err: err}
		}
		_ = conn.Logout().Wait()
		return validateResultMsg{}
	}
}

// save persists the configuration and stores the password in the
// system keyring.
func (m Model) save() tea.Cmd {
	cfg := m.toConfig()
	path := m.configPath
	password := m.formPassword
	username := m.formUsername

	return func() tea.Msg {
		if password != "" {
			if err := credential.Set(credential.IMAPPasswordKey(username), password); err != nil {
				return savedMsg{err: err}
			}
		}
		if err := model.SaveConfig(path, cfg); err != nil {
			return savedMsg{err: err}
		}
		return savedMsg{cfg: cfg}
	}
}

// toConfig assembles an AppConfig from the form values, preserving the
// settings the form does not cover.
func (m Model) toConfig() *model.AppConfig {
	pollSec, err := strconv.Atoi(m.formPollSec)
	if err != nil || pollSec <= 0 {
		pollSec = 60
	}

	cfg := *m.base
	if cfg.Account.ID == "" {
		cfg.Account.ID = uuid.NewString()
	}
	if cfg.Account.Name == "" {
		cfg.Account.Name = m.formUsername
	}
	cfg.Account.IMAPHost = m.formHost
	cfg.Account.IMAPPort = m.formPort
	cfg.Account.Username = m.formUsername
	cfg.Account.UseTLS = m.formTLS
	cfg.Account.PollIntervalSec = pollSec
	cfg.Display.ExpandWho = m.formExpandWho
	cfg.Display.NoFriendlyDate = !m.formFriendlyDate
	cfg.Display.LoggingEnabled = m.formLogging
	return &cfg
}

// View renders the setup view.
func (m Model) View() string {
	switch m.mode {
	case ModeValidating:
		return lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Render(m.spinner.View() + " Testing connection...")

	case ModeResult:
		body := theme.HelpStyle.Render(m.statusMsg + "\n\nesc to edit")
		return theme.PanelStyle.
			Width(m.width - 4).
			Render(body)

	default:
		title := lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.ColorWhite).
			MarginBottom(1).
			Render("Account Setup")
		return lipgloss.JoinVertical(lipgloss.Left, title, m.form.View())
	}
}
