// Package app is the root Bubble Tea model. It routes between the
// individual views and applies background refresh results to the
// conversation state.
package app

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/mailpane/conversations/internal/keys"
	"github.com/mailpane/conversations/internal/localize"
	"github.com/mailpane/conversations/internal/model"
	"github.com/mailpane/conversations/internal/store"
	appsync "github.com/mailpane/conversations/internal/sync"
	"github.com/mailpane/conversations/internal/ui"
	"github.com/mailpane/conversations/internal/ui/conversation"
	helpview "github.com/mailpane/conversations/internal/ui/help"
	"github.com/mailpane/conversations/internal/ui/setup"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewConversation ViewState = iota
	ViewSetup
	ViewHelp
)

// Options carries everything the root model needs at construction.
type Options struct {
	Config     *model.AppConfig
	ConfigPath string

	// ConversationKey is the Message-ID of the thread root to open.
	ConversationKey string

	// ViewID names the mailbox whose message list the conversation was
	// opened from.
	ViewID string

	Poller *appsync.Poller
	Log    zerolog.Logger
}

// Model is the root Bubble Tea model that manages view routing, layout
// and the conversation state.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout

	opts      Options
	keys      *keys.KeyMap
	state     store.State
	convView  conversation.Model
	helpView  helpview.Model
	setupView setup.Model

	ready        bool
	notification *model.Notification
	authError    string
}

// New creates the root application model.
func New(opts Options) Model {
	k := keys.DefaultKeyMap()

	m := Model{
		currentView: ViewConversation,
		opts:        opts,
		keys:        k,
		convView:    conversation.New(k, 80, 24),
		helpView:    helpview.New(k, 80, 24),
		setupView:   setup.New(opts.Config, opts.ConfigPath, 80, 24),
	}

	if opts.Config.Account.IMAPHost == "" {
		// First run: no account configured yet.
		m.currentView = ViewSetup
	}

	return m
}

// Init starts the poller and opens the requested conversation.
func (m Model) Init() tea.Cmd {
	if m.currentView == ViewSetup {
		return m.setupView.Init()
	}

	return tea.Batch(
		m.opts.Poller.Start(),
		m.opts.Poller.ShowConversation(m.opts.ConversationKey, m.opts.ViewID, nil),
	)
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		contentWidth := m.layout.ContentWidth()
		contentHeight := m.layout.ContentHeight()
		m.convView.SetSize(contentWidth, contentHeight)
		m.helpView.SetSize(contentWidth, contentHeight)
		m.setupView.SetSize(contentWidth, contentHeight)
		return m.updateActiveView(msg)

	case appsync.ResultMsg:
		waitCmd := m.opts.Poller.WaitForNextResult()

		if msg.AuthError != nil {
			m.authError = msg.AuthError.Message
			return m, waitCmd
		}
		if msg.Error != nil {
			m.notify("refresh failed: " + msg.Error.Error())
			return m, waitCmd
		}

		m.authError = ""
		added := 0
		for _, ev := range msg.Events {
			if ap, ok := ev.(store.Append); ok {
				added += len(ap.Messages)
			}
			m.state = store.Apply(m.state, ev)
		}
		m.opts.Log.Debug().Int("events", len(msg.Events)).
			Str("key", msg.Key).Msg("applied conversation update")
		if added > 0 {
			m.notify(localize.Pluralize("one new message;#1 new messages", added))
		}
		m.convView.SetState(m.state)
		return m, waitCmd

	case setup.DoneMsg:
		if !msg.Saved {
			if m.opts.Config.Account.IMAPHost == "" {
				// Nothing configured yet; nowhere to go back to.
				return m, tea.Quit
			}
			m.currentView = ViewConversation
			return m, nil
		}
		m.opts.Config = msg.Config
		m.currentView = ViewConversation
		m.notify("account saved, restart to apply connection changes")
		return m, nil

	case conversation.BackMsg:
		m.opts.Poller.Stop()
		return m, tea.Quit

	case tea.KeyMsg:
		// Global keys that work regardless of current view
		switch msg.String() {
		case "ctrl+c":
			m.opts.Poller.Stop()
			return m, tea.Quit

		case "q":
			if m.currentView == ViewConversation {
				m.opts.Poller.Stop()
				return m, tea.Quit
			}

		case "?":
			if m.currentView == ViewSetup {
				break
			}
			if m.currentView == ViewHelp {
				m.currentView = m.previousView
				return m, nil
			}
			m.previousView = m.currentView
			m.currentView = ViewHelp
			return m, nil

		case "c":
			if m.currentView == ViewConversation {
				m.previousView = m.currentView
				m.currentView = ViewSetup
				m.setupView = setup.New(m.opts.Config, m.opts.ConfigPath, m.layout.ContentWidth(), m.layout.ContentHeight())
				return m, m.setupView.Init()
			}

		case "r":
			if m.currentView == ViewConversation {
				return m, m.opts.Poller.Refresh()
			}
		}
	}

	return m.updateActiveView(msg)
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewConversation:
		m.convView, cmd = m.convView.Update(msg)
	case ViewSetup:
		m.setupView, cmd = m.setupView.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	}

	return m, cmd
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader(m.headerBar())
	content := m.renderContent()
	statusBar := m.layout.RenderStatusBar(m.keyHints())

	return m.layout.RenderWithFrame(header, content, statusBar)
}

// renderContent returns the rendered string for the current view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewSetup:
		return m.setupView.View()
	case ViewHelp:
		return m.helpView.View()
	default:
		return m.convView.View()
	}
}

// headerBar assembles the conversation subject, unread count and sync
// status for the header line.
func (m Model) headerBar() ui.HeaderBar {
	bar := ui.HeaderBar{Subject: "Conversations", Status: m.syncStatus()}
	if len(m.state.Messages) > 0 {
		bar.Subject = m.state.Messages[0].Subject
	}
	for _, msg := range m.state.Messages {
		if !msg.Read {
			bar.Unread++
		}
	}
	return bar
}

// syncStatus returns a short string describing the poller state.
func (m Model) syncStatus() string {
	status := m.opts.Poller.GetStatus()
	switch status.State {
	case appsync.Running:
		return "refreshing"
	case appsync.Errored:
		return "refresh failed"
	default:
		if status.LastSync.IsZero() {
			return "idle"
		}
		return "updated " + localize.FriendlyDate(status.LastSync, time.Now())
	}
}

// notify records a transient status-bar notification.
func (m *Model) notify(text string) {
	m.notification = &model.Notification{
		Text:      text,
		CreatedAt: time.Now(),
	}
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	if m.authError != "" && m.currentView == ViewConversation {
		return m.authError
	}

	// A fresh notification takes the hint slot for a short while.
	if m.notification != nil &&
		time.Since(m.notification.CreatedAt) < 10*time.Second &&
		m.currentView == ViewConversation {
		return m.notification.Text
	}

	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewSetup:
		return "enter next field | esc cancel"
	default:
		return "q quit | ? help | enter expand | E/C all | r refresh | c setup"
	}
}
