// Package cli wires the session core to an interactive shell. The shell is
// presentation glue: prompts, command dispatch, and ownership of the
// background loops' lifetime.
package cli

import (
	"bufio"
	"context"
	"database/sql"
	"os"
	"sync"

	"github.com/dmitrijs2005/authkeep/internal/client/api"
	"github.com/dmitrijs2005/authkeep/internal/client/config"
	"github.com/dmitrijs2005/authkeep/internal/client/session"
	"github.com/dmitrijs2005/authkeep/internal/client/tokens"
	"github.com/dmitrijs2005/authkeep/internal/logging"

	_ "modernc.org/sqlite"
)

type App struct {
	config     *config.Config
	db         *sql.DB
	store      tokens.Repository
	client     api.Client
	controller *session.Controller
	activity   *session.Activity
	log        logging.Logger
	reader     *bufio.Reader

	// mu guards the background loops' cancel func; loops start when a
	// session exists and stop when it ends or the app exits.
	mu             sync.Mutex
	stopBackground context.CancelFunc
}

func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	db, err := tokens.OpenDB(ctx, c.DatabasePath)
	if err != nil {
		return nil, err
	}

	store := tokens.NewSQLiteRepository(db)
	client := api.NewHTTPClient(c.ServerBaseURL, store, c.RequestTimeout)

	a := &App{
		config:   c,
		db:       db,
		store:    store,
		client:   client,
		activity: session.NewActivity(),
		log:      log,
		reader:   bufio.NewReader(os.Stdin),
	}
	a.controller = session.NewController(client, log, a.onNavigate, c.LoginSettleDelay)
	return a, nil
}

// Run restores any stored session and hands control to the REPL. It returns
// when the user exits or ctx is cancelled.
func (a *App) Run(ctx context.Context) {
	defer a.close()

	a.controller.Start(ctx)

	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, a.status, scanner)
}

func (a *App) close() {
	a.stopBackgroundLoops()
	_ = a.db.Close()
}

// onNavigate receives the controller's navigation signals. The REPL has no
// real router, so routes become messages; loop lifecycle is reconciled
// against the observed state in syncBackground.
func (a *App) onNavigate(route session.Route) {
	switch route {
	case session.RouteDashboard:
		printlnFn("You are signed in.")
	case session.RouteLogin:
		printlnFn("Session ended. Use 'login' to sign in.")
	}
}

func (a *App) isLoggedIn() bool {
	state, _ := a.controller.State()
	return state == session.StateAuthenticated
}

// recordActivity marks a qualifying user interaction; the REPL calls it for
// every submitted line.
func (a *App) recordActivity() {
	a.activity.Touch()
}

// syncBackground reconciles the background loops with the session state:
// running while authenticated, stopped otherwise.
func (a *App) syncBackground() {
	if a.isLoggedIn() {
		a.startBackgroundLoops()
	} else {
		a.stopBackgroundLoops()
	}
}

func (a *App) startBackgroundLoops() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopBackground != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.stopBackground = cancel
	a.activity.Touch()

	go a.controller.RunRefresher(ctx, a.store, a.config.RefreshInterval, a.config.RefreshWindow)
	go a.controller.RunInactivityMonitor(ctx, a.activity, a.config.InactivityCheckInterval, a.config.InactivityThreshold)
}

func (a *App) stopBackgroundLoops() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopBackground != nil {
		a.stopBackground()
		a.stopBackground = nil
	}
}

// status renders the prompt segment showing who is signed in.
func (a *App) status() string {
	state, user := a.controller.State()
	if state == session.StateAuthenticated && user != nil {
		return user.Username
	}
	return state.String()
}
