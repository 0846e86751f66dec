// Package session implements the client's authoritative session state: the
// controller state machine plus the background refresh and inactivity loops.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/authkeep/internal/client/api"
	"github.com/dmitrijs2005/authkeep/internal/client/models"
	"github.com/dmitrijs2005/authkeep/internal/logging"
)

// State is the session state visible to the rest of the application. Exactly
// one state is observable at any time.
type State int

const (
	// StateRestoring is the initial state while a previously stored session
	// is being re-validated against the service.
	StateRestoring State = iota
	StateAuthenticated
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateRestoring:
		return "restoring"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// Route identifies where the shell should navigate after a transition. The
// shell decides what a route actually means.
type Route string

const (
	RouteDashboard Route = "dashboard"
	RouteLogin     Route = "login"
)

// Navigator receives navigation signals from the controller.
type Navigator func(Route)

// Controller is the single writer of "who is logged in". Every state
// transition flows through it; the shell and the background loops only ask
// it to act.
type Controller struct {
	client   api.Client
	log      logging.Logger
	navigate Navigator

	settleDelay time.Duration

	mu    sync.Mutex
	state State
	user  *models.User
	epoch uint64
}

// NewController constructs a controller in the Restoring state. Call Start
// to kick off session restoration. settleDelay is how long Login waits after
// a successful credential exchange before re-fetching the identity.
func NewController(client api.Client, log logging.Logger, navigate Navigator, settleDelay time.Duration) *Controller {
	if navigate == nil {
		navigate = func(Route) {}
	}
	return &Controller{
		client:      client,
		log:         log,
		navigate:    navigate,
		settleDelay: settleDelay,
		state:       StateRestoring,
	}
}

// State returns the current session state and user. The user is non-nil
// exactly in StateAuthenticated.
func (c *Controller) State() (State, *models.User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.user
}

// beginOp opens a state-transitioning operation and invalidates the outcome
// of every operation begun earlier. Transitions therefore apply in the order
// their calls were initiated, not the order their network calls resolve.
func (c *Controller) beginOp() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	return c.epoch
}

// transition applies a state change unless a newer operation has begun.
func (c *Controller) transition(op uint64, state State, user *models.User) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if op != c.epoch {
		return false
	}
	c.state = state
	c.user = user
	return true
}

// Start restores a previously stored session in the background. If ctx is
// cancelled before the lookup resolves, the result is discarded and no
// transition happens, so a teardown can never be clobbered by a stale
// restore.
func (c *Controller) Start(ctx context.Context) {
	op := c.beginOp()
	go func() {
		user, err := c.client.CurrentUser(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			c.log.Warn(ctx, "session restore failed", "error", err)
			c.transition(op, StateUnauthenticated, nil)
			return
		}
		if user == nil {
			c.transition(op, StateUnauthenticated, nil)
			return
		}
		if c.transition(op, StateAuthenticated, user) {
			c.log.Info(ctx, "session restored", "username", user.Username)
		}
	}()
}

// Login authenticates and, on success, re-fetches the identity after the
// settle delay (the service finishes establishing the session
// asynchronously). A failure leaves the state Unauthenticated and is
// returned for the shell to display.
func (c *Controller) Login(ctx context.Context, username, password string) error {
	op := c.beginOp()

	if _, err := c.client.Login(ctx, username, password); err != nil {
		c.transition(op, StateUnauthenticated, nil)
		return err
	}

	if c.settleDelay > 0 {
		select {
		case <-time.After(c.settleDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	user, err := c.client.CurrentUser(ctx)
	if err == nil && user == nil {
		err = errors.New("login succeeded but no session was established")
	}
	if err != nil {
		c.transition(op, StateUnauthenticated, nil)
		return err
	}

	if c.transition(op, StateAuthenticated, user) {
		c.log.Info(ctx, "login succeeded", "username", user.Username)
		c.navigate(RouteDashboard)
	}
	return nil
}

// Logout ends the session. The remote call is best effort: its failure is
// logged, never propagated, and never blocks the local transition. From the
// user's point of view logout always succeeds.
func (c *Controller) Logout(ctx context.Context) {
	op := c.beginOp()

	if err := c.client.Logout(ctx); err != nil {
		c.log.Error(ctx, "logout cleanup failed", "error", err)
	}

	if c.transition(op, StateUnauthenticated, nil) {
		c.navigate(RouteLogin)
	}
}

// ForceLogout is a system-initiated logout (inactivity timeout,
// unrecoverable refresh failure). Same effect as Logout, with the trigger
// recorded.
func (c *Controller) ForceLogout(ctx context.Context, reason string) {
	c.log.Warn(ctx, "forcing logout", "reason", reason)
	c.Logout(ctx)
}
