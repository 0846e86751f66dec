package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/authkeep/internal/client/session"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts for account details and creates the account. It does not
// log the user in.
func (a *App) Register(ctx context.Context) error {
	username, err := getSimpleText(a.reader, "Enter username", os.Stdout)
	if err != nil {
		return err
	}
	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}
	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}

	if err := a.client.Register(ctx, username, password, email); err != nil {
		printlnFn("Registration failed:", err.Error())
		return err
	}

	printlnFn("Registered. Use 'login' to sign in.")
	return nil
}

// Login prompts for credentials and asks the controller to authenticate.
// Failures are shown with the normalized service message.
func (a *App) Login(ctx context.Context) error {
	username, err := getSimpleText(a.reader, "Enter username", os.Stdout)
	if err != nil {
		return err
	}
	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}

	if err := a.controller.Login(ctx, username, password); err != nil {
		printlnFn("Login failed:", err.Error())
		return err
	}
	return nil
}

// Logout ends the session. It never fails from the user's point of view.
func (a *App) Logout(ctx context.Context) error {
	a.controller.Logout(ctx)
	return nil
}

// Whoami prints the current session state and identity.
func (a *App) Whoami(ctx context.Context) error {
	state, user := a.controller.State()
	if state != session.StateAuthenticated || user == nil {
		printlnFn("Not signed in (state:", state.String()+")")
		return nil
	}

	printlnFn(fmt.Sprintf("%s <%s>", user.Username, user.Email))
	if user.FirstName != "" || user.LastName != "" {
		printlnFn(user.FirstName, user.LastName)
	}
	return nil
}
