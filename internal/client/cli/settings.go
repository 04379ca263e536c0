package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/pmvault/internal/client/router"
)

var getMultiline = GetMultiline
var confirm = Confirm

// Settings prints the saved store address and session length.
func (a *App) Settings(ctx context.Context) error {
	resp, err := a.send(ctx, router.Request{Type: router.TypeGetConfig})
	if err != nil {
		return err
	}
	if c := resp.Config; c != nil {
		fmt.Fprintf(a.out, "store: %s\nsession length: %d min\n", c.API, c.TTL)
	}
	return nil
}

// Configure changes the store address and/or the default session length.
// Empty answers keep the current value.
func (a *App) Configure(ctx context.Context) error {
	api, err := getSimpleText(a.reader, "Credential store address (empty to keep)", a.out)
	if err != nil {
		return err
	}
	ttlText, err := getSimpleText(a.reader, "Session length in minutes (empty to keep)", a.out)
	if err != nil {
		return err
	}
	ttl := 0
	if ttlText != "" {
		if ttl, err = strconv.Atoi(ttlText); err != nil {
			fmt.Fprintf(a.out, "error: %q is not a number\n", ttlText)
			return err
		}
	}

	resp, err := a.send(ctx, router.Request{Type: router.TypeSaveConfig, API: api, TTL: ttl})
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, resp.Message)
	return nil
}

// Ping checks that the agent can reach the credential store.
func (a *App) Ping(ctx context.Context) error {
	resp, err := a.send(ctx, router.Request{Type: router.TypeAPIHealthCheck})
	if err != nil {
		a.setMode(ModeOffline)
		return err
	}
	a.setMode(ModeOnline)
	fmt.Fprintln(a.out, resp.Message)
	return nil
}
