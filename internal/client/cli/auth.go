package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/pmvault/internal/client/router"
	"github.com/dmitrijs2005/pmvault/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Signup creates an account. An empty master password makes the account
// password double as the master password.
func (a *App) Signup(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out, "Account password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	master, err := getPassword(a.out, "Master password (empty to reuse the account password)")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(master)

	resp, err := a.send(ctx, router.Request{
		Type:           router.TypeSignup,
		Username:       userName,
		Password:       string(password),
		MasterPassword: string(master),
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, resp.Message)
	return nil
}

// Login authenticates with the credential store. An empty TTL uses the
// saved default.
func (a *App) Login(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out, "Account password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	ttlText, err := getSimpleText(a.reader, "Session length in minutes (empty for default)", a.out)
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

	resp, err := a.send(ctx, router.Request{Type: router.TypeLogin, Username: userName, Password: string(password), TTL: ttl})
	if err != nil {
		return err
	}
	a.setStatus(resp.Status)
	fmt.Fprintln(a.out, resp.Message)
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	resp, err := a.send(ctx, router.Request{Type: router.TypeLogout})
	if err != nil {
		return err
	}
	a.setStatus(&router.Status{})
	fmt.Fprintln(a.out, resp.Message)
	return nil
}

func (a *App) Unlock(ctx context.Context) error {
	master, err := getPassword(a.out, "Master password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(master)

	resp, err := a.send(ctx, router.Request{Type: router.TypeUnlockVault, MasterPassword: string(master)})
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.unlocked = true
	a.mu.Unlock()
	fmt.Fprintln(a.out, resp.Message)
	return nil
}

func (a *App) Lock(ctx context.Context) error {
	resp, err := a.send(ctx, router.Request{Type: router.TypeLockVault})
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.unlocked = false
	a.mu.Unlock()
	fmt.Fprintln(a.out, resp.Message)
	return nil
}

// Status prints the agent's view of the session.
func (a *App) Status(ctx context.Context) error {
	resp, err := a.send(ctx, router.Request{Type: router.TypeGetStatus})
	if err != nil {
		return err
	}
	st := resp.Status
	a.setStatus(st)

	switch {
	case st == nil:
	case !st.LoggedIn:
		fmt.Fprintln(a.out, "not logged in")
	default:
		fmt.Fprintf(a.out, "logged in as %s", st.Username)
		if st.ExpiresAt != nil {
			fmt.Fprintf(a.out, " until %s", st.ExpiresAt.Local().Format("15:04:05"))
		}
		if st.VaultUnlocked {
			fmt.Fprintln(a.out, ", vault unlocked")
		} else {
			fmt.Fprintln(a.out, ", vault locked")
		}
	}
	return nil
}
