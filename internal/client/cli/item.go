package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/dmitrijs2005/pmvault/internal/client/router"
	"github.com/dmitrijs2005/pmvault/internal/client/vault"
	"github.com/dmitrijs2005/pmvault/internal/common"
	"github.com/dmitrijs2005/pmvault/internal/filex"
	"github.com/dmitrijs2005/pmvault/internal/netx"
)

// downloadFn fetches a presigned export; replaced in tests.
var downloadFn = netx.DownloadPresigned

// printCredentials writes creds as a table. Passwords are only shown when
// reveal is set.
func (a *App) printCredentials(creds []vault.Credential, reveal bool) {
	if len(creds) == 0 {
		fmt.Fprintln(a.out, "no credentials")
		return
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	if reveal {
		fmt.Fprintln(tw, "ID\tDOMAIN\tUSERNAME\tPASSWORD\tDESCRIPTION")
	} else {
		fmt.Fprintln(tw, "ID\tDOMAIN\tUSERNAME\tDESCRIPTION")
	}
	for _, c := range creds {
		if reveal {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", c.ID, c.Domain, c.Username, c.Password, c.Description)
		} else {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.ID, c.Domain, c.Username, c.Description)
		}
	}
	tw.Flush()
}

// List prints every credential without passwords.
func (a *App) List(ctx context.Context) error {
	resp, err := a.send(ctx, router.Request{Type: router.TypeGetAll})
	if err != nil {
		return err
	}
	a.printCredentials(resp.Credentials, false)
	return nil
}

// Find prints the credentials matching a site, passwords included.
func (a *App) Find(ctx context.Context, site string) error {
	if site == "" {
		var err error
		if site, err = getSimpleText(a.reader, "Enter site URL or domain", a.out); err != nil {
			return err
		}
	}
	resp, err := a.send(ctx, router.Request{Type: router.TypeGetForDomain, URL: site})
	if err != nil {
		return err
	}
	a.printCredentials(resp.Credentials, true)
	return nil
}

func (a *App) Count(ctx context.Context, site string) error {
	if site == "" {
		var err error
		if site, err = getSimpleText(a.reader, "Enter site URL or domain", a.out); err != nil {
			return err
		}
	}
	resp, err := a.send(ctx, router.Request{Type: router.TypeCountForDomain, URL: site})
	if err != nil {
		return err
	}
	n := 0
	if resp.Count != nil {
		n = *resp.Count
	}
	fmt.Fprintf(a.out, "%d matching credentials\n", n)
	return nil
}

// Add collects a credential and stores it through the agent.
func (a *App) Add(ctx context.Context) error {
	site, err := getSimpleText(a.reader, "Enter site URL or domain", a.out)
	if err != nil {
		return err
	}
	userName, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out, "Site password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)
	description, err := getMultiline(a.reader, "Enter description", a.out)
	if err != nil {
		return err
	}

	resp, err := a.send(ctx, router.Request{
		Type:        router.TypeCreateCredential,
		URL:         site,
		Username:    userName,
		Password:    string(password),
		Description: description,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s (%s)\n", resp.Message, resp.Created.ID)
	return nil
}

// Save walks the capture flow: the credential is parked as a pending save
// in the agent, shown back, then confirmed or cancelled.
func (a *App) Save(ctx context.Context) error {
	site, err := getSimpleText(a.reader, "Enter site URL", a.out)
	if err != nil {
		return err
	}
	userName, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out, "Site password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if _, err := a.send(ctx, router.Request{Type: router.TypePromptToSave, URL: site, Username: userName, Password: string(password)}); err != nil {
		return err
	}

	resp, err := a.send(ctx, router.Request{Type: router.TypeGetPendingSaveData})
	if err != nil {
		return err
	}
	if resp.Pending == nil {
		fmt.Fprintln(a.out, "nothing to save")
		return nil
	}

	ok, err := confirm(a.reader, fmt.Sprintf("Save %s for %s?", resp.Pending.Username, resp.Pending.URL), a.out)
	if err != nil {
		return err
	}
	if !ok {
		resp, err = a.send(ctx, router.Request{Type: router.TypeCancelSave})
	} else {
		resp, err = a.send(ctx, router.Request{Type: router.TypeConfirmSave})
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, resp.Message)
	return nil
}

// Export asks the store for an encrypted export and prints its link. With
// a destination path the export is also downloaded there.
func (a *App) Export(ctx context.Context, dest string) error {
	resp, err := a.send(ctx, router.Request{Type: router.TypeExportVault})
	if err != nil {
		return err
	}
	e := resp.Export
	if e == nil {
		return nil
	}
	if dest == "" {
		fmt.Fprintf(a.out, "exported %d records, download until %s:\n%s\n", e.Count, e.ExpiresAt.Local().Format("15:04"), e.URL)
		return nil
	}

	body, err := downloadFn(ctx, e.URL)
	if err != nil {
		fmt.Fprintln(a.out, "error: download export:", err)
		return err
	}
	if err := filex.WritePrivate(dest, body); err != nil {
		fmt.Fprintln(a.out, "error:", err)
		return err
	}
	fmt.Fprintf(a.out, "exported %d records to %s\n", e.Count, dest)
	return nil
}
