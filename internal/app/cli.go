package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/modicscan/syncengine/internal/common"
	"github.com/modicscan/syncengine/internal/syncer"
)

// readPassword is a test seam for term.ReadPassword.
// In tests you can replace it with a stub to avoid touching the terminal.
var readPassword = term.ReadPassword

// getSimpleText prints a prompt to w and reads a single line of input from
// reader. The trailing newline is trimmed; on EOF a partial line is returned.
func getSimpleText(reader *bufio.Reader, prompt string, w io.Writer) (string, error) {
	if _, err := fmt.Fprint(w, prompt+"\n> "); err != nil {
		return "", err
	}
	line, err := reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// getPassword reads a password from the terminal without echo.
// The returned slice should be wiped by the caller when no longer needed.
func getPassword(w io.Writer) ([]byte, error) {
	if _, err := fmt.Fprint(w, "Enter password: "); err != nil {
		return nil, err
	}
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return nil, err
	}
	return pw, nil
}

// SignUpCommand registers a new account interactively. Registration works
// offline: the account is queued locally and migrated on the next sync.
func (app *App) SignUpCommand(ctx context.Context) {
	reader := bufio.NewReader(os.Stdin)

	email, err := getSimpleText(reader, "Enter email", os.Stdout)
	if err != nil {
		fmt.Println(err.Error())
		return
	}
	displayName, err := getSimpleText(reader, "Enter display name", os.Stdout)
	if err != nil {
		fmt.Println(err.Error())
		return
	}
	password, err := getPassword(os.Stdout)
	if err != nil {
		fmt.Println(err.Error())
		return
	}
	defer common.WipeByteArray(password)

	out, err := app.reconciler.SignUp(ctx, email, string(password), displayName, app.Online())
	if err != nil {
		fmt.Println(err.Error())
		return
	}

	if out.RemoteLinked {
		fmt.Println("Account created.")
	} else {
		fmt.Println("Account queued locally; it will be registered on the next sync.")
	}
}

// LoginCommand signs in interactively, online when possible and against the
// local credential cache otherwise.
func (app *App) LoginCommand(ctx context.Context) {
	reader := bufio.NewReader(os.Stdin)

	email, err := getSimpleText(reader, "Enter email", os.Stdout)
	if err != nil {
		fmt.Println(err.Error())
		return
	}
	password, err := getPassword(os.Stdout)
	if err != nil {
		fmt.Println(err.Error())
		return
	}
	defer common.WipeByteArray(password)

	out, err := app.reconciler.Login(ctx, email, string(password), app.Online())
	if err != nil {
		fmt.Println(err.Error())
		return
	}

	fmt.Printf("Signed in as %s\n", out.Email)
	if !out.RemoteLinked {
		fmt.Println("(offline session: remote verification pending)")
	}
}

// StatusCommand prints the pending work counts and the current session.
func (app *App) StatusCommand(ctx context.Context) {
	counts, err := app.store.CountPending(ctx)
	if err != nil {
		fmt.Println(err.Error())
		return
	}

	ownerID, email, err := app.reconciler.Session().Load(ctx)
	if err != nil {
		fmt.Println(err.Error())
		return
	}

	if ownerID == "" {
		fmt.Println("Session: none")
	} else {
		fmt.Printf("Session: %s (%s)\n", email, ownerID)
	}
	fmt.Printf("Pending identities: %d\n", counts.Identities)
	fmt.Printf("Pending records:    %d\n", counts.Records)
	fmt.Printf("Pending uploads:    %d\n", counts.Uploads)
	fmt.Printf("Pending signups:    %d\n", counts.Signups)
	fmt.Printf("Last run state:     %s\n", app.orch.State())
}

// SyncCommand runs one synchronization pass in the foreground.
func (app *App) SyncCommand(ctx context.Context, scope syncer.Scope) {
	state, err := app.orch.Run(ctx, scope)
	if err != nil {
		fmt.Printf("Sync finished with state %s: %s\n", state, err.Error())
		return
	}
	fmt.Printf("Sync finished with state %s\n", state)
}
