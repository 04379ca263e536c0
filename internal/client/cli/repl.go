package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	isUnlocked() bool
	Signup(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Unlock(ctx context.Context) error
	Lock(ctx context.Context) error
	Status(ctx context.Context) error
	List(ctx context.Context) error
	Find(ctx context.Context, site string) error
	Count(ctx context.Context, site string) error
	Add(ctx context.Context) error
	Save(ctx context.Context) error
	Export(ctx context.Context, dest string) error
	Settings(ctx context.Context) error
	Configure(ctx context.Context) error
	Ping(ctx context.Context) error
}

// runREPL starts a simple read–eval–print loop for the pmvault shell.
//
// It reads a line from reader, parses the first token as the command, and
// dispatches to methods on 'a'. The loop exits on EOF, when ctx is done or
// when the user types "exit" or "quit". Commands read their own prompts
// from the same reader.
//
// Any errors returned by command handlers are ignored here; handlers print
// their own errors. This keeps the REPL loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for ctx.Err() == nil {
		printlnFn(fmt.Sprintf("pm %s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]
		arg := ""
		if len(parts) > 1 {
			arg = parts[1]
		}

		switch cmd {
		case "help":
			printlnFn(help(a))

		case "signup", "register":
			_ = a.Signup(ctx)
		case "login":
			_ = a.Login(ctx)
		case "logout":
			_ = a.Logout(ctx)
		case "status":
			_ = a.Status(ctx)

		case "unlock":
			_ = a.Unlock(ctx)
		case "lock":
			_ = a.Lock(ctx)
		case "l", "list":
			_ = a.List(ctx)
		case "find", "show":
			_ = a.Find(ctx, arg)
		case "count":
			_ = a.Count(ctx, arg)
		case "add":
			_ = a.Add(ctx)
		case "save":
			_ = a.Save(ctx)
		case "export":
			_ = a.Export(ctx, arg)

		case "config":
			_ = a.Settings(ctx)
		case "setconfig":
			_ = a.Configure(ctx)
		case "ping":
			_ = a.Ping(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}

func help(a execIface) string {
	switch {
	case !a.isLoggedIn():
		return "Available commands: signup, login, status, config, setconfig, ping, exit"
	case !a.isUnlocked():
		return "Available commands: unlock, export [file], status, logout, config, setconfig, ping, exit"
	}
	return "Available commands: (l)ist, find <site>, count <site>, add, save, lock, export [file], status, logout, config, setconfig, ping, exit"
}
