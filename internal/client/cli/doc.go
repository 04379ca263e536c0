// Package cli provides the pmvault command line: the background agent and
// the interactive shell that talks to it.
//
// The shell holds no vault or session state of its own. Every command is a
// router request sent to the agent over its unix socket; the prompt shows
// what the agent last reported (user, vault lock state, store reachability).
//
// Commands are wired into cobra by NewRootCommand; the REPL loop is runREPL.
package cli
