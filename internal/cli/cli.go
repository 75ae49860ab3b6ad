// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdLogin
	CmdRegister
	CmdLogout
	CmdStatus
	CmdWhoami
	CmdProfile
	CmdDevServer
	CmdConfig
	CmdVersion
	CmdHelp
	CmdUnknown
)

// String returns the command name as typed.
func (c Command) String() string {
	switch c {
	case CmdTUI:
		return "tui"
	case CmdLogin:
		return "login"
	case CmdRegister:
		return "register"
	case CmdLogout:
		return "logout"
	case CmdStatus:
		return "status"
	case CmdWhoami:
		return "whoami"
	case CmdProfile:
		return "profile"
	case CmdDevServer:
		return "devserver"
	case CmdConfig:
		return "config"
	case CmdVersion:
		return "version"
	case CmdHelp:
		return "help"
	default:
		return "unknown"
	}
}

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	JSON    bool
	Verbose bool
	Quiet   bool

	// ConfigPath overrides the default config file (--config).
	ConfigPath string

	// APIURL overrides api.base_url (--api).
	APIURL string

	// Command-specific
	Subcommand string
	Name       string // unrecognised command, for the error message

	// Raw args after the command name
	Raw []string
}

const usageText = `ifscenter - terminal client for the IFScenter journal

Usage:
  ifscenter                      Start the TUI (default)
  ifscenter login [username]     Sign in and save the session token
  ifscenter register             Create an account
  ifscenter logout               Sign out and clear the saved token
  ifscenter status [--json]      Show the saved session
  ifscenter whoami               Show the signed-in user
  ifscenter profile --name NAME  Change your display name
  ifscenter devserver            Run the local stand-in backend
  ifscenter config [show|path|get KEY|init]
                                 Show or create the configuration
  ifscenter version              Show version information
  ifscenter help                 Show this help

Global flags:
  --config FILE    Use FILE instead of ~/.ifscenter/config.toml
  --api URL        Override api.base_url
  --json           Machine-readable output (status, whoami, version, config)
  -v, --verbose    Log to the console as well as the log file
  -q, --quiet      Suppress informational output

Login flags:
  --password-stdin Read the password from stdin instead of prompting

Devserver flags:
  --addr ADDR      Listen address (default devserver.addr)
  --refresh        Issue refresh tokens
  --confirm        Require e-mail confirmation after registering
  --ttl MINUTES    Access token lifetime

Environment:
  IFSCENTER_API_URL, IFSCENTER_STORAGE, IFSCENTER_LOG_LEVEL,
  IFSCENTER_IDLE_TIMEOUT, IFSCENTER_REDIS_URL

In the TUI:
  tab / shift+tab  Move between fields
  ctrl+r           Switch between sign in and create account
  e                Extend the session
  l                Sign out
  q, ctrl+c        Quit
`

// PrintUsage writes the help text to stdout.
func PrintUsage() {
	fmt.Print(usageText)
}

// PrintVersion writes version information to stdout.
func PrintVersion() {
	fmt.Printf("ifscenter %s (commit %s, built %s, %s/%s)\n",
		Version, GitCommit, BuildDate, runtime.GOOS, runtime.GOARCH)
}

// Parse parses os.Args.
func Parse() (Command, Args) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses argv (without the program name).
func ParseArgs(argv []string) (Command, Args) {
	remaining, parsed := parseGlobalFlags(argv)

	if len(remaining) == 0 {
		return CmdTUI, parsed
	}

	name := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	parsed.Raw = remaining
	if len(remaining) > 0 && !strings.HasPrefix(remaining[0], "-") {
		parsed.Subcommand = remaining[0]
	}

	switch name {
	case "tui":
		return CmdTUI, parsed
	case "login", "signin":
		return CmdLogin, parsed
	case "register", "signup":
		return CmdRegister, parsed
	case "logout", "signout":
		return CmdLogout, parsed
	case "status", "s":
		return CmdStatus, parsed
	case "whoami", "me":
		return CmdWhoami, parsed
	case "profile":
		return CmdProfile, parsed
	case "devserver", "dev":
		return CmdDevServer, parsed
	case "config":
		return CmdConfig, parsed
	case "version", "-v", "--version":
		return CmdVersion, parsed
	case "help", "-h", "--help":
		return CmdHelp, parsed
	default:
		parsed.Name = name
		return CmdUnknown, parsed
	}
}

// parseGlobalFlags extracts global flags from args and returns the rest.
func parseGlobalFlags(args []string) ([]string, Args) {
	var remaining []string
	var parsed Args

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--json":
			parsed.JSON = true
		case arg == "--verbose" || (arg == "-v" && len(remaining) > 0):
			// A bare -v before any command means --version.
			parsed.Verbose = true
		case arg == "-q" || arg == "--quiet":
			parsed.Quiet = true
		case arg == "--config" || arg == "--api":
			if i+1 < len(args) {
				i++
				if arg == "--config" {
					parsed.ConfigPath = args[i]
				} else {
					parsed.APIURL = args[i]
				}
			}
		case strings.HasPrefix(arg, "--config="):
			parsed.ConfigPath = strings.TrimPrefix(arg, "--config=")
		case strings.HasPrefix(arg, "--api="):
			parsed.APIURL = strings.TrimPrefix(arg, "--api=")
		default:
			remaining = append(remaining, arg)
		}
	}
	return remaining, parsed
}

// HandleVersion prints version information, as JSON with --json.
func HandleVersion(args Args) error {
	if args.JSON {
		return NewJSONResponse("version", map[string]string{
			"version":    Version,
			"git_commit": GitCommit,
			"build_date": BuildDate,
			"go_version": runtime.Version(),
			"os":         runtime.GOOS,
			"arch":       runtime.GOARCH,
		}).Print()
	}
	PrintVersion()
	return nil
}

// HandleHelp prints usage.
func HandleHelp() {
	PrintUsage()
}
