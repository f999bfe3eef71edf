package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/nickyhof/PrimitiveDB"
	"github.com/nickyhof/PrimitiveDB/core"
	"github.com/nickyhof/PrimitiveDB/db"
	"github.com/nickyhof/PrimitiveDB/ps"
	"github.com/nickyhof/PrimitiveDB/sql"
)

const (
	PromptColor  = "\033[36m" // Cyan
	ErrorColor   = "\033[31m" // Red
	SuccessColor = "\033[32m" // Green
	ResetColor   = "\033[0m"
	BoldColor    = "\033[1m"
)

// Version is set at build time via -ldflags
var Version = "dev"

// Flags are the command line options
type Flags struct {
	BaseDir string `name:"base-dir" short:"d" help:"Directory holding the data repository (memory only when empty)" type:"path"`
	GitURL  string `name:"git-url" help:"Clone the data repository from this URL when base-dir holds none yet"`
	File    string `name:"file" short:"f" help:"Run the commands in this file and exit" type:"existingfile"`
	Name    string `name:"name" default:"PrimitiveDB" help:"Author name recorded on every change"`
	Email   string `name:"email" default:"cli@primitivedb.local" help:"Author email recorded on every change"`
	Yes     bool   `name:"yes" short:"y" help:"Do not ask before drop_table and delete"`

	LogLevel  string `name:"log-level" default:"warn" enum:"debug,info,warn,error" help:"Log level (debug, info, warn, error)"`
	LogFormat string `name:"log-format" default:"text" enum:"text,json" help:"Log format (text, json)"`

	S3Region    string `name:"s3-region" env:"AWS_REGION" help:"Region for s3:// import and export"`
	S3Endpoint  string `name:"s3-endpoint" env:"AWS_ENDPOINT_URL_S3" help:"S3-compatible endpoint"`
	S3AccessKey string `name:"s3-access-key" env:"AWS_ACCESS_KEY_ID" help:"S3 access key"`
	S3SecretKey string `name:"s3-secret-key" env:"AWS_SECRET_ACCESS_KEY" help:"S3 secret key"`

	GitToken  string `name:"git-token" env:"PRIMITIVEDB_GIT_TOKEN" help:"Token for push and pull over HTTPS"`
	GitSSHKey string `name:"git-ssh-key" type:"path" help:"SSH private key for push and pull"`

	Version kong.VersionFlag `name:"version" help:"Print version information and exit"`
}

// CLI holds the CLI state
type CLI struct {
	engine      *db.Engine
	in          *bufio.Reader
	out         io.Writer
	history     []string
	historyFile string
	assumeYes   bool
}

func main() {
	var flags Flags
	kong.Parse(&flags,
		kong.Name("primitivedb"),
		kong.Description("A small Git-backed table store driven by a line-oriented command language"),
		kong.UsageOnError(),
		kong.Vars{"version": Version},
	)

	slog.SetDefault(newLogger(os.Stderr, flags.LogLevel, flags.LogFormat))

	instance, err := open(flags)
	if err != nil {
		fmt.Printf("%sError: %v%s\n", ErrorColor, err, ResetColor)
		os.Exit(1)
	}

	engine := instance.Engine(core.Identity{
		Name:  flags.Name,
		Email: flags.Email,
	})
	engine.S3 = db.S3Config{
		Region:    flags.S3Region,
		Endpoint:  flags.S3Endpoint,
		AccessKey: flags.S3AccessKey,
		SecretKey: flags.S3SecretKey,
	}
	engine.GitAuth = gitAuth(flags)

	cli := NewCLI(engine, os.Stdin, os.Stdout)
	cli.assumeYes = flags.Yes

	if flags.File != "" {
		if err := cli.importFile(flags.File); err != nil {
			fmt.Printf("%sError running file: %v%s\n", ErrorColor, err, ResetColor)
			os.Exit(1)
		}
		return
	}

	cli.historyFile = getHistoryPath()
	cli.loadHistory()

	printBanner(cli.out)
	cli.run()
	cli.saveHistory()
}

func open(flags Flags) (*PrimitiveDB.Instance, error) {
	if flags.BaseDir == "" {
		slog.Info("using memory persistence")
		persistence, err := ps.NewMemoryPersistence()
		if err != nil {
			return nil, err
		}
		return PrimitiveDB.Open(persistence), nil
	}

	slog.Info("using file persistence", "base_dir", flags.BaseDir)
	var gitURL *string
	if flags.GitURL != "" {
		gitURL = &flags.GitURL
	}
	persistence, err := ps.NewFilePersistence(flags.BaseDir, gitURL)
	if err != nil {
		return nil, err
	}
	return PrimitiveDB.Open(persistence), nil
}

func gitAuth(flags Flags) *ps.RemoteAuth {
	switch {
	case flags.GitToken != "":
		return &ps.RemoteAuth{Type: ps.AuthTypeToken, Token: flags.GitToken}
	case flags.GitSSHKey != "":
		return &ps.RemoteAuth{Type: ps.AuthTypeSSH, KeyPath: flags.GitSSHKey}
	default:
		return nil
	}
}

// newLogger builds the process logger. Unknown levels fall back to warn.
func newLogger(w io.Writer, level, format string) *slog.Logger {
	var slogLevel slog.Level
	if err := slogLevel.UnmarshalText([]byte(level)); err != nil {
		slogLevel = slog.LevelWarn
	}

	opts := &slog.HandlerOptions{
		Level: slogLevel,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.String(slog.TimeKey, a.Value.Time().Format(time.RFC3339))
			}
			return a
		},
	}

	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func NewCLI(engine *db.Engine, in io.Reader, out io.Writer) *CLI {
	return &CLI{
		engine:  engine,
		in:      bufio.NewReader(in),
		out:     out,
		history: make([]string, 0),
	}
}

func printBanner(w io.Writer) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s%sPrimitiveDB v%s%s\n", BoldColor, PromptColor, Version, ResetColor)
	fmt.Fprintln(w, "Type help for commands, exit to quit")
	fmt.Fprintln(w)
}

func (cli *CLI) run() {
	for {
		fmt.Fprintf(cli.out, "%sprimitivedb>%s ", PromptColor, ResetColor)

		input, err := cli.readLine()
		if err != nil {
			fmt.Fprintf(cli.out, "\n%sGoodbye!%s\n", SuccessColor, ResetColor)
			return
		}

		command := strings.TrimSuffix(strings.TrimSpace(input), ";")
		if command == "" {
			continue
		}

		cli.addToHistory(command)

		if !cli.handleBuiltin(command) {
			fmt.Fprintf(cli.out, "%sGoodbye!%s\n", SuccessColor, ResetColor)
			return
		}
	}
}

func (cli *CLI) readLine() (string, error) {
	line, err := cli.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// handleBuiltin runs one line, returning false when the loop should stop.
func (cli *CLI) handleBuiltin(command string) bool {
	parts := strings.Fields(command)

	switch strings.ToLower(parts[0]) {
	case "exit", "quit", ".exit", ".quit", ".q":
		return false

	case "help", ".help", ".h", "?":
		cli.printHelp()

	case ".history":
		cli.printHistory()

	case ".clear", ".cls":
		fmt.Fprint(cli.out, "\033[H\033[2J")

	case ".version":
		fmt.Fprintf(cli.out, "PrimitiveDB version %s\n", Version)

	case ".import", ".run":
		if len(parts) < 2 {
			fmt.Fprintf(cli.out, "%s✗ Usage: .run <file>%s\n", ErrorColor, ResetColor)
			break
		}
		if err := cli.importFile(parts[1]); err != nil {
			fmt.Fprintf(cli.out, "%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)
		}

	default:
		if !cli.confirm(command) {
			fmt.Fprintln(cli.out, "Cancelled")
			break
		}
		cli.execute(command)
	}

	return true
}

func (cli *CLI) execute(command string) {
	result, err := cli.engine.Execute(command)
	if err != nil {
		fmt.Fprintf(cli.out, "%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)
		return
	}
	result.Display(cli.out)
}

// confirm asks before destructive commands. Lines that do not parse are
// let through so the engine reports the syntax error.
func (cli *CLI) confirm(command string) bool {
	if cli.assumeYes {
		return true
	}

	statement, err := sql.NewParser(command).Parse()
	if err != nil {
		return true
	}

	var question string
	switch s := statement.(type) {
	case sql.DropTableStatement:
		question = fmt.Sprintf("Drop table %s and all its records?", s.Table)
	case sql.DeleteStatement:
		question = fmt.Sprintf("Delete records from %s where %s?", s.Table, s.Where)
	default:
		return true
	}

	fmt.Fprintf(cli.out, "%s [y/N] ", question)
	answer, err := cli.readLine()
	if err != nil {
		return false
	}

	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

func (cli *CLI) printHelp() {
	w := cli.out
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s%sCommands:%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Fprintln(w, "  create_table <table> <column:type> ...      types: int, bool, str")
	fmt.Fprintln(w, "  drop_table <table>")
	fmt.Fprintln(w, "  list_tables")
	fmt.Fprintln(w, "  info <table>")
	fmt.Fprintln(w, "  insert into <table> values (<value>, ...)")
	fmt.Fprintln(w, "  select from <table> [where <column> = <value>]")
	fmt.Fprintln(w, "  update <table> set <column> = <value>[, ...] where <column> = <value>")
	fmt.Fprintln(w, "  delete from <table> where <column> = <value>")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s%sVersioning:%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Fprintln(w, "  history [<n>]                 Show the last n transactions")
	fmt.Fprintln(w, "  snapshot <name>               Name the current state")
	fmt.Fprintln(w, "  restore <transaction|name>    Bring all tables back to an earlier state")
	fmt.Fprintln(w, "  add_remote [<name>] <url>     Configure a Git remote")
	fmt.Fprintln(w, "  list_remotes")
	fmt.Fprintln(w, "  push [<remote>], pull [<remote>]")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s%sData transfer:%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Fprintln(w, "  export <table> <path|file://|s3://>[.xz]")
	fmt.Fprintln(w, "  import <table> <path|file://|http(s)://|s3://>[.xz]")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s%sShell:%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Fprintln(w, "  help           Show this help message")
	fmt.Fprintln(w, "  exit, quit     Leave the shell")
	fmt.Fprintln(w, "  .run <file>    Run commands from a file")
	fmt.Fprintln(w, "  .history       Show command history")
	fmt.Fprintln(w, "  .clear         Clear the screen")
	fmt.Fprintln(w, "  .version       Show version info")
	fmt.Fprintln(w)
}

const maxHistory = 1000

func (cli *CLI) addToHistory(cmd string) {
	if len(cli.history) > 0 && cli.history[len(cli.history)-1] == cmd {
		return
	}
	cli.history = append(cli.history, cmd)

	if len(cli.history) > maxHistory {
		cli.history = cli.history[len(cli.history)-maxHistory:]
	}
}

func (cli *CLI) printHistory() {
	if len(cli.history) == 0 {
		fmt.Fprintln(cli.out, "No command history")
		return
	}

	start := max(0, len(cli.history)-20)
	for i := start; i < len(cli.history); i++ {
		fmt.Fprintf(cli.out, "  %3d  %s\n", i+1, cli.history[i])
	}
}

func getHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".primitivedb_history")
}

func (cli *CLI) loadHistory() {
	if cli.historyFile == "" {
		return
	}

	file, err := os.Open(cli.historyFile)
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		cli.history = append(cli.history, scanner.Text())
	}
}

func (cli *CLI) saveHistory() {
	if cli.historyFile == "" {
		return
	}

	file, err := os.Create(cli.historyFile)
	if err != nil {
		slog.Warn("could not save history", "file", cli.historyFile, "error", err)
		return
	}
	defer file.Close()

	start := max(0, len(cli.history)-maxHistory)
	for _, cmd := range cli.history[start:] {
		_, _ = file.WriteString(cmd + "\n")
	}
}

// importFile runs every command in a file without confirmation prompts.
// Failed commands are reported and skipped.
func (cli *CLI) importFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	successCount := 0
	errorCount := 0

	for i, command := range splitCommands(string(data)) {
		result, err := cli.engine.Execute(command)
		if err != nil {
			fmt.Fprintf(cli.out, "%s[%d] ✗ %s%s\n", ErrorColor, i+1, truncate(command, 50), ResetColor)
			fmt.Fprintf(cli.out, "      Error: %v\n", err)
			errorCount++
			continue
		}

		successCount++
		switch r := result.(type) {
		case db.QueryResult:
			fmt.Fprintf(cli.out, "%s[%d] ✓ %s (%d rows)%s\n", SuccessColor, i+1, truncate(command, 50), r.RecordsRead, ResetColor)
			r.Display(cli.out)
		default:
			fmt.Fprintf(cli.out, "%s[%d] ✓ %s%s\n", SuccessColor, i+1, truncate(command, 50), ResetColor)
		}
	}

	fmt.Fprintf(cli.out, "\n%s✓ Done: %d succeeded, %d failed%s\n",
		SuccessColor, successCount, errorCount, ResetColor)

	return nil
}

// splitCommands returns one command per non-blank line. Lines starting with
// "--" or "#" are comments and a trailing ";" is ignored.
func splitCommands(content string) []string {
	var commands []string

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "--") || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimSuffix(line, ";"))
		if line != "" {
			commands = append(commands, line)
		}
	}

	return commands
}

// truncate shortens a string to limit runes with ellipsis
func truncate(s string, limit int) string {
	s = strings.ReplaceAll(s, "\t", " ")
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-3]) + "..."
}
