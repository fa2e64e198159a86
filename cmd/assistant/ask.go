package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"tableau-assistant/internal/assistant"
	"tableau-assistant/internal/config"
	"tableau-assistant/internal/tableau"
)

var (
	askQuestion  string
	askWorksheet string
	askBackend   string
)

// debugTailLines bounds how much of the debug log /debug prints.
const debugTailLines = 20

func newAskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask",
		Short: "Ask questions about worksheet data",
		Long: `ask connects to the configured Tableau host, reads summary data from the
selected worksheet, and sends questions to a running backend.

Without --question an interactive prompt starts. End a line with \ to
continue the question on the next line; /cancel discards a continued
question.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&askQuestion, "question", "q", "", "Ask a single question and exit")
	cmd.Flags().StringVarP(&askWorksheet, "worksheet", "w", "", "Worksheet to read data from")
	cmd.Flags().StringVar(&askBackend, "backend", "", "Backend base URL (overrides config)")

	return cmd
}

func runAsk(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if askBackend != "" {
		cfg.Client.BackendURL = askBackend
	}
	if askWorksheet == "" {
		askWorksheet = cfg.Client.Worksheet
	}

	dlog := assistant.NewDebugLog(verbose)
	session := assistant.Connect(ctx, buildHost(cfg), dlog)

	ui := &consoleUI{out: os.Stdout}
	dispatcher := assistant.NewDispatcher(cfg.Client.BackendURL, session, ui, dlog)

	worksheet := resolveWorksheet(session, askWorksheet)

	if askQuestion != "" {
		if !dispatcher.Ask(ctx, askQuestion, worksheet) {
			os.Exit(1)
		}
		return nil
	}

	return interactiveLoop(ctx, session, dispatcher, dlog, worksheet, os.Stdin, os.Stdout)
}

// buildHost picks the host environment: a workbook file when configured,
// then Tableau Server, otherwise nil for disconnected mode.
func buildHost(cfg *config.Config) tableau.Host {
	if cfg.Tableau.WorkbookFile != "" {
		return tableau.NewWorkbookHost(cfg.Tableau.WorkbookFile)
	}
	if cfg.Tableau.ServerURL != "" {
		return tableau.NewRESTHost(tableau.RESTConfig{
			ServerURL:   cfg.Tableau.ServerURL,
			Site:        cfg.Tableau.Site,
			Workbook:    cfg.Tableau.Workbook,
			Username:    cfg.Tableau.Username,
			PATName:     cfg.Tableau.PATName,
			PATSecret:   cfg.Tableau.PATSecret,
			ClientID:    cfg.Tableau.ClientID,
			SecretID:    cfg.Tableau.SecretID,
			SecretValue: cfg.Tableau.SecretValue,
		})
	}
	return nil
}

// resolveWorksheet falls back to the dashboard's only worksheet when none
// was selected explicitly.
func resolveWorksheet(session *assistant.Session, name string) string {
	if name != "" {
		return name
	}
	if sheets := session.Worksheets(); len(sheets) == 1 {
		return sheets[0]
	}
	return ""
}

func interactiveLoop(ctx context.Context, session *assistant.Session, dispatcher *assistant.Dispatcher, dlog *assistant.DebugLog, worksheet string, in io.Reader, out io.Writer) error {
	if session.Connected() {
		fmt.Fprintf(out, "Connected to dashboard %q.\n", session.DashboardName())
		fmt.Fprintf(out, "Worksheets: %s\n", strings.Join(session.Worksheets(), ", "))
	} else {
		fmt.Fprintln(out, "No Tableau host configured; questions are sent without worksheet data.")
	}
	if worksheet != "" {
		fmt.Fprintf(out, "Reading data from worksheet %q.\n", worksheet)
	}
	fmt.Fprintln(out, `Type a question and press Enter. End a line with \ to continue it.`)
	fmt.Fprintln(out, "Commands: /sheets, /sheet <name>, /debug, /quit; /cancel discards a continued question")

	var composer assistant.Composer
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		if composer.Pending() {
			fmt.Fprint(out, "... ")
		} else {
			fmt.Fprint(out, "> ")
		}

		if !scanner.Scan() {
			break
		}
		line := scanner.Text()

		if composer.Pending() && strings.TrimSpace(line) == "/cancel" {
			composer.Reset()
			fmt.Fprintln(out, "Question discarded.")
			continue
		}

		if !composer.Pending() && strings.HasPrefix(line, "/") {
			if quit := runCommand(line, session, dlog, &worksheet, out); quit {
				return nil
			}
			continue
		}

		if strings.TrimSpace(line) == "" && !composer.Pending() {
			continue
		}

		question, ready := composer.Add(line)
		if !ready {
			continue
		}

		dispatcher.Ask(ctx, question, worksheet)
	}

	return scanner.Err()
}

// runCommand handles the /-prefixed loop commands. It reports whether the
// loop should exit.
func runCommand(line string, session *assistant.Session, dlog *assistant.DebugLog, worksheet *string, out io.Writer) bool {
	fields := strings.Fields(line)

	switch fields[0] {
	case "/quit", "/exit":
		return true
	case "/sheets":
		sheets := session.Worksheets()
		if len(sheets) == 0 {
			fmt.Fprintln(out, "No worksheets available.")
			break
		}
		for _, name := range sheets {
			marker := "  "
			if name == *worksheet {
				marker = "* "
			}
			fmt.Fprintln(out, marker+name)
		}
	case "/sheet":
		if len(fields) < 2 {
			fmt.Fprintln(out, "Usage: /sheet <name>")
			break
		}
		*worksheet = strings.Join(fields[1:], " ")
		fmt.Fprintf(out, "Reading data from worksheet %q.\n", *worksheet)
	case "/debug":
		for _, entry := range dlog.Tail(debugTailLines) {
			fmt.Fprintln(out, entry)
		}
	case "/cancel":
		fmt.Fprintln(out, "No continued question to discard.")
	default:
		fmt.Fprintf(out, "Unknown command %q.\n", fields[0])
	}

	return false
}

// consoleUI renders dispatcher output on the terminal. Input is only read
// between sends, so the sending flag needs no visual state here.
type consoleUI struct {
	out io.Writer
}

func (u *consoleUI) SetSending(sending bool) {}

func (u *consoleUI) SetStatus(status string) {
	fmt.Fprintln(u.out, status)
}

func (u *consoleUI) RenderResponse(text string) {
	fmt.Fprintln(u.out)
	fmt.Fprintln(u.out, text)
	fmt.Fprintln(u.out)
}
