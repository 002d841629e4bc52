package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/dmitrijs2005/cubicd/internal/client/client"
	"github.com/dmitrijs2005/cubicd/internal/client/config"
)

// isTerminal is a test seam for term.IsTerminal.
var isTerminal = term.IsTerminal

type App struct {
	config *config.Config
	client *client.Client
	in     io.Reader
	out    io.Writer
	pretty bool
}

func NewApp(c *config.Config) (*App, error) {
	if c.ServerURL == "" {
		return nil, fmt.Errorf("server url is empty")
	}
	return &App{
		config: c,
		client: client.New(c.ServerURL, c.Timeout),
		in:     os.Stdin,
		out:    os.Stdout,
		pretty: isTerminal(int(os.Stdout.Fd())),
	}, nil
}

// Run executes the command from the command line, or reads commands from
// stdin when there is none.
func (app *App) Run(ctx context.Context) error {
	if len(app.config.Args) > 0 {
		return app.Exec(ctx, app.config.Args)
	}

	interactive := false
	if f, ok := app.in.(*os.File); ok {
		interactive = isTerminal(int(f.Fd()))
	}

	prompt := ""
	if interactive {
		fmt.Fprintln(app.out, "cubicctl (type 'help' for commands)")
		prompt = "cubic> "
	}
	runREPL(ctx, app, prompt, bufio.NewScanner(app.in), app.out)
	return nil
}

func (app *App) printJSON(v any) error {
	enc := json.NewEncoder(app.out)
	if app.pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
