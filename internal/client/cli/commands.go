package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/cubicd/internal/server/settings"
)

const usage = `Available commands:
  config                 show device configuration
  set key=value...       update configuration (keys: timezone, ntp)
  ntp                    show timezone and NTP host
  time                   show device clock
  wifi                   show Wi-Fi status
  ls                     list stored files
  put <local> [name]     upload a file
  get <path> [local]     download a file (stdout when local is omitted)
  rm <path>              delete a stored file
  exit | quit            leave`

var errUsage = errors.New("usage")

// Exec runs one command.
func (app *App) Exec(ctx context.Context, args []string) error {
	cmd, rest := args[0], args[1:]

	switch cmd {
	case "help":
		fmt.Fprintln(app.out, usage)
		return nil
	case "config":
		v, err := app.client.Config(ctx)
		if err != nil {
			return err
		}
		return app.printJSON(v)
	case "set":
		return app.set(ctx, rest)
	case "ntp":
		v, err := app.client.NTP(ctx)
		if err != nil {
			return err
		}
		return app.printJSON(v)
	case "time":
		v, err := app.client.Time(ctx)
		if err != nil {
			return err
		}
		return app.printJSON(v)
	case "wifi":
		v, err := app.client.WiFi(ctx)
		if err != nil {
			return err
		}
		return app.printJSON(v)
	case "ls", "list":
		v, err := app.client.List(ctx)
		if err != nil {
			return err
		}
		return app.printJSON(v)
	case "put":
		return app.put(ctx, rest)
	case "get":
		return app.get(ctx, rest)
	case "rm", "delete":
		if len(rest) != 1 {
			return fmt.Errorf("%w: rm <path>", errUsage)
		}
		ok, err := app.client.Delete(ctx, rest[0])
		if err != nil {
			return err
		}
		return app.printJSON(map[string]bool{"ok": ok})
	default:
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

func (app *App) set(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: set timezone=<tz> ntp=<host>", errUsage)
	}

	var p settings.Patch
	for _, kv := range args {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("%w: expected key=value, got %q", errUsage, kv)
		}
		switch k {
		case "timezone", "tz":
			p.Timezone = &v
		case "ntp":
			p.NTP = &v
		default:
			return fmt.Errorf("unknown setting %q", k)
		}
	}

	if err := app.client.SetConfig(ctx, p); err != nil {
		return err
	}
	return app.printJSON(map[string]bool{"ok": true})
}

func (app *App) put(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("%w: put <local> [name]", errUsage)
	}

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	name := filepath.Base(args[0])
	if len(args) == 2 {
		name = args[1]
	}

	if err := app.client.Upload(ctx, name, f); err != nil {
		return err
	}
	return app.printJSON(map[string]bool{"ok": true})
}

func (app *App) get(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("%w: get <path> [local]", errUsage)
	}
	if len(args) == 1 {
		_, err := app.client.Fetch(ctx, args[0], app.out)
		return err
	}

	f, err := os.Create(args[1])
	if err != nil {
		return err
	}
	if _, err := app.client.Fetch(ctx, args[0], f); err != nil {
		_ = f.Close()
		_ = os.Remove(args[1])
		return err
	}
	return f.Close()
}
