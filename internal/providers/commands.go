package providers

import (
	"context"
	"os"
	"strings"

	"github.com/atinylittleshell/dyncomplete/internal/completion"
	"github.com/atinylittleshell/dyncomplete/internal/loader"
)

// osReadDir is a variable that can be overridden for testing.
var osReadDir = os.ReadDir

// Commands serves the executables found on $PATH. Scanning $PATH is slow, so
// the load runs in the background.
type Commands struct {
	// PathEnv returns the search path. Defaults to $PATH.
	PathEnv func() string
}

func (c *Commands) Name() string                       { return "commands" }
func (c *Commands) Variant() loader.Variant            { return loader.Static }
func (c *Commands) Categories() completion.CategorySet { return completion.NewCategorySet(CommandCategory) }
func (c *Commands) Async() bool                        { return true }

func (c *Commands) Load(ctx context.Context, _ loader.LoadRequest) (loader.Results, error) {
	pathEnv := os.Getenv("PATH")
	if c.PathEnv != nil {
		pathEnv = c.PathEnv()
	}
	return loader.Flat(completion.Items(availableCommands(ctx, pathEnv)...)...), nil
}

// availableCommands lists the executable files in every directory of
// pathEnv. Unreadable directories are skipped.
func availableCommands(ctx context.Context, pathEnv string) []string {
	if pathEnv == "" {
		return nil
	}

	commands := make(map[string]struct{})
	for _, dir := range strings.Split(pathEnv, string(os.PathListSeparator)) {
		if ctx.Err() != nil {
			break
		}
		entries, err := osReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			// On Unix-like systems, check if any execute bit is set
			info, err := entry.Info()
			if err != nil || info.Mode()&0111 == 0 {
				continue
			}
			commands[entry.Name()] = struct{}{}
		}
	}

	out := make([]string, 0, len(commands))
	for cmd := range commands {
		out = append(out, cmd)
	}
	return out
}
