package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/alkime/journal/internal/audio"
	"github.com/alkime/journal/internal/config"
	"github.com/alkime/journal/internal/entry"
	"github.com/alkime/journal/internal/keyring"
	"github.com/alkime/journal/internal/logger"
	"github.com/alkime/journal/internal/tui"
	"github.com/alkime/journal/internal/workdir"
	"github.com/alkime/journal/pkg/collections"
	tea "github.com/charmbracelet/bubbletea"
)

// CLI defines the voice command structure.
type CLI struct {
	// Default TUI command (runs when no subcommand given)
	Record RecordCmd `cmd:"" default:"withargs" help:"Record a voice journal entry"`

	// Subcommands
	Devices DevicesCmd `cmd:"" help:"List available audio devices"`
	Config  ConfigCmd  `cmd:"" help:"Manage configuration"`
	Entry   EntryCmd   `cmd:"" help:"Manage saved entries"`
}

// RecordCmd is the default command that runs the TUI.
type RecordCmd struct {
	User string `flag:"" optional:"" help:"Journal owner (overrides JOURNAL_USER)"`
}

// Run executes the record command.
func (c *RecordCmd) Run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if c.User != "" {
		cfg.JournalUser = c.User
	}

	dir, err := workdir.Prep()
	if err != nil {
		return fmt.Errorf("failed to prepare working directory: %w", err)
	}

	// The terminal belongs to the UI; logs go to a rotated file.
	log, closer := logger.SetupFileLogger(cfg, dir)
	defer closer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec, err := newRecorder(cfg, log)
	if err != nil {
		return err
	}
	defer rec.Close(context.WithoutCancel(ctx))

	log.Info("Starting recorder", "user", cfg.JournalUser, "api", cfg.APIBaseURL)

	p := tea.NewProgram(tui.New(ctx, tui.Config{
		Start: func(ctx context.Context) (tui.Session, error) {
			s, err := rec.sessions.Start(ctx, cfg.JournalUser)
			if err != nil {
				return nil, err
			}

			return s, nil
		},
		Cancel: cancel,
	}))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("failed to start TUI: %w", err)
	}

	fmt.Println("\nfinished. bye!")

	return nil
}

// DevicesCmd lists available audio devices.
type DevicesCmd struct{}

// Run executes the devices command.
func (dcmd *DevicesCmd) Run() error {
	slog.Info("Enumerating audio devices...")

	devices, err := audio.EnumerateDevices(context.Background())
	if err != nil {
		return fmt.Errorf("failed to enumerate audio devices: %w", err)
	}

	for _, dev := range devices {
		slog.Info("Audio Device",
			"name", dev.Name,
			"isDefault", dev.IsDefault,
			"formats", dev.Formats,
		)
	}

	return nil
}

// ConfigCmd groups configuration-related subcommands.
type ConfigCmd struct {
	SetKey   SetKeyCmd   `cmd:"" help:"Store an API key in system keychain"`
	ListKeys ListKeysCmd `cmd:"" name:"list-keys" help:"Show which API keys are configured"`
}

// SetKeyCmd stores an API key in the system keychain.
type SetKeyCmd struct {
	Service string `arg:"" enum:"openai,anthropic,deepgram" help:"Service name (openai, anthropic or deepgram)"`
	Secret  string `arg:"" help:"API key value"`
}

// Run executes the set-key command.
func (c *SetKeyCmd) Run() error {
	if strings.TrimSpace(c.Secret) == "" {
		return errors.New("API key cannot be empty")
	}

	apiKey, err := keyring.APIKeyFromServiceName(c.Service)
	if err != nil {
		return fmt.Errorf("invalid service: %w", err)
	}

	if err := keyring.Set(apiKey, c.Secret); err != nil {
		return fmt.Errorf("failed to store API key: %w", err)
	}

	fmt.Printf("%s API key stored in keychain\n", c.Service)

	return nil
}

// ListKeysCmd shows which API keys are configured.
type ListKeysCmd struct{}

// Run executes the list-keys command.
//
//nolint:unparam // error return required by Kong interface
func (c *ListKeysCmd) Run() error {
	missing := collections.Filter(keyring.AllAPIKeys(), func(k keyring.APIKey) bool {
		return os.Getenv(k.EnvVar()) == "" && !keyring.IsSet(k)
	})

	for _, apiKey := range keyring.AllAPIKeys() {
		switch {
		case os.Getenv(apiKey.EnvVar()) != "":
			fmt.Printf("%s: configured (%s)\n", apiKey.DisplayName(), apiKey.EnvVar())
		case keyring.IsSet(apiKey):
			fmt.Printf("%s: configured\n", apiKey.DisplayName())
		default:
			fmt.Printf("%s: not set\n", apiKey.DisplayName())
		}
	}

	if len(missing) > 0 {
		fmt.Println("\nRun 'voice config set-key <service> <key>' to configure.")
	}

	return nil
}

// EntryCmd groups commands against saved entries.
type EntryCmd struct {
	Lock   EntryLockCmd   `cmd:"" help:"Lock an entry against edits"`
	Unlock EntryUnlockCmd `cmd:"" help:"Unlock an entry"`
	Delete EntryDeleteCmd `cmd:"" help:"Delete an entry and its audio"`
}

// EntryLockCmd locks an entry.
type EntryLockCmd struct {
	ID string `arg:"" help:"Entry ID"`
}

// Run executes the lock command.
func (c *EntryLockCmd) Run() error {
	return withStore(func(ctx context.Context, store *entry.Store) error {
		e, err := store.Lock(ctx, c.ID)
		if err != nil {
			return fmt.Errorf("failed to lock entry: %w", err)
		}

		fmt.Printf("entry %s locked\n", e.ID)

		return nil
	})
}

// EntryUnlockCmd unlocks an entry.
type EntryUnlockCmd struct {
	ID string `arg:"" help:"Entry ID"`
}

// Run executes the unlock command.
func (c *EntryUnlockCmd) Run() error {
	return withStore(func(ctx context.Context, store *entry.Store) error {
		e, err := store.Unlock(ctx, c.ID)
		if err != nil {
			return fmt.Errorf("failed to unlock entry: %w", err)
		}

		fmt.Printf("entry %s unlocked\n", e.ID)

		return nil
	})
}

// EntryDeleteCmd deletes an entry.
type EntryDeleteCmd struct {
	ID string `arg:"" help:"Entry ID"`
}

// Run executes the delete command.
func (c *EntryDeleteCmd) Run() error {
	return withStore(func(ctx context.Context, store *entry.Store) error {
		if err := store.Delete(ctx, c.ID); err != nil {
			return fmt.Errorf("failed to delete entry: %w", err)
		}

		fmt.Printf("entry %s deleted\n", c.ID)

		return nil
	})
}

func withStore(fn func(ctx context.Context, store *entry.Store) error) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	objects, err := newObjectStore(cfg)
	if err != nil {
		return err
	}

	store := entry.NewStore(clientOptions(cfg, slog.Default()), objects, slog.Default())
	defer store.Wait()

	return fn(context.Background(), store)
}

func main() {
	// Set up text-based logger for CLI output
	//nolint:exhaustruct // Using default values for other HandlerOptions fields
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))

	cli := &CLI{} //nolint:exhaustruct // Kong fills in command fields
	ctx := kong.Parse(cli,
		kong.Name("voice"),
		kong.Description("Record voice journal entries."),
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
	os.Exit(0)
}
