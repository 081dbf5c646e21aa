package cmd

import (
	"testing"

	"github.com/Rana718/fakeseed/internal/config"
	"github.com/Rana718/fakeseed/internal/seeder"
	"github.com/spf13/cobra"
)

func newSeedCommand(t *testing.T, flags map[string]string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "generate"}
	addSeedFlags(cmd)
	addDryRunFlags(cmd)
	for name, value := range flags {
		if err := cmd.Flags().Set(name, value); err != nil {
			t.Fatalf("Set --%s: %v", name, err)
		}
	}
	return cmd
}

func TestSeedOptionsFlags(t *testing.T) {
	cmd := newSeedCommand(t, map[string]string{
		"count":        "7",
		"replace":      "true",
		"unique-scope": "TUPLE",
		"seed":         "99",
	})

	opts, err := seedOptions(cmd, config.DefaultConfig(), "airline")
	if err != nil {
		t.Fatalf("seedOptions failed: %v", err)
	}
	if opts.Count != 7 || opts.Mode != seeder.ModeReplace || opts.UniqueScope != seeder.ScopeTuple || opts.RandomSeed != 99 {
		t.Errorf("Unexpected options: %+v", opts)
	}
}

func TestSeedOptionsRejectsBadFlags(t *testing.T) {
	tests := map[string]map[string]string{
		"unknown scope":  {"unique-scope": "tupel"},
		"zero count":     {"count": "0"},
		"negative count": {"count": "-3"},
	}
	for name, flags := range tests {
		if _, err := seedOptions(newSeedCommand(t, flags), config.DefaultConfig(), "airline"); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
}
