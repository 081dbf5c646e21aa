package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/Rana718/fakeseed/internal/seeder"
)

// askMode asks whether existing rows of target should be deleted first.
// Only "y" or "Y" selects replace; an empty or unreadable answer appends.
func askMode(in io.Reader, out io.Writer, target string) seeder.Mode {
	fmt.Fprintf(out, "Delete existing rows in %s before inserting? (y/N): ", target)
	input, _ := bufio.NewReader(in).ReadString('\n')
	return seeder.ParseMode(strings.TrimSpace(input))
}
