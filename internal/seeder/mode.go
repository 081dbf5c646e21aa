package seeder

// Mode is the load policy for existing rows.
type Mode int

const (
	ModeAppend Mode = iota
	ModeReplace
)

func (m Mode) String() string {
	if m == ModeReplace {
		return "replace"
	}
	return "append"
}

// ParseMode maps the interactive answer to a Mode. Only "y" and "Y" select
// replace; any other value, including the empty string, appends.
func ParseMode(s string) Mode {
	if s == "y" || s == "Y" {
		return ModeReplace
	}
	return ModeAppend
}
