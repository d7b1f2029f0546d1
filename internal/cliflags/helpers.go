package cliflags

import (
	"fmt"
	"strconv"
)

// defaultExecutor is the process-wide registry every -flag package-level
// var registers against at init time, mirroring the teacher's package-level
// cmds.Define/cmds.Execute.
var defaultExecutor = NewExecutor()

// Define registers flag under name against the default Executor.
func Define(name string, flag *Flag) {
	defaultExecutor.Define(name, flag)
}

// Execute dispatches args (typically os.Args[1:]) against the default
// Executor.
func Execute(args []string) error {
	return defaultExecutor.Execute(args)
}

// MustExecute panics on the first error Execute returns.
func MustExecute(args []string) {
	defaultExecutor.MustExecute(args)
}

// PrintUsage writes the default Executor's registered flags to stderr.
func PrintUsage() {
	defaultExecutor.PrintUsage()
}

// Positive rejects n <= 0, for flags like -heap and -stack whose sizes
// cannot be zero or negative.
func Positive(n int64) error {
	if n <= 0 {
		return fmt.Errorf("must be a positive integer, got %d", n)
	}
	return nil
}

// IntFlag registers name as a flag taking one base-10 integer argument. If
// validate is non-nil it runs against the parsed value before it is
// accepted, e.g. IntFlag("-heap", Positive) rejects "-heap 0" and
// "-heap -1" up front instead of letting a nonsensical heap size reach
// heap.New. The returned pointer holds 0 until the flag is seen.
func IntFlag(name string, validate func(int64) error) *int64 {
	var value int64
	Define(name, Value(func(arg string) error {
		n, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %q is not an integer", name, arg)
		}
		if validate != nil {
			if err := validate(n); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
		}
		value = n
		return nil
	}))
	return &value
}

// StringFlag registers name as a flag taking one string argument verbatim.
func StringFlag(name string) *string {
	var value string
	Define(name, Value(func(arg string) error {
		value = arg
		return nil
	}))
	return &value
}

// Switch registers name as a no-argument flag that sets a bool to true, and
// "!"+name as the flag that sets it back to false.
func Switch(name string) *bool {
	var value bool
	Define(name, Trigger(func() {
		value = true
	}))
	Define("!"+name, Trigger(func() {
		value = false
	}))
	return &value
}
