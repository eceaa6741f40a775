package process

import (
	"strings"
	"time"
)

// DefaultJava is the executable used when JavaCommand.Java is empty.
const DefaultJava = "java"

// JavaCommand builds the invocation of a Java main class.
type JavaCommand struct {
	// Java is the JVM executable (default "java").
	Java string

	// JVMArgs precede the main class, e.g. "-Xmx4000m".
	JVMArgs []string

	// MainClass is the fully-qualified class whose main() is run.
	MainClass string

	// Args follow the main class.
	Args []string

	// Classpath is exported to the child as CLASSPATH when non-empty.
	Classpath string
}

// Descriptor returns the run descriptor for this command.
func (j JavaCommand) Descriptor(timeout time.Duration) Descriptor {
	java := j.Java
	if java == "" {
		java = DefaultJava
	}

	args := make([]string, 0, len(j.JVMArgs)+1+len(j.Args))
	args = append(args, j.JVMArgs...)
	args = append(args, j.MainClass)
	args = append(args, j.Args...)

	var env []string
	if j.Classpath != "" {
		env = []string{"CLASSPATH=" + j.Classpath}
	}

	return Descriptor{
		Path:    java,
		Args:    args,
		Env:     env,
		Timeout: timeout,
	}
}

// CommandString returns the command as it would be typed in a shell,
// preceded by the CLASSPATH export when one is set.
func (j JavaCommand) CommandString() string {
	cmd := j.Descriptor(0).String()
	if j.Classpath == "" {
		return cmd
	}
	return "export CLASSPATH=\"" + j.Classpath + "\"\n" + cmd
}

// SplitJVMArgs splits a space-separated JVM argument string.
func SplitJVMArgs(s string) []string {
	return strings.Fields(s)
}
