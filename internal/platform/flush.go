package platform

import (
	"errors"
	"fmt"
	"log"
	"os/exec"
	"strings"

	"github.com/gajzzs/studyblock/internal/system"
)

// CommandFlusher runs the platform's cache flush commands.
type CommandFlusher struct {
	commands  []FlushCommand
	isRunning func(name string) bool
	run       func(args []string) error
}

func NewCommandFlusher(p Platform) *CommandFlusher {
	return &CommandFlusher{
		commands:  p.FlushCommands,
		isRunning: system.ProcessRunning,
		run:       runCommand,
	}
}

// Flush runs every applicable command and reports the ones that failed.
// No applicable command means there is no cache to flush.
func (cf *CommandFlusher) Flush() error {
	var errs []error
	for _, c := range cf.commands {
		if c.Process != "" && !cf.isRunning(c.Process) {
			continue
		}
		if err := cf.run(c.Args); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", strings.Join(c.Args, " "), err))
			continue
		}
		log.Printf("DNS cache flushed: %s", strings.Join(c.Args, " "))
	}
	return errors.Join(errs...)
}

func runCommand(args []string) error {
	cmd := exec.Command(args[0], args[1:]...)
	if output, err := cmd.CombinedOutput(); err != nil {
		if out := strings.TrimSpace(string(output)); out != "" {
			return fmt.Errorf("%v: %s", err, out)
		}
		return err
	}
	return nil
}
