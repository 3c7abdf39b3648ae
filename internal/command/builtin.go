package command

import (
	"strconv"
	"strings"
	"time"

	"playerctld/internal/client"
	"playerctld/internal/idle"
)

// CommandFunc handles one tokenized command against a client, the same
// shape GoRedis's handler.CommandFunc uses for its dispatch table.
type CommandFunc func(c *client.Client, args []string) Outcome

// Builtin is a small, concrete command collaborator: just enough
// commands to exercise every path the core defines (ping, multi-line
// output, idle entry, and a daemon-kill command). Real command
// semantics (play/pause/database queries/etc.) are out of scope for
// this core; Builtin exists so the core is runnable and testable
// end-to-end (SPEC_FULL.md's "reference command collaborator").
type Builtin struct {
	commands map[string]CommandFunc
	start    time.Time
}

// NewBuiltin constructs the reference collaborator.
func NewBuiltin() *Builtin {
	b := &Builtin{
		commands: make(map[string]CommandFunc),
		start:    time.Now(),
	}
	b.commands["ping"] = b.handlePing
	b.commands["status"] = b.handleStatus
	b.commands["kill"] = b.handleKill
	b.commands["idle"] = b.handleIdle
	b.commands["subscribe"] = b.handleIdle
	b.commands["permission"] = b.handlePermission
	return b
}

// Execute implements Collaborator.
func (b *Builtin) Execute(c *client.Client, line string) Outcome {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		c.Puts("ACK [5@0] {} no command given\n")
		return ContinueNoOK
	}

	name := strings.ToLower(fields[0])
	fn, ok := b.commands[name]
	if !ok {
		c.Printf("ACK [5@0] {%s} unknown command\n", name)
		return ContinueNoOK
	}
	return fn(c, fields[1:])
}

func (b *Builtin) handlePing(c *client.Client, args []string) Outcome {
	return OK
}

func (b *Builtin) handleStatus(c *client.Client, args []string) Outcome {
	c.Printf("uptime: %d\n", int(time.Since(b.start).Seconds()))
	c.Printf("client_num: %d\n", c.Num)
	c.Printf("permission: %d\n", c.Permission)
	return OK
}

func (b *Builtin) handlePermission(c *client.Client, args []string) Outcome {
	if len(args) != 1 {
		c.Puts("ACK [2@0] {permission} wrong number of arguments\n")
		return ContinueNoOK
	}
	mask, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		c.Puts("ACK [2@0] {permission} not a number\n")
		return ContinueNoOK
	}
	c.Permission = uint32(mask)
	return OK
}

func (b *Builtin) handleKill(c *client.Client, args []string) Outcome {
	return Kill
}

// handleIdle is the "command collaborator eventually calls idle_wait"
// path spec §4.2 describes: it parses the subscribed flag names and
// hands off to the client's idle state machine. If nothing is
// delivered synchronously, it returns ContinueNoOK since the
// notification (or lack of one, while parked) is written later by
// Manager.IdleAdd, not by this call.
func (b *Builtin) handleIdle(c *client.Client, args []string) Outcome {
	flags := idle.All
	if len(args) > 0 {
		flags = 0
		for _, a := range args {
			f, ok := idle.Parse(a)
			if !ok {
				c.Printf("ACK [2@0] {idle} unrecognized idle event \"%s\"\n", a)
				return ContinueNoOK
			}
			flags |= f
		}
	}

	if c.IdleWait(flags) {
		// Delivered synchronously: the client's idle state machine
		// already wrote "changed: ...\n" + "OK\n".
		return ContinueNoOK
	}
	return ContinueNoOK
}
