package manager

import (
	"strings"

	"playerctld/internal/client"
	"playerctld/internal/command"
)

const (
	cmdListBegin   = "command_list_begin"
	cmdListOKBegin = "command_list_ok_begin"
	cmdListEnd     = "command_list_end"
	cmdNoidle      = "noidle"
)

// processLineAndRespond runs one newline-delimited line through the
// state machine of spec §4.2 and applies the generic post-processing
// every path shares: emitting the trailing "OK\n" on command.OK, and
// flushing output except when the outcome is command.Close or
// command.Kill (the original never bothers flushing a connection it is
// about to tear down).
func (m *Manager) processLineAndRespond(c *client.Client, line string) command.Outcome {
	outcome := m.processLine(c, line)

	switch outcome {
	case command.OK:
		c.Puts("OK\n")
		c.FlushOutput()
	case command.ContinueNoOK:
		c.FlushOutput()
	case command.Close, command.Kill:
		// no flush: the connection is going away.
	}

	if m.metrics != nil {
		m.metrics.IncCommandsProcessed()
	}
	return outcome
}

// processLine implements the three-state machine: Normal, InList, and
// Idle, exactly in the branch order spec §4.2 lists.
func (m *Manager) processLine(c *client.Client, line string) command.Outcome {
	if c.IdleWaiting {
		if line != cmdNoidle {
			// Any other line while parked in idle mode is a protocol
			// violation (spec §4.2 "No other line is legal in Idle").
			return command.Close
		}
		c.Noidle()
		return command.ContinueNoOK
	}

	if c.CmdListMode != client.ListOff {
		if line == cmdListEnd {
			return m.dispatchList(c)
		}
		if !c.AppendListLine(line) {
			return command.Close
		}
		return command.ContinueNoOK
	}

	switch line {
	case cmdListBegin:
		c.BeginList(client.ListSilent)
		return command.ContinueNoOK
	case cmdListOKBegin:
		c.BeginList(client.ListVerbose)
		return command.ContinueNoOK
	case cmdNoidle:
		// noidle outside idle mode is a no-op, not an error (spec
		// §4.5): the client already got its response and is reading it.
		c.Noidle()
		return command.ContinueNoOK
	}

	if m.commander == nil {
		return command.ContinueNoOK
	}
	outcome := m.commander.Execute(c, line)
	if c.IsExpired() {
		return command.Close
	}
	return outcome
}

// dispatchList executes a completed command list in FIFO order (the
// accumulator already restored that order — see cmdlist.go's
// orderedLines), emitting "list_OK\n" after each successful entry when
// the list was opened in verbose mode (spec §6 "Batching markers").
func (m *Manager) dispatchList(c *client.Client) command.Outcome {
	verbose := c.CmdListMode == client.ListVerbose
	lines := c.EndList()

	if m.commander == nil {
		return command.OK
	}

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		outcome := m.commander.Execute(c, line)
		if c.IsExpired() {
			return command.Close
		}
		switch outcome {
		case command.Close, command.Kill:
			return outcome
		case command.OK:
			if verbose {
				c.Puts("list_OK\n")
			}
		case command.ContinueNoOK:
			// already emitted its own terminator; no list_OK marker.
		}
	}
	return command.OK
}
