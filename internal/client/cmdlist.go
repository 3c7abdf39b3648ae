package client

import "container/list"

// cmdListAccumulator collects the lines of a command_list_begin /
// command_list_end batch. New lines are prepended (O(1), like the
// original's GSList cons cell) and reversed once at list-end to restore
// submission order (spec §4.2 "Command-list ordering").
type cmdListAccumulator struct {
	lines *list.List // each Value is a string, most recent at Front
	size  int
}

// perEntryOverhead mirrors the original's "+1" for the string's NUL
// terminator: each queued line costs its length plus one byte of
// bookkeeping toward the size cap (spec §3 cmd_list_size).
const perEntryOverhead = 1

func (a *cmdListAccumulator) push(line string) {
	if a.lines == nil {
		a.lines = list.New()
	}
	a.lines.PushFront(line)
	a.size += len(line) + perEntryOverhead
}

// orderedLines restores submission order. Because push prepends, the
// oldest entry ends up at Back(); walking Back-to-Front once is the
// "reverse" spec §4.2 describes, just expressed as a reverse traversal
// instead of a pointer-reversal pass over a cons list.
func (a *cmdListAccumulator) orderedLines() []string {
	if a.lines == nil {
		return nil
	}
	out := make([]string, 0, a.lines.Len())
	for e := a.lines.Back(); e != nil; e = e.Prev() {
		out = append(out, e.Value.(string))
	}
	return out
}

func (a *cmdListAccumulator) reset() {
	a.lines = nil
	a.size = 0
}
