// Package idle defines the event-class bitmask that the idle/noidle
// subscription protocol notifies on, and the name table used to render
// "changed: <name>" lines.
package idle

// Flags is a bitmask of event classes. Bit i corresponds to Names()[i].
type Flags uint32

// Default event classes. Order is significant: bit i is Names()[i], and
// notifications are emitted in this order regardless of subscription order.
const (
	Database Flags = 1 << iota
	Player
	Mixer
	Output
	Options
	Playlist
	Update
	Sticker
	Subscription
)

// All is the union of every known flag, handy for "subscribe to everything".
const All = Database | Player | Mixer | Output | Options | Playlist | Update | Sticker | Subscription

var names = []struct {
	flag Flags
	name string
}{
	{Database, "database"},
	{Player, "player"},
	{Mixer, "mixer"},
	{Output, "output"},
	{Options, "options"},
	{Playlist, "playlist"},
	{Update, "update"},
	{Sticker, "sticker"},
	{Subscription, "subscription"},
}

// Names returns the bits set in f, in the fixed table order, as their wire
// names. This is the "idle collaborator" the core spec treats as external:
// it supplies the naming table, nothing else.
func Names(f Flags) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if f&n.flag != 0 {
			out = append(out, n.name)
		}
	}
	return out
}

// Parse maps a single wire token (as used in a client's "subscribe"
// argument list) to its flag. Unknown tokens return (0, false).
func Parse(token string) (Flags, bool) {
	for _, n := range names {
		if n.name == token {
			return n.flag, true
		}
	}
	return 0, false
}
