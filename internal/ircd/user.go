package ircd

import (
	"fmt"
	"time"

	"github.com/relaine/ircd/internal/irc"
)

// User is a registered client: nick, username, real name, host, global
// modes, and the ordered set of channels it has joined. It owns no network
// state beyond a reference to the Connection it writes through.
type User struct {
	UniqueID uint64

	Nick     string
	Username string
	RealName string
	Host     string

	Modes map[byte]struct{}

	// Channels is kept in join order; channelSet mirrors it for O(1)
	// membership checks. Both are maintained together by addChannel and
	// removeChannel.
	Channels   []*Channel
	channelSet map[*Channel]struct{}

	conn *Connection

	RegisteredAt    time.Time
	LastMessageTime time.Time
}

func newUser(conn *Connection, nick, username, realName, host string) *User {
	return &User{
		UniqueID:     conn.ID,
		Nick:         nick,
		Username:     username,
		RealName:     realName,
		Host:         host,
		Modes:        map[byte]struct{}{},
		channelSet:   map[*Channel]struct{}{},
		conn:         conn,
		RegisteredAt: time.Now(),
	}
}

// Identifier is the nick!user@host form used as message source for
// user-originated events.
func (u *User) Identifier() string {
	return fmt.Sprintf("%s!%s@%s", u.Nick, u.Username, u.Host)
}

// Hostmask is the user@host portion of Identifier.
func (u *User) Hostmask() string {
	return fmt.Sprintf("%s@%s", u.Username, u.Host)
}

func (u *User) addChannel(c *Channel) {
	if _, ok := u.channelSet[c]; ok {
		return
	}
	u.Channels = append(u.Channels, c)
	u.channelSet[c] = struct{}{}
}

func (u *User) removeChannel(c *Channel) {
	if _, ok := u.channelSet[c]; !ok {
		return
	}
	delete(u.channelSet, c)
	for i, existing := range u.Channels {
		if existing == c {
			u.Channels = append(u.Channels[:i], u.Channels[i+1:]...)
			break
		}
	}
}

// OnChannel reports whether u has joined c.
func (u *User) OnChannel(c *Channel) bool {
	_, ok := u.channelSet[c]
	return ok
}

// HasMode reports whether u carries the given global mode.
func (u *User) HasMode(mode byte) bool {
	_, ok := u.Modes[mode]
	return ok
}

func (u *User) modesString() string {
	s := make([]byte, 0, len(u.Modes))
	for m := range u.Modes {
		s = append(s, m)
	}
	return string(s)
}

// canSetOwnMode reports whether a user may toggle mode on themselves via
// MODE. Operator status ('O') can only be granted by a successful OPER.
func canSetOwnMode(mode byte) bool {
	return mode != 'o' && mode != 'O'
}

// Send encodes and writes a message to this user's connection. A write or
// encode failure is logged and otherwise ignored; the connection's own
// read/write loops are what detect and report a dead socket.
func (u *User) Send(m irc.Message) {
	u.conn.Send(m)
}

// touch records that the user sent the server a message just now, used to
// compute WHOIS idle time.
func (u *User) touch() {
	u.LastMessageTime = time.Now()
}

// idleSeconds is the duration since the user's last PRIVMSG/NOTICE, for
// RPL_WHOISIDLE. This is supplemented from horgh/catbox's
// LocalUser.LastMessageTime; pyircd's original does not track it at all.
func (u *User) idleSeconds() int {
	if u.LastMessageTime.IsZero() {
		return int(time.Since(u.RegisteredAt).Seconds())
	}
	return int(time.Since(u.LastMessageTime).Seconds())
}
