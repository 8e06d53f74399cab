package ircd

import (
	"io/ioutil"
	"testing"

	"github.com/sirupsen/logrus"
)

func discardLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(ioutil.Discard)
	return logrus.NewEntry(l)
}

// newTestRegistry builds a Registry with a minimal valid config, suitable
// for exercising channel/dispatch logic without a real listener.
func newTestRegistry() *Registry {
	return NewRegistry(Config{
		Hostname: "irc.test",
		Port:     6667,
		NetName:  "TestNet",
		Info:     "test server",
		MOTD:     "hello",
		Version:  "test-0.0",
	}, discardLogger())
}

// newTestUser builds a User wired to an in-memory Connection (no real
// socket) and registers it directly in r, skipping the wire-level
// registration FSM so channel/dispatch tests can focus on one layer.
func newTestUser(t *testing.T, r *Registry, id uint64, nick string) *User {
	t.Helper()

	conn := &Connection{
		ID:      id,
		State:   StateRegistered,
		outChan: make(chan string, 64),
	}

	u := newUser(conn, nick, "user", "Real Name", "host.test")
	r.users[id] = u
	r.usedNicks[canonicalizeNick(nick)] = u
	return u
}

// drain reads every line currently queued on u's outbound channel without
// blocking, for asserting on what a handler sent.
func drain(u *User) []string {
	return drainConn(u.conn)
}

// drainConn is drain for a connection that has no User yet (registration
// tests).
func drainConn(c *Connection) []string {
	var lines []string
	for {
		select {
		case line, ok := <-c.outChan:
			if !ok {
				return lines
			}
			lines = append(lines, line)
		default:
			return lines
		}
	}
}
