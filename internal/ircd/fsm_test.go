package ircd

import (
	"strings"
	"testing"

	"github.com/relaine/ircd/internal/irc"
)

func newTestConn(id uint64) *Connection {
	return &Connection{
		ID:         id,
		RemoteHost: "client.test",
		State:      StateAwaitingRegistration,
		outChan:    make(chan string, 64),
	}
}

func TestRegistrationCompletesOnNickThenUser(t *testing.T) {
	r := newTestRegistry()
	conn := newTestConn(1)
	r.conns[conn.ID] = conn

	r.handlePreRegistrationCommand(conn, irc.Message{Command: "NICK", Params: []string{"alice"}})
	if conn.State == StateRegistered {
		t.Fatalf("registration should not complete on NICK alone")
	}

	r.handlePreRegistrationCommand(conn, irc.Message{
		Command: "USER",
		Params:  []string{"alice", "0", "*", "Alice Example"},
	})

	if conn.State != StateRegistered {
		t.Fatalf("registration should complete once NICK and USER are both seen")
	}

	if _, err := r.GetUser("alice"); err != nil {
		t.Fatalf("alice should be registered: %v", err)
	}

	lines := drainConn(conn)
	joined := strings.Join(lines, "")
	if !strings.Contains(joined, "001") {
		t.Fatalf("expected RPL_WELCOME in registration burst, got %q", lines)
	}
}

func TestRegistrationCompletesOnUserThenNick(t *testing.T) {
	r := newTestRegistry()
	conn := newTestConn(1)
	r.conns[conn.ID] = conn

	r.handlePreRegistrationCommand(conn, irc.Message{
		Command: "USER",
		Params:  []string{"alice", "0", "*", "Alice Example"},
	})
	r.handlePreRegistrationCommand(conn, irc.Message{Command: "NICK", Params: []string{"alice"}})

	if conn.State != StateRegistered {
		t.Fatalf("registration should complete regardless of NICK/USER order")
	}
}

func TestNickCollisionDuringRegistration(t *testing.T) {
	r := newTestRegistry()
	newTestUser(t, r, 1, "alice")

	conn := newTestConn(2)
	r.conns[conn.ID] = conn

	r.handlePreRegistrationCommand(conn, irc.Message{Command: "NICK", Params: []string{"alice"}})

	lines := drainConn(conn)
	if len(lines) != 1 || !strings.Contains(lines[0], "433") {
		t.Fatalf("expected ERR_NICKNAMEINUSE, got %q", lines)
	}
	if conn.NickDone {
		t.Fatalf("colliding nick must not be accepted")
	}
}

func TestPreRegistrationPing(t *testing.T) {
	r := newTestRegistry()
	conn := newTestConn(1)
	r.conns[conn.ID] = conn

	r.handlePreRegistrationCommand(conn, irc.Message{Command: "PING", Params: []string{"token"}})

	lines := drainConn(conn)
	if len(lines) != 1 || !strings.HasPrefix(lines[0], "PONG") {
		t.Fatalf("expected PONG, got %q", lines)
	}
}

func TestNickIsNotARegisteredUserVerb(t *testing.T) {
	r := newTestRegistry()
	alice := newTestUser(t, r, 1, "alice")

	if _, ok := handlers["NICK"]; ok {
		t.Fatalf("NICK must not be a post-registration verb")
	}

	r.handleUserCommand(alice, irc.Message{Command: "NICK", Params: []string{"alice2"}})

	lines := drain(alice)
	if len(lines) != 1 || !strings.Contains(lines[0], "421") {
		t.Fatalf("NICK post-registration should be ERR_UNKNOWNCOMMAND, got %q", lines)
	}
}
