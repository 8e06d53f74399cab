package ircd

import (
	"strings"
	"testing"

	"github.com/relaine/ircd/internal/irc"
)

func TestPrivmsgToChannel(t *testing.T) {
	r := newTestRegistry()
	alice := newTestUser(t, r, 1, "alice")
	bob := newTestUser(t, r, 2, "bob")
	_ = r.joinUserToChannel(alice, "#test", "")
	_ = r.joinUserToChannel(bob, "#test", "")
	drain(alice)
	drain(bob)

	r.handleUserCommand(alice, irc.Message{Command: "PRIVMSG", Params: []string{"#test", "hello"}})

	lines := drain(bob)
	if len(lines) != 1 || !strings.Contains(lines[0], "hello") {
		t.Fatalf("bob should receive the PRIVMSG, got %q", lines)
	}
	if len(drain(alice)) != 0 {
		t.Fatalf("sender should not receive its own channel PRIVMSG back")
	}
}

func TestPrivmsgToUnknownUser(t *testing.T) {
	r := newTestRegistry()
	alice := newTestUser(t, r, 1, "alice")

	r.handleUserCommand(alice, irc.Message{Command: "PRIVMSG", Params: []string{"ghost", "hi"}})

	lines := drain(alice)
	if len(lines) != 1 || !strings.Contains(lines[0], "401") {
		t.Fatalf("expected ERR_NOSUCHNICK, got %q", lines)
	}
}

func TestNoticeToUnknownUserIsSilent(t *testing.T) {
	r := newTestRegistry()
	alice := newTestUser(t, r, 1, "alice")

	r.handleUserCommand(alice, irc.Message{Command: "NOTICE", Params: []string{"ghost", "hi"}})

	if lines := drain(alice); len(lines) != 0 {
		t.Fatalf("NOTICE must never generate an error reply, got %q", lines)
	}
}

func TestJoinMultipleChannelsInOneCommand(t *testing.T) {
	r := newTestRegistry()
	alice := newTestUser(t, r, 1, "alice")

	r.handleUserCommand(alice, irc.Message{Command: "JOIN", Params: []string{"#a,#b"}})

	if _, err := r.GetChannel("#a"); err != nil {
		t.Fatalf("#a should exist: %v", err)
	}
	if _, err := r.GetChannel("#b"); err != nil {
		t.Fatalf("#b should exist: %v", err)
	}
}

func TestSelfModeQueryAndChange(t *testing.T) {
	r := newTestRegistry()
	alice := newTestUser(t, r, 1, "alice")
	drain(alice)

	r.handleUserCommand(alice, irc.Message{Command: "MODE", Params: []string{"alice"}})
	lines := drain(alice)
	if len(lines) != 1 || !strings.Contains(lines[0], "221") {
		t.Fatalf("expected RPL_UMODEIS, got %q", lines)
	}

	r.handleUserCommand(alice, irc.Message{Command: "MODE", Params: []string{"alice", "+i"}})
	if !alice.HasMode('i') {
		t.Fatalf("+i should be set")
	}
}

func TestSelfModeCannotSetOperByHand(t *testing.T) {
	r := newTestRegistry()
	alice := newTestUser(t, r, 1, "alice")

	r.handleUserCommand(alice, irc.Message{Command: "MODE", Params: []string{"alice", "+O"}})

	if alice.HasMode('O') {
		t.Fatalf("operator status must only be granted via OPER")
	}
}

func TestSelfModeOnOtherNickIsUsersDontMatch(t *testing.T) {
	r := newTestRegistry()
	alice := newTestUser(t, r, 1, "alice")
	newTestUser(t, r, 2, "bob")
	drain(alice)

	r.handleUserCommand(alice, irc.Message{Command: "MODE", Params: []string{"bob", "+i"}})

	lines := drain(alice)
	if len(lines) != 1 || !strings.Contains(lines[0], "502") {
		t.Fatalf("expected ERR_USERSDONTMATCH, got %q", lines)
	}
}

func TestUnknownCommandProducesErrUnknownCommand(t *testing.T) {
	r := newTestRegistry()
	alice := newTestUser(t, r, 1, "alice")

	r.handleUserCommand(alice, irc.Message{Command: "FROB", Params: nil})

	lines := drain(alice)
	if len(lines) != 1 || !strings.Contains(lines[0], "421") {
		t.Fatalf("expected ERR_UNKNOWNCOMMAND, got %q", lines)
	}
}

func TestTopicQueryWhenUnset(t *testing.T) {
	r := newTestRegistry()
	alice := newTestUser(t, r, 1, "alice")
	_ = r.joinUserToChannel(alice, "#test", "")
	drain(alice)

	r.handleUserCommand(alice, irc.Message{Command: "TOPIC", Params: []string{"#test"}})

	lines := drain(alice)
	if len(lines) != 1 || !strings.Contains(lines[0], "331") {
		t.Fatalf("expected RPL_NOTOPIC, got %q", lines)
	}
}

func TestMissingParamsYieldsErrNeedMoreParams(t *testing.T) {
	r := newTestRegistry()
	alice := newTestUser(t, r, 1, "alice")

	r.handleUserCommand(alice, irc.Message{Command: "JOIN", Params: nil})

	lines := drain(alice)
	if len(lines) != 1 || !strings.Contains(lines[0], "461") {
		t.Fatalf("expected ERR_NEEDMOREPARAMS, got %q", lines)
	}
}
