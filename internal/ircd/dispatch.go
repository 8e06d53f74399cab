package ircd

import (
	"fmt"
	"strings"

	"github.com/relaine/ircd/internal/irc"
)

// handlers is the registered-user verb table, built once. NICK is
// deliberately absent: both spec.md's dispatcher table and pyircd's
// User.handle_commands omit it, so nick changes are out of scope once
// registration completes (see DESIGN.md).
var handlers = map[string]HandlerFunc{
	"PRIVMSG": minParams(2, handlePrivmsg),
	"NOTICE":  minParams(2, handleNotice),
	"JOIN":    minParams(1, handleJoin),
	"PART":    minParams(1, handlePart),
	"QUIT":    handleQuit,
	"NAMES":   handleNames,
	"TOPIC":   minParams(1, handleTopic),
	"WHO":     minParams(1, handleWho),
	"WHOIS":   minParams(1, handleWhois),
	"MODE":    minParams(1, handleMode),
	"OPER":    minParams(2, handleOper),
	"MOTD":    handleMotd,
	"LUSERS":  handleLusers,
	"PING":    handlePing,
	"CAP":     handleCap,
}

// handleUserCommand routes one line from a registered user to its handler,
// or ERR_UNKNOWNCOMMAND if the verb isn't recognized.
func (r *Registry) handleUserCommand(u *User, m irc.Message) {
	h, ok := handlers[m.Command]
	if !ok {
		r.sendNumeric(u, irc.ErrUnknownCommand, m.Command)
		return
	}
	r.dispatch(u, m, h)
}

func handlePrivmsg(r *Registry, u *User, m irc.Message) error {
	text := m.Params[1]
	u.touch()

	for _, target := range strings.Split(m.Params[0], ",") {
		if err := sendPrivmsgToTarget(r, u, target, text); err != nil {
			r.replyError(u, m.Command, err)
		}
	}

	return nil
}

func sendPrivmsgToTarget(r *Registry, u *User, target, text string) error {
	if isChannelName(target) {
		c, err := r.GetChannel(target)
		if err != nil {
			return err
		}
		c.Msg(u, truncateMessage(u.Identifier(), "PRIVMSG", target, text))
		return nil
	}

	tu, err := r.GetUser(target)
	if err != nil {
		return err
	}
	tu.Send(irc.Message{
		Source:  u.Identifier(),
		Command: "PRIVMSG",
		Params:  []string{target, truncateMessage(u.Identifier(), "PRIVMSG", target, text)},
	})
	return nil
}

// handleNotice mirrors PRIVMSG but never produces an error reply:
// NOTICE's whole purpose (RFC 1459 section 4.4.2) is that automated
// clients can use it without risking a reply loop.
func handleNotice(r *Registry, u *User, m irc.Message) error {
	text := m.Params[1]
	u.touch()

	for _, target := range strings.Split(m.Params[0], ",") {
		if isChannelName(target) {
			c, err := r.GetChannel(target)
			if err != nil {
				continue
			}
			c.Msg(u, truncateMessage(u.Identifier(), "NOTICE", target, text))
			continue
		}

		tu, err := r.GetUser(target)
		if err != nil {
			continue
		}
		tu.Send(irc.Message{
			Source:  u.Identifier(),
			Command: "NOTICE",
			Params:  []string{target, truncateMessage(u.Identifier(), "NOTICE", target, text)},
		})
	}
	return nil
}

func handleJoin(r *Registry, u *User, m irc.Message) error {
	names := strings.Split(m.Params[0], ",")

	var keys []string
	if len(m.Params) > 1 {
		keys = strings.Split(m.Params[1], ",")
	}

	for i, name := range names {
		key := ""
		if i < len(keys) {
			key = keys[i]
		}
		if err := r.joinUserToChannel(u, name, key); err != nil {
			r.replyError(u, m.Command, err)
		}
	}

	return nil
}

// handlePart takes exactly one channel, matching spec.md's PART row (a
// single `channel` param, unlike JOIN's comma-separated `channels`) and
// pyircd's handle_part, which never splits its target.
func handlePart(r *Registry, u *User, m irc.Message) error {
	c, err := r.GetChannel(m.Params[0])
	if err != nil {
		return err
	}

	reason := ""
	if len(m.Params) > 1 {
		reason = m.Params[1]
	}

	c.Part(r, u, reason)
	return nil
}

func handleQuit(r *Registry, u *User, m irc.Message) error {
	reason := ""
	if len(m.Params) > 0 {
		reason = m.Params[0]
	}
	r.quitUser(u, reason)
	return nil
}

// handleNames lists members of the given (comma-separated) channels, or
// every channel u has joined when no parameter is given at all, matching
// pyircd's handle_names, which carries no @min_params decorator.
func handleNames(r *Registry, u *User, m irc.Message) error {
	if len(m.Params) == 0 {
		for _, c := range u.Channels {
			c.SendUserList(r, u)
		}
		return nil
	}

	for _, name := range strings.Split(m.Params[0], ",") {
		c, err := r.GetChannel(name)
		if err != nil {
			continue
		}
		c.SendUserList(r, u)
	}
	return nil
}

func handleTopic(r *Registry, u *User, m irc.Message) error {
	c, err := r.GetChannel(m.Params[0])
	if err != nil {
		return err
	}

	if len(m.Params) < 2 {
		c.SendTopic(r, u)
		return nil
	}

	return c.TrySetTopic(u, m.Params[1])
}

func handleWho(r *Registry, u *User, m irc.Message) error {
	c, err := r.GetChannel(m.Params[0])
	if err != nil {
		return err
	}
	c.SendWho(r, u)
	return nil
}

func handleWhois(r *Registry, u *User, m irc.Message) error {
	for _, target := range strings.Split(m.Params[0], ",") {
		if err := r.sendWhois(u, target); err != nil {
			r.replyError(u, m.Command, err)
		}
	}
	return nil
}

// handleMode routes to channel-mode or user-mode handling depending on the
// first parameter's shape, matching pyircd's handle_mode dispatch.
func handleMode(r *Registry, u *User, m irc.Message) error {
	target := m.Params[0]

	if isChannelName(target) {
		return handleChannelMode(r, u, target, m.Params[1:])
	}
	return handleSelfMode(r, u, target, m.Params[1:])
}

func handleChannelMode(r *Registry, u *User, name string, rest []string) error {
	c, err := r.GetChannel(name)
	if err != nil {
		return err
	}

	if len(rest) == 0 {
		c.SendModeInfo(r, u)
		return nil
	}

	return c.TryModeChanges(r, u, rest[0], rest[1:])
}

func handleSelfMode(r *Registry, u *User, nick string, rest []string) error {
	if canonicalizeNick(nick) != canonicalizeNick(u.Nick) {
		return UsersDontMatch{}
	}

	if len(rest) == 0 {
		r.sendNumeric(u, irc.RplUModeIs, u.modesString())
		return nil
	}

	modestring := rest[0]
	if len(modestring) == 0 {
		return nil
	}

	adding := modestring[0] == '+'
	if !adding && modestring[0] != '-' {
		return nil
	}

	for i := 1; i < len(modestring); i++ {
		mode := modestring[i]
		if !canSetOwnMode(mode) {
			continue
		}
		if adding {
			u.Modes[mode] = struct{}{}
		} else {
			delete(u.Modes, mode)
		}
	}

	u.Send(irc.Message{
		Source:  u.Identifier(),
		Command: "MODE",
		Params:  []string{u.Nick, modestring},
	})
	return nil
}

func handleOper(r *Registry, u *User, m irc.Message) error {
	r.tryMakeOper(u, m.Params[0], m.Params[1])
	return nil
}

func handleMotd(r *Registry, u *User, m irc.Message) error {
	r.sendMotd(u)
	return nil
}

// handleLusers is a supplemented feature (spec.md's distillation drops
// LUSERS, but pyircd and horgh/catbox both send it at registration time
// and on request); we only wire the on-request form since spec.md's
// registration sequence (section 4.3) is already fully specified without
// it.
func handleLusers(r *Registry, u *User, m irc.Message) error {
	u.Send(irc.Message{
		Source:  r.config.Hostname,
		Command: "251",
		Params:  []string{u.Nick, fmt.Sprintf("There are %d users on 1 server", len(r.users))},
	})
	return nil
}

func handlePing(r *Registry, u *User, m irc.Message) error {
	u.Send(irc.Message{Command: "PONG", Params: m.Params})
	return nil
}

// handleCap is a no-op passthrough (see SPEC_FULL.md section E): CAP
// predates our protocol support and we simply never choke on it.
func handleCap(r *Registry, u *User, m irc.Message) error {
	return nil
}
