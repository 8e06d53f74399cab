package ircd

import (
	"github.com/relaine/ircd/internal/irc"
)

// handlePreRegistrationCommand implements the registration state machine
// (spec.md section 4.3): NICK, USER, PASS, PING (and SERVER, which we have
// nothing to do with) are recognized before registration completes;
// everything else, including QUIT, is silently dropped, matching spec.md's
// recognized-input list and pyircd's registration loop, which only wires up
// those commands until a User object exists.
func (r *Registry) handlePreRegistrationCommand(conn *Connection, m irc.Message) {
	switch m.Command {
	case "NICK":
		r.preRegNick(conn, m)
	case "USER":
		r.preRegUser(conn, m)
	case "PASS":
		// Accepted and ignored: spec.md carries no server-linking password
		// scheme for client connections, only PASS's bare syntax.
	case "PING":
		conn.Send(irc.Message{Command: "PONG", Params: m.Params})
	case "CAP":
		// No-op passthrough: CAP predates our protocol support and clients
		// that probe it before NICK/USER should not be disconnected for it.
	}
}

func (r *Registry) preRegNick(conn *Connection, m irc.Message) {
	if len(m.Params) < 1 {
		conn.Send(irc.Message{
			Source:  r.config.Hostname,
			Command: irc.ErrNeedMoreParams.Code,
			Params:  append([]string{"*"}, irc.ErrNeedMoreParams.Render("NICK")...),
		})
		return
	}

	nick := m.Params[0]
	if !isValidNick(nick) {
		return
	}

	if _, taken := r.usedNicks[canonicalizeNick(nick)]; taken {
		conn.Send(irc.Message{
			Source:  r.config.Hostname,
			Command: irc.ErrNicknameInUse.Code,
			Params:  append([]string{"*"}, irc.ErrNicknameInUse.Render(nick)...),
		})
		return
	}

	conn.PreNick = nick
	conn.NickDone = true

	r.maybeCompleteRegistration(conn)
}

func (r *Registry) preRegUser(conn *Connection, m irc.Message) {
	if len(m.Params) < 4 {
		conn.Send(irc.Message{
			Source:  r.config.Hostname,
			Command: irc.ErrNeedMoreParams.Code,
			Params:  append([]string{"*"}, irc.ErrNeedMoreParams.Render("USER")...),
		})
		return
	}

	username := m.Params[0]
	if !isValidUser(username) {
		return
	}

	conn.PreUsername = username
	conn.PreRealName = m.Params[3]
	conn.UserDone = true

	r.maybeCompleteRegistration(conn)
}

// maybeCompleteRegistration finishes registration once both NICK and USER
// have been received, re-checking nick uniqueness at completion time
// rather than trusting the check made when NICK first arrived: two
// connections can race NICK for the same name before either finishes USER,
// and the FSM's literal per-command description alone would let the second
// one through. This strengthens invariants 1 and 5 beyond the original's
// description of the FSM (see DESIGN.md).
func (r *Registry) maybeCompleteRegistration(conn *Connection) {
	if !conn.NickDone || !conn.UserDone {
		return
	}

	canon := canonicalizeNick(conn.PreNick)
	if _, taken := r.usedNicks[canon]; taken {
		conn.Send(irc.Message{
			Source:  r.config.Hostname,
			Command: irc.ErrNicknameInUse.Code,
			Params:  append([]string{"*"}, irc.ErrNicknameInUse.Render(conn.PreNick)...),
		})
		conn.NickDone = false
		return
	}

	u := newUser(conn, conn.PreNick, conn.PreUsername, conn.PreRealName, conn.RemoteHost)

	r.users[conn.ID] = u
	r.usedNicks[canon] = u
	conn.State = StateRegistered

	r.sendNumeric(u, irc.RplWelcome, u.Nick, u.Username, u.Host)
	r.sendNumeric(u, irc.RplYourHost, r.config.Hostname, r.config.Version)
	r.sendNumeric(u, irc.RplCreated, r.startedAt.Format("Mon Jan 2 2006 15:04:05 MST"))
	r.sendNumeric(u, irc.RplMyInfo, r.config.Hostname, r.config.Version, serverUserModes, serverChannelModes)
	r.sendISupport(u)
	r.sendMotd(u)
}
