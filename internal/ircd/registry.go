// Package ircd implements the protocol core of a single-node IRC server:
// the registration state machine, user command dispatcher, channel model,
// and server registry described by this repository's design documents. The
// transport acceptor and CLI live in cmd/ircd; this package owns everything
// from an accepted TCP connection onward.
package ircd

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/relaine/ircd/internal/irc"
)

const (
	ioWait           = 4 * time.Minute
	idleTimeBeforePing = time.Minute
	idleTimeBeforeDead = 4 * time.Minute
	alarmInterval      = 30 * time.Second
)

// Registry is the single-threaded reactor and server registry: the only
// place mutable state about connections, users, and channels lives.
// Everything else (Connection, User, Channel) is passed it explicitly,
// rather than reaching for an ambient singleton, per spec.md's design note
// on the global registry.
type Registry struct {
	config Config

	conns          map[uint64]*Connection
	users          map[uint64]*User
	usedNicks      map[string]*User
	channelsByName map[string]*Channel

	nextID uint64

	startedAt time.Time

	logger *logrus.Entry
}

// serverUserModes and serverChannelModes are advertised in RPL_MYINFO: the
// full set of mode letters this server understands, for user modes and
// channel modes respectively.
const (
	serverUserModes    = "Oiws"
	serverChannelModes = simpleModes + userModes + "lkbe"
)

// NewRegistry builds an empty registry for the given configuration.
func NewRegistry(config Config, logger *logrus.Entry) *Registry {
	return &Registry{
		config:         config,
		conns:          map[uint64]*Connection{},
		users:          map[uint64]*User{},
		usedNicks:      map[string]*User{},
		channelsByName: map[string]*Channel{},
		startedAt:      time.Now(),
		logger:         logger,
	}
}

// Run listens on ln and drives the reactor loop. It does not return:
// acceptLoop logs a failed Accept and keeps accepting.
func (r *Registry) Run(ln net.Listener) error {
	newConnChan := make(chan *Connection, 100)
	inboundChan := make(chan inboundLine, 100)
	deadConnChan := make(chan *Connection, 100)

	go r.acceptLoop(ln, newConnChan)

	alarmChan := time.Tick(alarmInterval)

	for {
		select {
		case conn := <-newConnChan:
			r.conns[conn.ID] = conn
			r.logger.WithField("conn_id", conn.ID).Info("new connection")
			go conn.readLoop(inboundChan, deadConnChan)
			go conn.writeLoop(deadConnChan)

		case line := <-inboundChan:
			r.handleLine(line.conn, line.line)

		case conn := <-deadConnChan:
			r.handleDisconnect(conn, "Connection Lost")

		case <-alarmChan:
			r.checkIdleConnections()
		}
	}
}

// acceptLoop accepts connections and announces them. The only registry
// state it touches is nextID, which no other goroutine uses; everything
// else is mutated inside the reactor loop.
func (r *Registry) acceptLoop(ln net.Listener, newConnChan chan<- *Connection) {
	for {
		netConn, err := ln.Accept()
		if err != nil {
			r.logger.WithError(err).Error("accept failed")
			continue
		}

		r.nextID++
		conn := newConnection(r.nextID, netConn, ioWait, r.logger)
		conn.lastActivity = time.Now()
		newConnChan <- conn
	}
}

// handleLine parses one line from conn and routes it to the registration
// FSM or the registered user dispatcher.
func (r *Registry) handleLine(conn *Connection, line string) {
	conn.lastActivity = time.Now()

	m, err := irc.ParseMessage(line)
	if err != nil {
		// InvalidMessage: discard the line, keep the connection open.
		r.logger.WithError(err).Debug("discarding unparseable line")
		return
	}

	if conn.State == StateRegistered {
		u, ok := r.users[conn.ID]
		if !ok {
			return
		}
		r.handleUserCommand(u, m)
		return
	}

	r.handlePreRegistrationCommand(conn, m)
}

// handleDisconnect tears down a connection: if it had completed
// registration, its User is quit with reason; otherwise it is simply
// forgotten. Idempotent against being invoked twice for the same
// connection.
func (r *Registry) handleDisconnect(conn *Connection, reason string) {
	if _, ok := r.conns[conn.ID]; !ok {
		return
	}

	if conn.State == StateRegistered {
		if u, ok := r.users[conn.ID]; ok {
			r.quitUser(u, reason)
		}
	}

	conn.State = StateClosed
	delete(r.conns, conn.ID)
	conn.closeOutbound()
}

// checkIdleConnections pings clients idle past idleTimeBeforePing and drops
// ones idle past idleTimeBeforeDead. Adapted from horgh/catbox's
// checkAndPingClients (ircd.go).
func (r *Registry) checkIdleConnections() {
	now := time.Now()

	for _, conn := range r.conns {
		idle := now.Sub(conn.lastActivity)

		if conn.State != StateRegistered {
			if idle > idleTimeBeforeDead {
				r.handleDisconnect(conn, "Idle too long")
			}
			continue
		}

		if idle < idleTimeBeforePing {
			continue
		}

		if idle > idleTimeBeforeDead {
			u := r.users[conn.ID]
			if u != nil {
				r.quitUser(u, fmt.Sprintf("Ping timeout: %d seconds", int(idle.Seconds())))
			}
			conn.State = StateClosed
			delete(r.conns, conn.ID)
			conn.closeOutbound()
			continue
		}

		conn.Send(irc.Message{Command: "PING", Params: []string{r.config.Hostname}})
	}
}

// sendNumeric renders n with args, prepends the recipient's nick, and sends
// it from the server. This is the one path every numeric reply goes
// through (spec.md section 4.2): format, split like an inbound line, send.
func (r *Registry) sendNumeric(u *User, n irc.Numeric, args ...interface{}) {
	params := append([]string{u.Nick}, n.Render(args...)...)
	u.Send(irc.Message{
		Source:  r.config.Hostname,
		Command: n.Code,
		Params:  params,
	})
}

// GetUser looks up a registered user by nick, raising NoSuchUser on miss.
func (r *Registry) GetUser(nick string) (*User, error) {
	u, ok := r.usedNicks[canonicalizeNick(nick)]
	if !ok {
		return nil, NoSuchUser{Target: nick}
	}
	return u, nil
}

// GetChannel looks up a channel by name, raising NoSuchChannel on miss.
func (r *Registry) GetChannel(name string) (*Channel, error) {
	c, ok := r.channelsByName[canonicalizeChannel(name)]
	if !ok {
		return nil, NoSuchChannel{Name: name}
	}
	return c, nil
}

func (r *Registry) removeChannel(c *Channel) {
	delete(r.channelsByName, c.Name)
}

// joinUserToChannel implements the registry glue spec.md section 4.6
// calls join_user_to_channel: find-or-create the channel, delegate to
// Channel.Join, promote the first joiner of a freshly-created channel to
// op, then send topic and names.
func (r *Registry) joinUserToChannel(u *User, name, key string) error {
	canon := canonicalizeChannel(name)

	c, exists := r.channelsByName[canon]
	if !exists {
		if !isValidChannel(canon) {
			return InvalidChannel{Name: name}
		}
		c = newChannel(canon)
		r.channelsByName[canon] = c
	}

	wasEmpty := len(c.Users) == 0

	if err := c.Join(u, key); err != nil {
		return err
	}

	if wasEmpty {
		c.addModeToUserSilently('o', u)
	}

	c.SendTopic(r, u)
	c.SendUserList(r, u)

	return nil
}

// addModeToUserSilently sets mode without a MODE broadcast, used only for
// the server's automatic op grant to a channel's first joiner, which
// spec.md section 4.5 describes as the registry acting, not a broadcast
// mode change.
func (c *Channel) addModeToUserSilently(mode byte, u *User) {
	set, ok := c.UserModes[u.UniqueID]
	if !ok {
		set = map[byte]struct{}{}
		c.UserModes[u.UniqueID] = set
	}
	set[mode] = struct{}{}
}

// quitUser removes u from the registry and parts it from every channel it
// had joined, in a snapshot so parting from one channel can't disturb
// iteration over the rest. Idempotent.
func (r *Registry) quitUser(u *User, reason string) {
	if _, ok := r.users[u.UniqueID]; !ok {
		return
	}

	if reason == "" {
		reason = "Client Quit"
	}

	channels := make([]*Channel, len(u.Channels))
	copy(channels, u.Channels)

	told := map[uint64]struct{}{}
	quitMsg := irc.Message{Source: u.Identifier(), Command: "QUIT", Params: []string{reason}}

	for _, c := range channels {
		for _, member := range c.Users {
			if member == u {
				continue
			}
			if _, already := told[member.UniqueID]; already {
				continue
			}
			member.Send(quitMsg)
			told[member.UniqueID] = struct{}{}
		}
		c.removeMember(u)
		if len(c.Users) == 0 {
			r.removeChannel(c)
		}
	}

	delete(r.users, u.UniqueID)
	delete(r.usedNicks, canonicalizeNick(u.Nick))
}

// tryMakeOper checks name/pass against the configured operator list with
// an exact, case-sensitive string comparison (spec.md gives no hashing
// scheme, and explicitly wants literal comparison).
func (r *Registry) tryMakeOper(u *User, name, pass string) {
	for _, o := range r.config.Opers {
		if o.Name == name && o.Pass == pass {
			u.Modes['O'] = struct{}{}
			r.sendNumeric(u, irc.RplYoureOper)
			return
		}
	}

	r.logger.WithField("nick", u.Nick).Warn("failed OPER attempt")
	r.sendNumeric(u, irc.ErrPasswdMismatch)
}

// sendMotd sends the MOTD numeric sequence: start, one RPL_MOTD line per
// configured MOTD line, end.
func (r *Registry) sendMotd(u *User) {
	r.sendNumeric(u, irc.RplMotdStart, r.config.Hostname)
	for _, line := range strings.Split(r.config.MOTD, "\n") {
		r.sendNumeric(u, irc.RplMotd, line)
	}
	r.sendNumeric(u, irc.RplEndOfMotd)
}

// sendISupport sends RPL_ISUPPORT.
func (r *Registry) sendISupport(u *User) {
	r.sendNumeric(u, irc.RplISupport, r.config.NetName)
}

// sendWhois sends the full WHOIS numeric sequence for target to requester,
// or NoSuchUser if target isn't registered.
func (r *Registry) sendWhois(requester *User, target string) error {
	tu, err := r.GetUser(target)
	if err != nil {
		return err
	}

	r.sendNumeric(requester, irc.RplWhoisUser, tu.Nick, tu.Username, tu.Host, tu.RealName)
	r.sendNumeric(requester, irc.RplWhoisServer, tu.Nick, r.config.Hostname, r.config.Info)

	if len(tu.Channels) > 0 {
		names := make([]string, len(tu.Channels))
		for i, c := range tu.Channels {
			names[i] = c.modePrefix(tu) + c.Name
		}
		r.sendNumeric(requester, irc.RplWhoisChans, tu.Nick, strings.Join(names, " "))
	}

	r.sendNumeric(requester, irc.RplWhoisIdle, tu.Nick, tu.idleSeconds())
	r.sendNumeric(requester, irc.RplEndOfWhois, tu.Nick)

	return nil
}
