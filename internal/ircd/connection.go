package ircd

import (
	"bufio"
	"net"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/relaine/ircd/internal/irc"
)

// ConnState tracks a connection's place in the registration state machine
// (spec.md section 3): AwaitingRegistration -> Registered -> Closed.
type ConnState int

const (
	// StateAwaitingRegistration is the initial state for every accepted
	// connection.
	StateAwaitingRegistration ConnState = iota
	// StateRegistered means a User has been created for this connection.
	StateRegistered
	// StateClosed means the connection is gone; no more commands are
	// accepted from it.
	StateClosed
)

// Connection is the per-client transport adapter: the read/write loops,
// remote address, unique id, and pre-registration scratch fields. It is
// consumed by the registry's dispatcher. Adapted from horgh/catbox's Conn
// (net.go) and Client (ircd.go), split so registration scratch lives here
// rather than on an ad hoc early-revision Client struct.
type Connection struct {
	ID         uint64
	RemoteHost string

	netConn net.Conn
	rw      *bufio.ReadWriter
	ioWait  time.Duration

	State ConnState

	// Pre-registration scratch. Only meaningful while State is
	// StateAwaitingRegistration.
	PreNick     string
	PreUsername string
	PreRealName string
	NickDone    bool
	UserDone    bool

	outChan chan string

	lastActivity time.Time

	logger *logrus.Entry
}

func newConnection(id uint64, netConn net.Conn, ioWait time.Duration, logger *logrus.Entry) *Connection {
	host, _, err := net.SplitHostPort(netConn.RemoteAddr().String())
	if err != nil {
		host = netConn.RemoteAddr().String()
	}

	return &Connection{
		ID:         id,
		RemoteHost: host,
		netConn:    netConn,
		rw:         bufio.NewReadWriter(bufio.NewReader(netConn), bufio.NewWriter(netConn)),
		ioWait:     ioWait,
		State:      StateAwaitingRegistration,
		outChan:    make(chan string, 100),
		logger:     logger.WithField("conn_id", id),
	}
}

// inboundLine pairs a raw line with the connection it came from, the unit
// of work handed to the registry's reactor loop.
type inboundLine struct {
	conn *Connection
	line string
}

// readLoop reads lines from the socket and hands them to the registry via
// inboundChan until read fails, at which point it reports the connection as
// dead.
func (c *Connection) readLoop(inboundChan chan<- inboundLine, deadChan chan<- *Connection) {
	for {
		if err := c.netConn.SetReadDeadline(time.Now().Add(c.ioWait)); err != nil {
			c.logger.WithError(err).Debug("unable to set read deadline")
		}

		line, err := c.rw.ReadString('\n')
		if err != nil {
			c.logger.WithError(err).Debug("read failed")
			deadChan <- c
			return
		}

		inboundChan <- inboundLine{conn: c, line: line}
	}
}

// writeLoop drains outChan and writes each line to the socket until the
// channel is closed (by the registry, once the connection is torn down),
// then closes the underlying socket.
func (c *Connection) writeLoop(deadChan chan<- *Connection) {
	for line := range c.outChan {
		if err := c.netConn.SetWriteDeadline(time.Now().Add(c.ioWait)); err != nil {
			c.logger.WithError(err).Debug("unable to set write deadline")
		}

		if _, err := c.rw.WriteString(line); err != nil {
			c.logger.WithError(err).Debug("write failed")
			deadChan <- c
			break
		}

		if err := c.rw.Flush(); err != nil {
			c.logger.WithError(err).Debug("flush failed")
			deadChan <- c
			break
		}
	}

	if err := c.netConn.Close(); err != nil {
		c.logger.WithError(err).Debug("close failed")
	}
}

// Send encodes m and queues it for writing. It never blocks the reactor:
// the outbound queue is large and the connection is already slated for
// teardown if it's slow enough to fill it.
func (c *Connection) Send(m irc.Message) {
	line, err := m.Encode()
	if err != nil && err != irc.ErrTruncated {
		c.logger.WithError(err).Warn("failed to encode outbound message")
		return
	}

	// Once closeOutbound has run, sending on outChan panics; the line is
	// dropped instead.
	defer func() { _ = recover() }()

	select {
	case c.outChan <- line:
	default:
		c.logger.Warn("outbound queue full, dropping connection")
		c.closeOutbound()
	}
}

func (c *Connection) closeOutbound() {
	defer func() { _ = recover() }()
	close(c.outChan)
}

func (c *Connection) String() string {
	return c.RemoteHost
}
