package ircd

import (
	"github.com/relaine/ircd/internal/irc"
)

// HandlerFunc is a registered user's command handler, after minimum
// parameter checking. Returning a taxonomy error from errors.go translates
// to a numeric reply; returning nil means the handler fully handled the
// command (including sending any numerics itself).
type HandlerFunc func(r *Registry, u *User, m irc.Message) error

// minParams wraps h with a minimum-parameter check, matching pyircd's
// @min_params(N) decorator (user.py) generalized into ordinary function
// composition per spec.md's design note on dynamic dispatch.
func minParams(n int, h HandlerFunc) HandlerFunc {
	return func(r *Registry, u *User, m irc.Message) error {
		if len(m.Params) < n {
			return InsufficientParams{Command: m.Command}
		}
		return h(r, u, m)
	}
}

// dispatch runs h and translates any returned error to a numeric reply sent
// to u. This is the single error-translator middleware spec.md section 4.4
// calls for, replacing pyircd's per-decorator exception catches with one
// type switch.
func (r *Registry) dispatch(u *User, m irc.Message, h HandlerFunc) {
	err := h(r, u, m)
	if err == nil {
		return
	}
	r.replyError(u, m.Command, err)
}

// replyError is the type switch itself, factored out of dispatch so
// handlers that call a sub-operation per comma-separated target (JOIN,
// PRIVMSG, WHOIS) can translate each failure the same way without
// re-entering the full dispatch/minParams wrapping.
func (r *Registry) replyError(u *User, command string, err error) {
	switch e := err.(type) {
	case NoSuchUser:
		r.sendNumeric(u, irc.ErrNoSuchNick, e.Target)
	case NoSuchChannel:
		r.sendNumeric(u, irc.ErrNoSuchChannel, e.Name)
	case InsufficientParams:
		r.sendNumeric(u, irc.ErrNeedMoreParams, e.Command)
	case BadKey:
		r.sendNumeric(u, irc.ErrBadChannelKey, e.Channel)
	case ChannelFull:
		r.sendNumeric(u, irc.ErrChannelIsFull, e.Channel)
	case NeedChanOp:
		r.sendNumeric(u, irc.ErrChanOprivsNeeded, e.Channel)
	case InvalidChannel:
		r.sendNumeric(u, irc.ErrBadChanMask, e.Name)
	case UsersDontMatch:
		r.sendNumeric(u, irc.ErrUsersDontMatch)
	default:
		r.logger.WithError(err).WithField("command", command).
			Error("unhandled error from command handler")
	}
}
