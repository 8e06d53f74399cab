package ircd

import "fmt"

// The error taxonomy below gives every protocol-level failure a
// discriminated Go type instead of inline numeric replies scattered through
// handler bodies. middleware.go's replyError type-switches on these to
// pick the matching numeric, mirroring pyircd/errors.py and the catch list
// in pyircd/user.py's handler() decorator, generalized to match the full
// taxonomy spec.md lists in its error handling design.

// NoSuchUser means a nick did not resolve to a registered user.
type NoSuchUser struct{ Target string }

func (e NoSuchUser) Error() string { return fmt.Sprintf("no such user: %s", e.Target) }

// NoSuchChannel means a name did not resolve to an existing channel.
type NoSuchChannel struct{ Name string }

func (e NoSuchChannel) Error() string { return fmt.Sprintf("no such channel: %s", e.Name) }

// InvalidChannel means a channel name failed the syntax check for creation.
type InvalidChannel struct{ Name string }

func (e InvalidChannel) Error() string { return fmt.Sprintf("invalid channel: %s", e.Name) }

// InsufficientParams means a command had fewer parameters than required.
type InsufficientParams struct{ Command string }

func (e InsufficientParams) Error() string {
	return fmt.Sprintf("not enough parameters: %s", e.Command)
}

// BadKey means a JOIN key did not match a channel's +k key.
type BadKey struct{ Channel string }

func (e BadKey) Error() string { return fmt.Sprintf("bad channel key: %s", e.Channel) }

// ChannelFull means a JOIN was rejected because the channel is at its +l
// limit.
type ChannelFull struct{ Channel string }

func (e ChannelFull) Error() string { return fmt.Sprintf("channel full: %s", e.Channel) }

// NeedChanOp means a mode or topic change was attempted by a non-op.
type NeedChanOp struct{ Channel string }

func (e NeedChanOp) Error() string { return fmt.Sprintf("need channel op: %s", e.Channel) }

// NickInUse means a requested nick is already registered.
type NickInUse struct{ Nick string }

func (e NickInUse) Error() string { return fmt.Sprintf("nick in use: %s", e.Nick) }

// UsersDontMatch means a user-mode change targeted a nick other than the
// caller's own.
type UsersDontMatch struct{}

func (e UsersDontMatch) Error() string { return "cannot change mode for other users" }

// InvalidMessage means a line failed to parse. The dispatcher logs and
// discards it; the connection stays open.
type InvalidMessage struct{ Reason string }

func (e InvalidMessage) Error() string { return fmt.Sprintf("invalid message: %s", e.Reason) }
