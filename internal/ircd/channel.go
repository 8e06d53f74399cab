package ircd

import (
	"strconv"
	"strings"

	"github.com/relaine/ircd/internal/irc"
)

// Mode classes, grounded on pyircd/channel.py's PARAM_MODES/SIMPLE_MODES/
// USER_MODES, adjusted to the letters spec.md's data model names.
const (
	simpleModes = "msitn"
	userModes   = "ov"
)

// Channel holds everything about one channel: membership (in join order),
// per-user-in-channel modes, simple channel modes, topic, key, limit, and
// ban/except masks.
//
// Ban and except masks are stored here as plain mask lists rather than in
// UserModes, resolving spec.md's open question about PERSISTENT_MODES: 'b'
// is not a per-user mode at all, so PART has nothing of that kind to carry
// across.
type Channel struct {
	Name string

	Users []*User

	// UserModes maps a member's unique id to their in-channel mode set (o,
	// v). Entries are removed as soon as the set becomes empty.
	UserModes map[uint64]map[byte]struct{}

	Modes map[byte]struct{}

	Topic *string
	Limit *int
	Key   *string

	BanMasks    []string
	ExceptMasks []string
}

func newChannel(name string) *Channel {
	return &Channel{
		Name:      name,
		UserModes: map[uint64]map[byte]struct{}{},
		Modes:     map[byte]struct{}{},
	}
}

// Contains reports whether u is a member.
func (c *Channel) Contains(u *User) bool {
	for _, m := range c.Users {
		if m == u {
			return true
		}
	}
	return false
}

// Join adds u to the channel, checking key and limit first. A user already
// present is a silent no-op (no second broadcast), matching pyircd's
// Channel.join.
func (c *Channel) Join(u *User, key string) error {
	if c.Contains(u) {
		return nil
	}

	if c.Key != nil && key != *c.Key {
		return BadKey{Channel: c.Name}
	}

	if c.Limit != nil && len(c.Users) == *c.Limit {
		return ChannelFull{Channel: c.Name}
	}

	c.Users = append(c.Users, u)
	u.addChannel(c)

	c.broadcast(irc.Message{
		Source:  u.Identifier(),
		Command: "JOIN",
		Params:  []string{c.Name},
	})

	return nil
}

// Part removes u from the channel, notifying members. If u is not a member
// it sends ERR_NOTONCHANNEL directly to u (this is not routed through the
// error-translator middleware: the original and spec.md both treat it as a
// direct reply from the channel operation, not a propagated failure).
func (c *Channel) Part(r *Registry, u *User, reason string) {
	if !c.Contains(u) {
		r.sendNumeric(u, irc.ErrNotOnChannel, c.Name)
		return
	}

	c.removeMember(u)
	u.removeChannel(c)

	params := []string{c.Name}
	if reason != "" {
		params = append(params, reason)
	}

	c.broadcast(irc.Message{
		Source:   u.Identifier(),
		Command:  "PART",
		Params:   params,
		Trailing: reason != "",
	})

	if len(c.Users) == 0 {
		r.removeChannel(c)
	}
}

// removeMember drops u from membership and any per-user modes it holds.
// There are currently no persistent per-user modes (see the ban-mask note
// on Channel); everything in UserModes is dropped.
func (c *Channel) removeMember(u *User) {
	for i, m := range c.Users {
		if m == u {
			c.Users = append(c.Users[:i], c.Users[i+1:]...)
			break
		}
	}
	delete(c.UserModes, u.UniqueID)
}

// paramIter walks a parameter list. next reports false once it is
// exhausted; each caller decides whether that is InsufficientParams.
type paramIter struct {
	params []string
	pos    int
}

func (p *paramIter) next() (string, bool) {
	if p.pos >= len(p.params) {
		return "", false
	}
	v := p.params[p.pos]
	p.pos++
	return v, true
}

// TryModeChanges applies a sign-prefixed mode string (e.g. "+ov", "-l") to
// the channel on behalf of user, consuming params left to right. Every
// change (add or remove) requires the setter to hold 'o' in this channel;
// spec.md's component design makes this uniform for add and remove, unlike
// pyircd's try_remove_mode, which only checked permission on removal by
// accident of how it called can_set_mode (see DESIGN.md).
func (c *Channel) TryModeChanges(r *Registry, user *User, modestring string, params []string) error {
	if len(modestring) == 0 {
		return nil
	}

	adding := modestring[0] == '+'
	removing := modestring[0] == '-'
	if !adding && !removing {
		// A bare query prefix; reserved, currently a no-op per spec.md 4.5.
		return nil
	}

	pi := &paramIter{params: params}

	for i := 1; i < len(modestring); i++ {
		mode := modestring[i]

		if !c.canSetMode(user) {
			return NeedChanOp{Channel: c.Name}
		}

		var err error
		if adding {
			err = c.addMode(r, mode, user, pi)
		} else {
			err = c.removeMode(r, mode, user, pi)
		}
		if err != nil {
			return err
		}
	}

	return nil
}

func (c *Channel) canSetMode(user *User) bool {
	return c.modeOnUser('o', user)
}

func (c *Channel) canSetTopic(user *User) bool {
	return c.modeOnUser('o', user)
}

func (c *Channel) addMode(r *Registry, mode byte, user *User, pi *paramIter) error {
	if strings.IndexByte(userModes, mode) != -1 {
		return c.tryAddUserMode(r, user, mode, pi)
	}

	if strings.IndexByte(simpleModes, mode) != -1 {
		c.Modes[mode] = struct{}{}
		c.broadcast(irc.Message{
			Source:  user.Identifier(),
			Command: "MODE",
			Params:  []string{c.Name, "+" + string(mode)},
		})
		return nil
	}

	switch mode {
	case 'l':
		param, ok := pi.next()
		if !ok {
			return InsufficientParams{Command: "MODE"}
		}
		n, err := strconv.Atoi(param)
		if err != nil || n < 0 {
			// Spec.md: silently leave the limit unchanged on a non-integer.
			return nil
		}
		c.Limit = &n
		c.broadcast(irc.Message{
			Source:  user.Identifier(),
			Command: "MODE",
			Params:  []string{c.Name, "+l", param},
		})
	case 'k':
		param, ok := pi.next()
		if !ok {
			return InsufficientParams{Command: "MODE"}
		}
		c.Key = &param
		c.broadcast(irc.Message{
			Source:  user.Identifier(),
			Command: "MODE",
			Params:  []string{c.Name, "+k", param},
		})
	case 'b':
		param, ok := pi.next()
		if !ok {
			return InsufficientParams{Command: "MODE"}
		}
		c.BanMasks = append(c.BanMasks, param)
		c.broadcast(irc.Message{
			Source:  user.Identifier(),
			Command: "MODE",
			Params:  []string{c.Name, "+b", param},
		})
	case 'e':
		param, ok := pi.next()
		if !ok {
			return InsufficientParams{Command: "MODE"}
		}
		c.ExceptMasks = append(c.ExceptMasks, param)
		c.broadcast(irc.Message{
			Source:  user.Identifier(),
			Command: "MODE",
			Params:  []string{c.Name, "+e", param},
		})
	}

	return nil
}

func (c *Channel) removeMode(r *Registry, mode byte, user *User, pi *paramIter) error {
	if strings.IndexByte(userModes, mode) != -1 {
		return c.tryRemoveUserMode(r, user, mode, pi)
	}

	if strings.IndexByte(simpleModes, mode) != -1 {
		delete(c.Modes, mode)
		c.broadcast(irc.Message{
			Source:  user.Identifier(),
			Command: "MODE",
			Params:  []string{c.Name, "-" + string(mode)},
		})
		return nil
	}

	switch mode {
	case 'l':
		c.Limit = nil
		c.broadcast(irc.Message{
			Source:  user.Identifier(),
			Command: "MODE",
			Params:  []string{c.Name, "-l"},
		})
	case 'k':
		c.Key = nil
		c.broadcast(irc.Message{
			Source:  user.Identifier(),
			Command: "MODE",
			Params:  []string{c.Name, "-k"},
		})
	case 'b':
		param, ok := pi.next()
		if !ok {
			return nil
		}
		c.BanMasks = removeFirst(c.BanMasks, param)
		c.broadcast(irc.Message{
			Source:  user.Identifier(),
			Command: "MODE",
			Params:  []string{c.Name, "-b", param},
		})
	case 'e':
		param, ok := pi.next()
		if !ok {
			return nil
		}
		c.ExceptMasks = removeFirst(c.ExceptMasks, param)
		c.broadcast(irc.Message{
			Source:  user.Identifier(),
			Command: "MODE",
			Params:  []string{c.Name, "-e", param},
		})
	}

	return nil
}

func removeFirst(masks []string, mask string) []string {
	for i, m := range masks {
		if m == mask {
			return append(masks[:i], masks[i+1:]...)
		}
	}
	return masks
}

func (c *Channel) tryAddUserMode(r *Registry, setter *User, mode byte, pi *paramIter) error {
	target, ok := pi.next()
	if !ok {
		return InsufficientParams{Command: "MODE"}
	}

	tuser, err := r.GetUser(target)
	if err != nil || !c.Contains(tuser) {
		r.sendNumeric(setter, irc.ErrUserNotInChannel, target, c.Name)
		return nil
	}

	c.addModeToUser(mode, tuser, setter.Identifier())
	return nil
}

func (c *Channel) tryRemoveUserMode(r *Registry, setter *User, mode byte, pi *paramIter) error {
	target, ok := pi.next()
	if !ok {
		return InsufficientParams{Command: "MODE"}
	}

	tuser, err := r.GetUser(target)
	if err != nil || !c.Contains(tuser) {
		r.sendNumeric(setter, irc.ErrUserNotInChannel, target, c.Name)
		return nil
	}

	c.removeModeFromUser(mode, tuser, setter.Identifier())
	return nil
}

// addModeToUser sets mode on user within the channel and notifies members.
func (c *Channel) addModeToUser(mode byte, user *User, source string) {
	set, ok := c.UserModes[user.UniqueID]
	if !ok {
		set = map[byte]struct{}{}
		c.UserModes[user.UniqueID] = set
	}
	set[mode] = struct{}{}

	c.broadcast(irc.Message{
		Source:  source,
		Command: "MODE",
		Params:  []string{c.Name, "+" + string(mode), user.Nick},
	})
}

func (c *Channel) removeModeFromUser(mode byte, user *User, source string) {
	set, ok := c.UserModes[user.UniqueID]
	if ok {
		delete(set, mode)
		if len(set) == 0 {
			delete(c.UserModes, user.UniqueID)
		}
	}

	c.broadcast(irc.Message{
		Source:  source,
		Command: "MODE",
		Params:  []string{c.Name, "-" + string(mode), user.Nick},
	})
}

// modeOnUser reports whether user holds mode within this channel.
func (c *Channel) modeOnUser(mode byte, user *User) bool {
	set, ok := c.UserModes[user.UniqueID]
	if !ok {
		return false
	}
	_, ok = set[mode]
	return ok
}

// Msg broadcasts a PRIVMSG to every member except source.
func (c *Channel) Msg(source *User, text string) {
	msg := irc.Message{
		Source:  source.Identifier(),
		Command: "PRIVMSG",
		Params:  []string{c.Name, text},
	}
	for _, u := range snapshot(c.Users) {
		if u == source {
			continue
		}
		u.Send(msg)
	}
}

// modePrefix returns the NAMES/WHO display prefix for u: '@' for ops, '+'
// for voice, else "".
func (c *Channel) modePrefix(u *User) string {
	if c.modeOnUser('o', u) {
		return "@"
	}
	if c.modeOnUser('v', u) {
		return "+"
	}
	return ""
}

// SendWho sends RPL_WHOREPLY for each member, then RPL_ENDOFWHO.
func (c *Channel) SendWho(r *Registry, target *User) {
	for _, u := range snapshot(c.Users) {
		r.sendNumeric(target, irc.RplWhoReply,
			c.Name, u.Username, u.Host, r.config.Hostname, u.Nick, c.modePrefix(u), u.RealName)
	}
	r.sendNumeric(target, irc.RplEndOfWho, c.Name)
}

// SendUserList sends RPL_NAMREPLY (one line, all members) then
// RPL_ENDOFNAMES.
func (c *Channel) SendUserList(r *Registry, target *User) {
	var nicks []string
	for _, u := range c.Users {
		nicks = append(nicks, c.modePrefix(u)+u.Nick)
	}
	r.sendNumeric(target, irc.RplNamReply, c.Name, strings.Join(nicks, " "))
	r.sendNumeric(target, irc.RplEndOfNames, c.Name)
}

// SendTopic sends the current topic, or RPL_NOTOPIC if unset.
func (c *Channel) SendTopic(r *Registry, target *User) {
	if c.Topic != nil {
		r.sendNumeric(target, irc.RplTopic, c.Name, *c.Topic)
		return
	}
	r.sendNumeric(target, irc.RplNoTopic, c.Name)
}

// SendModeInfo sends RPL_CHANNELMODEIS. Limit/key values are only disclosed
// to channel operators; non-ops receive the bare mode letters (spec.md
// open question 5).
func (c *Channel) SendModeInfo(r *Registry, target *User) {
	var letters strings.Builder
	for _, m := range []byte(simpleModes) {
		if _, ok := c.Modes[m]; ok {
			letters.WriteByte(m)
		}
	}

	var values []string
	if c.Limit != nil {
		letters.WriteByte('l')
		if c.modeOnUser('o', target) {
			values = append(values, strconv.Itoa(*c.Limit))
		}
	}
	if c.Key != nil {
		letters.WriteByte('k')
		if c.modeOnUser('o', target) {
			values = append(values, *c.Key)
		}
	}

	blob := c.Name + " +" + letters.String() + " " + strings.Join(values, " ")
	target.Send(irc.Message{
		Source:  r.config.Hostname,
		Command: irc.RplChannelModeIs.Code,
		Params:  append([]string{target.Nick}, irc.RenderBlob(blob)...),
	})
}

// TrySetTopic sets or clears the topic, requiring 'o'. An empty string
// clears the topic without a broadcast (matching pyircd's try_set_topic,
// which does not notify members of a clear).
func (c *Channel) TrySetTopic(user *User, topic string) error {
	if !c.canSetTopic(user) {
		return NeedChanOp{Channel: c.Name}
	}

	if topic == "" {
		c.Topic = nil
		return nil
	}

	if len(topic) > maxTopicLength {
		topic = topic[:maxTopicLength]
	}

	c.Topic = &topic
	c.broadcast(irc.Message{
		Source:  user.Identifier(),
		Command: "TOPIC",
		Params:  []string{c.Name, topic},
	})
	return nil
}

// broadcast sends msg to every member, in join order, using a snapshot so a
// handler that mutates membership mid-broadcast (e.g. a kick) can't corrupt
// iteration. See spec.md's note on the original's non-reentrant iterator.
func (c *Channel) broadcast(msg irc.Message) {
	for _, u := range snapshot(c.Users) {
		u.Send(msg)
	}
}

func snapshot(users []*User) []*User {
	cp := make([]*User, len(users))
	copy(cp, users)
	return cp
}
