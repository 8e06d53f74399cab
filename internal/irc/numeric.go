package irc

import "fmt"

// Numeric describes one numeric reply: its code and a template rendered
// with positional arguments via fmt.Sprintf. It has no separate trailing
// flag: a ':' in the template marks where the trailing parameter starts,
// and Render returns plain params without recording it, so on the wire the
// last param gets a ':' only when Encode needs one (it contains a space, is
// empty, or starts with ':').
type Numeric struct {
	Code     string
	Template string
}

// Render formats the numeric's template against args, then splits the
// result exactly like an inbound line's params section would be split: a
// run of leading middle-params followed by an optional ':'-introduced
// trailing parameter that may embed spaces. This mirrors how the Python
// original built every numeric reply (format the template, then re-run the
// line splitter against the rendered text) instead of hand-assembling a
// params slice per numeric.
func (n Numeric) Render(args ...interface{}) []string {
	return RenderBlob(fmt.Sprintf(n.Template, args...))
}

// RenderBlob splits an already-formatted numeric body into wire params. Use
// this directly for numerics whose param list is assembled conditionally by
// the caller (e.g. RPL_CHANNELMODEIS, which discloses limit/key values only
// to channel operators) rather than from one fixed template.
func RenderBlob(blob string) []string {
	params, _ := splitParamText(blob)
	return params
}

// The numeric catalog required by the wire protocol. Codes and templates
// are fixed by the protocol; see each handler for which arguments are
// supplied in which order.
var (
	RplWelcome      = Numeric{"001", ":Welcome to the Internet Relay Network %s!%s@%s"}
	RplYourHost     = Numeric{"002", ":Your host is %s, running version %s"}
	RplCreated      = Numeric{"003", ":This server was created %s"}
	RplMyInfo       = Numeric{"004", "%s %s %s %s"}
	RplISupport     = Numeric{"005", "PREFIX=(ov)@+ CHANTYPES=#& NETWORK=%s CASEMAPPING=ascii CHANMODES=beI,k,l,imnst EXCEPTS=e CHANNELLEN=32 :are supported by this server"}
	RplUModeIs      = Numeric{"221", "+%s"}
	RplWhoisUser    = Numeric{"311", "%s %s %s * :%s"}
	RplWhoisServer  = Numeric{"312", "%s %s :%s"}
	RplEndOfWho     = Numeric{"315", "%s :End of WHO List"}
	RplWhoisIdle    = Numeric{"317", "%s %d :seconds idle"}
	RplEndOfWhois   = Numeric{"318", "%s :End of WHOIS list"}
	RplWhoisChans   = Numeric{"319", "%s :%s"}
	RplChannelModeIs = Numeric{"324", "%s +%s %s"}
	RplNoTopic      = Numeric{"331", "%s :No topic is set"}
	RplTopic        = Numeric{"332", "%s :%s"}
	RplWhoReply     = Numeric{"352", "%s %s %s %s %s H%s :0 %s"}
	RplNamReply     = Numeric{"353", "= %s :%s"}
	RplEndOfNames   = Numeric{"366", "%s :End of NAMES List"}
	RplMotd         = Numeric{"372", ":- %s"}
	RplMotdStart    = Numeric{"375", ":- %s Message of the day - "}
	RplEndOfMotd    = Numeric{"376", ":End of MOTD"}
	RplYoureOper    = Numeric{"381", ":You are now an IRC operator"}
	ErrNoSuchNick   = Numeric{"401", "%s :No such nick/channel"}
	ErrNoSuchChannel = Numeric{"403", "%s :No such channel"}
	ErrUnknownCommand = Numeric{"421", "%s :Unknown command"}
	ErrNicknameInUse = Numeric{"433", "%s :Nickname already in use"}
	ErrUserNotInChannel = Numeric{"441", "%s %s :They aren't on that channel"}
	ErrNotOnChannel = Numeric{"442", "%s :You're not on that channel"}
	ErrNeedMoreParams = Numeric{"461", "%s :Not enough parameters"}
	ErrPasswdMismatch = Numeric{"464", ":Password incorrect"}
	ErrChannelIsFull = Numeric{"471", "%s :Cannot join channel (+l)"}
	ErrBadChannelKey = Numeric{"475", "%s :Cannot join channel (+k)"}
	ErrBadChanMask  = Numeric{"476", "%s :Bad Channel Mask"}
	ErrChanOprivsNeeded = Numeric{"482", "%s :You're not channel operator"}
	ErrUsersDontMatch = Numeric{"502", ":Cannot change mode for other users"}
)
