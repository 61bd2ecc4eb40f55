package query

import "strings"

// computeBody implements sbk_get_body: it returns a synthesized body
// for any message whose type matches one of the priority-ordered
// templates below, or ("", false) to leave the literal `body` column
// value untouched. name is the message's counterparty display name,
// substituted for "%s".
//
// Per spec §9's Open Question: bit combinations the source never
// documents as mutually exclusive are resolved by priority order
// alone — the first matching condition wins and no attempt is made to
// detect or flag unusual combinations beyond that order.
func computeBody(t Type, name string) (string, bool) {
	outgoing := IsOutgoing(t)

	switch {
	case t&bitEncryptionRemoteFailed != 0:
		return "Bad encrypted message", true
	case t&bitEncryptionRemoteNoSession != 0:
		return "Message encrypted for non-existing session", true
	case t&bitEncryptionRemoteDuplicate != 0:
		return "Duplicate message", true
	case t&bitEncryptionRemoteLegacy != 0 || t&bitEncryptionRemote != 0:
		return "Encrypted message sent from an older version of Signal that is no longer supported", true
	case t&bitGroupUpdate != 0:
		if outgoing {
			return "You updated the group", true
		}
		return fill("%s updated the group", name), true
	case t&bitGroupQuit != 0:
		if outgoing {
			return "You have left the group", true
		}
		return fill("%s has left the group", name), true
	case t&bitEndSession != 0:
		if outgoing {
			return "You reset the secure session", true
		}
		return fill("%s reset the secure session", name), true
	case t&bitKeyExchangeIdentityVerified != 0:
		if outgoing {
			return fill("You marked your safety number with %s verified", name), true
		}
		return fill("You marked your safety number with %s verified from another device", name), true
	case t&bitKeyExchangeIdentityDefault != 0:
		if outgoing {
			return fill("You marked your safety number with %s unverified", name), true
		}
		return fill("You marked your safety number with %s unverified from another device", name), true
	case t&bitKeyExchangeCorrupted != 0:
		return "Corrupt key exchange message", true
	case t&bitKeyExchangeInvalidVersion != 0:
		return "Key exchange message for invalid protocol version", true
	case t&bitKeyExchangeBundle != 0:
		return "Message with new safety number", true
	case t&bitKeyExchangeIdentityUpdate != 0:
		return fill("Your safety number with %s has changed", name), true
	case t&bitKeyExchange != 0:
		return "Key exchange message", true
	}

	switch t & baseTypeMask {
	case baseIncomingAudioCall, baseIncomingVideoCall:
		return fill("%s called you", name), true
	case baseOutgoingAudioCall, baseOutgoingVideoCall:
		return fill("Called %s", name), true
	case baseMissedAudioCall:
		return fill("Missed audio call from %s", name), true
	case baseMissedVideoCall:
		return fill("Missed video call from %s", name), true
	case baseJoined:
		return fill("%s is on Signal", name), true
	case baseUnsupportedMsg:
		return "Unsupported message sent from a newer version of Signal", true
	case baseInvalidMsg:
		return "Invalid message", true
	case baseProfileChange:
		return fill("%s changed their profile", name), true
	case baseGV1Migration:
		return "This group was updated to a new group", true
	}

	return "", false
}

func fill(template, name string) string {
	return strings.Replace(template, "%s", name, 1)
}
