package permissions

import (
	"sort"
	"strings"
)

// Permission is an opaque string token from a fixed closed set. Tokens found
// in stored data that are not in the catalog are dropped during aggregation
// rather than treated as errors, so retired permissions age out silently.
type Permission string

const (
	ViewChannel        Permission = "VIEW_CHANNEL"
	SendMessages       Permission = "SEND_MESSAGES"
	ManageMessages     Permission = "MANAGE_MESSAGES"
	ReadMessageHistory Permission = "READ_MESSAGE_HISTORY"
	AttachFiles        Permission = "ATTACH_FILES"
	AddReactions       Permission = "ADD_REACTIONS"
	MentionEveryone    Permission = "MENTION_EVERYONE"
	CreateInvite       Permission = "CREATE_INVITE"
	ManageChannels     Permission = "MANAGE_CHANNELS"
	ManageRoles        Permission = "MANAGE_ROLES"
	ManageServer       Permission = "MANAGE_SERVER"
	KickMembers        Permission = "KICK_MEMBERS"
	BanMembers         Permission = "BAN_MEMBERS"
	Administrator      Permission = "ADMINISTRATOR" // terminal escalation; grants the full catalog
)

// catalog is the closed set of known permissions.
var catalog = []Permission{
	ViewChannel,
	SendMessages,
	ManageMessages,
	ReadMessageHistory,
	AttachFiles,
	AddReactions,
	MentionEveryone,
	CreateInvite,
	ManageChannels,
	ManageRoles,
	ManageServer,
	KickMembers,
	BanMembers,
	Administrator,
}

var known = func() map[Permission]struct{} {
	m := make(map[Permission]struct{}, len(catalog))
	for _, p := range catalog {
		m[p] = struct{}{}
	}
	return m
}()

// dmGrants is the fixed permission set granted unconditionally inside DM
// channels. Whether a user may ask at all is gated by recipient membership,
// checked by the caller, not here.
var dmGrants = []Permission{
	ViewChannel,
	SendMessages,
	ManageMessages,
	ReadMessageHistory,
	AttachFiles,
	AddReactions,
	MentionEveryone,
}

// Known reports whether the token belongs to the catalog.
func Known(p Permission) bool {
	_, ok := known[p]
	return ok
}

// DefaultBase is the permission list a freshly provisioned base role grants.
var DefaultBase = []string{
	string(ViewChannel),
	string(SendMessages),
	string(ReadMessageHistory),
	string(AttachFiles),
	string(AddReactions),
	string(CreateInvite),
}

// Set is a mutable set of permission tokens.
type Set map[Permission]struct{}

func NewSet(perms ...Permission) Set {
	s := make(Set, len(perms))
	for _, p := range perms {
		s[p] = struct{}{}
	}
	return s
}

// All returns a fresh set containing the full catalog.
func All() Set {
	return NewSet(catalog...)
}

// DMSet returns a fresh copy of the fixed DM permission set.
func DMSet() Set {
	return NewSet(dmGrants...)
}

// FromTokens builds a set from stored string tokens, dropping unknown ones.
func FromTokens(tokens []string) Set {
	s := make(Set, len(tokens))
	for _, t := range tokens {
		if p := Permission(t); Known(p) {
			s[p] = struct{}{}
		}
	}
	return s
}

func (s Set) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

func (s Set) Add(p Permission) {
	s[p] = struct{}{}
}

func (s Set) Remove(p Permission) {
	delete(s, p)
}

// AddTokens adds every known token from the list.
func (s Set) AddTokens(tokens []string) {
	for _, t := range tokens {
		if p := Permission(t); Known(p) {
			s[p] = struct{}{}
		}
	}
}

// RemoveTokens removes every token from the list. Unknown tokens are
// harmless here: they cannot be present in the set.
func (s Set) RemoveTokens(tokens []string) {
	for _, t := range tokens {
		delete(s, Permission(t))
	}
}

// Clone returns an independent copy of the set.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for p := range s {
		out[p] = struct{}{}
	}
	return out
}

func (s Set) Len() int { return len(s) }

// Tokens returns the set as a sorted string slice, for storage and JSON.
func (s Set) Tokens() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, string(p))
	}
	sort.Strings(out)
	return out
}

// String lists the set's tokens separated by " | ", or "NONE" when empty.
func (s Set) String() string {
	if len(s) == 0 {
		return "NONE"
	}
	return strings.Join(s.Tokens(), " | ")
}
