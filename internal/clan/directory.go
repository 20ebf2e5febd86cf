// Package clan defines the interface through which the territory
// subsystem consumes the external clan system. Membership, roles and the
// clan treasury live elsewhere; nothing here is stored locally.
package clan

// Role is a member's rank within a clan.
type Role int32

// Known roles, lowest to highest.
const (
	RoleRecruit Role = iota
	RoleMember
	RoleOfficer
	RoleLeader
)

// Directory is the consumed clan system surface.
// Implementations must be safe for concurrent use.
type Directory interface {
	// ClanByMember returns the clan a player belongs to, or ok=false.
	ClanByMember(playerID int64) (clanID int32, ok bool)

	// ClanBalance returns the clan treasury balance in cents.
	ClanBalance(clanID int32) int64

	// DebitClanBalance withdraws cents from the treasury.
	// Returns false when funds are insufficient or the clan is unknown.
	DebitClanBalance(clanID int32, cents int64) bool

	// CreditClanBalance deposits cents into the treasury.
	CreditClanBalance(clanID int32, cents int64)

	// MemberRole returns a player's role in the clan, or ok=false.
	MemberRole(clanID int32, playerID int64) (Role, bool)
}

// NopDirectory is a Directory for running without a clan system attached:
// nobody belongs to a clan and every debit fails.
type NopDirectory struct{}

var _ Directory = NopDirectory{}

func (NopDirectory) ClanByMember(int64) (int32, bool)    { return 0, false }
func (NopDirectory) ClanBalance(int32) int64             { return 0 }
func (NopDirectory) DebitClanBalance(int32, int64) bool  { return false }
func (NopDirectory) CreditClanBalance(int32, int64)      {}
func (NopDirectory) MemberRole(int32, int64) (Role, bool) { return 0, false }
