package clan

import "sync"

// StaticDirectory is an in-memory Directory, used by tests and by the
// standalone server binary when no clan system is wired in.
// Thread-safe: protected by mu.
type StaticDirectory struct {
	mu       sync.RWMutex
	members  map[int64]int32          // playerID → clanID
	balances map[int32]int64          // clanID → cents
	roles    map[int32]map[int64]Role // clanID → playerID → role
}

var _ Directory = (*StaticDirectory)(nil)

// NewStaticDirectory creates an empty StaticDirectory.
func NewStaticDirectory() *StaticDirectory {
	return &StaticDirectory{
		members:  make(map[int64]int32),
		balances: make(map[int32]int64),
		roles:    make(map[int32]map[int64]Role),
	}
}

// AddMember places a player into a clan with the given role.
func (d *StaticDirectory) AddMember(clanID int32, playerID int64, role Role) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.members[playerID] = clanID
	if d.roles[clanID] == nil {
		d.roles[clanID] = make(map[int64]Role)
	}
	d.roles[clanID][playerID] = role
}

// RemoveMember takes a player out of their clan.
func (d *StaticDirectory) RemoveMember(playerID int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	clanID, ok := d.members[playerID]
	if !ok {
		return
	}
	delete(d.members, playerID)
	delete(d.roles[clanID], playerID)
}

// SetBalance sets a clan treasury balance in cents.
func (d *StaticDirectory) SetBalance(clanID int32, cents int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.balances[clanID] = cents
}

func (d *StaticDirectory) ClanByMember(playerID int64) (int32, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	clanID, ok := d.members[playerID]
	return clanID, ok
}

func (d *StaticDirectory) ClanBalance(clanID int32) int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.balances[clanID]
}

func (d *StaticDirectory) DebitClanBalance(clanID int32, cents int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.balances[clanID] < cents {
		return false
	}
	d.balances[clanID] -= cents
	return true
}

func (d *StaticDirectory) CreditClanBalance(clanID int32, cents int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.balances[clanID] += cents
}

func (d *StaticDirectory) MemberRole(clanID int32, playerID int64) (Role, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	role, ok := d.roles[clanID][playerID]
	return role, ok
}
