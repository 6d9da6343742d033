// Package testutil holds in-memory stand-ins for the repositories and
// collaborators used by service tests.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"anoa.com/foodrescue/internal/entity"
	"anoa.com/foodrescue/pkg/apperror"
	"anoa.com/foodrescue/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrInjected is returned by operations armed with FailOn.
var ErrInjected = errors.New("injected failure")

// ErrRoleNotLocked is returned by leaderboard writes made without holding the
// role lock in the writer's own transaction.
var ErrRoleNotLocked = errors.New("leaderboard role not locked by this transaction")

// memTx identifies one top-level transaction.
type memTx struct{}

type memTxKey struct{}

func currentTx(ctx context.Context) *memTx {
	tx, _ := ctx.Value(memTxKey{}).(*memTx)
	return tx
}

type memState struct {
	users        map[uuid.UUID]entity.User
	ledger       []entity.PointsLedgerEntry
	leaderboard  map[uuid.UUID]entity.LeaderboardEntry
	achievements []entity.Achievement
	badges       []entity.Badge
	donations    map[uuid.UUID]entity.Donation
	pickups      map[uuid.UUID]entity.PickupAssignment
}

func (s memState) clone() memState {
	c := memState{
		users:        make(map[uuid.UUID]entity.User, len(s.users)),
		ledger:       append([]entity.PointsLedgerEntry(nil), s.ledger...),
		leaderboard:  make(map[uuid.UUID]entity.LeaderboardEntry, len(s.leaderboard)),
		achievements: append([]entity.Achievement(nil), s.achievements...),
		badges:       append([]entity.Badge(nil), s.badges...),
		donations:    make(map[uuid.UUID]entity.Donation, len(s.donations)),
		pickups:      make(map[uuid.UUID]entity.PickupAssignment, len(s.pickups)),
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.leaderboard {
		c.leaderboard[k] = v
	}
	for k, v := range s.donations {
		c.donations[k] = v
	}
	for k, v := range s.pickups {
		c.pickups[k] = v
	}
	return c
}

// MemStore backs every repository with maps guarded by one mutex.
// Transactions run one at a time and roll back to a snapshot on error.
// Leaderboard role locks belong to a transaction and are released when it
// commits or rolls back, like postgres xact advisory locks. Notifications are kept outside the snapshot, like the real store which
// writes them outside the caller's transaction.
type MemStore struct {
	mu            sync.Mutex
	txMu          sync.Mutex
	state         memState
	notifications []entity.Notification
	roleLocks     map[entity.Role]*memTx
	failOn        map[string]error
}

func NewMemStore() *MemStore {
	return &MemStore{
		state: memState{
			users:       make(map[uuid.UUID]entity.User),
			leaderboard: make(map[uuid.UUID]entity.LeaderboardEntry),
			donations:   make(map[uuid.UUID]entity.Donation),
			pickups:     make(map[uuid.UUID]entity.PickupAssignment),
		},
		roleLocks: make(map[entity.Role]*memTx),
		failOn:    make(map[string]error),
	}
}

// RoleLocked reports whether a transaction currently holds role.
func (s *MemStore) RoleLocked(role entity.Role) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.roleLocks[role]
	return ok
}

// holdsRole must be called with mu held.
func (s *MemStore) holdsRole(ctx context.Context, role entity.Role) bool {
	tx := currentTx(ctx)
	return tx != nil && s.roleLocks[role] == tx
}

// FailOn makes every later call of op return err (ErrInjected when nil)
// until Clear is called. Op names are "<Repo>.<Method>", e.g. "Leaderboard.Upsert".
func (s *MemStore) FailOn(op string, err error) {
	if err == nil {
		err = ErrInjected
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failOn[op] = err
}

func (s *MemStore) Clear(op string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failOn, op)
}

// failed must be called with mu held.
func (s *MemStore) failed(op string) error {
	return s.failOn[op]
}

// AddUser stores u, filling the id when empty, and returns the stored copy.
func (s *MemStore) AddUser(u entity.User) *entity.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	s.state.users[u.ID] = u
	return &u
}

// User returns the stored user or nil.
func (s *MemStore) User(id uuid.UUID) *entity.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.state.users[id]
	if !ok {
		return nil
	}
	return &u
}

// LedgerFor returns the ledger entries of a user in insertion order.
func (s *MemStore) LedgerFor(userID uuid.UUID) []entity.PointsLedgerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entity.PointsLedgerEntry
	for _, e := range s.state.ledger {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out
}

// LedgerSum is the sum of a user's ledger entries.
func (s *MemStore) LedgerSum(userID uuid.UUID) int {
	sum := 0
	for _, e := range s.LedgerFor(userID) {
		sum += e.Points
	}
	return sum
}

func (s *MemStore) LeaderboardEntry(userID uuid.UUID) *entity.LeaderboardEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.state.leaderboard[userID]
	if !ok {
		return nil
	}
	return &e
}

func (s *MemStore) Notifications(userID uuid.UUID) []entity.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entity.Notification
	for _, n := range s.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

func (s *MemStore) Users() *UserStore                    { return &UserStore{s} }
func (s *MemStore) Ledger() *LedgerStore                 { return &LedgerStore{s} }
func (s *MemStore) Leaderboard() *LeaderboardStore       { return &LeaderboardStore{s} }
func (s *MemStore) Achievements() *AchievementStore      { return &AchievementStore{s} }
func (s *MemStore) Donations() *DonationStore            { return &DonationStore{s} }
func (s *MemStore) Pickups() *PickupStore                { return &PickupStore{s} }
func (s *MemStore) NotificationRepo() *NotificationStore { return &NotificationStore{s} }
func (s *MemStore) Transactor() *Transactor              { return &Transactor{s} }

// Transactor serializes transactions and restores the snapshot taken at
// begin when fn fails. Nested calls join the outer transaction.
type Transactor struct {
	s *MemStore
}

func (t *Transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if database.InTransaction(ctx) {
		return fn(ctx)
	}

	t.s.txMu.Lock()
	defer t.s.txMu.Unlock()

	t.s.mu.Lock()
	snapshot := t.s.state.clone()
	t.s.mu.Unlock()

	tx := &memTx{}
	defer t.s.releaseRoles(tx)

	ctx = context.WithValue(database.WithTx(ctx, &gorm.DB{}), memTxKey{}, tx)
	if err := fn(ctx); err != nil {
		t.s.mu.Lock()
		t.s.state = snapshot
		t.s.mu.Unlock()
		return err
	}
	return nil
}

func (s *MemStore) releaseRoles(tx *memTx) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for role, holder := range s.roleLocks {
		if holder == tx {
			delete(s.roleLocks, role)
		}
	}
}

type UserStore struct{ s *MemStore }

func (r *UserStore) Create(ctx context.Context, user *entity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failed("User.Create"); err != nil {
		return err
	}
	for _, existing := range r.s.state.users {
		if existing.Username == user.Username || (user.Email != "" && existing.Email == user.Email) {
			return &pgconn.PgError{Code: database.UniqueViolation, Message: "duplicate key value violates unique constraint"}
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	r.s.state.users[user.ID] = *user
	return nil
}

func (r *UserStore) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failed("User.FindByID"); err != nil {
		return nil, err
	}
	u, ok := r.s.state.users[id]
	if !ok {
		return nil, apperror.NotFound("user %s not found", id)
	}
	return &u, nil
}

func (r *UserStore) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*entity.User{}
	for _, id := range ids {
		if u, ok := r.s.state.users[id]; ok {
			out = append(out, &u)
		}
	}
	return out, nil
}

func (r *UserStore) FindByRole(ctx context.Context, role entity.Role) ([]*entity.User, error) {
	return r.find(role, false)
}

func (r *UserStore) FindByRoleWithLocation(ctx context.Context, role entity.Role) ([]*entity.User, error) {
	return r.find(role, true)
}

func (r *UserStore) find(role entity.Role, located bool) ([]*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failed("User.FindByRole"); err != nil {
		return nil, err
	}
	out := []*entity.User{}
	for _, u := range r.s.state.users {
		if u.Role != role {
			continue
		}
		if _, _, ok := u.Coordinates(); located && !ok {
			continue
		}
		u := u
		out = append(out, &u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

type LedgerStore struct{ s *MemStore }

func (r *LedgerStore) Award(ctx context.Context, entry *entity.PointsLedgerEntry) (*entity.PointsLedgerEntry, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failed("Ledger.Award"); err != nil {
		return nil, false, err
	}

	if entry.SourceID != nil {
		for _, e := range r.s.state.ledger {
			if e.UserID == entry.UserID && e.Source == entry.Source && e.SourceID != nil && *e.SourceID == *entry.SourceID {
				return &e, false, nil
			}
		}
	}

	user, ok := r.s.state.users[entry.UserID]
	if !ok {
		return nil, false, apperror.NotFound("user %s not found", entry.UserID)
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	r.s.state.ledger = append(r.s.state.ledger, *entry)
	user.TotalPoints += entry.Points
	r.s.state.users[user.ID] = user

	saved := *entry
	return &saved, true, nil
}

func (r *LedgerStore) FindBySource(ctx context.Context, userID uuid.UUID, source entity.PointSource, sourceID uuid.UUID) (*entity.PointsLedgerEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.state.ledger {
		if e.UserID == userID && e.Source == source && e.SourceID != nil && *e.SourceID == sourceID {
			return &e, nil
		}
	}
	return nil, apperror.NotFound("ledger entry not found")
}

func (r *LedgerStore) CountBySource(ctx context.Context, userID uuid.UUID, source entity.PointSource) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failed("Ledger.CountBySource"); err != nil {
		return 0, err
	}
	var n int64
	for _, e := range r.s.state.ledger {
		if e.UserID == userID && e.Source == source {
			n++
		}
	}
	return n, nil
}

func (r *LedgerStore) ListByUser(ctx context.Context, userID uuid.UUID, offset, limit int) ([]entity.PointsLedgerEntry, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var all []entity.PointsLedgerEntry
	for _, e := range r.s.state.ledger {
		if e.UserID == userID {
			all = append(all, e)
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].EarnedAt.After(all[j].EarnedAt) })
	return page(all, offset, limit), int64(len(all)), nil
}

type LeaderboardStore struct{ s *MemStore }

// LockRole is reentrant for the holding transaction. Transactions never
// overlap here, so another holder means a lock leaked past its transaction.
func (r *LeaderboardStore) LockRole(ctx context.Context, role entity.Role) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failed("Leaderboard.LockRole"); err != nil {
		return err
	}
	tx := currentTx(ctx)
	if tx == nil {
		return errors.New("leaderboard role lock requires a transaction")
	}
	if holder, ok := r.s.roleLocks[role]; ok && holder != tx {
		return fmt.Errorf("leaderboard role %s held by another transaction", role)
	}
	r.s.roleLocks[role] = tx
	return nil
}

func (r *LeaderboardStore) Upsert(ctx context.Context, entry *entity.LeaderboardEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failed("Leaderboard.Upsert"); err != nil {
		return err
	}
	if !r.s.holdsRole(ctx, entry.Role) {
		return ErrRoleNotLocked
	}
	stored := *entry
	if prev, ok := r.s.state.leaderboard[entry.UserID]; ok {
		stored.Rank = prev.Rank
	}
	r.s.state.leaderboard[entry.UserID] = stored
	return nil
}

func (r *LeaderboardStore) FindByUserID(ctx context.Context, userID uuid.UUID) (*entity.LeaderboardEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.state.leaderboard[userID]
	if !ok {
		return nil, apperror.NotFound("leaderboard entry for %s not found", userID)
	}
	return &e, nil
}

func (r *LeaderboardStore) ListByRole(ctx context.Context, role entity.Role) ([]entity.LeaderboardEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failed("Leaderboard.ListByRole"); err != nil {
		return nil, err
	}
	out := []entity.LeaderboardEntry{}
	for _, e := range r.s.state.leaderboard {
		if e.Role == role {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalPoints != out[j].TotalPoints {
			return out[i].TotalPoints > out[j].TotalPoints
		}
		return out[i].UserID.String() < out[j].UserID.String()
	})
	return out, nil
}

func (r *LeaderboardStore) UpdateRanks(ctx context.Context, ranks map[uuid.UUID]int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failed("Leaderboard.UpdateRanks"); err != nil {
		return err
	}
	for id := range ranks {
		if e, ok := r.s.state.leaderboard[id]; ok && !r.s.holdsRole(ctx, e.Role) {
			return ErrRoleNotLocked
		}
	}
	for id, rank := range ranks {
		if e, ok := r.s.state.leaderboard[id]; ok {
			e.Rank = rank
			r.s.state.leaderboard[id] = e
		}
	}
	return nil
}

func (r *LeaderboardStore) Top(ctx context.Context, role entity.Role, limit int) ([]entity.LeaderboardEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []entity.LeaderboardEntry{}
	for _, e := range r.s.state.leaderboard {
		if e.Role == role && e.Rank > 0 {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type AchievementStore struct{ s *MemStore }

func (r *AchievementStore) CreateAchievementIfAbsent(ctx context.Context, a *entity.Achievement) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failed("Achievement.Create"); err != nil {
		return false, err
	}
	for _, existing := range r.s.state.achievements {
		if existing.UserID == a.UserID && existing.DedupKey == a.DedupKey {
			return false, nil
		}
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	r.s.state.achievements = append(r.s.state.achievements, *a)
	return true, nil
}

func (r *AchievementStore) ExistsAchievement(ctx context.Context, userID uuid.UUID, dedupKey string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.state.achievements {
		if a.UserID == userID && a.DedupKey == dedupKey {
			return true, nil
		}
	}
	return false, nil
}

func (r *AchievementStore) ListAchievements(ctx context.Context, userID uuid.UUID) ([]entity.Achievement, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []entity.Achievement{}
	for _, a := range r.s.state.achievements {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *AchievementStore) CountAchievements(ctx context.Context, userID uuid.UUID) (int64, error) {
	list, err := r.ListAchievements(ctx, userID)
	return int64(len(list)), err
}

func (r *AchievementStore) CreateBadgeIfAbsent(ctx context.Context, b *entity.Badge) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failed("Badge.Create"); err != nil {
		return false, err
	}
	for _, existing := range r.s.state.badges {
		if existing.UserID == b.UserID && existing.BadgeType == b.BadgeType {
			return false, nil
		}
	}
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	r.s.state.badges = append(r.s.state.badges, *b)
	return true, nil
}

func (r *AchievementStore) ListBadges(ctx context.Context, userID uuid.UUID) ([]entity.Badge, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []entity.Badge{}
	for _, b := range r.s.state.badges {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *AchievementStore) CountBadges(ctx context.Context, userID uuid.UUID) (int64, error) {
	list, err := r.ListBadges(ctx, userID)
	return int64(len(list)), err
}

type DonationStore struct{ s *MemStore }

func (r *DonationStore) Create(ctx context.Context, d *entity.Donation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failed("Donation.Create"); err != nil {
		return err
	}
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	r.s.state.donations[d.ID] = *d
	return nil
}

func (r *DonationStore) FindByID(ctx context.Context, id uuid.UUID) (*entity.Donation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.state.donations[id]
	if !ok {
		return nil, apperror.NotFound("donation %s not found", id)
	}
	return &d, nil
}

func (r *DonationStore) TransitionStatus(ctx context.Context, id uuid.UUID, t entity.DonationTransition) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failed("Donation.TransitionStatus"); err != nil {
		return false, err
	}
	d, ok := r.s.state.donations[id]
	if !ok || d.Status != t.From {
		return false, nil
	}

	at := t.At
	d.Status = t.To
	d.UpdatedAt = at
	switch t.To {
	case entity.DonationAccepted:
		d.AcceptedBy = t.AcceptedBy
		d.AcceptedAt = &at
	case entity.DonationAssigned:
		d.AssignedVolunteerID = t.AssignedVolunteer
	case entity.DonationDelivered:
		d.CompletedAt = &at
	case entity.DonationCancelled:
		d.CancelledAt = &at
		d.CancellationReason = t.CancellationReason
	case entity.DonationExpired:
		d.ExpiredAt = &at
	}
	r.s.state.donations[id] = d
	return true, nil
}

func (r *DonationStore) DeleteIfCreated(ctx context.Context, id uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.state.donations[id]
	if !ok || d.Status != entity.DonationCreated {
		return false, nil
	}
	delete(r.s.state.donations, id)
	return true, nil
}

func (r *DonationStore) FindExpired(ctx context.Context, now time.Time, limit int) ([]*entity.Donation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failed("Donation.FindExpired"); err != nil {
		return nil, err
	}
	out := []*entity.Donation{}
	for _, d := range r.s.state.donations {
		if d.ExpiryDate.Before(now) && !d.Status.IsTerminal() {
			d := d
			out = append(out, &d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiryDate.Before(out[j].ExpiryDate) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *DonationStore) FindByStatus(ctx context.Context, status entity.DonationStatus) ([]*entity.Donation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*entity.Donation{}
	for _, d := range r.s.state.donations {
		if d.Status == status {
			d := d
			out = append(out, &d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *DonationStore) FindByDonor(ctx context.Context, donorID uuid.UUID, offset, limit int) ([]*entity.Donation, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	all := []*entity.Donation{}
	for _, d := range r.s.state.donations {
		if d.DonorID == donorID {
			d := d
			all = append(all, &d)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return page(all, offset, limit), int64(len(all)), nil
}

type PickupStore struct{ s *MemStore }

func (r *PickupStore) Assign(ctx context.Context, a *entity.PickupAssignment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failed("Pickup.Assign"); err != nil {
		return err
	}
	if existing, ok := r.s.state.pickups[a.DonationID]; ok {
		existing.VolunteerID = a.VolunteerID
		existing.Status = entity.PickupPending
		existing.AssignedAt = a.AssignedAt
		existing.StartedAt = nil
		existing.CompletedAt = nil
		existing.CancelledAt = nil
		existing.UpdatedAt = a.AssignedAt
		r.s.state.pickups[a.DonationID] = existing
		*a = existing
		return nil
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	r.s.state.pickups[a.DonationID] = *a
	return nil
}

func (r *PickupStore) FindByDonationID(ctx context.Context, donationID uuid.UUID) (*entity.PickupAssignment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.state.pickups[donationID]
	if !ok {
		return nil, apperror.NotFound("pickup assignment for donation %s not found", donationID)
	}
	return &p, nil
}

func (r *PickupStore) FindByVolunteer(ctx context.Context, volunteerID uuid.UUID) ([]entity.PickupAssignment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []entity.PickupAssignment{}
	for _, p := range r.s.state.pickups {
		if p.VolunteerID == volunteerID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *PickupStore) UpdateStatus(ctx context.Context, id uuid.UUID, status entity.PickupStatus, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failed("Pickup.UpdateStatus"); err != nil {
		return err
	}
	for k, p := range r.s.state.pickups {
		if p.ID != id {
			continue
		}
		p.Status = status
		p.UpdatedAt = at
		switch status {
		case entity.PickupInProgress:
			p.StartedAt = &at
		case entity.PickupCompleted:
			p.CompletedAt = &at
		case entity.PickupCancelled:
			p.CancelledAt = &at
		}
		r.s.state.pickups[k] = p
		return nil
	}
	return apperror.NotFound("pickup assignment %s not found", id)
}

func (r *PickupStore) Rate(ctx context.Context, id uuid.UUID, rating int, feedback *string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for k, p := range r.s.state.pickups {
		if p.ID != id {
			continue
		}
		p.Rating = &rating
		p.Feedback = feedback
		r.s.state.pickups[k] = p
		return nil
	}
	return apperror.NotFound("pickup assignment %s not found", id)
}

type NotificationStore struct{ s *MemStore }

func (r *NotificationStore) Create(ctx context.Context, n *entity.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failed("Notification.Create"); err != nil {
		return err
	}
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	r.s.notifications = append(r.s.notifications, *n)
	return nil
}

func (r *NotificationStore) GetByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]entity.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var all []entity.Notification
	for i := len(r.s.notifications) - 1; i >= 0; i-- {
		if r.s.notifications[i].UserID == userID {
			all = append(all, r.s.notifications[i])
		}
	}
	return page(all, offset, limit), nil
}

func (r *NotificationStore) MarkAsRead(ctx context.Context, userID, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, n := range r.s.notifications {
		if n.ID == id && n.UserID == userID {
			r.s.notifications[i].IsRead = true
			return nil
		}
	}
	return apperror.NotFound("notification %s not found", id)
}

func (r *NotificationStore) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, n := range r.s.notifications {
		if n.UserID == userID {
			r.s.notifications[i].IsRead = true
		}
	}
	return nil
}

func (r *NotificationStore) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, x := range r.s.notifications {
		if x.UserID == userID && !x.IsRead {
			n++
		}
	}
	return n, nil
}

func page[T any](all []T, offset, limit int) []T {
	if offset >= len(all) {
		return []T{}
	}
	end := offset + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}
	return all[offset:end]
}
