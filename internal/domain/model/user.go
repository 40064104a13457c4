package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"netaccess-billing/internal/domain"
)

type UserType string

const (
	UserTypeMember UserType = "member"
	UserTypeClub   UserType = "club"
)

func (t UserType) Valid() bool { return t == UserTypeMember || t == UserTypeClub }

// EligibleUserType restricts which user types may buy an article.
type EligibleUserType string

const (
	EligibleMember EligibleUserType = "member"
	EligibleClub   EligibleUserType = "club"
	EligibleBoth   EligibleUserType = "both"
)

func (e EligibleUserType) Valid() bool {
	return e == EligibleMember || e == EligibleClub || e == EligibleBoth
}

func (e EligibleUserType) Accepts(t UserType) bool {
	return e == EligibleBoth || string(e) == string(t)
}

// User is the account paying for articles. MembershipUntil and
// ConnectionUntil hold access imported from outside the interval store;
// they are the chaining fallback when a user has no interval yet.
type User struct {
	ID              string
	Pseudo          string
	Email           string
	Type            UserType
	IsAdmin         bool
	Balance         decimal.Decimal
	MembershipUntil *time.Time
	ConnectionUntil *time.Time
	CreatedAt       time.Time
}

func NewUser(id, pseudo, email string, t UserType) (*User, error) {
	pseudo = strings.TrimSpace(pseudo)
	email = strings.TrimSpace(email)
	if pseudo == "" || !strings.Contains(email, "@") || !t.Valid() {
		return nil, domain.ErrInvalidArgument
	}
	if id == "" {
		id = uuid.NewString()
	}
	return &User{
		ID:        id,
		Pseudo:    pseudo,
		Email:     email,
		Type:      t,
		Balance:   decimal.Zero,
		CreatedAt: time.Now(),
	}, nil
}

// EndOfAccess returns the imported access expiry for the given type. For
// Both it is the earlier of the two, since a Both interval needs both
// accesses to chain after. Nil means no prior access.
func (u *User) EndOfAccess(t SubscriptionType) *time.Time {
	switch t {
	case SubscriptionMembership:
		return u.MembershipUntil
	case SubscriptionConnection:
		return u.ConnectionUntil
	case SubscriptionBoth:
		if u.MembershipUntil == nil || u.ConnectionUntil == nil {
			return nil
		}
		if u.MembershipUntil.Before(*u.ConnectionUntil) {
			return u.MembershipUntil
		}
		return u.ConnectionUntil
	}
	return nil
}
