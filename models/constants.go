package models

import "time"

// Quota tiers: base daily allowance plus a bonus per referral bracket.
// The +1 per referral stacks on top of the bracket bonus.
const (
	BaseDailyAllowance = 2
	TierOneBonus       = 2  // 1-2 referrals
	TierTwoBonus       = 20 // 3-4 referrals
	UnlimitedSentinel  = 1 << 30
	ReferralPoints     = 10
)

// Session lifecycle
const (
	SessionTTL    = 24 * time.Hour
	SweepInterval = 10 * time.Minute
)

// TimestampLayout is the stored form of every createdAt value. The
// fractional seconds are fixed-width so byte order equals time order,
// which the range-keyed tables and the pending scan both rely on.
const TimestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// MaxRoomMessages caps how many rows a single room query pulls.
const MaxRoomMessages = 1000

// Admission denial reasons shown to users
const (
	ReasonQuotaExceeded = "quota exceeded"
	ReasonRoomNotFound  = "room not found"
	ReasonRoomExpired   = "room expired"
)
