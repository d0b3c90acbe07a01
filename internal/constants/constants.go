package constants

// Commission status values
const (
	CommissionStatusPending   = "pending"
	CommissionStatusApproved  = "approved"
	CommissionStatusPaid      = "paid"
	CommissionStatusCancelled = "cancelled"
)

// CommissionStatuses lists every accepted commission status in display order
var CommissionStatuses = []string{
	CommissionStatusPending,
	CommissionStatusApproved,
	CommissionStatusPaid,
	CommissionStatusCancelled,
}

// Referral defaults
const (
	DefaultCommissionRate      = "10.00"
	DefaultReferralSource      = "web"
	DefaultRecentReferralLimit = 10
)

// Ledger store drivers
const (
	LedgerDriverJSON     = "json"
	LedgerDriverSQLite   = "sqlite"
	LedgerDriverPostgres = "postgres"
	LedgerDriverBolt     = "bolt"
)

// Ledger store locations
const (
	LedgerPathDefault     = "./data/sponsor_referrals.json"
	LedgerBoltPathDefault = "./data/referrals.db"
	LedgerBoltBucket      = "referrals"
)

// Queue names and task types
const (
	QueueLedgerEvents           = "ledger_events"
	TaskCommissionStatusChanged = "referral:commission_status_changed"
	TaskMaxRetry                = 5
)

// Cache keys
const (
	RedisPrefixDefault       = "tg"
	CacheKeyDashboardPrefix  = "dashboard:guide"
	DashboardCacheTTLDefault = 60
)

// Snapshot job
const (
	SnapshotFilePrefix      = "referrals-"
	SnapshotFileSuffix      = ".json"
	SnapshotTimestampLayout = "20060102T150405Z"
	SnapshotKeepDefault     = 24
	SnapshotScheduleDefault = "@every 1h"
	SnapshotDirDefault      = "./data/snapshots"
)
