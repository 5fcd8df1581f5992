package model

// LockState gates the status setters of a Job or Status record.
//
// It is an advisory flag for a single process, not a mutex. The underlying
// bool keeps the stored field as statusLock: true|false.
type LockState bool

const (
	Unlocked LockState = false
	Locked   LockState = true
)

func (l LockState) IsLocked() bool {
	return l == Locked
}

func (l LockState) String() string {
	if l == Locked {
		return "locked"
	}
	return "unlocked"
}
