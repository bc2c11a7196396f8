package services

import "errors"

// Expected, user-facing failures of core operations. Every mutating operation
// either returns the mutated entity or fails with exactly one of these;
// routes translate them to problem responses. None are fatal to the process.
var (
	// Card lifecycle
	ErrQuotaExceeded          = errors.New("the number of active cards must not exceed the limit")
	ErrTerminalStateViolation = errors.New("a completed card can no longer change status")
	ErrUnknownStatus          = errors.New("unknown status value")
	ErrLimitBelowClaimed      = errors.New("the limit cannot drop below the seats already claimed by requests")

	// Request arbitration
	ErrInsufficientCapacity   = errors.New("the card does not have enough free slots")
	ErrSelfRequest            = errors.New("you cannot request your own card")
	ErrAlreadyApproved        = errors.New("you already have an approved request on another card")
	ErrDuplicatePending       = errors.New("you already have a pending request on this card")
	ErrRejectionLimitExceeded = errors.New("too many rejected requests on this card")
	ErrReciprocalConflict     = errors.New("the card owner has an active request on one of your cards")
	ErrNoActiveRequest        = errors.New("no active request on this card")
	ErrAlreadyRejected        = errors.New("a rejected request cannot be handled again")

	// Feed
	ErrSelfSkip = errors.New("you cannot skip your own card")

	// Chat
	ErrSelfMessage    = errors.New("you cannot send a message to yourself")
	ErrChatNotAllowed = errors.New("messaging requires an active request between you and the receiver")
	ErrNotSender      = errors.New("only the sender may delete a message")

	// Reviews
	ErrSelfReview       = errors.New("you cannot review yourself")
	ErrReviewNotAllowed = errors.New("reviews require a completed card shared with the user")

	// Authorization codes
	ErrInvalidLogin  = errors.New("login must be a phone number or an email address")
	ErrCodeCountdown = errors.New("an authorization code was sent recently, try again later")
	ErrInvalidCode   = errors.New("invalid authorization code")
	ErrCodeUsed      = errors.New("this authorization code has already been used")
	ErrCodeExpired   = errors.New("this authorization code has expired")
)

// IsActionError reports whether err belongs to the expected taxonomy above.
func IsActionError(err error) bool {
	for _, known := range []error{
		ErrQuotaExceeded, ErrTerminalStateViolation, ErrUnknownStatus, ErrLimitBelowClaimed,
		ErrInsufficientCapacity, ErrSelfRequest, ErrAlreadyApproved,
		ErrDuplicatePending, ErrRejectionLimitExceeded, ErrReciprocalConflict,
		ErrNoActiveRequest, ErrAlreadyRejected, ErrSelfSkip,
		ErrSelfMessage, ErrChatNotAllowed, ErrNotSender,
		ErrSelfReview, ErrReviewNotAllowed,
		ErrInvalidLogin, ErrCodeCountdown, ErrInvalidCode, ErrCodeUsed, ErrCodeExpired,
	} {
		if errors.Is(err, known) {
			return true
		}
	}
	return false
}
