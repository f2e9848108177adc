package models

import "errors"

// Domain errors shared by the ledger, consensus, and tournament layers.
// Handlers map these onto HTTP status codes; services never wrap them so
// errors.Is checks stay cheap.
var (
	ErrMaxPlayersExceeded   = errors.New("max players exceeded")
	ErrMaxVerifiersExceeded = errors.New("max verifiers exceeded")
	ErrParticipantNotFound  = errors.New("participant not found")
	ErrAlreadyRegistered    = errors.New("participant already registered")
	ErrAlreadyVoted         = errors.New("verifier already voted")
	ErrAlreadyClaimed       = errors.New("participant already claimed")
	ErrRoleAlreadyGranted   = errors.New("role already granted")
	ErrRoleNotFound         = errors.New("role not found")
	ErrInvalidStatus        = errors.New("invalid tournament status")
	ErrNoCompletedTeams     = errors.New("tournament has no completed teams")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrNotWinner            = errors.New("captain is not winner")
	ErrNotAllowed           = errors.New("not allowed")

	ErrInvalidEntryFee          = errors.New("invalid entry fee")
	ErrInvalidSponsorPool       = errors.New("invalid sponsor pool")
	ErrInvalidTeamsCount        = errors.New("invalid teams count")
	ErrInvalidRoyalty           = errors.New("invalid organizer royalty")
	ErrInvalidRegistrationStart = errors.New("registration start is in the past")
	ErrInvalidAsset             = errors.New("asset not approved")
	ErrInvalidPrecision         = errors.New("invalid false positive rate")
)
