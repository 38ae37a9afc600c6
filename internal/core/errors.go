package core

// Code classifies ledger errors for callers that need to map them to a
// transport response without string matching.
type Code string

const (
	CodeValidation  Code = "validation"  // bad amount/type/field shape
	CodeReferential Code = "referential" // referenced account/category missing
	CodeOwnership   Code = "ownership"   // cross-user reference
	CodeInvariant   Code = "invariant"   // category/entry type mismatch
	CodeConflict    Code = "conflict"    // delete blocked by derived state
	CodeNotFound    Code = "not_found"   // unknown id for the requesting owner
)

// Error is a ledger error with a taxonomy code and, when it concerns a single
// input field, the field name. All ledger errors are detected before any
// persistence happens and are deterministic for a given input.
type Error struct {
	Code  Code
	Field string
	Msg   string
}

func (e *Error) Error() string { return e.Msg }

var (
	ErrInvalidAmount      = &Error{CodeValidation, "amount", "amount must be greater than zero"}
	ErrInvalidType        = &Error{CodeValidation, "type", "type must be income or expense"}
	ErrInvalidDate        = &Error{CodeValidation, "date", "date is required"}
	ErrDescriptionTooLong = &Error{CodeValidation, "description", "description must not exceed 500 characters"}

	ErrNameRequired     = &Error{CodeValidation, "name", "name is required"}
	ErrNameTooLong      = &Error{CodeValidation, "name", "name must not exceed 50 characters"}
	ErrInvalidEmail     = &Error{CodeValidation, "email", "email address is not valid"}
	ErrPasswordTooShort = &Error{CodeValidation, "password", "password must be at least 8 characters"}

	ErrAccountNameRequired = &Error{CodeValidation, "name", "account name is required"}
	ErrAccountNameTooLong  = &Error{CodeValidation, "name", "account name must not exceed 30 characters"}
	ErrInvalidCurrency     = &Error{CodeValidation, "currency", "unsupported currency"}
	ErrInvalidColor        = &Error{CodeValidation, "color", "color must be a hex value like #3B82F6"}
	ErrInvalidIcon         = &Error{CodeValidation, "icon", "unknown icon identifier"}

	ErrAccountNotFound      = &Error{CodeReferential, "accountId", "account not found"}
	ErrAccountNotOwned      = &Error{CodeOwnership, "accountId", "account belongs to another user"}
	ErrCategoryNotFound     = &Error{CodeReferential, "categoryId", "category not found"}
	ErrCategoryTypeMismatch = &Error{CodeInvariant, "categoryId", "category type does not match entry type"}

	ErrEntryNotFound          = &Error{CodeNotFound, "", "entry not found"}
	ErrAccountMissing         = &Error{CodeNotFound, "", "account not found"}
	ErrCategoryMissing        = &Error{CodeNotFound, "", "category not found"}
	ErrUserNotFound           = &Error{CodeNotFound, "", "user not found"}
	ErrAccountHasEntries      = &Error{CodeConflict, "", "account still has entries; delete or move them first"}
	ErrBalanceNotEditable     = &Error{CodeValidation, "balance", "balance is derived from entries and cannot be edited"}
	ErrEmailAlreadyRegistered = &Error{CodeConflict, "email", "email is already registered"}
)
