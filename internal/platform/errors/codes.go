// Package errors provides the structured error taxonomy shared by equitalks
// services.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

// Kind groups codes into the externally observable failure classes.
type Kind string

const (
	KindNotFound       Kind = "NOT_FOUND"
	KindForbidden      Kind = "FORBIDDEN"
	KindConflict       Kind = "CONFLICT"
	KindInvalidRequest Kind = "INVALID_REQUEST"
	KindInternal       Kind = "INTERNAL"
)

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"
	// CodeInternal represents a persistence or infrastructure failure.
	CodeInternal Code = "INTERNAL"

	// Caller errors
	CodeCallerMissing    Code = "CALLER_MISSING"
	CodeInvalidUserID    Code = "INVALID_USER_ID"
	CodeInvalidPageToken Code = "INVALID_PAGE_TOKEN"

	// Watchlist errors
	CodeWatchlistNotFound           Code = "WATCHLIST_NOT_FOUND"
	CodeWatchlistNotOwner           Code = "WATCHLIST_NOT_OWNER"
	CodeWatchlistNotEditable        Code = "WATCHLIST_NOT_EDITABLE"
	CodeWatchlistNameTaken          Code = "WATCHLIST_NAME_TAKEN"
	CodeWatchlistInvalidName        Code = "WATCHLIST_INVALID_NAME"
	CodeWatchlistInvalidDescription Code = "WATCHLIST_INVALID_DESCRIPTION"
	CodeWatchlistInvalidVisibility  Code = "WATCHLIST_INVALID_VISIBILITY"
	CodeWatchlistInvalidFilter      Code = "WATCHLIST_INVALID_FILTER"
	CodeSearchQueryEmpty            Code = "SEARCH_QUERY_EMPTY"

	// Item errors
	CodeItemNotFound          Code = "ITEM_NOT_FOUND"
	CodeItemDuplicate         Code = "ITEM_DUPLICATE"
	CodeItemInvalidSymbol     Code = "ITEM_INVALID_SYMBOL"
	CodeItemInvalidExchange   Code = "ITEM_INVALID_EXCHANGE"
	CodeItemInvalidNote       Code = "ITEM_INVALID_NOTE"
	CodeItemInvalidPosition   Code = "ITEM_INVALID_POSITION"
	CodeItemInvalidPercentage Code = "ITEM_INVALID_PERCENTAGE"
	CodeItemInvalidQuantity   Code = "ITEM_INVALID_QUANTITY"
	CodeItemBatchEmpty        Code = "ITEM_BATCH_EMPTY"

	// Share errors
	CodeShareNotFound      Code = "SHARE_NOT_FOUND"
	CodeShareAlreadyExists Code = "SHARE_ALREADY_EXISTS"
	CodeShareSelf          Code = "SHARE_SELF"

	// Bookmark errors
	CodeBookmarkNotFound      Code = "BOOKMARK_NOT_FOUND"
	CodeBookmarkAlreadyExists Code = "BOOKMARK_ALREADY_EXISTS"

	// Fork and lineage errors
	CodeForkOwnWatchlist  Code = "FORK_OWN_WATCHLIST"
	CodeForkSourcePrivate Code = "FORK_SOURCE_NOT_PUBLIC"
	CodeForkNameTooLong   Code = "FORK_NAME_TOO_LONG"
	CodePullNotForked     Code = "PULL_NOT_FORKED"
	CodePullSourceMissing Code = "PULL_SOURCE_NOT_FOUND"
	CodeLineageCycle      Code = "LINEAGE_CYCLE"
)

// Kind maps a code to its failure class.
func (c Code) Kind() Kind {
	switch c {
	case CodeWatchlistNotFound,
		CodeItemNotFound,
		CodeShareNotFound,
		CodeBookmarkNotFound,
		CodePullSourceMissing:
		return KindNotFound

	case CodeWatchlistNotOwner,
		CodeWatchlistNotEditable,
		CodeForkOwnWatchlist,
		CodeForkSourcePrivate:
		return KindForbidden

	case CodeWatchlistNameTaken,
		CodeItemDuplicate,
		CodeShareAlreadyExists,
		CodeBookmarkAlreadyExists:
		return KindConflict

	case CodeCallerMissing,
		CodeInvalidUserID,
		CodeInvalidPageToken,
		CodeWatchlistInvalidName,
		CodeWatchlistInvalidDescription,
		CodeWatchlistInvalidVisibility,
		CodeWatchlistInvalidFilter,
		CodeSearchQueryEmpty,
		CodeItemInvalidSymbol,
		CodeItemInvalidExchange,
		CodeItemInvalidNote,
		CodeItemInvalidPosition,
		CodeItemInvalidPercentage,
		CodeItemInvalidQuantity,
		CodeItemBatchEmpty,
		CodeShareSelf,
		CodeForkNameTooLong,
		CodePullNotForked:
		return KindInvalidRequest

	default:
		return KindInternal
	}
}

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	if c == CodeCallerMissing {
		return codes.Unauthenticated
	}
	switch c.Kind() {
	case KindNotFound:
		return codes.NotFound
	case KindForbidden:
		return codes.PermissionDenied
	case KindConflict:
		return codes.AlreadyExists
	case KindInvalidRequest:
		return codes.InvalidArgument
	default:
		return codes.Internal
	}
}
