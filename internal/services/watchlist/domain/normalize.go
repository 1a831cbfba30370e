package domain

import (
	"strconv"
	"strings"
	"unicode/utf8"

	apperrors "github.com/equitalks/equitalks/internal/platform/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

const (
	MaxNameLength        = 100
	MaxDescriptionLength = 500
	MaxNoteLength        = 1000
	MaxSymbolLength      = 32
	MaxExchangeLength    = 32

	// ForkSuffix is appended to the source name when a fork keeps the
	// default name.
	ForkSuffix = " (forked)"
)

var hundred = decimal.NewFromInt(100)

// NameKey returns the case-insensitive comparison key for a watchlist name.
// Casers carry state, so each call builds its own.
func NameKey(name string) string {
	return cases.Fold().String(norm.NFC.String(strings.TrimSpace(name)))
}

// NormalizeName trims name and enforces its length. It returns the stored
// display name and its comparison key.
func NormalizeName(name string) (string, string, error) {
	trimmed := strings.TrimSpace(name)
	length := utf8.RuneCountInString(trimmed)
	if length == 0 {
		return "", "", apperrors.New(apperrors.CodeWatchlistInvalidName, "watchlist name is required")
	}
	if length > MaxNameLength {
		return "", "", apperrors.WithMetadata(apperrors.CodeWatchlistInvalidName,
			"watchlist name must be at most 100 characters",
			map[string]string{"length": strconv.Itoa(length)})
	}
	return trimmed, NameKey(trimmed), nil
}

// NormalizeDescription trims description and enforces its length.
func NormalizeDescription(description string) (string, error) {
	trimmed := strings.TrimSpace(description)
	if utf8.RuneCountInString(trimmed) > MaxDescriptionLength {
		return "", apperrors.New(apperrors.CodeWatchlistInvalidDescription,
			"watchlist description must be at most 500 characters")
	}
	return trimmed, nil
}

// ForkName derives the default name of a fork.
func ForkName(sourceName string) string {
	return sourceName + ForkSuffix
}

// NormalizeUserID canonicalizes a user id. Blank ids report a missing caller.
func NormalizeUserID(userID string) (string, error) {
	trimmed := strings.TrimSpace(userID)
	if trimmed == "" {
		return "", apperrors.New(apperrors.CodeCallerMissing, "user id is required")
	}
	parsed, err := uuid.Parse(trimmed)
	if err != nil {
		return "", apperrors.WithMetadata(apperrors.CodeInvalidUserID, "user id must be a UUID",
			map[string]string{"user_id": trimmed})
	}
	return parsed.String(), nil
}

// NormalizeSymbol trims and upper-cases a ticker symbol.
func NormalizeSymbol(symbol string) (string, error) {
	return normalizeCode(symbol, MaxSymbolLength, apperrors.CodeItemInvalidSymbol, "symbol")
}

// NormalizeExchange trims and upper-cases an exchange code.
func NormalizeExchange(exchange string) (string, error) {
	return normalizeCode(exchange, MaxExchangeLength, apperrors.CodeItemInvalidExchange, "exchange")
}

func normalizeCode(value string, maxLength int, code apperrors.Code, field string) (string, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(value))
	length := utf8.RuneCountInString(trimmed)
	if length == 0 {
		return "", apperrors.New(code, field+" is required")
	}
	if length > maxLength {
		return "", apperrors.New(code, field+" must be at most "+strconv.Itoa(maxLength)+" characters")
	}
	return trimmed, nil
}

// NormalizeNote trims a note and enforces its length.
func NormalizeNote(note string) (string, error) {
	trimmed := strings.TrimSpace(note)
	if utf8.RuneCountInString(trimmed) > MaxNoteLength {
		return "", apperrors.New(apperrors.CodeItemInvalidNote, "note must be at most 1000 characters")
	}
	return trimmed, nil
}

// ValidatePosition rejects negative positions.
func ValidatePosition(position int64) error {
	if position < 0 {
		return apperrors.New(apperrors.CodeItemInvalidPosition, "position must be non-negative")
	}
	return nil
}

// ValidatePercentage requires 0 <= percentage <= 100.
func ValidatePercentage(percentage decimal.Decimal) error {
	if percentage.IsNegative() || percentage.GreaterThan(hundred) {
		return apperrors.WithMetadata(apperrors.CodeItemInvalidPercentage, "percentage must be between 0 and 100",
			map[string]string{"percentage": percentage.String()})
	}
	return nil
}

// ValidateQuantity rejects negative quantities.
func ValidateQuantity(quantity decimal.Decimal) error {
	if quantity.IsNegative() {
		return apperrors.WithMetadata(apperrors.CodeItemInvalidQuantity, "quantity must be non-negative",
			map[string]string{"quantity": quantity.String()})
	}
	return nil
}

// NormalizeItem validates an item before insert and returns its stored form.
func NormalizeItem(item Item) (Item, error) {
	var err error
	if item.Symbol, err = NormalizeSymbol(item.Symbol); err != nil {
		return Item{}, err
	}
	if item.Exchange, err = NormalizeExchange(item.Exchange); err != nil {
		return Item{}, err
	}
	if item.Note, err = NormalizeNote(item.Note); err != nil {
		return Item{}, err
	}
	if item.Position != nil {
		if err := ValidatePosition(*item.Position); err != nil {
			return Item{}, err
		}
	}
	if item.Percentage.Valid {
		if err := ValidatePercentage(item.Percentage.Decimal); err != nil {
			return Item{}, err
		}
	}
	if item.Quantity.Valid {
		if err := ValidateQuantity(item.Quantity.Decimal); err != nil {
			return Item{}, err
		}
	}
	return item, nil
}

// NormalizeItemPatch validates the fields a patch sets.
func NormalizeItemPatch(patch ItemPatch) (ItemPatch, error) {
	if patch.Symbol != nil {
		symbol, err := NormalizeSymbol(*patch.Symbol)
		if err != nil {
			return ItemPatch{}, err
		}
		patch.Symbol = &symbol
	}
	if patch.Exchange != nil {
		exchange, err := NormalizeExchange(*patch.Exchange)
		if err != nil {
			return ItemPatch{}, err
		}
		patch.Exchange = &exchange
	}
	if patch.Note != nil {
		note, err := NormalizeNote(*patch.Note)
		if err != nil {
			return ItemPatch{}, err
		}
		patch.Note = &note
	}
	if patch.Position != nil && !patch.ClearPosition {
		if err := ValidatePosition(*patch.Position); err != nil {
			return ItemPatch{}, err
		}
	}
	if patch.Percentage != nil && !patch.ClearPercentage {
		if err := ValidatePercentage(*patch.Percentage); err != nil {
			return ItemPatch{}, err
		}
	}
	if patch.Quantity != nil && !patch.ClearQuantity {
		if err := ValidateQuantity(*patch.Quantity); err != nil {
			return ItemPatch{}, err
		}
	}
	return patch, nil
}

// DuplicateKeys returns the keys of items that repeat within the batch or
// collide with existing, in first-seen order.
func DuplicateKeys(existing []Item, batch []Item) []ItemKey {
	seen := make(map[ItemKey]bool, len(existing)+len(batch))
	for _, item := range existing {
		seen[item.Key()] = true
	}
	reported := make(map[ItemKey]bool)
	var dups []ItemKey
	for _, item := range batch {
		key := item.Key()
		if seen[key] && !reported[key] {
			reported[key] = true
			dups = append(dups, key)
			continue
		}
		seen[key] = true
	}
	return dups
}

// JoinItemKeys renders keys for error metadata.
func JoinItemKeys(keys []ItemKey) string {
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key.String())
	}
	return strings.Join(parts, ",")
}
