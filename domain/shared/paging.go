package shared

import (
	"encoding/base64"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 500
)

// PageRequest asks for at most Limit items after Cursor. An empty cursor starts
// from the beginning.
type PageRequest struct {
	Limit  int
	Cursor string
}

// Normalize rejects non-positive limits and clamps oversized ones.
func (r PageRequest) Normalize() (PageRequest, error) {
	if r.Limit <= 0 {
		return r, NewValidationError("page", "limit", fmt.Sprintf("limit must be positive, got %d", r.Limit))
	}
	if r.Limit > MaxPageLimit {
		r.Limit = MaxPageLimit
	}
	return r, nil
}

// Page is one slice of an ordered result. NextCursor is empty on the last page.
type Page[T any] struct {
	Items      []T
	NextCursor string
}

func (p Page[T]) HasMore() bool {
	return p.NextCursor != ""
}

// MapPage converts the items of a page, keeping its cursor.
func MapPage[T, U any](p Page[T], fn func(T) U) Page[U] {
	items := make([]U, len(p.Items))
	for i, it := range p.Items {
		items[i] = fn(it)
	}
	return Page[U]{Items: items, NextCursor: p.NextCursor}
}

// CursorCodec turns an ordering key into an opaque cursor and back.
type CursorCodec[K any] struct {
	format func(K) string
	parse  func(string) (K, error)
}

func NewCursorCodec[K any](format func(K) string, parse func(string) (K, error)) CursorCodec[K] {
	return CursorCodec[K]{format: format, parse: parse}
}

func (c CursorCodec[K]) Encode(key K) string {
	return base64.RawURLEncoding.EncodeToString([]byte(c.format(key)))
}

func (c CursorCodec[K]) Decode(cursor string) (K, error) {
	var zero K
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return zero, &CursorDecodeError{Cursor: cursor, Err: err}
	}
	if len(raw) == 0 || !utf8.Valid(raw) {
		return zero, &CursorDecodeError{Cursor: cursor}
	}
	key, err := c.parse(string(raw))
	if err != nil {
		return zero, &CursorDecodeError{Cursor: cursor, Err: err}
	}
	return key, nil
}

// StringCursor orders by a unique string key such as an id.
var StringCursor = NewCursorCodec(
	func(k string) string { return k },
	func(s string) (string, error) { return s, nil },
)

// TimeIDKey orders by a timestamp with the id as tiebreaker. Ids are unique, so the
// pair is a total order even when timestamps collide.
type TimeIDKey struct {
	At time.Time
	ID string
}

func (k TimeIDKey) Compare(other TimeIDKey) int {
	if c := k.At.Compare(other.At); c != 0 {
		return c
	}
	return strings.Compare(k.ID, other.ID)
}

const timeIDSeparator = "|"

var errMalformedKey = errors.New("malformed ordering key")

var TimeIDCursor = NewCursorCodec(
	func(k TimeIDKey) string {
		return k.At.UTC().Format(time.RFC3339Nano) + timeIDSeparator + k.ID
	},
	func(s string) (TimeIDKey, error) {
		at, id, ok := strings.Cut(s, timeIDSeparator)
		if !ok || id == "" {
			return TimeIDKey{}, errMalformedKey
		}
		t, err := time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return TimeIDKey{}, err
		}
		return TimeIDKey{At: t, ID: id}, nil
	},
)

// BuildPage trims a probe fetch of up to limit+1 items into a page. When the probe
// item is present the key of the last kept item becomes the next cursor.
func BuildPage[T, K any](items []T, limit int, key func(T) K, codec CursorCodec[K]) Page[T] {
	if len(items) <= limit {
		return Page[T]{Items: items}
	}
	kept := items[:limit]
	return Page[T]{
		Items:      kept,
		NextCursor: codec.Encode(key(kept[len(kept)-1])),
	}
}

// PaginateSlice pages through an in-memory collection ordered by key.
func PaginateSlice[T, K any](items []T, req PageRequest, key func(T) K, compare func(a, b K) int, codec CursorCodec[K]) (Page[T], error) {
	req, err := req.Normalize()
	if err != nil {
		return Page[T]{}, err
	}

	sorted := make([]T, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return compare(key(sorted[i]), key(sorted[j])) < 0
	})

	start := 0
	if req.Cursor != "" {
		after, err := codec.Decode(req.Cursor)
		if err != nil {
			return Page[T]{}, err
		}
		start = sort.Search(len(sorted), func(i int) bool {
			return compare(key(sorted[i]), after) > 0
		})
	}

	end := start + req.Limit + 1
	if end > len(sorted) {
		end = len(sorted)
	}
	return BuildPage(sorted[start:end], req.Limit, key, codec), nil
}
