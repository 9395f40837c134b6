package models

import "time"

// ListType distinguishes plain checklists from gift wishlists
type ListType string

const (
	ListNormal   ListType = "normal"
	ListWishlist ListType = "wishlist"
)

// Valid reports whether t is a known list type
func (t ListType) Valid() bool {
	return t == ListNormal || t == ListWishlist
}

// List represents a family list
type List struct {
	ID        int64      `json:"id" db:"id"`
	Family    string     `json:"family" db:"family"`
	Title     string     `json:"title" db:"title"`
	Type      ListType   `json:"type" db:"type"`
	CreatedBy string     `json:"created_by" db:"created_by"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// IsDeleted returns true once the list has been soft-deleted
func (l *List) IsDeleted() bool {
	return l.DeletedAt != nil
}

// IsWishlist returns true for gift wishlists
func (l *List) IsWishlist() bool {
	return l.Type == ListWishlist
}

// ListItem is a row of a list. Done only applies to normal lists; the link
// and claim fields only apply to wishlists.
type ListItem struct {
	ID          int64  `json:"id" db:"id"`
	ListID      int64  `json:"list_id" db:"list_id"`
	Text        string `json:"text" db:"text"`
	Done        bool   `json:"done" db:"done"`
	URL         string `json:"url,omitempty" db:"url"`
	ImageURL    string `json:"image_url,omitempty" db:"image_url"`
	ClaimedBy   string `json:"claimed_by,omitempty" db:"claimed_by"`
	PurchasedBy string `json:"purchased_by,omitempty" db:"purchased_by"`
}

// ClaimState is the reservation state of a wishlist item
type ClaimState string

const (
	Unclaimed ClaimState = "unclaimed"
	Claimed   ClaimState = "claimed"
	Purchased ClaimState = "purchased"
)

// ClaimAction is a transition request on a wishlist item
type ClaimAction string

const (
	ActionClaim    ClaimAction = "claim"
	ActionUnclaim  ClaimAction = "unclaim"
	ActionPurchase ClaimAction = "purchase"
)

// State derives the claim state from the stored fields
func (i *ListItem) State() ClaimState {
	switch {
	case i.PurchasedBy != "":
		return Purchased
	case i.ClaimedBy != "":
		return Claimed
	}
	return Unclaimed
}

// Allows reports whether actor may apply action to the item of a wishlist
// created by creator. The creator never takes part, and nothing leaves
// the purchased state.
func (i *ListItem) Allows(action ClaimAction, actor, creator string) bool {
	if actor == "" || actor == creator {
		return false
	}
	switch i.State() {
	case Unclaimed:
		return action == ActionClaim
	case Claimed:
		return (action == ActionUnclaim || action == ActionPurchase) && i.ClaimedBy == actor
	}
	return false
}

// VisibleTo returns the item as viewer may see it. The list's creator never
// sees who claimed or bought a gift.
func (i ListItem) VisibleTo(viewer string, list *List) ListItem {
	if list != nil && list.IsWishlist() && viewer == list.CreatedBy {
		i.ClaimedBy = ""
		i.PurchasedBy = ""
	}
	return i
}
