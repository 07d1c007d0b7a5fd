package item

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle of a catalog item.
type Status string

const (
	StatusAvailable Status = "AVAILABLE"
	StatusReserved  Status = "RESERVED"
	StatusExchanged Status = "EXCHANGED"
)

const (
	MinImages = 1
	MaxImages = 5

	maxTitleLength       = 120
	maxDescriptionLength = 4000
)

var (
	ErrNotFound          = errors.New("item not found")
	ErrLocked            = errors.New("item is reserved or exchanged")
	ErrInvalidTransition = errors.New("invalid item status transition")
	ErrNotOwner          = errors.New("item belongs to another user")
)

// Item is a catalog listing owned by a user.
type Item struct {
	ID          int64     `json:"id"`
	ItemID      uuid.UUID `json:"itemId"`
	OwnerID     uuid.UUID `json:"ownerId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Condition   string    `json:"condition"`
	Images      []string  `json:"images"`
	Status      Status    `json:"status"`
	WishedItem  string    `json:"wishedItem,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// New creates an AVAILABLE item after validating its fields.
func New(ownerID uuid.UUID, title, description, category, condition, wishedItem string, images []string) (*Item, error) {
	i := &Item{
		ItemID:      uuid.New(),
		OwnerID:     ownerID,
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
		Category:    strings.TrimSpace(category),
		Condition:   strings.TrimSpace(condition),
		Images:      images,
		Status:      StatusAvailable,
		WishedItem:  strings.TrimSpace(wishedItem),
		CreatedAt:   time.Now().UTC(),
	}
	i.UpdatedAt = i.CreatedAt
	if err := i.Validate(); err != nil {
		return nil, err
	}
	return i, nil
}

// Validate checks the editable fields of an item.
func (i *Item) Validate() error {
	if i.OwnerID == uuid.Nil {
		return errors.New("owner is required")
	}
	if i.Title == "" {
		return errors.New("title is required")
	}
	if len(i.Title) > maxTitleLength {
		return errors.New("title is too long")
	}
	if len(i.Description) > maxDescriptionLength {
		return errors.New("description is too long")
	}
	if len(i.Images) < MinImages || len(i.Images) > MaxImages {
		return errors.New("an item needs between 1 and 5 images")
	}
	return nil
}

func (i *Item) IsAvailable() bool {
	return i.Status == StatusAvailable
}

func (i *Item) IsOwnedBy(userID uuid.UUID) bool {
	return i.OwnerID == userID
}

// CanTransitionTo checks if the status change is allowed.
func (i *Item) CanTransitionTo(target Status) bool {
	transitions := map[Status][]Status{
		StatusAvailable: {StatusReserved},
		StatusReserved:  {StatusExchanged},
		StatusExchanged: {},
	}
	for _, s := range transitions[i.Status] {
		if s == target {
			return true
		}
	}
	return false
}

// CheckMutable reports whether the owner may still edit or delete the item.
func (i *Item) CheckMutable() error {
	if i.Status != StatusAvailable {
		return ErrLocked
	}
	return nil
}

// MatchesHint reports whether hint is a case-insensitive substring of the title.
// An empty hint never matches.
func (i *Item) MatchesHint(hint string) bool {
	hint = strings.TrimSpace(hint)
	if hint == "" {
		return false
	}
	return strings.Contains(strings.ToLower(i.Title), strings.ToLower(hint))
}

func (i *Item) Clone() *Item {
	if i == nil {
		return nil
	}
	c := *i
	c.Images = append([]string(nil), i.Images...)
	return &c
}

func ValidateStatus(status Status) error {
	switch status {
	case StatusAvailable, StatusReserved, StatusExchanged:
		return nil
	default:
		return errors.New("invalid item status")
	}
}
