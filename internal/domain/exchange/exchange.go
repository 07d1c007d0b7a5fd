package exchange

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status represents the negotiation state of an exchange.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusAccepted  Status = "ACCEPTED"
	StatusRejected  Status = "REJECTED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// Transition names a mutating operation on an exchange.
type Transition string

const (
	TransitionAccept       Transition = "ACCEPT"
	TransitionReject       Transition = "REJECT"
	TransitionAutoReject   Transition = "AUTO_REJECT"
	TransitionModify       Transition = "MODIFY"
	TransitionCounterOffer Transition = "COUNTER_OFFER"
	TransitionConfirm      Transition = "CONFIRM"
	TransitionCancel       Transition = "CANCEL"
)

// Role is the side a user plays in an exchange.
type Role string

const (
	RoleOwner     Role = "OWNER"
	RoleRequester Role = "REQUESTER"
)

// OfferKind discriminates offered entities.
type OfferKind string

const (
	OfferKindCatalog OfferKind = "CATALOG"
	OfferKindAdHoc   OfferKind = "AD_HOC"
)

const MaxMessageLength = 1000

// OtherItem is an off-catalog object described inline in a proposal.
type OtherItem struct {
	OtherItemID uuid.UUID `json:"otherItemId"`
	Description string    `json:"description"`
	Images      []string  `json:"images"`
}

// OfferedEntity is either a catalog item reference or an inline OtherItem.
type OfferedEntity struct {
	Kind   OfferKind  `json:"kind"`
	ItemID uuid.UUID  `json:"itemId"`
	Other  *OtherItem `json:"other,omitempty"`
}

func CatalogOffer(itemID uuid.UUID) OfferedEntity {
	return OfferedEntity{Kind: OfferKindCatalog, ItemID: itemID}
}

func AdHocOffer(other OtherItem) OfferedEntity {
	o := other
	o.Images = append(make([]string, 0, len(other.Images)), other.Images...)
	return OfferedEntity{Kind: OfferKindAdHoc, ItemID: other.OtherItemID, Other: &o}
}

func (e OfferedEntity) IsCatalog() bool {
	return e.Kind == OfferKindCatalog
}

// Exchange is a negotiation between the owner of one requested item and a requester.
type Exchange struct {
	ID                   int64           `json:"id"`
	ExchangeID           uuid.UUID       `json:"exchangeId"`
	OwnerID              uuid.UUID       `json:"ownerId"`
	RequesterID          uuid.UUID       `json:"requesterId"`
	RequestedItemID      uuid.UUID       `json:"requestedItemId"`
	Offered              []OfferedEntity `json:"offered"`
	Status               Status          `json:"status"`
	ConfirmedByOwner     bool            `json:"confirmedByOwner"`
	ConfirmedByRequester bool            `json:"confirmedByRequester"`
	Message              string          `json:"message,omitempty"`
	Version              int64           `json:"version"`
	CreatedAt            time.Time       `json:"createdAt"`
	UpdatedAt            time.Time       `json:"updatedAt"`
}

// NewParams holds the fields of a fresh proposal.
type NewParams struct {
	OwnerID         uuid.UUID
	RequesterID     uuid.UUID
	RequestedItemID uuid.UUID
	Offered         []OfferedEntity
	Message         string
	Now             time.Time
}

// New creates a PENDING exchange.
func New(p NewParams) (*Exchange, error) {
	if p.OwnerID == p.RequesterID {
		return nil, Invalid(ErrSelfTrade)
	}
	msg, err := normalizeMessage(p.Message)
	if err != nil {
		return nil, err
	}
	if err := validateOffer(p.RequestedItemID, p.Offered); err != nil {
		return nil, err
	}
	now := p.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	return &Exchange{
		ExchangeID:      uuid.New(),
		OwnerID:         p.OwnerID,
		RequesterID:     p.RequesterID,
		RequestedItemID: p.RequestedItemID,
		Offered:         cloneOffered(p.Offered),
		Status:          StatusPending,
		Message:         msg,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// OfferedItemIDs returns catalog ids followed by ad-hoc ids, in offer order.
func (e *Exchange) OfferedItemIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(e.Offered))
	for _, o := range e.Offered {
		ids = append(ids, o.ItemID)
	}
	return ids
}

// CatalogItemIDs returns only the catalog references.
func (e *Exchange) CatalogItemIDs() []uuid.UUID {
	var ids []uuid.UUID
	for _, o := range e.Offered {
		if o.IsCatalog() {
			ids = append(ids, o.ItemID)
		}
	}
	return ids
}

// OfferedOtherItems returns the inline entries.
func (e *Exchange) OfferedOtherItems() []OtherItem {
	var others []OtherItem
	for _, o := range e.Offered {
		if o.Other != nil {
			others = append(others, *o.Other)
		}
	}
	return others
}

// RoleOf returns the caller's side or ErrUnauthorized for non-parties.
func (e *Exchange) RoleOf(userID uuid.UUID) (Role, error) {
	switch userID {
	case e.OwnerID:
		return RoleOwner, nil
	case e.RequesterID:
		return RoleRequester, nil
	default:
		return "", ErrUnauthorized
	}
}

func (e *Exchange) IsParty(userID uuid.UUID) bool {
	_, err := e.RoleOf(userID)
	return err == nil
}

// Counterparty returns the other side of userID.
func (e *Exchange) Counterparty(userID uuid.UUID) uuid.UUID {
	if userID == e.OwnerID {
		return e.RequesterID
	}
	return e.OwnerID
}

func (e *Exchange) IsTerminal() bool {
	return e.Status == StatusRejected || e.Status == StatusCompleted || e.Status == StatusCancelled
}

// ContactsVisible reports whether both parties may see each other's contacts.
func (e *Exchange) ContactsVisible() bool {
	return e.Status == StatusCompleted
}

// CanTransitionTo checks if a transition to the target status is valid.
func (e *Exchange) CanTransitionTo(target Status) bool {
	transitions := map[Status][]Status{
		StatusPending:   {StatusAccepted, StatusRejected, StatusCancelled},
		StatusAccepted:  {StatusCompleted},
		StatusRejected:  {},
		StatusCompleted: {},
		StatusCancelled: {},
	}
	for _, s := range transitions[e.Status] {
		if s == target {
			return true
		}
	}
	return false
}

// Accept moves a PENDING exchange to ACCEPTED. Owner only.
func (e *Exchange) Accept(actorID uuid.UUID, now time.Time) error {
	if err := e.require(actorID, RoleOwner); err != nil {
		return err
	}
	if !e.CanTransitionTo(StatusAccepted) {
		return invalidState(TransitionAccept, e.Status)
	}
	e.Status = StatusAccepted
	e.resetConfirmations()
	e.UpdatedAt = now
	return nil
}

// Reject closes a PENDING exchange. Owner only.
func (e *Exchange) Reject(actorID uuid.UUID, now time.Time) error {
	if err := e.require(actorID, RoleOwner); err != nil {
		return err
	}
	if !e.CanTransitionTo(StatusRejected) {
		return invalidState(TransitionReject, e.Status)
	}
	e.Status = StatusRejected
	e.UpdatedAt = now
	return nil
}

// AutoReject closes a sibling PENDING exchange after another offer for the
// same item was accepted. It runs on behalf of the system, so no actor check.
func (e *Exchange) AutoReject(now time.Time) error {
	if !e.CanTransitionTo(StatusRejected) {
		return invalidState(TransitionAutoReject, e.Status)
	}
	e.Status = StatusRejected
	e.UpdatedAt = now
	return nil
}

// Cancel withdraws a PENDING exchange. Requester only.
func (e *Exchange) Cancel(actorID uuid.UUID, now time.Time) error {
	if err := e.require(actorID, RoleRequester); err != nil {
		return err
	}
	if !e.CanTransitionTo(StatusCancelled) {
		return invalidState(TransitionCancel, e.Status)
	}
	e.Status = StatusCancelled
	e.UpdatedAt = now
	return nil
}

// Modify replaces the offer of a PENDING exchange. Requester only.
func (e *Exchange) Modify(actorID uuid.UUID, offered []OfferedEntity, message string, now time.Time) error {
	if err := e.require(actorID, RoleRequester); err != nil {
		return err
	}
	if e.Status != StatusPending {
		return invalidState(TransitionModify, e.Status)
	}
	msg, err := normalizeMessage(message)
	if err != nil {
		return err
	}
	if err := validateOffer(e.RequestedItemID, offered); err != nil {
		return err
	}
	e.Offered = cloneOffered(offered)
	e.Message = msg
	e.resetConfirmations()
	e.UpdatedAt = now
	return nil
}

// AddCounterOffer appends catalog items the owner asks for in addition to the
// current offer. Already offered ids are skipped; the added ids are returned.
func (e *Exchange) AddCounterOffer(actorID uuid.UUID, itemIDs []uuid.UUID, now time.Time) ([]uuid.UUID, error) {
	if err := e.require(actorID, RoleOwner); err != nil {
		return nil, err
	}
	if e.Status != StatusPending {
		return nil, invalidState(TransitionCounterOffer, e.Status)
	}
	seen := make(map[uuid.UUID]struct{}, len(e.Offered)+len(itemIDs))
	for _, o := range e.Offered {
		seen[o.ItemID] = struct{}{}
	}
	seen[e.RequestedItemID] = struct{}{}
	var added []uuid.UUID
	for _, id := range itemIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		added = append(added, id)
	}
	if len(added) == 0 {
		return nil, Invalid(ErrNothingToAdd)
	}
	for _, id := range added {
		e.Offered = append(e.Offered, CatalogOffer(id))
	}
	e.resetConfirmations()
	e.UpdatedAt = now
	return added, nil
}

// ConfirmOutcome describes what a Confirm call changed.
type ConfirmOutcome int

const (
	ConfirmUnchanged ConfirmOutcome = iota
	ConfirmRecorded
	ConfirmCompleted
)

// Confirm records the caller's confirmation on an ACCEPTED exchange. The
// second distinct party completes it. Repeats, including after completion,
// change nothing.
func (e *Exchange) Confirm(actorID uuid.UUID, now time.Time) (ConfirmOutcome, error) {
	role, err := e.RoleOf(actorID)
	if err != nil {
		return ConfirmUnchanged, err
	}
	switch e.Status {
	case StatusCompleted:
		return ConfirmUnchanged, nil
	case StatusAccepted:
	default:
		return ConfirmUnchanged, invalidState(TransitionConfirm, e.Status)
	}

	if e.confirmedBy(role) {
		return ConfirmUnchanged, nil
	}
	if role == RoleOwner {
		e.ConfirmedByOwner = true
	} else {
		e.ConfirmedByRequester = true
	}
	e.UpdatedAt = now
	if e.ConfirmedByOwner && e.ConfirmedByRequester {
		e.Status = StatusCompleted
		return ConfirmCompleted, nil
	}
	return ConfirmRecorded, nil
}

func (e *Exchange) confirmedBy(role Role) bool {
	if role == RoleOwner {
		return e.ConfirmedByOwner
	}
	return e.ConfirmedByRequester
}

func (e *Exchange) resetConfirmations() {
	e.ConfirmedByOwner = false
	e.ConfirmedByRequester = false
}

func (e *Exchange) require(actorID uuid.UUID, role Role) error {
	got, err := e.RoleOf(actorID)
	if err != nil {
		return err
	}
	if got != role {
		return ErrUnauthorized
	}
	return nil
}

func (e *Exchange) Clone() *Exchange {
	if e == nil {
		return nil
	}
	c := *e
	c.Offered = cloneOffered(e.Offered)
	return &c
}

func validateOffer(requestedItemID uuid.UUID, offered []OfferedEntity) error {
	if len(offered) == 0 {
		return Invalid(ErrEmptyOffer)
	}
	for _, o := range offered {
		if o.ItemID == requestedItemID {
			return Invalid(ErrSelfTrade)
		}
		if o.Kind == OfferKindAdHoc && (o.Other == nil || strings.TrimSpace(o.Other.Description) == "") {
			return Invalid(ErrEmptyDescription)
		}
	}
	return nil
}

func normalizeMessage(msg string) (string, error) {
	msg = strings.TrimSpace(msg)
	if len(msg) > MaxMessageLength {
		return "", Invalid(ErrMessageTooLong)
	}
	return msg, nil
}

func cloneOffered(in []OfferedEntity) []OfferedEntity {
	if in == nil {
		return nil
	}
	out := make([]OfferedEntity, 0, len(in))
	for _, o := range in {
		if o.Other != nil {
			out = append(out, AdHocOffer(*o.Other))
			continue
		}
		out = append(out, o)
	}
	return out
}

func ValidateStatus(status Status) error {
	switch status {
	case StatusPending, StatusAccepted, StatusRejected, StatusCompleted, StatusCancelled:
		return nil
	default:
		return errors.New("invalid exchange status")
	}
}
