package domain

import (
	"strings"
	"time"

	"github.com/rnqayush/starter-sub001/booking-service/internal/interval"
	"github.com/shopspring/decimal"
)

// UnitKind tags the two shapes of bookable inventory.
type UnitKind string

const (
	KindNightly    UnitKind = "nightly"
	KindSingleSlot UnitKind = "single_slot"
)

type Granularity string

const (
	PerNight Granularity = "per_night"
	PerHour  Granularity = "per_hour"
	PerEvent Granularity = "per_event"
)

// BillingUnit maps a pricing granularity to the interval unit it is measured in.
func (g Granularity) BillingUnit() interval.Unit {
	switch g {
	case PerNight:
		return interval.Night
	case PerHour:
		return interval.Hour
	default:
		return interval.Slot
	}
}

type AdjustmentCategory string

const (
	CategoryTax      AdjustmentCategory = "tax"
	CategoryFee      AdjustmentCategory = "fee"
	CategoryDiscount AdjustmentCategory = "discount"
)

type AdjustmentMode string

const (
	ModePercentage AdjustmentMode = "percentage"
	ModeFixed      AdjustmentMode = "fixed"
)

// Adjustment is one named step of the pricing pipeline. Percentages are expressed
// as 0-100 and apply to the running subtotal.
type Adjustment struct {
	Name     string             `json:"name"`
	Category AdjustmentCategory `json:"category"`
	Mode     AdjustmentMode     `json:"mode"`
	Value    decimal.Decimal    `json:"value"`
}

type AddOn struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

// BookableUnit is a category of finite inventory: a room type or a vendor's calendar slot.
type BookableUnit struct {
	ID          string                `json:"id"`
	OwnerID     string                `json:"owner_id"`
	Name        string                `json:"name"`
	Kind        UnitKind              `json:"kind"`
	Granularity Granularity           `json:"granularity"`
	Capacity    int                   `json:"capacity"`
	UnitPrice   decimal.Decimal       `json:"unit_price"`
	Currency    string                `json:"currency"`
	Policy      CancellationPolicy    `json:"cancellation_policy"`
	Adjustments []Adjustment          `json:"adjustments,omitempty"`
	PromoCodes  map[string]Adjustment `json:"promo_codes,omitempty"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

func (u *BookableUnit) BillingUnit() interval.Unit {
	return u.Granularity.BillingUnit()
}

// PublicView is the unit as shown to actors who do not manage it. Promo codes
// are handed out privately and stay hidden.
func (u *BookableUnit) PublicView() *BookableUnit {
	v := *u
	v.PromoCodes = nil
	return &v
}

// Promo looks up a promo code case-insensitively.
func (u *BookableUnit) Promo(code string) (Adjustment, bool) {
	for k, adj := range u.PromoCodes {
		if strings.EqualFold(k, code) {
			return adj, true
		}
	}
	return Adjustment{}, false
}

func (u *BookableUnit) Validate() error {
	if u.ID == "" {
		return InvalidRequestf("unit id is required")
	}
	if u.OwnerID == "" {
		return InvalidRequestf("unit owner is required")
	}
	if u.Capacity < 0 {
		return InvalidRequestf("capacity must not be negative")
	}
	if u.UnitPrice.IsNegative() {
		return InvalidRequestf("unit price must not be negative")
	}
	switch u.Kind {
	case KindNightly:
		if u.Granularity != PerNight && u.Granularity != PerHour {
			return InvalidRequestf("nightly units are priced per_night or per_hour")
		}
	case KindSingleSlot:
		if u.Granularity != PerEvent {
			return InvalidRequestf("single slot units are priced per_event")
		}
		if u.Capacity > 1 {
			return InvalidRequestf("single slot units have a capacity of at most 1")
		}
	default:
		return InvalidRequestf("unknown unit kind %q", u.Kind)
	}
	for _, adj := range u.Adjustments {
		if err := adj.Validate(); err != nil {
			return err
		}
	}
	for code, adj := range u.PromoCodes {
		if adj.Category != CategoryDiscount {
			return InvalidRequestf("promo code %q must be a discount", code)
		}
		if err := adj.Validate(); err != nil {
			return err
		}
	}
	return u.Policy.Validate()
}

func (a Adjustment) Validate() error {
	if a.Name == "" {
		return InvalidRequestf("adjustment name is required")
	}
	switch a.Category {
	case CategoryTax, CategoryFee, CategoryDiscount:
	default:
		return InvalidRequestf("adjustment %q has unknown category %q", a.Name, a.Category)
	}
	switch a.Mode {
	case ModePercentage, ModeFixed:
	default:
		return InvalidRequestf("adjustment %q has unknown mode %q", a.Name, a.Mode)
	}
	if a.Value.IsNegative() {
		return InvalidRequestf("adjustment %q must not be negative", a.Name)
	}
	return nil
}
