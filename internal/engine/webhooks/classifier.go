package webhooks

import (
	"encoding/json"
)

// Kind is the semantic meaning of a provider event.
type Kind string

const (
	KindCheckoutStarted       Kind = "checkout_started"
	KindMembershipActivated   Kind = "membership_activated"
	KindMembershipDeactivated Kind = "membership_deactivated"
	KindPaymentSucceeded      Kind = "payment_succeeded"
)

// UnknownType is recorded as the event type when the payload names none.
const UnknownType = "unknown"

// Classification is either Recognized or Unrecognized.
type Classification interface {
	EventType() string
	ProviderEventID() string
}

type Recognized struct {
	Kind       Kind
	RawType    string
	ProviderID string
	UserID     string
	// ProductID is empty when the event kind does not carry a product.
	ProductID string
}

func (r Recognized) EventType() string       { return r.RawType }
func (r Recognized) ProviderEventID() string { return r.ProviderID }

// Unrecognized events are stored but have no further effect.
type Unrecognized struct {
	RawType    string
	ProviderID string
	Reason     string
}

func (u Unrecognized) EventType() string       { return u.RawType }
func (u Unrecognized) ProviderEventID() string { return u.ProviderID }

type extractor func(e *envelope) (userID, productID, missing string)

type rule struct {
	kind    Kind
	extract extractor
}

// rules maps provider event names to the kind they mean and the identifiers
// each kind needs.
var rules = map[string]rule{
	"entry_created":          {KindCheckoutStarted, userAndProduct},
	"payment_pending":        {KindCheckoutStarted, userAndProduct},
	"membership_activated":   {KindMembershipActivated, userWithProduct},
	"membership_deactivated": {KindMembershipDeactivated, userOnly},
	"payment_succeeded":      {KindPaymentSucceeded, userWithProduct},
}

func userAndProduct(e *envelope) (string, string, string) {
	user, product := e.userID(), e.productID()
	switch {
	case user == "":
		return "", "", "user id"
	case product == "":
		return "", "", "product id"
	}
	return user, product, ""
}

func userWithProduct(e *envelope) (string, string, string) {
	user := e.userID()
	if user == "" {
		return "", "", "user id"
	}
	return user, e.productID(), ""
}

func userOnly(e *envelope) (string, string, string) {
	user := e.userID()
	if user == "" {
		return "", "", "user id"
	}
	return user, "", ""
}

// Classify parses a delivery body and resolves its kind. The only error is
// ErrMalformedPayload, for bodies that are not JSON at all.
func Classify(body []byte) (Classification, error) {
	if !json.Valid(body) {
		return nil, ErrMalformedPayload
	}

	var e envelope
	if err := json.Unmarshal(body, &e); err != nil {
		return Unrecognized{RawType: UnknownType, Reason: "payload is not an object"}, nil
	}

	rawType := e.rawType()
	r, ok := rules[rawType]
	if !ok {
		return Unrecognized{RawType: rawType, ProviderID: string(e.ID), Reason: "unmapped event type"}, nil
	}

	user, product, missing := r.extract(&e)
	if missing != "" {
		return Unrecognized{RawType: rawType, ProviderID: string(e.ID), Reason: "missing " + missing}, nil
	}

	return Recognized{
		Kind:       r.kind,
		RawType:    rawType,
		ProviderID: string(e.ID),
		UserID:     user,
		ProductID:  product,
	}, nil
}

// envelope lists every field the classifier reads, in the shapes the
// provider has been seen to send them.
type envelope struct {
	ID         text `json:"id"`
	Type       text `json:"type"`
	Event      text `json:"event"`
	UserID     text `json:"user_id"`
	User       ref  `json:"user"`
	CustomerID text `json:"customer_id"`
	ProdID     text `json:"prod_id"`
	Product    ref  `json:"product"`
	Plan       ref  `json:"plan"`
}

func (e *envelope) rawType() string {
	return firstNonEmpty(e.Type, e.Event, UnknownType)
}

func (e *envelope) userID() string {
	return firstNonEmpty(e.UserID, e.User.ID, e.CustomerID)
}

func (e *envelope) productID() string {
	return firstNonEmpty(e.ProdID, e.Product.ID, e.Plan.ProductID)
}

func firstNonEmpty(values ...text) string {
	for _, v := range values {
		if v != "" {
			return string(v)
		}
	}
	return ""
}

// text accepts a JSON string or number. Any other shape decodes to "".
type text string

func (t *text) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*t = text(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*t = text(n.String())
	}
	return nil
}

// ref is a nested object carrying an identifier. Non-object values decode
// to the zero ref.
type ref struct {
	ID        text `json:"id"`
	ProductID text `json:"product_id"`
}

func (r *ref) UnmarshalJSON(b []byte) error {
	type plain ref
	var v plain
	if err := json.Unmarshal(b, &v); err == nil {
		*r = ref(v)
	}
	return nil
}
