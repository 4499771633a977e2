package entity

import (
	"encoding/json"
	"math"
)

type PaymentKind uint8

const (
	PaymentComputed PaymentKind = iota
	PaymentOverridden
)

// PaymentAmount is derived by default and replaced by an explicit operator
// value only through Overridden. Both forms marshal as a plain number.
type PaymentAmount struct {
	kind  PaymentKind
	value float64
}

const paymentEpsilon = 0.005

func Computed(v float64) PaymentAmount {
	return PaymentAmount{kind: PaymentComputed, value: v}
}

func Overridden(v float64) PaymentAmount {
	return PaymentAmount{kind: PaymentOverridden, value: v}
}

// Reconcile tags a stored amount against the amount computed from items and
// shipping.
func Reconcile(stored, computed float64) PaymentAmount {
	if math.Abs(stored-computed) < paymentEpsilon {
		return Computed(computed)
	}

	return Overridden(stored)
}

func (p PaymentAmount) Value() float64 {
	return p.value
}

func (p PaymentAmount) Kind() PaymentKind {
	return p.kind
}

func (p PaymentAmount) IsOverridden() bool {
	return p.kind == PaymentOverridden
}

func (p PaymentAmount) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.value)
}

// UnmarshalJSON reads a plain number as a computed amount; the tag is
// restored from the items afterwards.
func (p *PaymentAmount) UnmarshalJSON(data []byte) error {
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}

	*p = Computed(v)

	return nil
}
