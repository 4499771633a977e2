package form

//go:generate go tool stringer -type=Step -trimprefix=Step

import (
	"fmt"
	"strconv"
	"strings"

	"orderdesk/internal/entity"
	"orderdesk/internal/validation"
)

// Step is a page of the order wizard.
type Step uint8

const (
	StepCustomer Step = iota + 1
	StepItems
	StepShipping
)

type gate func(v *validation.Validator, in entity.OrderInput) entity.FieldErrors

type transition struct {
	next Step
	prev Step
	gate gate
}

// transitions: forward moves pass the gate of the current step, backward
// moves are never gated. A zero next/prev marks the end of the sequence.
var transitions = map[Step]transition{
	StepCustomer: {
		next: StepItems,
		gate: func(v *validation.Validator, in entity.OrderInput) entity.FieldErrors {
			return v.ValidateCustomer(in.CustomerDetails)
		},
	},
	StepItems: {
		next: StepShipping,
		prev: StepCustomer,
		gate: func(v *validation.Validator, in entity.OrderInput) entity.FieldErrors {
			return v.ValidateItems(in.Items)
		},
	},
	StepShipping: {
		prev: StepItems,
		gate: func(v *validation.Validator, in entity.OrderInput) entity.FieldErrors {
			return v.ValidateShipping(in.ShippingDetails)
		},
	},
}

func (s Step) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Final reports whether s is the submit page.
func (s Step) Final() bool {
	return s.Valid() && transitions[s].next == 0
}

// ParseStep accepts the step name in any case or its number.
func ParseStep(s string) (Step, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if st := Step(n); n > 0 && n < 256 && st.Valid() {
			return st, nil
		}
		return 0, fmt.Errorf("%w: unknown step %q", entity.ErrInvalidData, s)
	}

	for st := range transitions {
		if strings.EqualFold(st.String(), s) {
			return st, nil
		}
	}

	return 0, fmt.Errorf("%w: unknown step %q", entity.ErrInvalidData, s)
}

// CheckStep runs the gate of step against in. next is the step the form
// may move to, or step itself when the gate fails or step is final.
func CheckStep(v *validation.Validator, step Step, in entity.OrderInput) (Step, entity.FieldErrors, error) {
	tr, ok := transitions[step]
	if !ok {
		return 0, nil, fmt.Errorf("%w: unknown step %d", entity.ErrInvalidData, step)
	}

	errs := tr.gate(v, entity.Normalize(in))
	if len(errs) > 0 || tr.next == 0 {
		return step, errs, nil
	}

	return tr.next, errs, nil
}
