package customer

import (
	"errors"
	"fmt"

	"github.com/Zhima-Mochi/minishop-checkout/internal/pkg/validation"
)

var ErrInvalid = errors.New("customer: invalid")

// Address is a postal address used for shipping or billing. It is a value:
// callers copy it, nothing holds a pointer to it.
type Address struct {
	Line       string `json:"address_line" validate:"required"`
	PostalCode string `json:"postal_code" validate:"required"`
	City       string `json:"city" validate:"required"`
	Country    string `json:"country" validate:"required"`
	State      string `json:"state" validate:"required"`
}

func NewAddress(line, postalCode, city, country, state string) (Address, error) {
	a := Address{Line: line, PostalCode: postalCode, City: city, Country: country, State: state}
	if err := a.Validate(); err != nil {
		return Address{}, err
	}
	return a, nil
}

func (a Address) Validate() error {
	if err := validation.Struct(a); err != nil {
		return fmt.Errorf("%w: address: %w", ErrInvalid, err)
	}
	return nil
}

type Customer struct {
	FirstName string  `json:"first_name" validate:"required"`
	LastName  string  `json:"last_name" validate:"required"`
	Email     string  `json:"email" validate:"required,email"`
	Shipping  Address `json:"shipping_address"`
	Billing   Address `json:"billing_address"`
}

func New(firstName, lastName, email string, shipping, billing Address) (Customer, error) {
	c := Customer{
		FirstName: firstName,
		LastName:  lastName,
		Email:     email,
		Shipping:  shipping,
		Billing:   billing,
	}
	if err := c.Validate(); err != nil {
		return Customer{}, err
	}
	return c, nil
}

func (c Customer) Validate() error {
	if err := validation.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

func (c Customer) FullName() string {
	return c.FirstName + " " + c.LastName
}
