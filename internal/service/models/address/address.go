package address

// Address is a postal address. Every field is optional.
type Address struct {
	Street  string `json:"street,omitempty"  validate:"max=200"`
	City    string `json:"city,omitempty"    validate:"max=100"`
	State   string `json:"state,omitempty"   validate:"max=100"`
	ZipCode string `json:"zipCode,omitempty" validate:"max=20"`
	Country string `json:"country,omitempty" validate:"max=100"`
}

// IsZero reports whether no field is set.
func (a Address) IsZero() bool {
	return a == Address{}
}
