package models

// DefaultPageSize is the number of records per page when the caller does not
// choose one.
const DefaultPageSize = 20

// User is a registered person, keyed by CPF.
//
// Invariants:
//   - CPF is compared as the raw string it was registered with, punctuation
//     included; "123.456.789-09" and "12345678909" are different keys
//   - CPF is immutable after registration (Patch has no CPF field)
type User struct {
	CPF       string `json:"cpf"`
	Name      string `json:"name"`
	BirthDate string `json:"birth_date"`
	Address   string `json:"address"`
	Phone     string `json:"phone"`
	Active    bool   `json:"active"`
}

// Registration is the input for a new User. A nil Active registers the user
// as active.
type Registration struct {
	CPF       string
	Name      string
	BirthDate string
	Address   string
	Phone     string
	Active    *bool
}

// User builds the record to store for r.
func (r Registration) User() User {
	active := true
	if r.Active != nil {
		active = *r.Active
	}
	return User{
		CPF:       r.CPF,
		Name:      r.Name,
		BirthDate: r.BirthDate,
		Address:   r.Address,
		Phone:     r.Phone,
		Active:    active,
	}
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Name      *string
	BirthDate *string
	Address   *string
	Phone     *string
	Active    *bool
}

// ActivePatch returns a Patch that only sets Active.
func ActivePatch(active bool) Patch {
	return Patch{Active: &active}
}

// IsEmpty reports whether p changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Name == nil && p.BirthDate == nil && p.Address == nil && p.Phone == nil && p.Active == nil
}

// Fields names the fields p sets, in declaration order.
func (p Patch) Fields() []string {
	var fields []string
	if p.Name != nil {
		fields = append(fields, "name")
	}
	if p.BirthDate != nil {
		fields = append(fields, "birth_date")
	}
	if p.Address != nil {
		fields = append(fields, "address")
	}
	if p.Phone != nil {
		fields = append(fields, "phone")
	}
	if p.Active != nil {
		fields = append(fields, "active")
	}
	return fields
}

// Apply returns u with the fields named by p replaced.
func (p Patch) Apply(u User) User {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.BirthDate != nil {
		u.BirthDate = *p.BirthDate
	}
	if p.Address != nil {
		u.Address = *p.Address
	}
	if p.Phone != nil {
		u.Phone = *p.Phone
	}
	if p.Active != nil {
		u.Active = *p.Active
	}
	return u
}

// Page is one slice of the name-sorted registry.
type Page struct {
	Items      []User `json:"items"`
	Number     int    `json:"number"`
	Size       int    `json:"size"`
	TotalCount int    `json:"total_count"`
	TotalPages int    `json:"total_pages"`
}
