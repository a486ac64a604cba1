package domain

import "time"

// Customer — запись реестра клиентов. Email уникален в пределах системы.
type Customer struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Address   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate проверяет обязательные поля клиента.
func (c *Customer) Validate() []error {
	var errs []error

	if c.FirstName == "" {
		errs = append(errs, ErrCustomerFirstNameRequired)
	}
	if c.LastName == "" {
		errs = append(errs, ErrCustomerLastNameRequired)
	}
	if c.Email == "" {
		errs = append(errs, ErrCustomerEmailRequired)
	}

	return errs
}
