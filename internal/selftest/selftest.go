// Package selftest runs the fixed registry check sequence used to smoke-test
// a build. Failed checks surface as *AssertionError so callers can tell them
// apart from unexpected failures.
package selftest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cadastro/internal/user/models"
)

// Registry is the surface the checks drive.
type Registry interface {
	ValidateCPF(ctx context.Context, cpf string) bool
	Register(ctx context.Context, r models.Registration) (models.User, error)
	Get(ctx context.Context, cpf string) (models.User, error)
	SetActive(ctx context.Context, cpf string, active bool) bool
	Remove(ctx context.Context, cpf string) int
	List(ctx context.Context) []models.User
	SortedByName(ctx context.Context) []models.User
	Page(ctx context.Context, page int) models.Page
}

// AssertionError reports a check that did not hold.
type AssertionError struct {
	Check string
}

func (e *AssertionError) Error() string {
	return "check failed: " + e.Check
}

// IsAssertion reports whether err is, or wraps, an *AssertionError.
func IsAssertion(err error) bool {
	var ae *AssertionError
	return errors.As(err, &ae)
}

const (
	validCPF   = "032.842.134-06"
	invalidCPF = "123.456.789-00"
)

// Fixtures registered by Run.
var (
	Maria = models.Registration{
		CPF:       "123.456.789-09",
		Name:      "Maria da Silva Santos",
		BirthDate: "1990-05-15",
		Address:   "Rua das Flores, 123 - Centro",
		Phone:     "(11) 98765-4321",
	}
	Antonio = models.Registration{
		CPF:       "987.654.321-00",
		Name:      "Antonio Pereira Lima",
		BirthDate: "1985-10-20",
		Address:   "Avenida Brasil, 500 - Jardim América",
		Phone:     "(11) 91234-5678",
	}
)

func check(ok bool, format string, args ...any) error {
	if ok {
		return nil
	}
	return &AssertionError{Check: fmt.Sprintf(format, args...)}
}

// Run executes the check sequence against an empty registry. It stops at the
// first failure.
func Run(ctx context.Context, reg Registry) error {
	steps := []struct {
		name string
		fn   func(context.Context, Registry) error
	}{
		{"cpf validation", checkValidation},
		{"registration", checkRegistration},
		{"ordering", checkOrdering},
		{"pagination", checkPagination},
		{"activation", checkActivation},
		{"removal", checkRemoval},
	}
	for _, step := range steps {
		if err := step.fn(ctx, reg); err != nil {
			return fmt.Errorf("%s: %w", step.name, err)
		}
	}
	return nil
}

func checkValidation(ctx context.Context, reg Registry) error {
	if err := check(reg.ValidateCPF(ctx, validCPF), "valid CPF %s was rejected", validCPF); err != nil {
		return err
	}
	return check(!reg.ValidateCPF(ctx, invalidCPF), "invalid CPF %s was accepted", invalidCPF)
}

func checkRegistration(ctx context.Context, reg Registry) error {
	for _, r := range []models.Registration{Maria, Antonio} {
		if _, err := reg.Register(ctx, r); err != nil {
			return fmt.Errorf("register %s: %w", r.Name, err)
		}
	}
	if n := len(reg.List(ctx)); n != 2 {
		return check(false, "expected 2 users, found %d", n)
	}
	if _, err := reg.Register(ctx, Maria); err == nil {
		return check(false, "duplicate CPF %s was accepted", Maria.CPF)
	}
	n := len(reg.List(ctx))
	return check(n == 2, "duplicate registration changed the registry to %d users", n)
}

func checkOrdering(ctx context.Context, reg Registry) error {
	sorted := reg.SortedByName(ctx)
	return check(len(sorted) > 0 && strings.HasPrefix(sorted[0].Name, "Antonio"),
		"name ordering incorrect: %v", names(sorted))
}

func checkPagination(ctx context.Context, reg Registry) error {
	page := reg.Page(ctx, 1)
	if err := check(page.TotalCount == 2, "total count %d, want 2", page.TotalCount); err != nil {
		return err
	}
	if err := check(len(page.Items) == 2, "page holds %d items, want 2", len(page.Items)); err != nil {
		return err
	}
	return check(page.TotalPages == 1, "total pages %d, want 1", page.TotalPages)
}

func checkActivation(ctx context.Context, reg Registry) error {
	for _, active := range []bool{false, true} {
		reg.SetActive(ctx, Maria.CPF, active)
		u, err := reg.Get(ctx, Maria.CPF)
		if err != nil {
			return check(false, "user %s missing after SetActive(%t): %v", Maria.CPF, active, err)
		}
		if err := check(u.Active == active, "user %s active=%t, want %t", Maria.CPF, u.Active, active); err != nil {
			return err
		}
	}
	return nil
}

func checkRemoval(ctx context.Context, reg Registry) error {
	reg.Remove(ctx, Antonio.CPF)
	remaining := reg.List(ctx)
	return check(len(remaining) == 1 && remaining[0].CPF == Maria.CPF,
		"after removing %s registry holds %v", Antonio.CPF, names(remaining))
}

func names(users []models.User) []string {
	out := make([]string, len(users))
	for i, u := range users {
		out[i] = u.Name
	}
	return out
}
