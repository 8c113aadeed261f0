package intake

import (
	"context"

	"github.com/charmbracelet/huh"
	"github.com/pkg/errors"
)

// Prompt asks the operator for customer details in the terminal. skipped is true
// when the operator chose not to provide any.
func Prompt(ctx context.Context) (fields map[string]string, skipped bool, err error) {
	var (
		provide    = true
		name       string
		phone      string
		email      string
		customerID string
	)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Customer details").
				Description("Collect customer details before the first message?").
				Affirmative("Enter details").
				Negative("Skip").
				Value(&provide),
		),
		huh.NewGroup(
			huh.NewInput().Title("Name").Value(&name),
			huh.NewInput().Title("Phone").Value(&phone),
			huh.NewInput().Title("Email").Value(&email),
			huh.NewInput().Title("Customer ID").Value(&customerID),
		).WithHideFunc(func() bool { return !provide }),
	).WithTheme(huh.ThemeCharm())

	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return nil, true, nil
		}
		return nil, false, errors.Wrap(err, "run intake form")
	}
	if !provide {
		return nil, true, nil
	}

	return map[string]string{
		FieldName:       name,
		FieldPhone:      phone,
		FieldEmail:      email,
		FieldCustomerID: customerID,
	}, false, nil
}
