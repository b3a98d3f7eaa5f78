package auth

import "github.com/AlecAivazis/survey/v2"

// Prompter solicits credentials from the user during an interactive
// authentication flow. Handlers receive it instead of talking to the
// terminal directly so flows stay testable.
type Prompter interface {
	Input(message string) (string, error)
	Password(message string) (string, error)
	Confirm(message string, fallback bool) (bool, error)
}

// Survey is the survey-backed Prompter the CLI passes to handlers.
type Survey struct{}

func (Survey) Input(message string) (string, error) {
	input := survey.Input{Message: message}

	var response string
	err := survey.AskOne(&input, &response)
	return response, err
}

func (Survey) Password(message string) (string, error) {
	password := survey.Password{Message: message}

	var response string
	err := survey.AskOne(&password, &response)
	return response, err
}

func (Survey) Confirm(message string, fallback bool) (bool, error) {
	confirm := survey.Confirm{Message: message, Default: fallback}

	var response bool
	err := survey.AskOne(&confirm, &response)
	return response, err
}
