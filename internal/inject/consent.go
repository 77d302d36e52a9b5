package inject

import "fmt"

// Prompter asks a yes/no question and reports the answer.
type Prompter func(prompt string) (bool, error)

// TerminalConsent adapts a yes/no prompter, such as utils.Confirm, into a
// ConsentFunc that asks once per secret.
func TerminalConsent(prompt Prompter) ConsentFunc {
	return func(name string) (Decision, error) {
		ok, err := prompt(fmt.Sprintf("Allow the agent to access %s?", name))
		if err != nil {
			return Deny, err
		}
		if ok {
			return Allow, nil
		}
		return Deny, nil
	}
}

// AllowAll grants every request without asking. Used by `run --yes`.
func AllowAll(string) (Decision, error) {
	return Allow, nil
}
