package login

// Outcome is the result of a single login call: either Success or Failure.
type Outcome interface {
	outcome()
}

type Success struct {
	AccessToken string
}

type Failure struct {
	// Detail is the remote error detail, empty when the response carried none.
	Detail string
}

func (Success) outcome() {}
func (Failure) outcome() {}

const fallbackBanner = "Login failed. Please try again."

// Banner returns the text shown for a failure.
func (f Failure) Banner() string {
	if f.Detail == "" {
		return fallbackBanner
	}
	return f.Detail
}
