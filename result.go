package qmi8658

// Result is the outcome of Open or Close after verification.
type Result int

const (
	OpenSuccess Result = iota
	OpenError
	CloseSuccess
	CloseError
)

func (r Result) String() string {
	switch r {
	case OpenSuccess:
		return "open-success"
	case OpenError:
		return "open-error"
	case CloseSuccess:
		return "close-success"
	case CloseError:
		return "close-error"
	}
	return "unknown-error"
}

func (r Result) OK() bool {
	return r == OpenSuccess || r == CloseSuccess
}
