package jobs

type Type string

const (
	JobSendPasswordReset Type = "send_password_reset"
)

// check to see if the job type is a known constant

func (t Type) IsValid() bool {
	switch t {
	case JobSendPasswordReset:
		return true
	default:
		return false
	}
}
