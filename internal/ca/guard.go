package ca

import "crypto/x509"

// State classifies the on-disk condition of a CA tier.
type State int

const (
	// StateAbsent means neither certificate nor key exists.
	StateAbsent State = iota
	// StatePresent means both certificate and key exist.
	StatePresent
	// StateInconsistent means exactly one of the two exists.
	StateInconsistent
)

func (s State) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StatePresent:
		return "present"
	case StateInconsistent:
		return "inconsistent"
	default:
		return "unknown"
	}
}

// Existing is the result of probing a tier before initialization.
type Existing struct {
	State  State
	Cert   *x509.Certificate
	Detail string
}

// CheckExisting probes the tier artifacts and classifies the state. When the
// tier is present the certificate is loaded so callers can report its
// subject and expiry without touching the private key.
func (s *Store) CheckExisting() (Existing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkExistingLocked()
}

func (s *Store) checkExistingLocked() (Existing, error) {
	hasCert := s.HasCert()
	hasKey := s.HasKey()

	switch {
	case hasCert && hasKey:
		cert, err := s.LoadCert()
		if err != nil {
			return Existing{
				State:  StateInconsistent,
				Detail: "certificate exists but cannot be parsed",
			}, nil
		}
		return Existing{State: StatePresent, Cert: cert}, nil

	case !hasCert && !hasKey:
		return Existing{State: StateAbsent}, nil

	case hasCert:
		return Existing{
			State:  StateInconsistent,
			Detail: "certificate exists but private key is missing",
		}, nil

	default:
		return Existing{
			State:  StateInconsistent,
			Detail: "private key exists but certificate is missing",
		}, nil
	}
}
